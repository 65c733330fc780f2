package cli

import (
	"context"
	"io"
	"os"

	"github.com/aretw0/companion/internal/presentation/tui"
	"github.com/aretw0/companion/pkg/runner"
)

// ChatOptions configures an interactive session.
type ChatOptions struct {
	SessionID string
	// JSON switches to one JSON object per line in both directions.
	JSON bool
	// Plain disables markdown rendering and the banner.
	Plain bool
	In    io.Reader
	Out   io.Writer
}

// RunChat talks to app.Agent until the input ends or the user quits.
func RunChat(ctx context.Context, app *App, opts ChatOptions) error {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	var handler runner.IOHandler
	if opts.JSON {
		handler = runner.NewJSONHandler(opts.In, opts.Out)
	} else {
		var hopts []runner.TextHandlerOption
		if !opts.Plain {
			tui.PrintBanner(opts.Out)
			hopts = append(hopts, runner.WithTextHandlerRenderer(tui.NewRenderer(runner.TerminalWidth(opts.Out))))
		}
		handler = runner.NewTextHandler(opts.In, opts.Out, hopts...)
	}

	r := runner.NewRunner(app.Agent,
		runner.WithInputHandler(handler),
		runner.WithSessionID(opts.SessionID),
		runner.WithLogger(app.Logger),
	)
	return r.Run(ctx)
}
