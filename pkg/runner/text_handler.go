package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/aretw0/companion"
	"github.com/aretw0/companion/internal/presentation/tui"
	"github.com/aretw0/companion/internal/validator"
	"github.com/aretw0/companion/pkg/domain"
)

// ContentRenderer transforms reply text before it is printed.
// This allows markdown-to-ANSI rendering without coupling the loop to a TUI.
type ContentRenderer func(string) (string, error)

// TextHandler implements the interactive REPL interface.
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Renderer ContentRenderer
	Prompt   string

	inputChan chan inputResult
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the content renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// WithPrompt replaces the default "> " prompt.
func WithPrompt(prompt string) TextHandlerOption {
	return func(h *TextHandler) {
		h.Prompt = prompt
	}
}

// NewTextHandler creates a handler for line-oriented text IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Reader: bufio.NewReader(r),
		Writer: w,
		Prompt: "> ",
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// TerminalWidth returns the column count of w when it is a terminal, or 0.
func TerminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}

func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go h.pump()
	})
}

// pump reads lines in the background so Input can honour cancellation while
// the terminal read blocks.
func (h *TextHandler) pump() {
	defer close(h.inputChan)
	for {
		text, err := h.Reader.ReadString('\n')
		if text != "" {
			select {
			case h.inputChan <- inputResult{text: text}:
			case <-h.done:
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				select {
				case h.inputChan <- inputResult{err: err}:
				case <-h.done:
				}
			}
			return
		}
	}
}

// Input prompts and returns the next non-blank, sanitized line.
// Lines the validator rejects are reported and the prompt is shown again.
func (h *TextHandler) Input(ctx context.Context) (string, error) {
	h.initPump()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
			fmt.Fprint(h.Writer, h.Prompt)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case res, ok := <-h.inputChan:
			if !ok {
				return "", io.EOF
			}
			if res.err != nil {
				return "", res.err
			}
			text := strings.TrimSpace(res.text)
			if text == "" {
				continue
			}
			clean, err := validator.SanitizeInput(text)
			if err != nil {
				fmt.Fprintf(h.Writer, "Error: %v. Please try again.\n", err)
				continue
			}
			return clean, nil
		}
	}
}

// Output prints the reply, rendered when a renderer is set, followed by a
// dimmed line naming any generated artifact.
func (h *TextHandler) Output(ctx context.Context, reply *companion.Reply) error {
	output := reply.Text
	if h.Renderer != nil {
		if rendered, err := h.Renderer(output); err == nil {
			output = rendered
		}
	}
	if _, err := fmt.Fprintln(h.Writer, strings.TrimSpace(output)); err != nil {
		return err
	}
	if a := reply.Artifact; a != nil {
		_, err := fmt.Fprintln(h.Writer, tui.Dim(fmt.Sprintf("[%s] %s", a.Kind, a.Path)))
		return err
	}
	return nil
}

func (h *TextHandler) Failure(ctx context.Context, err error) error {
	_, werr := fmt.Fprintf(h.Writer, "[%s] %v\n", domain.KindOf(err), err)
	return werr
}

// Close stops the background reader.
func (h *TextHandler) Close() error {
	h.stopOnce.Do(func() { close(h.done) })
	return nil
}
