/*
Package runner implements the interactive chat loop on top of companion.Agent.

The runner reads one message at a time through a pluggable IOHandler, runs it
as a turn, and presents the reply. OS signals are mapped onto context
cancellation: Ctrl+C during a turn abandons that turn, Ctrl+C at the prompt
ends the session.

# Key Components

  - Runner: the read/turn/print loop.
  - TextHandler: REPL with a "> " prompt and optional markdown rendering.
  - JSONHandler: one JSON object in, one JSON reply out, per line.

# Usage

	r := runner.NewRunner(agent,
		runner.WithSessionID("user-1"),
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)

	if err := r.Run(ctx); err != nil {
		log.Fatal(err)
	}
*/
package runner
