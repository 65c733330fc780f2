/*
Package companion runs the turns of a multimodal conversational agent.

Every user message executes one pass over a fixed graph of stages:

	memory_extract -> router -> memory_inject -> {conversation | image | audio} -> [summarize]

The router classifies the request, the chosen branch produces a text reply,
an image with a caption, or a spoken reply, and the history is folded into a
running summary once it grows past a threshold. Stages never mutate shared
state; they return updates the runtime merges, so a failed turn leaves the
stored conversation untouched.

# Usage

	agent, err := companion.New(companion.Dependencies{
		Completer: groq.New(groq.Config{APIKey: key}),
		Memory:    memories,
		Images:    flux.New(flux.Config{APIKey: rapidKey}),
		Speech:    edgetts.New(edgetts.Config{}),
	}, companion.WithStore(file.New(".companion/sessions")))
	if err != nil {
		log.Fatal(err)
	}

	reply, err := agent.HandleMessage(ctx, "session-123", "draw me a cat in a spacesuit")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(reply.Text, reply.Artifact.Path)

Transports live in pkg/adapters/http (JSON API) and pkg/runner (terminal
REPL); cmd/companion wires them from configuration.
*/
package companion
