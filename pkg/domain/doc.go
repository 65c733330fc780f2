/*
Package domain contains the core models of the companion turn pipeline.

It defines the per-session TurnState threaded through one turn, the Update value
each stage returns, and the reducer (Merge) the executor uses to fold updates
into state. It also holds the persisted Conversation, the produced Artifact and
the error taxonomy shared by every stage and adapter. The package performs no
I/O.

# Key Entities

  - Message: one entry of the conversation history (user or assistant).
  - TurnState: the mutable record for a single turn (history, workflow, memory context, summary, artifact).
  - Update: a partial result; messages are appended or pruned by id, every other field is overwritten.
  - Conversation: the durable tail of a session (history and summary) loaded at turn start.
  - Artifact: an image or audio payload produced by a response branch.
*/
package domain
