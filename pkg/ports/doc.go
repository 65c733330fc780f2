/*
Package ports defines the driven ports (interfaces) of the companion turn pipeline.

These interfaces decouple the turn executor from the services it sequences, so
the graph can run against hosted LLMs, local models, or test fakes alike.

# Key Interfaces

  - Completer: free-text and schema-constrained completions from an LLM.
  - MemoryStore: session-partitioned long-term facts (write and top-K query).
  - Embedder: text embeddings used by vector memory backends.
  - ImageGenerator / SpeechSynthesizer: media collaborators for the image and audio branches.
  - ConversationStore: persistence of the conversation tail between turns.
  - DistributedLocker: cross-replica single-writer discipline per session.
*/
package ports
