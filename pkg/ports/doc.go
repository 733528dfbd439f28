/*
Package ports defines the driven ports (interfaces) for the storychain engine.

These interfaces decouple the generation loop from external implementations,
allowing the driver to work with various inference backends, archives, and
audit destinations.

# Key Interfaces

  - Generator: Produces raw model text for a prompt (e.g., the Ollama client).
  - PromptBuilder: Assembles the per-epoch prompt from premise and prior scenes.
  - ChainSink: Writes a finished (or partial) chain to durable storage.
  - RunStore: Persists and retrieves archived runs for inspection and resume.
  - AuditLog: Records every prompt/response exchange verbatim.
  - DistributedLocker: Provides distributed locking for concurrent run access.
*/
package ports
