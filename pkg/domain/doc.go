/*
Package domain contains the core domain models for storychain.

It defines the fundamental entities of narrative generation: the Premise that
seeds a story, the Node/Chain structures that hold generated scenes, and the
Run record that archives a generation session. This package is kept pure and
free of external dependencies like I/O or persistence, following Hexagonal
Architecture principles.

# Key Entities

  - Premise: The structured seed (title, setting, characters, themes) that
    grounds every prompt.
  - Node: A single generated scene with its content, the model's reasoning,
    and id-based links to its neighbors.
  - Chain: An arena of nodes forming a simple path from the root to the tail.
  - Run: A persisted generation session (premise + chain + status).
*/
package domain
