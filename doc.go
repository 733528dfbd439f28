/*
Package storychain grows linear narratives by orchestrating repeated calls to a locally hosted language model, one scene at a time.

It implements an "append-only chain with bounded context" architecture: the full story lives in a doubly linked chain of nodes, while each new scene is generated from the premise plus a sliding window of recent scenes only.

# Concept

Storychain treats a story as a chain of immutable scene nodes. Each generation epoch builds a prompt from the premise and the tail of the chain, sends it to the model, splits the response into visible content and hidden reasoning, and appends the result. The engine manages prompting, retries, parsing and persistence, while your application ("Host") decides where premises come from and where stories go. This Hexagonal Architecture allows storychain to be embedded in any interface: CLI, HTTP Server, or AI Agent infrastructure.

# Key Features

  - Bounded Context: prompts quote a fixed window of recent scenes, so cost does not grow with story length.
  - Hexagonal Architecture: core logic is decoupled from adapters (Inference, Storage, UI).
  - Durable Runs: chains persist as plain JSON, and an optional archive enables stop-and-resume workflows.
  - Strict Contracts: chain integrity is verifiable, and every model exchange can be audited verbatim.

# Usage

Initialize the engine with a premise and call Generate. By default it talks to an Ollama server on localhost; inject a custom generator for anything else.

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/storychain"
		"github.com/aretw0/storychain/pkg/domain"
	)

	func main() {
		premise := &domain.Premise{
			Title:   "The Last Signal",
			Genre:   "mystery",
			Premise: "A radio operator hears a broadcast from a station that burned down years ago.",
		}

		eng, err := storychain.New(premise,
			storychain.WithModel("deepseek-r1:32b"),
			storychain.WithOutput("story.json"),
			storychain.WithAuditLog("ai_log.txt"),
		)
		if err != nil {
			log.Fatal(err)
		}
		defer eng.Close()

		// Grow the story by five scenes.
		chain, err := eng.Generate(context.Background(), 5)
		if err != nil {
			log.Fatal(err)
		}

		for node := range chain.Traverse() {
			fmt.Printf("%s:\n%s\n\n", node.ID, node.Content)
		}
	}
*/
package storychain
