/*
Package runner implements the generation driver: the epoch loop that grows a
story chain from a premise.

It bridges the pure domain model and the outside world. Each epoch the driver
builds a prompt from the premise and a window of prior scenes, invokes the
configured generator (usually the Ollama client from pkg/inference), parses
the raw response into content and reasoning, and appends the resulting node.
Malformed responses are re-invoked with the same prompt inside a bounded
epoch budget; transport retries live one level down, inside the generator.

# Key Components

  - Runner: The driver itself. Owns the chain during Run and is its only writer.
  - Phase: Where the driver currently is (prompting, invoking, parsing, ...).
  - Options: Sink (durable story.json), Store (run archive for resume),
    LifecycleHooks (logging/metrics), epoch retry budget, partial saves.

# Usage

	r := runner.New(premise, client,
		runner.WithSink(file.NewSink("story.json")),
		runner.WithLogger(logger),
	)

	chain := domain.NewChain()
	if err := r.Run(ctx, chain, 5); err != nil {
		log.Fatal(err)
	}
*/
package runner
