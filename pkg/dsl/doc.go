/*
Package dsl provides a Go DSL (Domain Specific Language) for programmatically constructing storychain premises.

It allows developers to define premises using a type-safe, fluent builder pattern
instead of relying on external YAML or markdown artifacts. This is particularly useful
for dynamic premise generation, unit testing, and leveraging IDE autocompletion.

Example usage:

	package main

	import (
		"log"

		"github.com/aretw0/storychain"
		"github.com/aretw0/storychain/pkg/dsl"
	)

	func main() {
		premise, err := dsl.NewPremise("The Last Lighthouse").
			Genre("Literary Fiction").
			Setting("A remote lighthouse on the Atlantic coast").
			Text("An aging keeper refuses to leave his decommissioned lighthouse.").
			Character("Elias Thorn").
			Describe("The keeper, sixty years on the rock.").
			Arc("From guarding the past to letting it go.").
			And().
			Character("Mara").
			Describe("The stranger with a boat and no papers.").
			And().
			Themes("isolation", "duty").
			Build()
		if err != nil {
			log.Fatal(err)
		}

		// The resulting premise seeds an engine.
		eng, err := storychain.New(premise)
		// ...
		_ = eng
	}
*/
package dsl
