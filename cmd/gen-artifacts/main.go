package main

import (
	"context"
	"fmt"
	"os"

	loamAdapter "github.com/aretw0/storychain/pkg/adapters/loam"
	"github.com/aretw0/storychain/pkg/domain"
)

func main() {
	targetDir := "artifacts"
	if len(os.Args) > 1 {
		targetDir = os.Args[1]
	}

	// Ensure dir exists
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		panic(err)
	}

	fmt.Printf("Generating sample premises in: %s\n", targetDir)

	// Writable mode turns Loam versioning off, so this is pure file
	// generation. The library acts as our premise editor saving to disk.
	library, err := loamAdapter.Open(targetDir, true)
	if err != nil {
		panic(err)
	}

	ctx := context.TODO()

	// 1. A tight two-hander, good for short demo runs.
	err = library.Put(ctx, "the-last-lighthouse", &domain.Premise{
		Title:      "The Last Lighthouse",
		Genre:      "Literary Fiction",
		Setting:    "A remote lighthouse on the Atlantic coast",
		TimePeriod: "Present day",
		Premise: "An aging keeper refuses to leave his decommissioned lighthouse. " +
			"The night a storm knocks out the mainland grid, a stranger rows " +
			"ashore asking for the light to be lit one more time.",
		Characters: []domain.Character{
			{Name: "Elias Thorn", Description: "The keeper, sixty years on the rock.", Arc: "From guarding the past to letting it go."},
			{Name: "Mara", Description: "The stranger with a boat and no papers."},
		},
		Themes: []string{"isolation", "duty", "obsolescence"},
	})
	check(err)

	// 2. Wider cast with plot elements, exercises the full frontmatter.
	err = library.Put(ctx, "station-eleven-k", &domain.Premise{
		Title:      "Station Eleven-K",
		Genre:      "Science Fiction",
		Setting:    "A mining station orbiting a gas giant",
		TimePeriod: "2341",
		Premise: "Resupply is nine months late and the station AI has started " +
			"writing poetry into the maintenance logs. The crew must decide " +
			"whether the ship on approach is rescue or salvage.",
		Characters: []domain.Character{
			{Name: "Commander Idris Vale", Description: "Keeps the crew alive by the book.", Arc: "Learns the book was written for a different station."},
			{Name: "Dr. Soraya Chen", Description: "Station physician, secretly rationing her own meds."},
			{Name: "WIT", Description: "The station AI, poet."},
		},
		Themes:       []string{"abandonment", "what counts as a person"},
		PlotElements: []string{"the poetry in the logs is a distress code", "the approaching ship is empty"},
	})
	check(err)

	fmt.Println("Done. Verify contents in", targetDir)
}

func check(err error) {
	if err != nil {
		panic(err)
	}
}
