package compiler

import (
	"errors"
	"testing"

	"github.com/aretw0/storychain/pkg/domain"
)

func TestParse_Frontmatter(t *testing.T) {
	doc := []byte(`---
title: The Last Signal
genre: mystery
setting: a coastal relay station
time_period: "1987"
characters:
  - Mara
  - name: The Voice
    description: heard only at night
    arc: unknown to revealed
themes:
  - isolation
plot_elements:
  - the burned station
---
A radio operator hears a broadcast from a station that burned down years ago.

She starts writing the transmissions down.`)

	p := NewParser()
	premise, err := p.Parse(doc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if premise.Title != "The Last Signal" {
		t.Errorf("title = %q", premise.Title)
	}
	if premise.Genre != "mystery" {
		t.Errorf("genre = %q", premise.Genre)
	}
	if premise.TimePeriod != "1987" {
		t.Errorf("time_period = %q", premise.TimePeriod)
	}
	if want := "A radio operator hears a broadcast from a station that burned down years ago.\n\nShe starts writing the transmissions down."; premise.Premise != want {
		t.Errorf("premise text = %q, want %q", premise.Premise, want)
	}

	if len(premise.Characters) != 2 {
		t.Fatalf("characters = %d, want 2", len(premise.Characters))
	}
	if premise.Characters[0].Name != "Mara" || premise.Characters[0].Description != "" {
		t.Errorf("characters[0] = %+v", premise.Characters[0])
	}
	if premise.Characters[1].Name != "The Voice" || premise.Characters[1].Arc != "unknown to revealed" {
		t.Errorf("characters[1] = %+v", premise.Characters[1])
	}

	if len(premise.Themes) != 1 || premise.Themes[0] != "isolation" {
		t.Errorf("themes = %v", premise.Themes)
	}
	if len(premise.PlotElements) != 1 || premise.PlotElements[0] != "the burned station" {
		t.Errorf("plot_elements = %v", premise.PlotElements)
	}
}

func TestParse_BareYAML(t *testing.T) {
	doc := []byte(`title: Orbit Decay
genre: sci-fi
premise: A salvage crew finds a station that should not exist.
characters:
  - name: Chief Adeyemi
`)

	premise, err := NewParser().Parse(doc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if premise.Title != "Orbit Decay" {
		t.Errorf("title = %q", premise.Title)
	}
	if premise.Premise != "A salvage crew finds a station that should not exist." {
		t.Errorf("premise text = %q", premise.Premise)
	}
}

func TestParse_JSONDocument(t *testing.T) {
	doc := []byte(`{"title": "Orbit Decay", "premise": "A salvage crew finds a station that should not exist."}`)

	premise, err := NewParser().Parse(doc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if premise.Title != "Orbit Decay" {
		t.Errorf("title = %q", premise.Title)
	}
}

func TestParse_BodyOverridesPremiseField(t *testing.T) {
	doc := []byte(`---
title: Orbit Decay
premise: ignored inline text
---
The body wins.`)

	premise, err := NewParser().Parse(doc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if premise.Premise != "The body wins." {
		t.Errorf("premise text = %q", premise.Premise)
	}
}

func TestParse_EmptyBodyKeepsPremiseField(t *testing.T) {
	doc := []byte(`---
title: Orbit Decay
premise: The inline text survives.
---
`)

	premise, err := NewParser().Parse(doc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if premise.Premise != "The inline text survives." {
		t.Errorf("premise text = %q", premise.Premise)
	}
}

func TestParse_ValidationFailures(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"missing title", "premise: Text without a title."},
		{"missing premise", "title: No Premise"},
		{"unnamed character", "title: T\npremise: P\ncharacters:\n  - description: nameless"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewParser().Parse([]byte(tc.doc))
			if !errors.Is(err, domain.ErrInvalidPremise) {
				t.Errorf("error = %v, want ErrInvalidPremise", err)
			}
		})
	}
}

func TestParse_MalformedDocuments(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"broken yaml", "title: [unclosed"},
		{"bad character type", "title: T\npremise: P\ncharacters:\n  - 42"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewParser().Parse([]byte(tc.doc)); err == nil {
				t.Error("Parse succeeded, want error")
			}
		})
	}
}

func TestSplitFrontmatter(t *testing.T) {
	meta, body, ok := splitFrontmatter([]byte("---\ntitle: x\n---\nbody text"))
	if !ok {
		t.Fatal("frontmatter not detected")
	}
	if string(meta) != "title: x\n" {
		t.Errorf("meta = %q", meta)
	}
	if string(body) != "body text" {
		t.Errorf("body = %q", body)
	}

	if _, _, ok := splitFrontmatter([]byte("title: x")); ok {
		t.Error("detected frontmatter in a bare document")
	}
	if _, _, ok := splitFrontmatter([]byte("---\ntitle: unterminated")); ok {
		t.Error("detected frontmatter without a closing delimiter")
	}
}
