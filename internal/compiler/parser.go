// Package compiler turns raw premise documents into domain premises.
package compiler

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/storychain/pkg/domain"
)

// Parser is responsible for converting raw bytes into a Premise.
// Two layouts are accepted: a markdown document with YAML frontmatter,
// where the body becomes the premise text, and a bare YAML document
// (JSON included, YAML being a superset) with the premise text inline.
type Parser struct{}

// NewParser creates a new parser instance.
func NewParser() *Parser {
	return &Parser{}
}

// premiseHeader mirrors the YAML surface of a premise document.
// Characters stay raw because entries are polymorphic.
type premiseHeader struct {
	Title        string   `yaml:"title"`
	Genre        string   `yaml:"genre"`
	Setting      string   `yaml:"setting"`
	TimePeriod   string   `yaml:"time_period"`
	Premise      string   `yaml:"premise"`
	Characters   []any    `yaml:"characters"`
	Themes       []string `yaml:"themes"`
	PlotElements []string `yaml:"plot_elements"`
}

// Parse decodes a premise document and validates the result.
func (p *Parser) Parse(data []byte) (*domain.Premise, error) {
	meta, body, hasFrontmatter := splitFrontmatter(data)
	if !hasFrontmatter {
		meta = data
	}

	var header premiseHeader
	if err := yaml.Unmarshal(meta, &header); err != nil {
		return nil, fmt.Errorf("failed to parse premise: %w", err)
	}

	premise := &domain.Premise{
		Title:        header.Title,
		Genre:        header.Genre,
		Setting:      header.Setting,
		TimePeriod:   header.TimePeriod,
		Premise:      header.Premise,
		Themes:       header.Themes,
		PlotElements: header.PlotElements,
	}

	// The document layout is authoritative: a non-empty body replaces
	// any premise field in the frontmatter.
	if hasFrontmatter {
		if text := strings.TrimSpace(string(body)); text != "" {
			premise.Premise = text
		}
	}

	characters, err := DecodeCharacters(header.Characters)
	if err != nil {
		return nil, err
	}
	premise.Characters = characters

	if err := premise.Validate(); err != nil {
		return nil, err
	}
	return premise, nil
}

// DecodeCharacters resolves polymorphic character entries: a plain
// string is a name, a map is a full character definition.
func DecodeCharacters(raw []any) ([]domain.Character, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	characters := make([]domain.Character, 0, len(raw))
	for i, item := range raw {
		switch v := item.(type) {
		case string:
			characters = append(characters, domain.Character{Name: v})
		case map[string]any, map[any]any:
			var c domain.Character
			if err := mapstructure.Decode(v, &c); err != nil {
				return nil, fmt.Errorf("failed to decode character %d: %w", i, err)
			}
			characters = append(characters, c)
		default:
			return nil, fmt.Errorf("invalid character definition type: %T", v)
		}
	}
	return characters, nil
}

// splitFrontmatter separates a leading YAML frontmatter block from the
// document body. Both delimiter lines must be exactly "---".
func splitFrontmatter(data []byte) (meta, body []byte, ok bool) {
	lines := bytes.SplitAfter(data, []byte("\n"))
	if len(lines) == 0 || strings.TrimSpace(string(lines[0])) != "---" {
		return nil, nil, false
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(string(lines[i])) == "---" {
			meta = bytes.Join(lines[1:i], nil)
			body = bytes.Join(lines[i+1:], nil)
			return meta, body, true
		}
	}
	return nil, nil, false
}
