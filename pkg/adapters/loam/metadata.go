package loam

// PremiseMetadata represents the frontmatter of a premise document.
// It uses "mapstructure" tags to match standard Frontmatter/YAML keys.
// Characters stay untyped because entries are polymorphic: a plain
// string (name only) or a full map.
type PremiseMetadata struct {
	Title      string `json:"title" mapstructure:"title"`
	Genre      string `json:"genre,omitempty" mapstructure:"genre"`
	Setting    string `json:"setting,omitempty" mapstructure:"setting"`
	TimePeriod string `json:"time_period,omitempty" mapstructure:"time_period"`

	// Premise is the inline premise text, used when a document has no
	// body below the frontmatter.
	Premise string `json:"premise,omitempty" mapstructure:"premise"`

	Characters   []any    `json:"characters,omitempty" mapstructure:"characters"`
	Themes       []string `json:"themes,omitempty" mapstructure:"themes"`
	PlotElements []string `json:"plot_elements,omitempty" mapstructure:"plot_elements"`
}
