package domain

import (
	"errors"
	"testing"
)

func TestPremiseValidate(t *testing.T) {
	tests := []struct {
		name    string
		premise *Premise
		wantErr bool
	}{
		{
			name:    "nil premise",
			premise: nil,
			wantErr: true,
		},
		{
			name: "minimal valid",
			premise: &Premise{
				Title:   "The Last Signal",
				Premise: "A radio operator hears a broadcast from a station that burned down years ago.",
			},
			wantErr: false,
		},
		{
			name: "missing title",
			premise: &Premise{
				Premise: "Something happens.",
			},
			wantErr: true,
		},
		{
			name: "blank premise text",
			premise: &Premise{
				Title:   "Untold",
				Premise: "   \n\t",
			},
			wantErr: true,
		},
		{
			name: "character without name",
			premise: &Premise{
				Title:   "The Last Signal",
				Premise: "A story.",
				Characters: []Character{
					{Name: "Mara", Description: "operator"},
					{Description: "the voice on the radio"},
				},
			},
			wantErr: true,
		},
		{
			name: "full premise",
			premise: &Premise{
				Title:      "The Last Signal",
				Genre:      "mystery",
				Setting:    "a coastal relay station",
				TimePeriod: "1987",
				Premise:    "A radio operator hears a broadcast that should not exist.",
				Characters: []Character{
					{Name: "Mara", Description: "night-shift operator", Arc: "skeptic to believer"},
				},
				Themes:       []string{"isolation", "grief"},
				PlotElements: []string{"the burned station", "the recurring date"},
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.premise.Validate()
			if tt.wantErr && err == nil {
				t.Error("Validate accepted an invalid premise")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate rejected a valid premise: %v", err)
			}
			if tt.wantErr && err != nil && !errors.Is(err, ErrInvalidPremise) {
				t.Errorf("error %v does not wrap ErrInvalidPremise", err)
			}
		})
	}
}
