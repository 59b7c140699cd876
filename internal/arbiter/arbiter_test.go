package arbiter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bibfuse/reconciliation-service/internal/domain"
)

func TestParseResponse(t *testing.T) {
	t.Parallel()

	labels := []string{"A", "B"}

	tests := []struct {
		name       string
		raw        string
		wantChoice string
		wantNone   bool
	}{
		{
			name:       "plain label with reasoning",
			raw:        "A - identifier match confirms the same edition",
			wantChoice: "A",
		},
		{
			name:       "second label",
			raw:        "B - title and authors agree, candidate A differs in authors",
			wantChoice: "B",
		},
		{
			name:     "none with reasoning",
			raw:      "NONE - titles describe clearly different works",
			wantNone: true,
		},
		{
			name:     "none without reasoning",
			raw:      "NONE",
			wantNone: true,
		},
		{
			name:       "both fit resolves to priority order",
			raw:        "A&B - both candidates describe the same work",
			wantChoice: "A",
		},
		{
			name:       "lowercase answer",
			raw:        "a - matches on title and year",
			wantChoice: "A",
		},
		{
			name:       "multi-line answer uses first line",
			raw:        "B - closer author match\nAdditional commentary ignored.",
			wantChoice: "B",
		},
		{
			name:     "empty response is none",
			raw:      "",
			wantNone: true,
		},
		{
			name:     "garbage is none",
			raw:      "I think the answer depends on several factors...",
			wantNone: true,
		},
		{
			name:     "unknown label is none",
			raw:      "C - sounds right",
			wantNone: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := ParseResponse(tt.raw, labels)
			if tt.wantNone {
				assert.True(t, d.None(), "expected a none decision, got choice %q", d.Choice)
			} else {
				assert.Equal(t, tt.wantChoice, d.Choice)
			}
			assert.NotEmpty(t, d.Reasoning)
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	req := Request{
		Base: domain.BaseRecord{
			ID: "vdeh-042",
			BibFields: domain.BibFields{
				Title:    "Werkstoffkunde Stahl",
				Authors:  []string{"Hans Müller"},
				Year:     2010,
				Language: "ger",
			},
		},
		Candidates: []Labeled{
			{
				Label: "A",
				Candidate: domain.CandidateVariant{
					Source:   "dnb",
					Strategy: domain.StrategyIdentifier,
					BibFields: domain.BibFields{
						Title: "Werkstoffkunde Stahl",
						Year:  2010,
						ISBN:  "978-3-540-12345-6",
					},
				},
			},
			{
				Label: "B",
				Candidate: domain.CandidateVariant{
					Source:   "loc",
					Strategy: domain.StrategyTitleAuthor,
					BibFields: domain.BibFields{
						Title: "Werkstoffkunde Stahl",
						Year:  2010,
					},
				},
			},
		},
		Confirmations: []string{"year"},
		Conflicts: map[string]map[string]string{
			"publisher": {
				"base": "Springer",
				"dnb":  "Springer Vieweg",
			},
		},
		LanguageHint: "ger",
	}

	systemPrompt, userPrompt := BuildPrompt(req)

	assert.Contains(t, systemPrompt, "Title and authors dominate")
	assert.Contains(t, systemPrompt, "ger")
	assert.Contains(t, systemPrompt, "never a reason to reject")

	assert.Contains(t, userPrompt, "BASE RECORD:")
	assert.Contains(t, userPrompt, "CANDIDATE A (dnb/identifier):")
	assert.Contains(t, userPrompt, "CANDIDATE B (loc/title_author):")
	assert.Contains(t, userPrompt, "confirmed by two or more sources: year")
	assert.Contains(t, userPrompt, "publisher")
	assert.Contains(t, userPrompt, "NONE - [justification")
	// A field present only on one side must not surface as a conflict.
	assert.NotContains(t, userPrompt, "- isbn: base=")
	// Missing fields render as "not present" so the oracle can apply rule 6.
	assert.Contains(t, userPrompt, "not present")
}
