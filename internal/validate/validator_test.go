package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibfuse/reconciliation-service/internal/domain"
)

func baseRecord() domain.BaseRecord {
	return domain.BaseRecord{
		ID: "vdeh-001",
		BibFields: domain.BibFields{
			Title:   "Über die Prüfung von Stählen",
			Authors: []string{"Hans Müller"},
			Year:    1962,
			Pages:   "188 S.",
		},
	}
}

func candidate(strategy domain.Strategy, fields domain.BibFields) domain.CandidateVariant {
	return domain.CandidateVariant{
		BibFields: fields,
		Source:    "dnb",
		Strategy:  strategy,
	}
}

func TestValidate_RuleA_NormalizedIdentity(t *testing.T) {
	t.Parallel()

	v := New(DefaultThresholds())
	c := candidate(domain.StrategyIdentifier, domain.BibFields{
		Title: "Uber die Prufung von Stahlen",
		Year:  1962,
	})

	verdict := v.Validate(baseRecord(), c)

	assert.True(t, verdict.Accepted)
	assert.Equal(t, domain.ReasonSimilarity, verdict.Reason)
	assert.Equal(t, 1.0, verdict.TitleSimilarity)
}

func TestValidate_RuleB_PagesRescue(t *testing.T) {
	t.Parallel()

	v := New(DefaultThresholds())
	base := baseRecord()
	// Pick a candidate title in the borderline band.
	c := candidate(domain.StrategyTitleYear, domain.BibFields{
		Title: "Über die Prüfung von Stahl und Eisenwerkstoffen",
		Year:  1962,
		Pages: "192 p.",
	})

	verdict := v.Validate(base, c)

	require.True(t, verdict.TitleSimilarity >= 0.5 && verdict.TitleSimilarity < 0.7,
		"test candidate must land in the borderline band, got %.2f", verdict.TitleSimilarity)
	require.NotNil(t, verdict.PagesDifferencePct)
	assert.InDelta(t, 0.021, *verdict.PagesDifferencePct, 0.001)
	assert.True(t, verdict.Accepted)
	assert.Equal(t, domain.ReasonSimilarityPages, verdict.Reason)
}

func TestValidate_RuleB_PagesTooDifferent(t *testing.T) {
	t.Parallel()

	v := New(DefaultThresholds())
	base := baseRecord()
	base.Pages = "100 S."
	c := candidate(domain.StrategyTitleYear, domain.BibFields{
		Title: "Über die Prüfung von Stahl und Eisenwerkstoffen",
		Year:  1962,
		Pages: "150 p.",
	})

	verdict := v.Validate(base, c)

	require.NotNil(t, verdict.PagesDifferencePct)
	assert.InDelta(t, 0.4, *verdict.PagesDifferencePct, 0.001)
	assert.False(t, verdict.Accepted)
	assert.Contains(t, verdict.Reason, "pages difference")
}

func TestValidate_RuleB_NoPagesToCorroborate(t *testing.T) {
	t.Parallel()

	v := New(DefaultThresholds())
	base := baseRecord()
	base.Pages = ""
	c := candidate(domain.StrategyTitleAuthor, domain.BibFields{
		Title: "Über die Prüfung von Stahl und Eisenwerkstoffen",
	})

	verdict := v.Validate(base, c)

	assert.False(t, verdict.Accepted)
	assert.Nil(t, verdict.PagesDifferencePct)
	assert.Contains(t, verdict.Reason, "no page counts")
}

func TestValidate_LowSimilarityRejected(t *testing.T) {
	t.Parallel()

	v := New(DefaultThresholds())
	c := candidate(domain.StrategyTitleAuthor, domain.BibFields{
		Title: "How to make artist dolls",
		Pages: "188 S.",
	})

	verdict := v.Validate(baseRecord(), c)

	assert.False(t, verdict.Accepted)
	assert.Contains(t, verdict.Reason, "below minimum")
}

func TestValidate_YearGate(t *testing.T) {
	t.Parallel()

	v := New(DefaultThresholds())
	base := baseRecord()

	matching := domain.BibFields{
		Title: base.Title,
		Year:  1950, // 12 years off
	}

	t.Run("non-identifier strategy rejected on year", func(t *testing.T) {
		t.Parallel()
		verdict := v.Validate(base, candidate(domain.StrategyTitleAuthor, matching))
		assert.False(t, verdict.Accepted)
		assert.Contains(t, verdict.Reason, "year difference")
	})

	t.Run("identifier strategy trusted over year", func(t *testing.T) {
		t.Parallel()
		verdict := v.Validate(base, candidate(domain.StrategyIdentifier, matching))
		assert.True(t, verdict.Accepted)
	})

	t.Run("unknown year is not a rejection ground", func(t *testing.T) {
		t.Parallel()
		noYear := matching
		noYear.Year = 0
		verdict := v.Validate(base, candidate(domain.StrategyTitleAuthor, noYear))
		assert.True(t, verdict.Accepted)
		assert.Nil(t, verdict.YearDifference)
	})
}

func TestValidate_EdgeCases(t *testing.T) {
	t.Parallel()

	v := New(DefaultThresholds())
	base := baseRecord()

	t.Run("empty candidate rejected before scoring", func(t *testing.T) {
		t.Parallel()
		verdict := v.Validate(base, candidate(domain.StrategyIdentifier, domain.BibFields{}))
		assert.False(t, verdict.Accepted)
		assert.Contains(t, verdict.Reason, "empty candidate")
		assert.Zero(t, verdict.TitleSimilarity)
	})

	t.Run("missing base title rejects", func(t *testing.T) {
		t.Parallel()
		untitled := base
		untitled.Title = ""
		verdict := v.Validate(untitled, candidate(domain.StrategyIdentifier, domain.BibFields{Title: "Stahlbau"}))
		assert.False(t, verdict.Accepted)
		assert.Contains(t, verdict.Reason, "title missing")
	})

	t.Run("missing candidate title rejects", func(t *testing.T) {
		t.Parallel()
		verdict := v.Validate(base, candidate(domain.StrategyIdentifier, domain.BibFields{Year: 1962}))
		assert.False(t, verdict.Accepted)
		assert.Contains(t, verdict.Reason, "title missing")
	})

	t.Run("negative year is malformed", func(t *testing.T) {
		t.Parallel()
		verdict := v.Validate(base, candidate(domain.StrategyIdentifier, domain.BibFields{
			Title: base.Title,
			Year:  -5,
		}))
		assert.False(t, verdict.Accepted)
		assert.Contains(t, verdict.Reason, "malformed")
	})
}

func TestValidate_Deterministic(t *testing.T) {
	t.Parallel()

	v := New(DefaultThresholds())
	base := baseRecord()
	c := candidate(domain.StrategyTitleYear, domain.BibFields{
		Title: "Über die Prüfung von Stahl und Eisenwerkstoffen",
		Year:  1963,
		Pages: "190 S.",
	})

	first := v.Validate(base, c)
	for range 10 {
		assert.Equal(t, first, v.Validate(base, c))
	}
}
