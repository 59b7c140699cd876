package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitleSimilarity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a    string
		b    string
		want float64
		// tolerance for fuzzy cases; 0 means exact comparison
		tol float64
	}{
		{
			name: "identical after folding",
			a:    "Über die Prüfung von Stählen",
			b:    "Uber die Prufung von Stahlen",
			want: 1.0,
		},
		{
			name: "identical strings",
			a:    "Powder metallurgy",
			b:    "Powder metallurgy",
			want: 1.0,
		},
		{
			name: "empty left side",
			a:    "",
			b:    "Powder metallurgy",
			want: 0.0,
		},
		{
			name: "empty right side",
			a:    "Powder metallurgy",
			b:    "",
			want: 0.0,
		},
		{
			name: "disjoint titles score low",
			a:    "Casting",
			b:    "How to make artist dolls",
			want: 0.2,
			tol:  0.2,
		},
		{
			name: "related titles score mid",
			a:    "Materials characterization",
			b:    "Materials characterization for systems performance and reliability",
			want: 0.45,
			tol:  0.2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := TitleSimilarity(tt.a, tt.b)
			if tt.tol == 0 {
				assert.Equal(t, tt.want, got)
			} else {
				assert.InDelta(t, tt.want, got, tt.tol)
			}
		})
	}
}

func TestTitleSimilarity_Symmetric(t *testing.T) {
	t.Parallel()

	a, b := "Werkstoffkunde für Ingenieure", "Werkstoffkunde"
	assert.Equal(t, TitleSimilarity(a, b), TitleSimilarity(b, a))
}

func TestYearDifference(t *testing.T) {
	t.Parallel()

	diff, ok := YearDifference(2010, 2008)
	assert.True(t, ok)
	assert.Equal(t, 2, diff)

	diff, ok = YearDifference(2008, 2010)
	assert.True(t, ok)
	assert.Equal(t, 2, diff)

	_, ok = YearDifference(0, 2010)
	assert.False(t, ok)

	_, ok = YearDifference(2010, 0)
	assert.False(t, ok)
}

func TestExtractPageCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  int
		ok    bool
	}{
		{"188 S.", 188, true},
		{"XV, 250 p.", 250, true},
		{"192 pages", 192, true},
		{"250 Seiten", 250, true},
		{"A35, B21 S.", 35, true},
		{"123", 123, true},
		{"50, 30 S.", 50, true},
		{"", 0, false},
		{"keine Seitenzahl", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, ok := ExtractPageCount(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPagesDifferencePct(t *testing.T) {
	t.Parallel()

	// 188 vs 192: diff 4, avg 190 -> ~2.1%
	pct, ok := PagesDifferencePct("188 S.", "192 p.")
	assert.True(t, ok)
	assert.InDelta(t, 0.021, pct, 0.001)

	// 100 vs 150: diff 50, avg 125 -> 40%
	pct, ok = PagesDifferencePct("100 S.", "150 p.")
	assert.True(t, ok)
	assert.InDelta(t, 0.4, pct, 0.001)

	pct, ok = PagesDifferencePct("250 S.", "250 pages")
	assert.True(t, ok)
	assert.Equal(t, 0.0, pct)

	_, ok = PagesDifferencePct("", "188 p.")
	assert.False(t, ok)

	_, ok = PagesDifferencePct("188 S.", "o. S.")
	assert.False(t, ok)
}

func TestAuthorSimilarity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a    []string
		b    []string
		want float64
		tol  float64
	}{
		{
			name: "identical lists",
			a:    []string{"Hans Müller", "Erich Schmidt"},
			b:    []string{"Hans Müller", "Erich Schmidt"},
			want: 1.0,
		},
		{
			name: "last-first reordering",
			a:    []string{"Müller, Hans"},
			b:    []string{"Hans Müller"},
			want: 1.0,
		},
		{
			name: "initial matches",
			a:    []string{"H. Müller"},
			b:    []string{"Hans Müller"},
			want: 0.9,
		},
		{
			name: "empty side",
			a:    nil,
			b:    []string{"Hans Müller"},
			want: 0.0,
		},
		{
			name: "disjoint authors",
			a:    []string{"Hans Müller"},
			b:    []string{"Erich Schmidt"},
			want: 0.0,
			tol:  0.01,
		},
		{
			name: "partial overlap",
			a:    []string{"Hans Müller", "Erich Schmidt"},
			b:    []string{"Hans Müller"},
			want: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := AuthorSimilarity(tt.a, tt.b)
			if tt.tol == 0 {
				assert.Equal(t, tt.want, got)
			} else {
				assert.InDelta(t, tt.want, got, tt.tol)
			}
		})
	}
}

func TestAuthorSimilarity_Symmetric(t *testing.T) {
	t.Parallel()

	a := []string{"Hans Müller", "Erich Schmidt"}
	b := []string{"Schmidt, E.", "Weber, Karl"}
	assert.Equal(t, AuthorSimilarity(a, b), AuthorSimilarity(b, a))
}
