package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
		{
			name:  "diacritics folded",
			input: "Über die Prüfung von Stählen",
			want:  "uber die prufung von stahlen",
		},
		{
			name:  "sharp s folded",
			input: "Gießereitechnik",
			want:  "giessereitechnik",
		},
		{
			name:  "non-sort markers stripped",
			input: "<<Der>> Stahlbau",
			want:  "der stahlbau",
		},
		{
			name:  "negation marker stripped",
			input: "¬Die¬ Umformtechnik",
			want:  "die umformtechnik",
		},
		{
			name:  "bracket markers stripped",
			input: "[Festschrift] 100 Jahre Eisenforschung",
			want:  "festschrift 100 jahre eisenforschung",
		},
		{
			name:  "ampersand unified",
			input: "Eisen & Stahl",
			want:  "eisen and stahl",
		},
		{
			name:  "german connective unified",
			input: "Eisen und Stahl",
			want:  "eisen and stahl",
		},
		{
			name:  "separators collapsed",
			input: "Werkstoffkunde: Grundlagen – Anwendung",
			want:  "werkstoffkunde grundlagen anwendung",
		},
		{
			name:  "repeated whitespace collapsed",
			input: "Stahl   und\t Eisen",
			want:  "stahl and eisen",
		},
		{
			name:  "residual punctuation dropped",
			input: "Dr. Müller's Handbuch, 2. Aufl.",
			want:  "dr mullers handbuch 2 aufl",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Fold(tt.input))
		})
	}
}

func TestFold_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"Über die Prüfung von Stählen",
		"<<Der>> Stahlbau: Grundlagen & Praxis",
		"plain ascii title",
		"¬Die¬ Gießerei – Handbuch [2. Auflage]",
	}

	for _, in := range inputs {
		once := Fold(in)
		assert.Equal(t, once, Fold(once), "Fold must be idempotent for %q", in)
	}
}

func TestClean_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"<<Der>> Stahlbau: Grundlagen & Праксис",
		"Über   die Prüfung",
	}

	for _, in := range inputs {
		once := Clean(in)
		assert.Equal(t, once, Clean(once), "Clean must be idempotent for %q", in)
	}
}

func TestClean_PreservesCaseAndAccents(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Über die Prüfung", Clean("<<Über>> die Prüfung"))
}

func TestEqual(t *testing.T) {
	t.Parallel()

	assert.True(t, Equal("Über die Prüfung von Stählen", "Uber die Prufung von Stahlen"))
	assert.True(t, Equal("Eisen & Stahl", "Eisen und Stahl"))
	assert.False(t, Equal("Powder metallurgy", "Casting"))
}
