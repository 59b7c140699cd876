package arbiter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bibfuse/reconciliation-service/internal/domain"
)

// BuildPrompt renders the arbitration question. The system prompt states the
// oracle's role and the decision policy; the user prompt lays out the base
// record, each labeled candidate, and the observed conflicts and
// confirmations, then pins the answer to a one-line grammar.
func BuildPrompt(req Request) (systemPrompt, userPrompt string) {
	return buildSystemPrompt(req), buildUserPrompt(req)
}

// buildSystemPrompt states the decision policy. The engine never enforces
// these rules mechanically; they exist only here.
func buildSystemPrompt(req Request) string {
	var sb strings.Builder

	sb.WriteString("You are an experienced cataloging librarian. Given a base ")
	sb.WriteString("bibliographic record and one or more candidate records retrieved ")
	sb.WriteString("from external catalogs, decide which candidate describes the same ")
	sb.WriteString("work as the base record, or that none does.\n\n")

	sb.WriteString("Decision rules:\n")
	sb.WriteString("1. Title and authors dominate the decision. Year differences of up ")
	sb.WriteString("to 2, or a missing year, are acceptable. Be tolerant about publisher wording.\n")
	sb.WriteString("2. Ignore case, diacritics, abbreviations, and minor spelling variants.\n")
	sb.WriteString("3. If several candidates fit equally well, prefer the one retrieved ")
	sb.WriteString("by identifier (ISBN/ISSN) over title/author or title/year retrieval.\n")
	if req.LanguageHint != "" {
		sb.WriteString("4. When sources disagree, prefer the candidate whose catalog matches ")
		sb.WriteString(fmt.Sprintf("the record's language (%s).\n", req.LanguageHint))
	}
	sb.WriteString("5. Answer NONE only when the works are clearly different (title AND ")
	sb.WriteString("authors substantially disagree).\n")
	sb.WriteString("6. A missing field on its own is never a reason to reject a candidate.\n")

	return sb.String()
}

// buildUserPrompt lays out the records and fixes the answer grammar.
func buildUserPrompt(req Request) string {
	var sb strings.Builder

	sb.WriteString("BASE RECORD:\n")
	sb.WriteString(formatRecord(req.Base.BibFields))
	sb.WriteString("\n")

	for _, lc := range req.Candidates {
		sb.WriteString(fmt.Sprintf("\nCANDIDATE %s (%s):\n", lc.Label, lc.Candidate.Label()))
		sb.WriteString(formatRecord(lc.Candidate.BibFields))
		sb.WriteString("\n")
	}

	if len(req.Confirmations) > 0 {
		sb.WriteString("\nFields confirmed by two or more sources: ")
		sb.WriteString(strings.Join(req.Confirmations, ", "))
		sb.WriteString("\n")
	}
	if len(req.Conflicts) > 0 {
		sb.WriteString("\nConflicting fields:\n")
		for _, field := range sortedKeys(req.Conflicts) {
			sb.WriteString(fmt.Sprintf("- %s: ", field))
			values := req.Conflicts[field]
			parts := make([]string, 0, len(values))
			for _, src := range sortedKeys(values) {
				parts = append(parts, fmt.Sprintf("%s=%q", src, values[src]))
			}
			sb.WriteString(strings.Join(parts, ", "))
			sb.WriteString("\n")
		}
	}

	labels := make([]string, len(req.Candidates))
	for i, lc := range req.Candidates {
		labels[i] = lc.Label
	}
	sb.WriteString("\nAnswer with EXACTLY one line in one of these forms:\n")
	for _, l := range labels {
		sb.WriteString(fmt.Sprintf("%s - [justification]\n", l))
	}
	sb.WriteString("NONE - [justification why no candidate fits]\n")

	return sb.String()
}

// formatRecord renders one record for the prompt, writing "not present" for
// missing fields so the oracle can apply rule 6.
func formatRecord(b domain.BibFields) string {
	var sb strings.Builder
	for _, name := range domain.FieldNames() {
		value := b.FieldValue(name)
		if value == "" {
			value = "not present"
		}
		sb.WriteString(fmt.Sprintf("- %s: %s\n", name, value))
	}
	return sb.String()
}

// ParseResponse extracts the oracle's choice from its raw answer.
//
// Accepted grammar, first line only: "<LABEL> - reasoning",
// "NONE - reasoning", or an "A&B"-style both-fit answer, which resolves to
// whichever of its labels comes first in the labels slice (priority order).
// Anything unparseable resolves to none; the oracle never gets to guess.
func ParseResponse(raw string, labels []string) Decision {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Decision{Reasoning: "arbiter returned no answer"}
	}

	head, reasoning := splitAnswer(trimmed)
	head = strings.ToUpper(head)

	if head == "NONE" || strings.HasPrefix(head, "NONE") {
		if reasoning == "" {
			reasoning = "no candidate fits"
		}
		return Decision{Reasoning: reasoning}
	}

	// "A&B" style: both fit, resolve by priority order.
	if strings.ContainsRune(head, '&') {
		mentioned := strings.Split(head, "&")
		for _, label := range labels {
			for _, m := range mentioned {
				if strings.TrimSpace(m) == label {
					return Decision{
						Choice:    label,
						Reasoning: "both fit, higher-priority candidate preferred. " + reasoning,
					}
				}
			}
		}
	}

	for _, label := range labels {
		if head == label {
			return Decision{Choice: label, Reasoning: reasoning}
		}
	}

	return Decision{Reasoning: fmt.Sprintf("unparseable arbiter response: %q", firstLine(trimmed))}
}

// splitAnswer separates the choice token from the justification on the first
// line of the answer.
func splitAnswer(s string) (head, reasoning string) {
	line := firstLine(s)
	if idx := strings.Index(line, "-"); idx >= 0 {
		return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:])
	}
	return strings.TrimSpace(line), ""
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
