// Package parser recognizes the fixed confirmation templates the assistant
// uses when it records, modifies or reclassifies a word, and extracts their
// fields from the free-text reply.
package parser

import (
	"regexp"
	"strings"
)

// Kind tags the template an assistant reply matched.
type Kind int

const (
	// None means the reply contained no recognizable word event.
	None Kind = iota
	// Add is a new-word confirmation (已记录 + 归类为).
	Add
	// Modify is a full modification of an existing record (已修改).
	Modify
	// Classify is a category-only reclassification (已修改 + 原分类).
	Classify
)

// WordEvent is the structured record extracted from one assistant reply.
// Only the fields relevant to Kind are populated.
type WordEvent struct {
	Kind        Kind
	Word        string
	OldWord     string
	Category    string
	OldCategory string
	Context     string
}

// Field markers as they appear in assistant replies. Values may follow a
// full-width or ASCII colon and may be wrapped in brackets or quotes; they
// run to the next newline or closing bracket.
var (
	reRecorded    = fieldPattern("已记录")
	reCategory    = fieldPattern("归类为")
	reScene       = fieldPattern("场景")
	reModified    = fieldPattern("已修改")
	reOldWord     = fieldPattern("原词")
	reNewCategory = fieldPattern("新分类")
	reNewScene    = fieldPattern("新场景")
	reOldCategory = fieldPattern("原分类")
)

func fieldPattern(label string) *regexp.Regexp {
	return regexp.MustCompile(label + `[ \t]*[:：][ \t]*[「【\[“"']?([^」】\]”"'\n]+)`)
}

// extractField returns the trimmed value after the given marker, or "".
func extractField(re *regexp.Regexp, text string) string {
	matches := re.FindStringSubmatch(text)
	if len(matches) < 2 {
		return ""
	}
	return strings.TrimSpace(matches[1])
}

// Parse classifies an assistant reply against the three templates.
// Modification replies are tested first; within them the presence of the
// 原分类 marker distinguishes a reclassification from a full modification.
// Parsing is pure pattern matching: malformed input yields Kind None,
// never an error.
func Parse(reply string) WordEvent {
	if word := extractField(reModified, reply); word != "" {
		event := WordEvent{
			Word:     word,
			OldWord:  extractField(reOldWord, reply),
			Category: extractField(reNewCategory, reply),
		}
		if oldCategory := extractField(reOldCategory, reply); oldCategory != "" {
			event.Kind = Classify
			event.OldCategory = oldCategory
			return event
		}
		event.Kind = Modify
		event.Context = extractField(reNewScene, reply)
		return event
	}

	// Add requires both the word and category markers; a partial match is
	// not a record.
	word := extractField(reRecorded, reply)
	category := extractField(reCategory, reply)
	if word == "" || category == "" {
		return WordEvent{Kind: None}
	}

	return WordEvent{
		Kind:     Add,
		Word:     word,
		Category: category,
		Context:  extractField(reScene, reply),
	}
}
