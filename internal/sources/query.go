package sources

import (
	"strings"
	"unicode"

	"github.com/ppiankov/compintel/internal/model"
)

const maxKeywords = 6

// Query is what every adapter receives for one request
type Query struct {
	Text     string   // Free-text search phrase
	Category string   // Normalized category
	Keywords []string // Lower-cased, de-duplicated, most significant first
}

// Term returns a short keyword phrase for APIs that match on names
func (q Query) Term() string {
	if len(q.Keywords) == 0 {
		return q.Text
	}
	n := len(q.Keywords)
	if n > 2 {
		n = 2
	}
	return strings.Join(q.Keywords[:n], " ")
}

// NewQuery derives a query from an idea
func NewQuery(idea model.Idea, category string) Query {
	text := strings.Join(strings.Fields(idea.Description), " ")
	if r := []rune(text); len(r) > 200 {
		text = string(r[:200])
	}
	return Query{
		Text:     text,
		Category: category,
		Keywords: Keywords(idea.Description+" "+idea.Scope, maxKeywords),
	}
}

var stopwords = map[string]bool{
	"about": true, "across": true, "after": true, "also": true, "based": true,
	"build": true, "built": true, "that": true, "their": true, "them": true,
	"then": true, "there": true, "these": true, "they": true, "this": true,
	"with": true, "which": true, "will": true, "without": true, "your": true,
	"from": true, "into": true, "more": true, "most": true, "only": true,
	"over": true, "users": true, "user": true, "what": true, "when": true,
	"where": true, "while": true, "would": true, "should": true, "could": true,
	"have": true, "each": true, "other": true, "than": true, "some": true,
	"platform": true, "product": true, "using": true, "help": true, "helps": true,
}

// Keywords extracts up to limit significant words in order of appearance
func Keywords(text string, limit int) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})

	var out []string
	seen := make(map[string]bool)
	for _, w := range words {
		w = strings.Trim(w, "-")
		if len([]rune(w)) < 3 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
		if len(out) == limit {
			break
		}
	}
	return out
}
