package grounding

import (
	"regexp"
	"strings"
	"sync"

	"github.com/ppiankov/compintel/internal/model"
)

// ProjectMatcher decides whether a reference project is already covered
// by the claim list
type ProjectMatcher interface {
	IsProjectMentioned(project model.ReferenceProject, claims []model.Claim) bool
}

// SubstringMatcher matches the project name anywhere in a claim, ignoring case.
// "Aave" is considered mentioned by a claim about "Aavegotchi".
type SubstringMatcher struct{}

func (SubstringMatcher) IsProjectMentioned(project model.ReferenceProject, claims []model.Claim) bool {
	name := strings.ToLower(strings.TrimSpace(project.Name))
	if name == "" {
		return true
	}
	for _, c := range claims {
		if strings.Contains(strings.ToLower(c.Text), name) {
			return true
		}
	}
	return false
}

// WordBoundaryMatcher requires the project name to appear as a whole token
// sequence, ignoring case.
type WordBoundaryMatcher struct {
	mu    sync.Mutex
	cache map[string]*regexp.Regexp
}

// NewWordBoundaryMatcher creates a matcher with a compiled-pattern cache
func NewWordBoundaryMatcher() *WordBoundaryMatcher {
	return &WordBoundaryMatcher{cache: make(map[string]*regexp.Regexp)}
}

func (m *WordBoundaryMatcher) IsProjectMentioned(project model.ReferenceProject, claims []model.Claim) bool {
	name := strings.TrimSpace(project.Name)
	if name == "" {
		return true
	}
	re := m.pattern(name)
	for _, c := range claims {
		if re.MatchString(c.Text) {
			return true
		}
	}
	return false
}

func (m *WordBoundaryMatcher) pattern(name string) *regexp.Regexp {
	key := strings.ToLower(name)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cache == nil {
		m.cache = make(map[string]*regexp.Regexp)
	}
	if re, ok := m.cache[key]; ok {
		return re
	}
	re := regexp.MustCompile(`(?i)(^|[^\p{L}\p{N}])` + regexp.QuoteMeta(name) + `($|[^\p{L}\p{N}])`)
	m.cache[key] = re
	return re
}

// MatcherByName returns the matcher for a config value. Unknown names
// fall back to substring matching.
func MatcherByName(name string) ProjectMatcher {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "word", "word-boundary", "word_boundary":
		return NewWordBoundaryMatcher()
	default:
		return SubstringMatcher{}
	}
}
