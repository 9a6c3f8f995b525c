package domain

import (
	"fmt"
	"strings"
)

// Recommendation is the hiring verdict attached to an Assessment.
type Recommendation string

const (
	Recommend    Recommendation = "RECOMMEND"
	Consider     Recommendation = "CONSIDER"
	NotRecommend Recommendation = "NOT_RECOMMEND"
)

// severity ranks verdicts from least to most cautious. Ordering comes from
// this table only, never from the order the constants are declared in.
var severity = map[Recommendation]int{
	Recommend:    0,
	Consider:     1,
	NotRecommend: 2,
}

// Severity returns the ordinal of r, or -1 when r is not a known verdict.
func (r Recommendation) Severity() int {
	if s, ok := severity[r]; ok {
		return s
	}
	return -1
}

// Valid reports whether r is one of the known verdicts.
func (r Recommendation) Valid() bool { return r.Severity() >= 0 }

// ParseRecommendation maps loose AI output ("not recommend", "Not_Recommend",
// "consider") onto a Recommendation.
func ParseRecommendation(s string) (Recommendation, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	switch norm {
	case "RECOMMEND", "RECOMMENDED":
		return Recommend, nil
	case "CONSIDER":
		return Consider, nil
	case "NOT_RECOMMEND", "NOT_RECOMMENDED", "DO_NOT_RECOMMEND":
		return NotRecommend, nil
	}
	return "", fmt.Errorf("unknown recommendation %q", s)
}

// Ptr returns a pointer to a copy of r.
func (r Recommendation) Ptr() *Recommendation { return &r }
