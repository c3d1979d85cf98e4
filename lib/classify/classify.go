// Package classify decides whether a swim session is appropriate for
// young children. Every source platform phrases its age rules
// differently, so the heuristic works off the session name and the
// free-text age restriction.
package classify

import (
	"regexp"
	"strconv"
	"strings"
)

// a session is considered child-friendly when its stated minimum age is
// at most this many years
const maxMinimumAge = 5

var minimumAgeRegex = regexp.MustCompile(`(\d+)\s*(?:yrs?|years?)\s*\+`)

// Classifier holds the keyword lists from the collection config plus the
// per-platform fallthrough default. The two platforms we scrape disagree
// on the default (PerfectMind excludes, ActiveNet includes) and that
// difference is intentional, so it is configuration rather than a
// constant.
type Classifier struct {
	Include []string
	Exclude []string
	// used when neither keyword list nor the age text is decisive
	DefaultWhenUnclassified bool
}

// IsChildFriendly applies the classification rules in order, first
// decisive rule wins:
//
//  1. name contains an exclude keyword -> false
//  2. name contains an include keyword -> true
//  3. age text says "all ages" / "all welcome" -> true
//  4. age text states a minimum age "N yrs +" -> N <= 5
//  5. the configured default
//
// Exclusion deliberately dominates inclusion so "Adult Lane Swim" stays
// out even when "swim" is an include keyword.
func (c Classifier) IsChildFriendly(name, ageText string) bool {
	lowerName := strings.ToLower(name)
	lowerAge := strings.ToLower(ageText)

	for _, keyword := range c.Exclude {
		if strings.Contains(lowerName, strings.ToLower(keyword)) {
			return false
		}
	}

	for _, keyword := range c.Include {
		if strings.Contains(lowerName, strings.ToLower(keyword)) {
			return true
		}
	}

	if strings.Contains(lowerAge, "all ages") || strings.Contains(lowerAge, "all welcome") {
		return true
	}

	groups := minimumAgeRegex.FindStringSubmatch(lowerAge)
	if groups != nil {
		minAge, err := strconv.Atoi(groups[1])
		if err == nil {
			return minAge <= maxMinimumAge
		}
	}

	return c.DefaultWhenUnclassified
}
