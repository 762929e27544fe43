package profile

import "strings"

// ProjectField selects which project text a filter looks at.
type ProjectField int

const (
	FieldDescription ProjectField = iota
	FieldTitle
	// FieldAny matches on either title or description.
	FieldAny
)

// FilterProjects returns the projects whose selected field contains any of
// terms, compared case-insensitively. The result is never nil.
func FilterProjects(projects []Project, terms []string, field ProjectField) []Project {
	lowered := make([]string, 0, len(terms))
	for _, t := range terms {
		lowered = append(lowered, strings.ToLower(t))
	}

	out := []Project{}
	for _, p := range projects {
		var haystacks []string
		switch field {
		case FieldTitle:
			haystacks = []string{p.Title}
		case FieldAny:
			haystacks = []string{p.Title, p.Description}
		default:
			haystacks = []string{p.Description}
		}
		if containsAny(haystacks, lowered) {
			out = append(out, p)
		}
	}
	return out
}

func containsAny(haystacks, loweredTerms []string) bool {
	for _, h := range haystacks {
		h = strings.ToLower(h)
		for _, t := range loweredTerms {
			if strings.Contains(h, t) {
				return true
			}
		}
	}
	return false
}

// CleanTerms drops blank search terms.
func CleanTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
