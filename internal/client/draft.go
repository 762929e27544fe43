package client

import (
	"strings"

	"github.com/kalambet/folio/internal/profile"
)

// Draft holds the editable fields of a profile as form text.
type Draft struct {
	Name      string
	Education string
	// Skills is a comma-separated list.
	Skills string
	// Email identifies the profile and is not submitted.
	Email string
}

// DraftPayload is the body a Draft submits.
type DraftPayload struct {
	Name      string   `json:"name"`
	Education string   `json:"education"`
	Skills    []string `json:"skills"`
}

func NewDraft(p profile.Profile) Draft {
	return Draft{
		Name:      p.Name,
		Education: p.Education,
		Skills:    strings.Join(p.Skills, ", "),
		Email:     p.Email,
	}
}

// Payload splits Skills on commas, trims each entry, and drops empty ones.
func (d Draft) Payload() DraftPayload {
	skills := []string{}
	for _, s := range strings.Split(d.Skills, ",") {
		if s = strings.TrimSpace(s); s != "" {
			skills = append(skills, s)
		}
	}
	return DraftPayload{
		Name:      d.Name,
		Education: d.Education,
		Skills:    skills,
	}
}
