package profile

import "time"

// Profile is the portfolio document: identity, skills, projects, work
// history, and external links. Email is the business key.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Education string    `json:"education,omitempty"`
	Skills    []string  `json:"skills"`
	Projects  []Project `json:"projects"`
	Work      []string  `json:"work"`
	Links     Links     `json:"links"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Project is one piece of work listed on a profile.
type Project struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Links       ProjectLinks `json:"links"`
}

// ProjectLinks may be partially populated.
type ProjectLinks struct {
	GitHub string `json:"github,omitempty"`
	Live   string `json:"live,omitempty"`
}

// Links are the profile-level external links.
type Links struct {
	GitHub    string `json:"github,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
	Portfolio string `json:"portfolio,omitempty"`
}

// CreateRequest carries the fields accepted by Service.Create.
type CreateRequest struct {
	Name      string    `json:"name" validate:"notblank"`
	Email     string    `json:"email" validate:"notblank"`
	Education string    `json:"education"`
	Skills    []string  `json:"skills"`
	Projects  []Project `json:"projects"`
	Work      []string  `json:"work"`
	Links     Links     `json:"links"`
}

// Health is the liveness report returned by Service.Health.
type Health struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// normalize replaces nil sequences with empty ones so stored documents never
// carry null arrays.
func (p *Profile) normalize() {
	if p.Skills == nil {
		p.Skills = []string{}
	}
	if p.Projects == nil {
		p.Projects = []Project{}
	}
	if p.Work == nil {
		p.Work = []string{}
	}
}

// Clone returns a deep copy of p.
func (p Profile) Clone() Profile {
	cp := p
	if p.Skills != nil {
		cp.Skills = make([]string, len(p.Skills))
		copy(cp.Skills, p.Skills)
	}
	if p.Projects != nil {
		cp.Projects = make([]Project, len(p.Projects))
		copy(cp.Projects, p.Projects)
	}
	if p.Work != nil {
		cp.Work = make([]string, len(p.Work))
		copy(cp.Work, p.Work)
	}
	return cp
}
