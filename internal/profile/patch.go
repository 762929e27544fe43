package profile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Patch is a partial update. Each non-nil field replaces the stored field
// wholesale; nested objects and sequences are never merged.
type Patch struct {
	Name      *string    `json:"name,omitempty"`
	Email     *string    `json:"email,omitempty"`
	Education *string    `json:"education,omitempty"`
	Skills    *[]string  `json:"skills,omitempty"`
	Projects  *[]Project `json:"projects,omitempty"`
	Work      *[]string  `json:"work,omitempty"`
	Links     *Links     `json:"links,omitempty"`
}

// PatchFields is the allow-list of top-level keys a patch may carry.
var PatchFields = []string{"name", "email", "education", "skills", "projects", "work", "links"}

// ParsePatch decodes a JSON object into a Patch. Keys outside PatchFields and
// values of the wrong JSON type are rejected with ErrBadRequest; an object
// with no keys yields ErrEmptyUpdate. A null value clears optional fields.
func ParsePatch(data []byte) (Patch, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Patch{}, fmt.Errorf("%w: invalid JSON body: %v", ErrBadRequest, err)
	}
	if len(fields) == 0 {
		return Patch{}, ErrEmptyUpdate
	}

	var p Patch
	var err error
	for _, key := range slices.Sorted(maps.Keys(fields)) {
		raw := fields[key]
		switch key {
		case "name":
			p.Name, err = decodeField[string](key, raw)
		case "email":
			p.Email, err = decodeField[string](key, raw)
		case "education":
			p.Education, err = decodeField[string](key, raw)
		case "skills":
			p.Skills, err = decodeField[[]string](key, raw)
		case "projects":
			p.Projects, err = decodeField[[]Project](key, raw)
		case "work":
			p.Work, err = decodeField[[]string](key, raw)
		case "links":
			p.Links, err = decodeField[Links](key, raw)
		default:
			return Patch{}, fmt.Errorf("%w: unknown field %q (allowed: %s)", ErrBadRequest, key, strings.Join(PatchFields, ", "))
		}
		if err != nil {
			return Patch{}, err
		}
	}

	if err := p.validate(); err != nil {
		return Patch{}, err
	}
	return p, nil
}

func decodeField[T any](key string, raw json.RawMessage) (*T, error) {
	v := new(T)
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return v, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, fmt.Errorf("%w: field %q: %v", ErrBadRequest, key, err)
	}
	return v, nil
}

// IsEmpty reports whether the patch carries no fields.
func (p Patch) IsEmpty() bool {
	return len(p.Keys()) == 0
}

// Keys lists the supplied fields in allow-list order.
func (p Patch) Keys() []string {
	var keys []string
	if p.Name != nil {
		keys = append(keys, "name")
	}
	if p.Email != nil {
		keys = append(keys, "email")
	}
	if p.Education != nil {
		keys = append(keys, "education")
	}
	if p.Skills != nil {
		keys = append(keys, "skills")
	}
	if p.Projects != nil {
		keys = append(keys, "projects")
	}
	if p.Work != nil {
		keys = append(keys, "work")
	}
	if p.Links != nil {
		keys = append(keys, "links")
	}
	return keys
}

// validate rejects blanking the required fields.
func (p Patch) validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrBadRequest)
	}
	if p.Email != nil && strings.TrimSpace(*p.Email) == "" {
		return fmt.Errorf("%w: email cannot be empty", ErrBadRequest)
	}
	return nil
}

// Apply writes the supplied fields onto dst.
func (p Patch) Apply(dst *Profile) {
	if p.Name != nil {
		dst.Name = *p.Name
	}
	if p.Email != nil {
		dst.Email = *p.Email
	}
	if p.Education != nil {
		dst.Education = *p.Education
	}
	if p.Skills != nil {
		dst.Skills = slices.Clone(*p.Skills)
	}
	if p.Projects != nil {
		dst.Projects = slices.Clone(*p.Projects)
	}
	if p.Work != nil {
		dst.Work = slices.Clone(*p.Work)
	}
	if p.Links != nil {
		dst.Links = *p.Links
	}
	dst.normalize()
}
