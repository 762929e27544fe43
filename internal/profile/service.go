package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/google/uuid"
)

// TopSkillsLimit is how many skills TopSkills returns.
const TopSkillsLimit = 5

// Store defines the document operations the Service needs.
// Implemented by storage.SQLiteStore and storage.PostgresStore.
//
// Implementations return ErrNotFound when no document matches and
// ErrDuplicateProfile when a write would break email uniqueness.
type Store interface {
	InsertProfile(ctx context.Context, p Profile) error
	FindProfileByEmail(ctx context.Context, email string) (Profile, error)
	FirstProfile(ctx context.Context) (Profile, error)
	// UpdateProfile loads the document for email, passes it to fn, and
	// persists the result atomically.
	UpdateProfile(ctx context.Context, email string, fn func(*Profile) error) (Profile, error)
	// SearchProfiles returns every profile whose name, any skill, or any
	// project title or description contains query, ignoring case.
	SearchProfiles(ctx context.Context, query string) ([]Profile, error)
	Ping(ctx context.Context) error
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// Service implements the profile operations on top of a Store. It keeps no
// copy of any document between calls.
type Service struct {
	store    Store
	clock    Clock
	validate *validator.Validate
}

// NewService creates a Service backed by store.
func NewService(store Store) *Service {
	return NewServiceWithClock(store, realClock{})
}

// NewServiceWithClock creates a Service with a custom clock (for testing).
func NewServiceWithClock(store Store, clock Clock) *Service {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Required strings must carry more than whitespace, matching Patch.
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return &Service{store: store, clock: clock, validate: v}
}

// Create stores a new profile. It fails with ErrDuplicateProfile when a
// profile with the same email already exists.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Profile, error) {
	if err := s.validate.Struct(req); err != nil {
		return Profile{}, validationError(err)
	}

	if _, err := s.store.FindProfileByEmail(ctx, req.Email); err == nil {
		return Profile{}, ErrDuplicateProfile
	} else if !errors.Is(err, ErrNotFound) {
		return Profile{}, fmt.Errorf("checking existing profile: %w", err)
	}

	now := s.clock.Now()
	p := Profile{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Email:     req.Email,
		Education: req.Education,
		Skills:    req.Skills,
		Projects:  req.Projects,
		Work:      req.Work,
		Links:     req.Links,
		CreatedAt: now,
		UpdatedAt: now,
	}
	p.normalize()

	if err := s.store.InsertProfile(ctx, p); err != nil {
		if errors.Is(err, ErrDuplicateProfile) {
			return Profile{}, ErrDuplicateProfile
		}
		return Profile{}, fmt.Errorf("inserting profile: %w", err)
	}
	slog.Debug("profile created", "id", p.ID, "email", p.Email)
	return p, nil
}

// Update applies patch to the profile identified by email and returns the
// updated document.
func (s *Service) Update(ctx context.Context, email string, patch Patch) (Profile, error) {
	if patch.IsEmpty() {
		return Profile{}, ErrEmptyUpdate
	}
	if err := patch.validate(); err != nil {
		return Profile{}, err
	}

	updated, err := s.store.UpdateProfile(ctx, email, func(p *Profile) error {
		patch.Apply(p)
		p.UpdatedAt = s.clock.Now()
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicateProfile) {
			return Profile{}, err
		}
		return Profile{}, fmt.Errorf("updating profile %q: %w", email, err)
	}
	slog.Debug("profile updated", "email", email, "fields", patch.Keys())
	return updated, nil
}

// Get returns the first stored profile.
func (s *Service) Get(ctx context.Context) (Profile, error) {
	p, err := s.store.FirstProfile(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Profile{}, err
		}
		return Profile{}, fmt.Errorf("reading profile: %w", err)
	}
	return p, nil
}

// ProjectsBySkills filters the first profile's projects by terms. Projects
// are matched on description; titles are consulted only when no description
// matches. With no terms every project is returned.
func (s *Service) ProjectsBySkills(ctx context.Context, terms []string) ([]Project, error) {
	p, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	terms = CleanTerms(terms)
	if len(terms) == 0 {
		if p.Projects == nil {
			return []Project{}, nil
		}
		return p.Projects, nil
	}

	// Title matching is a fallback, not a union. Whether this is the desired
	// product behavior is still open.
	filtered := FilterProjects(p.Projects, terms, FieldDescription)
	if len(filtered) == 0 {
		filtered = FilterProjects(p.Projects, terms, FieldTitle)
	}
	return filtered, nil
}

// TopSkills returns the first TopSkillsLimit skills in stored order.
func (s *Service) TopSkills(ctx context.Context) ([]string, error) {
	p, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	if len(p.Skills) <= TopSkillsLimit {
		return append([]string{}, p.Skills...), nil
	}
	return append([]string{}, p.Skills[:TopSkillsLimit]...), nil
}

// Search returns every profile matching query as a literal, case-insensitive
// substring of the name, a skill, or a project title or description.
func (s *Service) Search(ctx context.Context, query string) ([]Profile, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: search query required", ErrBadRequest)
	}
	results, err := s.store.SearchProfiles(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("searching profiles: %w", err)
	}
	if results == nil {
		results = []Profile{}
	}
	return results, nil
}

// Health reports liveness. It never touches the store.
func (s *Service) Health() Health {
	return Health{Status: "UP", Timestamp: s.clock.Now()}
}

// Ready reports whether the store is reachable.
func (s *Service) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required", "notblank":
			msgs = append(msgs, fe.Field()+" is required")
		default:
			msgs = append(msgs, fmt.Sprintf("%s is %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", ErrBadRequest, strings.Join(msgs, ", "))
}
