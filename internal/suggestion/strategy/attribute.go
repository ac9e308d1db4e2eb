package strategy

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"linkup/internal/profile"
	id "linkup/pkg/domain"
	"linkup/pkg/platform/sentinel"
)

const (
	SameIndustryName = "same-industry"
	SameLocationName = "same-location"
)

// attributeStrategy is the shared machinery for profile-attribute matches.
// An exact attribute match is full signal strength; ordering within the
// batch falls to the deterministic userID tie-break.
type attributeStrategy struct {
	connections ConnectionReader
	directory   profile.Directory
	weight      float64

	name      string
	attribute func(*profile.Profile) string
	find      func(ctx context.Context, value string, limit int) ([]id.UserID, error)
	reason    func(value string) string
}

// NewSameIndustry suggests members working in the user's industry.
func NewSameIndustry(connections ConnectionReader, directory profile.Directory, weight float64) Strategy {
	return &attributeStrategy{
		connections: connections,
		directory:   directory,
		weight:      weight,
		name:        SameIndustryName,
		attribute:   func(p *profile.Profile) string { return p.Industry },
		find:        directory.FindByIndustry,
		reason:      func(value string) string { return fmt.Sprintf("You both work in %s", value) },
	}
}

// NewSameLocation suggests members based in the user's location.
func NewSameLocation(connections ConnectionReader, directory profile.Directory, weight float64) Strategy {
	return &attributeStrategy{
		connections: connections,
		directory:   directory,
		weight:      weight,
		name:        SameLocationName,
		attribute:   func(p *profile.Profile) string { return p.Location },
		find:        directory.FindByLocation,
		reason:      func(value string) string { return fmt.Sprintf("You are both in %s", value) },
	}
}

func (s *attributeStrategy) Name() string    { return s.name }
func (s *attributeStrategy) Weight() float64 { return s.weight }

// Applicable is false when the user has no profile or the attribute is
// empty; the signal has nothing to match on.
func (s *attributeStrategy) Applicable(ctx context.Context, userID id.UserID) (bool, error) {
	p, err := s.directory.Get(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return s.attribute(p) != "", nil
}

func (s *attributeStrategy) Generate(ctx context.Context, userID id.UserID, limit int) ([]Candidate, error) {
	p, err := s.directory.Get(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	value := s.attribute(p)
	if value == "" {
		return nil, nil
	}

	excluded, err := exclusions(ctx, s.connections, userID)
	if err != nil {
		return nil, err
	}

	// Over-fetch to survive exclusion filtering.
	matches, err := s.find(ctx, value, limit+len(excluded))
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	for _, match := range matches {
		if _, skip := excluded[match]; skip {
			continue
		}
		candidates = append(candidates, Candidate{
			UserID: match,
			Score:  1.0,
			Reason: s.reason(value),
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].UserID.String() < candidates[j].UserID.String()
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}
