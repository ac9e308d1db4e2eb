package profile

import (
	"context"
	"strings"
	"sync"

	id "linkup/pkg/domain"
	"linkup/pkg/platform/sentinel"
)

// InMemoryDirectory is a map-backed Directory for local development and
// tests. Attribute matching is case-insensitive, mirroring the remote
// directory's behavior.
type InMemoryDirectory struct {
	mu       sync.RWMutex
	profiles map[id.UserID]Profile
}

func NewInMemoryDirectory() *InMemoryDirectory {
	return &InMemoryDirectory{profiles: make(map[id.UserID]Profile)}
}

// Put adds or replaces a profile.
func (d *InMemoryDirectory) Put(p Profile) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.profiles[p.UserID] = p
}

func (d *InMemoryDirectory) ExistsAndActive(ctx context.Context, userID id.UserID) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.profiles[userID]
	return ok && p.Active, nil
}

func (d *InMemoryDirectory) Get(ctx context.Context, userID id.UserID) (*Profile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.profiles[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &p, nil
}

func (d *InMemoryDirectory) FindByIndustry(ctx context.Context, industry string, limit int) ([]id.UserID, error) {
	return d.findBy(industry, limit, func(p Profile) string { return p.Industry }), nil
}

func (d *InMemoryDirectory) FindByLocation(ctx context.Context, location string, limit int) ([]id.UserID, error) {
	return d.findBy(location, limit, func(p Profile) string { return p.Location }), nil
}

func (d *InMemoryDirectory) findBy(value string, limit int, attribute func(Profile) string) []id.UserID {
	if value == "" {
		return nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []id.UserID
	for userID, p := range d.profiles {
		if p.Active && strings.EqualFold(attribute(p), value) {
			out = append(out, userID)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out
}
