package preference

import (
	"sync"

	"github.com/petroagent/memcurator-go/pkg/namespace"
)

// Store holds the live preference for every agent role.
//
// Get returns a deep copy, so scoring and filtering work on a stable
// snapshot while the optimizer mutates the stored value. Mutation goes
// through Update or Apply, both of which clamp against ParameterBounds
// before publishing.
//
// The store is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	prefs map[namespace.AgentRole]*Preference
}

// NewStore creates an empty preference store. Role preferences are
// lazy-initialized from the defaults table on first access.
func NewStore() *Store {
	return &Store{
		prefs: make(map[namespace.AgentRole]*Preference),
	}
}

// Get returns a snapshot of the role's current preference, creating it
// from the role default on first access.
func (s *Store) Get(role namespace.AgentRole) Preference {
	s.mu.RLock()
	if p, ok := s.prefs[role]; ok {
		snap := p.clone()
		s.mu.RUnlock()
		return snap
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.prefs[role]; ok {
		return p.clone()
	}
	def := DefaultPreference(role)
	Clamp(&def)
	s.prefs[role] = &def
	return def.clone()
}

// Update replaces the role's preference wholesale, clamping first.
// It returns the stored (clamped) value.
func (s *Store) Update(role namespace.AgentRole, p Preference) Preference {
	p.Role = role
	stored := p.clone()
	Clamp(&stored)

	s.mu.Lock()
	s.prefs[role] = &stored
	s.mu.Unlock()

	return stored.clone()
}

// Apply runs fn against the role's current preference under the write
// lock, clamps the result and publishes it. The optimizer uses this for
// its read-modify-write cycles so concurrent feedback for the same role
// cannot interleave.
func (s *Store) Apply(role namespace.AgentRole, fn func(*Preference)) Preference {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.prefs[role]
	if !ok {
		def := DefaultPreference(role)
		p = &def
		s.prefs[role] = p
	}

	fn(p)
	p.Role = role
	Clamp(p)
	return p.clone()
}

// Roles returns the roles that currently have a materialized preference.
func (s *Store) Roles() []namespace.AgentRole {
	s.mu.RLock()
	defer s.mu.RUnlock()
	roles := make([]namespace.AgentRole, 0, len(s.prefs))
	for r := range s.prefs {
		roles = append(roles, r)
	}
	return roles
}
