// Package namespace defines the composite keys that scope stored memories
// by user, agent role, professional domain and memory type, together with
// the static access policy that decides which roles may read which scopes.
package namespace

import "strings"

// MemoryType classifies what kind of knowledge a memory holds.
type MemoryType string

const (
	// TypeSemantic is factual knowledge ("the Eagle Ford shale is condensate-rich").
	TypeSemantic MemoryType = "semantic"

	// TypeEpisodic is a record of a past interaction or event.
	TypeEpisodic MemoryType = "episodic"

	// TypeProcedural is how-to knowledge (workflows, procedures).
	TypeProcedural MemoryType = "procedural"
)

// AllMemoryTypes lists every valid memory type in declaration order.
var AllMemoryTypes = []MemoryType{TypeSemantic, TypeEpisodic, TypeProcedural}

// Namespace is the composite key under which a memory item is stored.
//
// Every stored item has exactly one namespace and namespace membership is
// immutable after creation. The string form (see Prefix) is what backends
// receive for scoped search.
type Namespace struct {
	// UserID identifies the user the memory belongs to.
	UserID string

	// Role is the agent role that owns the scope.
	Role AgentRole

	// Domain is the professional topic tag of the scope.
	Domain Domain

	// Type is the memory type of the scope.
	Type MemoryType

	// Subcategory optionally narrows the scope further (may be empty).
	Subcategory string
}

// Prefix returns the canonical string form of the namespace, used as the
// search prefix handed to a MemoryBackend.
//
// The form is "userID/role/domain/type" with an optional "/subcategory".
func (n Namespace) Prefix() string {
	parts := []string{n.UserID, string(n.Role), string(n.Domain), string(n.Type)}
	if n.Subcategory != "" {
		parts = append(parts, n.Subcategory)
	}
	return strings.Join(parts, "/")
}

// Parse parses a namespace prefix produced by Prefix back into a Namespace.
//
// Legacy 2-field prefixes ("userID/type") predate role and domain scoping
// and are upgraded by defaulting the role to general and the domain to
// general_knowledge. Unknown role, domain or type strings fall back to
// their documented defaults; Parse never fails.
func Parse(prefix string) Namespace {
	parts := strings.Split(prefix, "/")
	switch len(parts) {
	case 2:
		// Legacy (userID, memoryType) form.
		return Namespace{
			UserID: parts[0],
			Role:   RoleGeneral,
			Domain: DomainGeneralKnowledge,
			Type:   ParseMemoryType(parts[1]),
		}
	case 4:
		return Namespace{
			UserID: parts[0],
			Role:   ParseRole(parts[1]),
			Domain: ParseDomain(parts[2]),
			Type:   ParseMemoryType(parts[3]),
		}
	case 5:
		return Namespace{
			UserID:      parts[0],
			Role:        ParseRole(parts[1]),
			Domain:      ParseDomain(parts[2]),
			Type:        ParseMemoryType(parts[3]),
			Subcategory: parts[4],
		}
	default:
		return Namespace{
			UserID: prefix,
			Role:   RoleGeneral,
			Domain: DomainGeneralKnowledge,
			Type:   TypeSemantic,
		}
	}
}

// ParseMemoryType maps a string to a MemoryType, falling back to semantic
// for unknown input.
func ParseMemoryType(s string) MemoryType {
	switch MemoryType(strings.ToLower(strings.TrimSpace(s))) {
	case TypeSemantic:
		return TypeSemantic
	case TypeEpisodic:
		return TypeEpisodic
	case TypeProcedural:
		return TypeProcedural
	default:
		return TypeSemantic
	}
}
