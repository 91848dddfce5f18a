// Package backend defines the MemoryBackend interface the curation engine
// retrieves candidates through, along with the stored memory item model.
//
// The engine only ever performs lexical, namespace-scoped search here; a
// production backend may add vector search transparently behind the same
// interface.
package backend

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/petroagent/memcurator-go/pkg/namespace"
)

// MemoryItem is a memory as stored by a backend.
//
// The backend owns the canonical record; the curation engine reads items
// and annotates the transient RelevanceScore per request. Access-counter
// updates are advisory and replayed through Touch by the caller.
type MemoryItem struct {
	// ID is the unique identifier of the item.
	ID int64 `json:"id"`

	// Content is the text content of the memory.
	Content string `json:"content"`

	// Type is the memory type (semantic, episodic, procedural).
	Type namespace.MemoryType `json:"memory_type"`

	// Namespace is the immutable composite key the item is stored under.
	Namespace namespace.Namespace `json:"namespace"`

	// CreatedAt is when the item was created.
	CreatedAt time.Time `json:"created_at"`

	// LastAccessedAt is when the item was last surfaced (nil if never).
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`

	// AccessCount is how many times the item has been surfaced.
	AccessCount int `json:"access_count"`

	// Importance is the stored importance in [0,1].
	Importance float64 `json:"importance"`

	// Metadata carries additional structured information.
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// RelevanceScore is the per-request score annotated by the engine.
	// Never persisted.
	RelevanceScore float64 `json:"relevance_score,omitempty"`
}

// Domain returns the professional domain the item is scoped to.
func (m *MemoryItem) Domain() namespace.Domain {
	return m.Namespace.Domain
}

// OwnerRole returns the agent role that owns the item's scope.
func (m *MemoryItem) OwnerRole() namespace.AgentRole {
	return m.Namespace.Role
}

// AgeDays returns the item's age in days at the given instant.
func (m *MemoryItem) AgeDays(now time.Time) float64 {
	return now.Sub(m.CreatedAt).Hours() / 24.0
}

// MemoryBackend is the durable store the curation engine retrieves
// candidates from.
//
// All blocking calls take a context; the engine invokes them with
// caller-supplied timeouts and degrades to partial results on failure.
type MemoryBackend interface {
	// Put stores an item and returns its ID. If the item carries no ID
	// the backend assigns one.
	Put(ctx context.Context, item *MemoryItem) (int64, error)

	// Get retrieves an item by namespace and ID.
	Get(ctx context.Context, ns namespace.Namespace, id int64) (*MemoryItem, error)

	// Search returns up to limit items under the namespace prefix ranked
	// by lexical match against the query text. An empty query returns the
	// newest items in the scope.
	Search(ctx context.Context, namespacePrefix, query string, limit int) ([]*MemoryItem, error)

	// Delete removes an item by namespace and ID.
	Delete(ctx context.Context, ns namespace.Namespace, id int64) error

	// Touch replays an advisory access: increments the access counter and
	// stamps LastAccessedAt.
	Touch(ctx context.Context, ns namespace.Namespace, id int64) error

	// Close releases backend resources.
	Close() error
}

// LexicalScore is the keyword-overlap relevance a backend without vector
// search uses to rank items: matched query words over total query words.
func LexicalScore(query, content string) float64 {
	queryWords := strings.Fields(strings.ToLower(query))
	if len(queryWords) == 0 {
		return 0
	}
	contentLower := strings.ToLower(content)

	matches := 0
	for _, w := range queryWords {
		if strings.Contains(contentLower, w) {
			matches++
		}
	}
	return float64(matches) / float64(len(queryWords))
}

// RankByLexicalScore sorts items by LexicalScore against query (descending,
// newest first on ties) and truncates to limit. Items score into
// RelevanceScore as a transient annotation.
func RankByLexicalScore(items []*MemoryItem, query string, limit int) []*MemoryItem {
	for _, it := range items {
		it.RelevanceScore = LexicalScore(query, it.Content)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].RelevanceScore != items[j].RelevanceScore {
			return items[i].RelevanceScore > items[j].RelevanceScore
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
