package catalog

import (
	"sort"
	"strings"
	"time"
)

// Snapshot is an immutable view of the entity catalog at one point in time.
//
// All read methods are safe for concurrent use without locking; a snapshot
// never changes after construction. Compile requests take the current
// snapshot once and use it throughout, so catalog refreshes mid-request
// cannot produce an inconsistent view.
type Snapshot struct {
	version  uint64
	takenAt  time.Time
	entities []Entity // insertion order preserved for deterministic tie-breaks
	byID     map[string]int
	byName   map[string][]int
	byDomain map[string][]int
}

// newSnapshot builds a snapshot from an entity list, preserving input order.
// Entities with malformed IDs are dropped; the caller reports the count.
func newSnapshot(version uint64, entities []Entity) (*Snapshot, int) {
	snap := &Snapshot{
		version:  version,
		takenAt:  time.Now().UTC(),
		entities: make([]Entity, 0, len(entities)),
		byID:     make(map[string]int, len(entities)),
		byName:   make(map[string][]int),
		byDomain: make(map[string][]int),
	}

	dropped := 0
	for _, e := range entities {
		domain, _, err := SplitEntityID(e.EntityID)
		if err != nil {
			dropped++
			continue
		}
		if _, dup := snap.byID[e.EntityID]; dup {
			dropped++
			continue
		}
		e.Domain = domain

		idx := len(snap.entities)
		snap.entities = append(snap.entities, e)
		snap.byID[e.EntityID] = idx
		snap.byDomain[domain] = append(snap.byDomain[domain], idx)

		name := strings.ToLower(e.MatchName())
		snap.byName[name] = append(snap.byName[name], idx)
	}

	return snap, dropped
}

// Version returns the snapshot's monotonically increasing version.
func (s *Snapshot) Version() uint64 {
	return s.version
}

// TakenAt returns when the snapshot was built.
func (s *Snapshot) TakenAt() time.Time {
	return s.takenAt
}

// Len returns the number of entities in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.entities)
}

// Get returns the entity with the given ID.
func (s *Snapshot) Get(entityID string) (Entity, bool) {
	idx, ok := s.byID[entityID]
	if !ok {
		return Entity{}, false
	}
	return s.entities[idx], true
}

// Contains reports whether the entity ID exists in the snapshot.
func (s *Snapshot) Contains(entityID string) bool {
	_, ok := s.byID[entityID]
	return ok
}

// FindByName returns the entity whose match name equals name, compared
// case-insensitively. When several entities share the name, catalog
// insertion order decides.
func (s *Snapshot) FindByName(name string) (Entity, bool) {
	indexes := s.byName[strings.ToLower(strings.TrimSpace(name))]
	if len(indexes) == 0 {
		return Entity{}, false
	}
	return s.entities[indexes[0]], true
}

// All returns a copy of every entity in insertion order.
func (s *Snapshot) All() []Entity {
	out := make([]Entity, len(s.entities))
	copy(out, s.entities)
	return out
}

// AllOf returns all entities in the given domain, in insertion order.
func (s *Snapshot) AllOf(domain string) []Entity {
	indexes := s.byDomain[domain]
	out := make([]Entity, 0, len(indexes))
	for _, idx := range indexes {
		out = append(out, s.entities[idx])
	}
	return out
}

// Domains returns the sorted list of domains present in the snapshot.
func (s *Snapshot) Domains() []string {
	out := make([]string, 0, len(s.byDomain))
	for domain := range s.byDomain {
		out = append(out, domain)
	}
	sort.Strings(out)
	return out
}

// Lookup scores entities against a name query and returns candidates in
// resolution order: higher score first, then shorter name (specific beats
// generic), then catalog insertion order.
//
// A non-empty domainHint restricts candidates to that domain. Exact
// case-insensitive matches on the friendly name or the entity ID score 1.0.
// Zero-score candidates are omitted.
func (s *Snapshot) Lookup(query string, domainHint string) []ScoredEntity {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	queryLower := strings.ToLower(query)

	indexes := s.candidateIndexes(domainHint)
	scored := make([]scoredIndex, 0, len(indexes))
	for _, idx := range indexes {
		e := s.entities[idx]

		var score float64
		switch {
		case strings.EqualFold(query, e.FriendlyName), queryLower == e.EntityID:
			score = 1.0
		default:
			score = Similarity(query, e.MatchName())
		}
		if score <= 0 {
			continue
		}
		scored = append(scored, scoredIndex{index: idx, score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.score != b.score {
			return a.score > b.score
		}
		an := len(s.entities[a.index].MatchName())
		bn := len(s.entities[b.index].MatchName())
		if an != bn {
			return an < bn
		}
		return a.index < b.index
	})

	out := make([]ScoredEntity, 0, len(scored))
	for _, sc := range scored {
		out = append(out, ScoredEntity{Entity: s.entities[sc.index], Score: sc.score})
	}
	return out
}

// scoredIndex keeps the entity index through sorting so insertion order can
// break ties.
type scoredIndex struct {
	index int
	score float64
}

// candidateIndexes returns the entity indexes to score for a lookup.
func (s *Snapshot) candidateIndexes(domainHint string) []int {
	if domainHint != "" {
		return s.byDomain[domainHint]
	}
	indexes := make([]int, len(s.entities))
	for i := range s.entities {
		indexes[i] = i
	}
	return indexes
}
