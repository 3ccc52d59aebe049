package catalog

import (
	"fmt"
	"strings"
)

// Entity is one controllable Home Assistant entity as seen at snapshot time.
//
// Entities are plain values owned by the snapshot; the compiler never
// mutates them.
type Entity struct {
	// EntityID is the platform identifier, "domain.slug" (e.g. "light.living_room").
	EntityID string `json:"entity_id"`

	// FriendlyName is the human-readable name, when the platform provides one.
	FriendlyName string `json:"friendly_name,omitempty"`

	// Domain is the part of EntityID before the dot (e.g. "light").
	Domain string `json:"domain"`

	// State is the entity state at snapshot time (e.g. "on", "22.5").
	State string `json:"state"`
}

// ScoredEntity pairs an entity with its lookup similarity score in [0,1].
type ScoredEntity struct {
	Entity Entity  `json:"entity"`
	Score  float64 `json:"score"`
}

// SplitEntityID splits "domain.slug" into its parts.
//
// Returns ErrInvalidEntityID if the ID has no dot separator or either part
// is empty.
func SplitEntityID(entityID string) (domain, slug string, err error) {
	idx := strings.IndexByte(entityID, '.')
	if idx <= 0 || idx == len(entityID)-1 {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidEntityID, entityID)
	}
	return entityID[:idx], entityID[idx+1:], nil
}

// MatchName returns the name lookups compare against: the friendly name when
// present, otherwise the entity slug with underscores opened up
// ("motion_living_room" reads as "motion living room").
func (e Entity) MatchName() string {
	if e.FriendlyName != "" {
		return e.FriendlyName
	}
	_, slug, err := SplitEntityID(e.EntityID)
	if err != nil {
		return e.EntityID
	}
	return strings.ReplaceAll(slug, "_", " ")
}
