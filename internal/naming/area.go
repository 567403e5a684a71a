package naming

import (
	"slices"
	"strings"

	"github.com/nerrad567/gray-logic-entity-manager/internal/registry"
)

// AreaMatch is the area an entity was placed in.
//
// ID is empty when the area did not come from the registry, in which case no
// area override can apply. Guessed marks an area taken from a room token.
type AreaMatch struct {
	ID      string
	Name    string
	Display string
	Guessed bool
}

// AreaStrategy decides which area an entity belongs to.
type AreaStrategy interface {
	ResolveArea(e registry.Entity, snap *registry.Snapshot) (AreaMatch, bool)
}

// RegistryAreas places an entity in its device's area, falling back to the
// entity's own area. It never guesses.
type RegistryAreas struct{}

// ResolveArea implements AreaStrategy.
func (RegistryAreas) ResolveArea(e registry.Entity, snap *registry.Snapshot) (AreaMatch, bool) {
	id := snap.EffectiveAreaID(e)
	if id == "" {
		return AreaMatch{}, false
	}
	a, _ := snap.Area(id)
	return AreaMatch{ID: a.ID, Name: a.Name, Display: a.Name}, true
}

// DefaultLegacyRooms is the room list older installations relied on.
var DefaultLegacyRooms = []string{
	"wohnzimmer", "buro", "kuche", "schlafzimmer", "badezimmer",
	"kinderzimmer", "eingang", "diele", "balkon", "kammer", "dusche", "keller",
}

// LegacyRoomGuess finds a room by scanning the identifier for known room
// tokens when the registry has no area for the entity.
//
// Guessing is unreliable and only exists for installations whose
// identifiers were named this way before areas were assigned. It is never
// the default.
type LegacyRoomGuess struct {
	Rooms []string
	Next  AreaStrategy
}

// NewLegacyRoomGuess wraps RegistryAreas with room guessing.
// A nil or empty rooms list uses DefaultLegacyRooms.
func NewLegacyRoomGuess(rooms []string) *LegacyRoomGuess {
	if len(rooms) == 0 {
		rooms = DefaultLegacyRooms
	}
	normalised := make([]string, 0, len(rooms))
	for _, r := range rooms {
		if n := Normalize(r); n != "" {
			normalised = append(normalised, n)
		}
	}
	return &LegacyRoomGuess{Rooms: normalised, Next: RegistryAreas{}}
}

// ResolveArea implements AreaStrategy.
func (g *LegacyRoomGuess) ResolveArea(e registry.Entity, snap *registry.Snapshot) (AreaMatch, bool) {
	if g.Next != nil {
		if m, ok := g.Next.ResolveArea(e, snap); ok {
			return m, true
		}
	}

	_, local, ok := registry.SplitIdentifier(e.Identifier)
	if !ok {
		return AreaMatch{}, false
	}
	for _, tok := range strings.Split(local, "_") {
		if g.IsRoom(tok) {
			return AreaMatch{Name: tok, Display: HumanizeToken(tok), Guessed: true}, true
		}
	}
	return AreaMatch{}, false
}

// IsRoom reports whether tok is one of the known rooms.
func (g *LegacyRoomGuess) IsRoom(tok string) bool {
	return slices.Contains(g.Rooms, tok)
}

// roomFilter is implemented by strategies that know room tokens which
// should not be mistaken for device names.
type roomFilter interface {
	IsRoom(tok string) bool
}
