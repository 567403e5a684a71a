package naming

import (
	"fmt"
	"slices"
	"strings"
)

// Domains whose type never depends on a device class.
var fixedDomains = []string{"light", "switch", "climate", "cover", "media_player"}

// Domains whose type is looked up by device class.
var classDomains = []string{"sensor", "binary_sensor"}

// TypeMapping maps a device class (or a name fragment) to a type token.
type TypeMapping struct {
	Key   string
	Token string
}

// TypeTable is the mapping-of-mappings that turns a domain and device class
// into an entity type token.
//
// Fixed holds one token per fixed domain. Classes holds an ordered list per
// class domain; order matters when the local name is scanned for a key.
// Default is returned whenever nothing else matches.
type TypeTable struct {
	Name    string
	Fixed   map[string]string
	Classes map[string][]TypeMapping
	Default string
}

// Built-in table names.
const (
	LocaleGeneric = "generic"
	LocaleGerman  = "de"
)

// GenericTypes uses English tokens.
var GenericTypes = TypeTable{
	Name: LocaleGeneric,
	Fixed: map[string]string{
		"light":        "light",
		"switch":       "switch",
		"climate":      "climate",
		"cover":        "cover",
		"media_player": "player",
	},
	Classes: map[string][]TypeMapping{
		"sensor": {
			{"temperature", "temperature"},
			{"humidity", "humidity"},
			{"power", "power"},
			{"energy", "energy"},
			{"battery", "battery"},
			{"illuminance", "illuminance"},
			{"motion", "motion"},
			{"co2", "co2"},
			{"pressure", "pressure"},
			{"voltage", "voltage"},
			{"current", "current"},
		},
		"binary_sensor": {
			{"motion", "motion"},
			{"door", "door"},
			{"window", "window"},
			{"smoke", "smoke"},
			{"moisture", "moisture"},
			{"connectivity", "connectivity"},
		},
	},
	Default: "sensor",
}

// GermanTypes uses German tokens.
var GermanTypes = TypeTable{
	Name: LocaleGerman,
	Fixed: map[string]string{
		"light":        "licht",
		"switch":       "schalter",
		"climate":      "heizung",
		"cover":        "rollo",
		"media_player": "player",
	},
	Classes: map[string][]TypeMapping{
		"sensor": {
			{"temperature", "temperatur"},
			{"humidity", "luftfeuchtigkeit"},
			{"power", "leistung"},
			{"energy", "energie"},
			{"battery", "batterie"},
			{"illuminance", "helligkeit"},
			{"motion", "bewegung"},
			{"co2", "co2"},
			{"pressure", "druck"},
			{"voltage", "spannung"},
			{"current", "strom"},
		},
		"binary_sensor": {
			{"motion", "bewegung"},
			{"door", "tuer"},
			{"window", "fenster"},
			{"smoke", "rauch"},
			{"moisture", "feuchtigkeit"},
			{"connectivity", "verbindung"},
		},
	},
	Default: "sensor",
}

// TypeTableFor returns the built-in table for a locale name.
func TypeTableFor(locale string) (TypeTable, error) {
	switch strings.ToLower(strings.TrimSpace(locale)) {
	case "", LocaleGeneric, "en":
		return GenericTypes, nil
	case LocaleGerman, "german":
		return GermanTypes, nil
	default:
		return TypeTable{}, fmt.Errorf("%w: %q", ErrUnknownLocale, locale)
	}
}

// Locales lists the built-in table names.
func Locales() []string {
	return []string{LocaleGeneric, LocaleGerman}
}

// lookupClass finds the token for key in a class domain's list.
func (t TypeTable) lookupClass(domain, key string) (string, bool) {
	for _, m := range t.Classes[domain] {
		if m.Key == key {
			return m.Token, true
		}
	}
	return "", false
}

// isOwnTypeToken reports whether tok is the token this table emits for
// domain, or the default. Tokens of other domains are kept, so
// sensor.cover_battery and sensor.light_battery stay apart.
func (t TypeTable) isOwnTypeToken(domain, tok string) bool {
	if tok == t.Default {
		return true
	}
	fixed, ok := t.Fixed[domain]
	return ok && fixed == tok
}

func isFixedDomain(domain string) bool {
	return slices.Contains(fixedDomains, domain)
}

func isClassDomain(domain string) bool {
	return slices.Contains(classDomains, domain)
}
