package naming

import (
	"strings"

	"github.com/nerrad567/gray-logic-entity-manager/internal/registry"
)

// Classifier maps an identifier and optional device class to a type token.
type Classifier struct {
	table TypeTable
}

// NewClassifier creates a classifier over the given table.
func NewClassifier(table TypeTable) *Classifier {
	return &Classifier{table: table}
}

// Table returns the table the classifier was built with.
func (c *Classifier) Table() TypeTable {
	return c.table
}

// Classify returns the type token for an entity. It never fails; malformed
// input yields the table default.
//
// Fixed domains ignore the device class. Class domains look the class up and
// pass unknown classes through unchanged. Without a class, the local name
// is scanned for the first table key it contains.
func (c *Classifier) Classify(identifier, deviceClass string) string {
	domain, local, ok := registry.SplitIdentifier(identifier)
	if !ok {
		return c.table.Default
	}

	if isFixedDomain(domain) {
		if token, found := c.table.Fixed[domain]; found {
			return token
		}
		return domain
	}

	if !isClassDomain(domain) {
		return c.table.Default
	}

	if deviceClass != "" {
		if token, found := c.table.lookupClass(domain, deviceClass); found {
			return token
		}
		return deviceClass
	}

	name := strings.ToLower(local)
	for _, m := range c.table.Classes[domain] {
		if strings.Contains(name, m.Key) {
			return m.Token
		}
	}
	return c.table.Default
}
