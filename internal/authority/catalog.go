package authority

import (
	"strings"

	"go.uber.org/zap"
)

// Catalog keys a set of Split Authorities by zone apex and resolves a
// query name to the authority whose origin is the longest suffix of the
// name (the apex itself included), grounded in the teacher's
// plugins/authoritative.findZone.
type Catalog struct {
	zones map[string]*Split
	log   *zap.SugaredLogger
}

func NewCatalog() *Catalog {
	return &Catalog{zones: make(map[string]*Split)}
}

// SetLogger wires a logger for this catalog's decision points. Left
// unset, Match logs nothing.
func (c *Catalog) SetLogger(log *zap.SugaredLogger) {
	c.log = log
}

func (c *Catalog) logger() *zap.SugaredLogger {
	if c.log != nil {
		return c.log
	}
	return zap.NewNop().Sugar()
}

// Add registers a Split Authority under its zone apex.
func (c *Catalog) Add(apex string, split *Split) {
	c.zones[normalizeApex(apex)] = split
}

// Match returns the Split Authority for the longest zone apex that is a
// suffix of name, or nil if no configured zone matches.
func (c *Catalog) Match(name string) *Split {
	name = normalizeApex(name)

	var best *Split
	var bestLen = -1
	for apex, split := range c.zones {
		if name != apex && !strings.HasSuffix(name, "."+apex) {
			continue
		}
		if len(apex) > bestLen {
			bestLen = len(apex)
			best = split
		}
	}
	if best == nil {
		c.logger().Debugw("catalog: no zone matched", "name", name)
	}
	return best
}

func normalizeApex(name string) string {
	return strings.ToLower(strings.TrimSuffix(name, "."))
}
