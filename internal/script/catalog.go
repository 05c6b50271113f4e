// Package script mirrors the set of scripts the debuggee has loaded
// (spec §4.6). Grounded on original_source/clewn/nodeutils.py's
// Scripts class.
package script

import "github.com/hankei6km/nodedbg-go/internal/protocol"

// Catalog is replaced wholesale from each "scripts" response. It
// keeps no history, matching spec §4.6.
type Catalog struct {
	names map[string]bool
}

func NewCatalog() *Catalog {
	return &Catalog{names: make(map[string]bool)}
}

// SetScripts replaces the catalog's contents with the given scripts
// response body.
func (c *Catalog) SetScripts(entries []protocol.ScriptEntry) {
	c.names = make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.Name != "" {
			c.names[e.Name] = true
		}
	}
}

// Exists reports whether name was present in the most recent scripts
// response. Resolves spec §9 Open Question (a): an unknown name
// returns false rather than panicking.
func (c *Catalog) Exists(name string) bool {
	return c.names[name]
}
