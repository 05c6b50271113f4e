package script

import (
	"testing"

	"github.com/hankei6km/nodedbg-go/internal/protocol"
)

func TestExistsOnUnknownNameReturnsFalse(t *testing.T) {
	c := NewCatalog()
	if c.Exists("app.js") {
		t.Errorf("empty catalog should report no scripts as existing")
	}
}

func TestSetScriptsReplacesWholesale(t *testing.T) {
	c := NewCatalog()
	c.SetScripts([]protocol.ScriptEntry{{Name: "app.js", Type: 4}})
	if !c.Exists("app.js") {
		t.Fatalf("app.js should exist after SetScripts")
	}

	c.SetScripts([]protocol.ScriptEntry{{Name: "lib.js", Type: 4}})
	if c.Exists("app.js") {
		t.Errorf("app.js should no longer exist; scripts list is replaced wholesale, not merged")
	}
	if !c.Exists("lib.js") {
		t.Errorf("lib.js should exist after the second SetScripts")
	}
}
