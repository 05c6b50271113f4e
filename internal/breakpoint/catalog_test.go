package breakpoint

import "testing"

func TestAddStandbyDedup(t *testing.T) {
	c := NewCatalog()
	bp1 := c.AddStandby("app.js", 10, "", 0)
	bp2 := c.AddStandby("app.js", 10, "", 0)
	if bp1 != bp2 {
		t.Errorf("duplicate AddStandby should return the same entry")
	}
	if len(c.byKey) != 1 {
		t.Errorf("got %d entries, want 1 after duplicate insert", len(c.byKey))
	}
}

func TestStandbyPromotion(t *testing.T) {
	c := NewCatalog()
	c.AddStandby("app.js", 10, "", 0)
	c.AddStandby("other.js", 5, "", 0)

	loaded := map[string]bool{"app.js": true}
	exists := func(name string) bool { return loaded[name] }

	candidates := c.StandbyCandidates(exists)
	if len(candidates) != 1 || candidates[0].ScriptName != "app.js" {
		t.Fatalf("got %+v, want exactly the app.js breakpoint", candidates)
	}

	c.Promote("app.js", 10, 1)
	bp, ok := c.Get("app.js", 10)
	if !ok || bp.Standby || bp.ServerID != 1 {
		t.Errorf("got %+v, want promoted with ServerID=1", bp)
	}

	// Second scan after promotion should not return app.js again.
	if got := c.StandbyCandidates(exists); len(got) != 0 {
		t.Errorf("got %d candidates after promotion, want 0", len(got))
	}
}

func TestStandbyAllOnConnectionLoss(t *testing.T) {
	c := NewCatalog()
	c.AddStandby("app.js", 10, "", 0)
	c.Promote("app.js", 10, 7)

	c.StandbyAll()

	bp, _ := c.Get("app.js", 10)
	if !bp.Standby {
		t.Errorf("got Standby=false after StandbyAll, want true")
	}
}

func TestHasStandby(t *testing.T) {
	c := NewCatalog()
	if c.HasStandby() {
		t.Errorf("empty catalog should not report standby")
	}
	c.AddStandby("app.js", 10, "", 0)
	if !c.HasStandby() {
		t.Errorf("catalog with a standby breakpoint should report standby")
	}
	c.Promote("app.js", 10, 1)
	if c.HasStandby() {
		t.Errorf("catalog with no standby breakpoints left should not report standby")
	}
}

func TestRemoveAndByID(t *testing.T) {
	c := NewCatalog()
	bp := c.AddStandby("app.js", 10, "", 0)
	if got, ok := c.ByID(bp.ID); !ok || got != bp {
		t.Fatalf("ByID(%d) = %v, %v", bp.ID, got, ok)
	}
	c.Remove("app.js", 10)
	if _, ok := c.Get("app.js", 10); ok {
		t.Errorf("breakpoint still present after Remove")
	}
	if _, ok := c.ByID(bp.ID); ok {
		t.Errorf("ByID should not find a removed breakpoint")
	}
}
