package protocol

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSetBreakpointLineConvention(t *testing.T) {
	cmd := NewSetBreakpoint("app.js", 10, true, "", 0)
	args := cmd.Params().(SetBreakpointArgs)
	if args.Line != 9 {
		t.Errorf("got Line=%d, want 9 (editor line 10 minus one)", args.Line)
	}
	if cmd.Name() != "setbreakpoint" {
		t.Errorf("got Name()=%q, want setbreakpoint", cmd.Name())
	}
}

func TestSetBreakpointBodyEditorLine(t *testing.T) {
	body := SetBreakpointBody{
		ActualLocations: []SetBreakpointLocation{{Line: 9}},
	}
	if got := body.EditorLine(); got != 10 {
		t.Errorf("got EditorLine()=%d, want 10", got)
	}
}

func TestEditorSourceLine(t *testing.T) {
	if got := EditorSourceLine(9); got != 10 {
		t.Errorf("got %d, want 10", got)
	}
}

func TestPlainContinueOmitsArguments(t *testing.T) {
	cmd := NewContinue()
	if cmd.Params() != nil {
		t.Errorf("got Params()=%v, want nil for plain continue", cmd.Params())
	}
}

func TestStepIncludesStepAction(t *testing.T) {
	cmd := NewStep(StepNext, 1)
	data, err := json.Marshal(cmd.Params())
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]interface{}
	json.Unmarshal(data, &got)
	want := map[string]interface{}{"stepaction": "next", "stepcount": float64(1)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluateGlobalWhenNoFrame(t *testing.T) {
	cmd := NewEvaluate("1+1", nil)
	data, _ := json.Marshal(cmd.Params())
	var got map[string]interface{}
	json.Unmarshal(data, &got)
	if got["global"] != true {
		t.Errorf("got global=%v, want true when frame is nil", got["global"])
	}
	if _, ok := got["frame"]; ok {
		t.Errorf("frame key should be omitted when nil, got %v", got["frame"])
	}
}

func TestScopeKindDefaultExpanded(t *testing.T) {
	cases := []struct {
		kind ScopeKind
		want bool
	}{
		{ScopeGlobal, false},
		{ScopeLocal, true},
		{ScopeWith, false},
		{ScopeClosure, true},
		{ScopeCatch, false},
	}
	for _, c := range cases {
		if got := c.kind.DefaultExpanded(); got != c.want {
			t.Errorf("%s.DefaultExpanded() = %v, want %v", c.kind, got, c.want)
		}
	}
}
