package protocol

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestJoinLookupPropertiesJoinsByHandle(t *testing.T) {
	slots := []LookupPropertySlot{{Name: "x", Ref: 7}, {Name: "y", Ref: 8}}
	refs := []Ref{
		{Handle: 7, Type: "number", Value: json.RawMessage(`1`)},
		{Handle: 8, Type: "object", ClassName: "Object"},
	}

	got := JoinLookupProperties(slots, refs)
	want := []ScopeProperty{
		{Name: "x", Value: ValueDescriptor{Type: "number", Value: json.RawMessage(`1`), Ref: handlePtr(7)}},
		{Name: "y", Value: ValueDescriptor{Type: "object", ClassName: "Object", Ref: handlePtr(8)}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestJoinLookupPropertiesSkipsUnresolvedHandle(t *testing.T) {
	slots := []LookupPropertySlot{{Name: "x", Ref: 99}}
	got := JoinLookupProperties(slots, nil)
	if len(got) != 0 {
		t.Errorf("got %+v, want no entries for an unresolved handle", got)
	}
}

func TestJoinLookupPropertiesLeafVsComposite(t *testing.T) {
	slots := []LookupPropertySlot{{Name: "n", Ref: 1}, {Name: "o", Ref: 2}}
	refs := []Ref{
		{Handle: 1, Type: "number", Value: json.RawMessage(`5`)},
		{Handle: 2, Type: "object", ClassName: "Object"},
	}
	got := JoinLookupProperties(slots, refs)

	// Both carry a Ref (matching the original's literal behavior); the
	// discriminator between leaf and composite is Value's presence.
	if got[0].Value.Ref == nil || got[1].Value.Ref == nil {
		t.Fatalf("joined properties should always carry Ref: %+v", got)
	}
	if len(got[0].Value.Value) == 0 {
		t.Errorf("leaf property should carry an inline Value")
	}
	if len(got[1].Value.Value) != 0 {
		t.Errorf("composite property should have no inline Value")
	}
}

func handlePtr(h int64) *int64 { return &h }
