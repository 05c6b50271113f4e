package protocol

import "encoding/json"

// ScopeKind is the lexical container kind for a Scope (spec §3,
// GLOSSARY "Scope"). The wire sends these as small integers; V8's
// convention (carried over unchanged from the original's set_scopes)
// is 0=Global, 1=Local, 2=With, 3=Closure, 4=Catch.
type ScopeKind int

const (
	ScopeGlobal ScopeKind = iota
	ScopeLocal
	ScopeWith
	ScopeClosure
	ScopeCatch
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeGlobal:
		return "Global"
	case ScopeLocal:
		return "Local"
	case ScopeWith:
		return "With"
	case ScopeClosure:
		return "Closure"
	case ScopeCatch:
		return "Catch"
	default:
		return "Unknown"
	}
}

// DefaultExpanded reports whether a freshly constructed scope of this
// kind starts expanded, per spec §3.1 / §4.7.1: Local and Closure
// start open, everything else starts collapsed.
func (k ScopeKind) DefaultExpanded() bool {
	return k == ScopeLocal || k == ScopeClosure
}

// ScopeSummary is one entry of a "frame" response's scopes array.
type ScopeSummary struct {
	Index int       `json:"index"`
	Type  ScopeKind `json:"type"`
}

// FrameBody is the body of a "frame" response.
type FrameBody struct {
	Scopes []ScopeSummary `json:"scopes"`
}

// ValueDescriptor is a value descriptor embedded inline, the shape a
// "scope" response's properties carry directly (spec §3's ValueRef
// entity). Leaves carry Value; composites carry Ref and require a
// "lookup" to populate their own Properties.
type ValueDescriptor struct {
	Type      string          `json:"type"`
	Value     json.RawMessage `json:"value,omitempty"`
	ClassName string          `json:"className,omitempty"`
	Ref       *int64          `json:"ref,omitempty"`
}

// ScopeProperty is one named slot of a scope's (or an already-joined
// object's) properties, with its value descriptor inline.
type ScopeProperty struct {
	Name  string          `json:"name"`
	Value ValueDescriptor `json:"value"`
}

// LookupPropertySlot names a property and the handle of its value, the
// thinner shape a "lookup" response's per-object properties array
// uses — the value itself lives in the envelope's top-level Refs and
// must be joined by handle (spec §3's Ref entity, GLOSSARY "Handle /
// ref").
type LookupPropertySlot struct {
	Name string `json:"name"`
	Ref  int64  `json:"ref"`
}

// ObjectBody is the shape of one "lookup" response body entry, and of
// an "evaluate" response's body: a handle-addressed value whose own
// properties (if any) are thin {name, ref} slots needing a join
// against the envelope's Refs.
type ObjectBody struct {
	Handle     int64                `json:"handle"`
	Type       string               `json:"type"`
	ClassName  string               `json:"className,omitempty"`
	Value      json.RawMessage      `json:"value,omitempty"`
	Text       string               `json:"text,omitempty"`
	Properties []LookupPropertySlot `json:"properties,omitempty"`
}

// ScopeBody is the body of a "scope" response. Unlike ObjectBody, its
// properties carry their value descriptors inline — no join needed.
type ScopeBody struct {
	Index  int    `json:"index"`
	Object struct {
		Properties []ScopeProperty `json:"properties"`
	} `json:"object"`
}

// LookupBody is the body of a "lookup" response: a map from the
// stringified handle to the resolved object.
type LookupBody map[string]ObjectBody

// JoinLookupProperties resolves a lookup entry's thin {name, ref}
// properties against the envelope's Refs, producing the same
// ScopeProperty shape a "scope" response carries inline. Grounded on
// original_source/clewn/nodeutils.py's obj_to_properties.
func JoinLookupProperties(slots []LookupPropertySlot, refs []Ref) []ScopeProperty {
	out := make([]ScopeProperty, 0, len(slots))
	for _, slot := range slots {
		for _, r := range refs {
			if r.Handle != slot.Ref {
				continue
			}
			desc := ValueDescriptor{Type: r.Type, ClassName: r.ClassName}
			if len(r.Value) > 0 {
				desc.Value = r.Value
			}
			handle := r.Handle
			desc.Ref = &handle
			out = append(out, ScopeProperty{Name: slot.Name, Value: desc})
			break
		}
	}
	return out
}

// ScriptEntry is one element of a "scripts" response body.
type ScriptEntry struct {
	Name string `json:"name"`
	Type int    `json:"type"`
}

// BacktraceFrame is one element of a "backtrace" response's frames.
type BacktraceFrame struct {
	Text string `json:"text"`
}

// BacktraceBody is the body of a "backtrace" response.
type BacktraceBody struct {
	Frames []BacktraceFrame `json:"frames"`
}

// SetBreakpointLocation is one element of a setbreakpoint response's
// actual_locations.
type SetBreakpointLocation struct {
	Line int `json:"line"`
}

// SetBreakpointBody is the body of a "setbreakpoint" response.
type SetBreakpointBody struct {
	ScriptName      string                  `json:"script_name"`
	ActualLocations []SetBreakpointLocation `json:"actual_locations"`
	Breakpoint      uint32                  `json:"breakpoint"`
}

// EditorLine converts the wire's 0-based actual breakpoint location
// to the editor's 1-based line convention (spec §4.4).
func (b SetBreakpointBody) EditorLine() uint32 {
	if len(b.ActualLocations) == 0 {
		return 0
	}
	return uint32(b.ActualLocations[0].Line) + 1
}

// EditorSourceLine converts a break/exception event's 0-based
// sourceLine to the editor's 1-based convention (spec §4.4, invariant
// 2).
func EditorSourceLine(sourceLine int) uint32 { return uint32(sourceLine) + 1 }

// BreakEventBody is the body of a "break" or "exception" event.
type BreakEventBody struct {
	Script struct {
		Name string `json:"name"`
	} `json:"script"`
	SourceLine int `json:"sourceLine"`
	Exception  *struct {
		Text string `json:"text"`
	} `json:"exception,omitempty"`
}
