// Package variable is the scope/property tree built from successive
// frame→scope→lookup round trips (spec §4.7). It is the most
// intricate component: it diffs consecutive stops to decide what
// fold state and what values survive, and renders the result as a
// textual tree with change highlighting. Grounded almost entirely on
// original_source/clewn/nodedbg.py's NodeVar class.
package variable

import (
	"fmt"
	"strings"

	"github.com/hankei6km/nodedbg-go/internal/protocol"
)

// Property is one named slot of a scope or a composite's children.
// The tree is arbitrarily deep but Children is populated only where
// the user opened a fold (spec §3's Property entity).
type Property struct {
	Name     string
	Value    protocol.ValueDescriptor
	Expanded bool
	Children *PropertyMap // nil until looked up (or for leaves, always)
}

// IsComposite reports whether this property's value is an object or
// function requiring a lookup to see its children, as opposed to a
// leaf with an inline value.
func (p *Property) IsComposite() bool {
	return len(p.Value.Value) == 0 && p.Value.Ref != nil
}

// PropertyMap is an order-preserving name→Property map (spec §9's
// "ordered property map" design note: response order must survive
// for rendering).
type PropertyMap struct {
	order  []string
	byName map[string]*Property
}

func newPropertyMap() *PropertyMap {
	return &PropertyMap{byName: make(map[string]*Property)}
}

func newPropertyMapFromSlots(slots []protocol.ScopeProperty) *PropertyMap {
	m := newPropertyMap()
	for _, s := range slots {
		p := &Property{Name: s.Name, Value: s.Value}
		m.order = append(m.order, s.Name)
		m.byName[s.Name] = p
	}
	return m
}

func (m *PropertyMap) Get(name string) (*Property, bool) {
	p, ok := m.byName[name]
	return p, ok
}

func (m *PropertyMap) Names() []string { return m.order }

func (m *PropertyMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.order)
}

// Scope is a lexical variable container at the current stack frame
// (spec §3's Scope entity).
type Scope struct {
	Index      int
	Kind       protocol.ScopeKind
	Expanded   bool
	Standby    bool
	Properties *PropertyMap
}

// lookupTarget locates a property within the current scopes by a
// scope index and a dotted path of property names from that scope's
// root.
type lookupTarget struct {
	scopeIndex int
	path       []string
}

// Model is the variable-inspection engine (spec §4.7): it owns the
// current scope tree, the previous stop's tree (for shape/value
// diffing), and the in-flight handle→path map used to re-resolve
// lookups after a stop (NodeVar.scope_lookup in the original).
type Model struct {
	scopes     []*Scope
	prevScopes []*Scope
	lookup     map[int64]lookupTarget
	dirty      bool
}

func NewModel() *Model {
	return &Model{lookup: make(map[int64]lookupTarget), dirty: true}
}

// shapeEqual implements spec §4.7's scope-equality heuristic: same
// length and matching kind at each index.
func shapeEqual(a, b []*Scope) bool {
	if len(a) != len(b) {
		return false
	}
	byIndex := make(map[int]protocol.ScopeKind, len(a))
	for _, s := range a {
		byIndex[s.Index] = s.Kind
	}
	for _, s := range b {
		kind, ok := byIndex[s.Index]
		if !ok || kind != s.Kind {
			return false
		}
	}
	return true
}

// SetScopes rebuilds the scope list from a "frame" response's scopes
// array (spec §4.7). If the new shape equals the previous stop's
// shape, expanded flags are inherited per scope index; otherwise the
// previous tree is discarded entirely.
func (m *Model) SetScopes(summaries []protocol.ScopeSummary) {
	newScopes := make([]*Scope, len(summaries))
	for i, s := range summaries {
		newScopes[i] = &Scope{
			Index:      s.Index,
			Kind:       s.Type,
			Expanded:   s.Type.DefaultExpanded(),
			Standby:    true,
			Properties: newPropertyMap(),
		}
	}

	if shapeEqual(m.scopes, newScopes) {
		m.prevScopes = m.scopes
		byIndex := make(map[int]*Scope, len(m.prevScopes))
		for _, s := range m.prevScopes {
			byIndex[s.Index] = s
		}
		for _, s := range newScopes {
			if prev, ok := byIndex[s.Index]; ok {
				s.Expanded = prev.Expanded
			}
		}
	} else {
		m.prevScopes = nil
	}

	m.scopes = newScopes
	m.dirty = true
}

// RestorePrevScopes discards the half-built current tree and restores
// the previous stop's tree, for the recovery path of spec §4.7: a
// "frame" response lacking scopes, or a failed "scope" response.
// After a stop whose scope shape differed from the one before it there
// is no previous tree, and the model is left with no scopes.
func (m *Model) RestorePrevScopes() {
	m.scopes = m.prevScopes
}

// propertiesEqual implements spec §4.7's property-equality heuristic:
// same name set and same value.type for each.
func propertiesEqual(a, b *PropertyMap) bool {
	if a.Len() != b.Len() {
		return false
	}
	for _, name := range a.Names() {
		pa, _ := a.Get(name)
		pb, ok := b.Get(name)
		if !ok || pa.Value.Type != pb.Value.Type {
			return false
		}
	}
	return true
}

func (m *Model) scopeByIndex(index int) *Scope {
	for _, s := range m.scopes {
		if s.Index == index {
			return s
		}
	}
	return nil
}

func (m *Model) prevScopeByIndex(index int) *Scope {
	for _, s := range m.prevScopes {
		if s.Index == index {
			return s
		}
	}
	return nil
}

// SetScopeProperties installs a "scope" response's properties into
// the named scope. If the new property set is shape-equal to the
// previous stop's properties for this scope, expanded flags and
// stale children are inherited (spec §4.7's property-equality
// heuristic); the caller must then call GetLookupList and re-issue a
// "lookup" to refresh the inherited children's values.
func (m *Model) SetScopeProperties(index int, slots []protocol.ScopeProperty) {
	scope := m.scopeByIndex(index)
	if scope == nil {
		return
	}
	props := newPropertyMapFromSlots(slots)
	scope.Properties = props
	scope.Standby = false

	if prev := m.prevScopeByIndex(index); prev != nil && propertiesEqual(props, prev.Properties) {
		for _, name := range props.Names() {
			cur, _ := props.Get(name)
			prevProp, _ := prev.Properties.Get(name)
			cur.Expanded = prevProp.Expanded
			cur.Children = prevProp.Children
		}
	}

	m.dirty = true
}

// GetLookupList walks the retained expansion map left over from the
// previous stop, re-resolves each path in the new tree, and returns
// the fresh value.ref handles that need a "lookup" request to refresh
// their now-stale children (spec §4.7). It replaces the retained map
// with the freshly-resolved one.
func (m *Model) GetLookupList() []int64 {
	prevLookup := m.lookup
	m.lookup = make(map[int64]lookupTarget)

	var refs []int64
	for _, target := range prevLookup {
		prop := m.resolve(target.scopeIndex, target.path)
		if prop == nil || prop.Value.Ref == nil {
			continue
		}
		ref := *prop.Value.Ref
		if _, seen := m.lookup[ref]; seen {
			continue
		}
		m.lookup[ref] = target
		refs = append(refs, ref)
	}
	return refs
}

// resolve walks from the named scope's root properties along path,
// returning the Property at the end, or nil if the path no longer
// resolves (the shape changed out from under it).
func (m *Model) resolve(scopeIndex int, path []string) *Property {
	scope := m.scopeByIndex(scopeIndex)
	if scope == nil {
		return nil
	}
	props := scope.Properties
	var cur *Property
	for i, name := range path {
		p, ok := props.Get(name)
		if !ok {
			return nil
		}
		cur = p
		if i < len(path)-1 {
			if cur.Children == nil {
				return nil
			}
			props = cur.Children
		}
	}
	return cur
}

// SetPropertiesFromHandle installs the children of the composite
// property previously registered under handle (via GetLookupList or
// Foldvar), from a "lookup" response.
func (m *Model) SetPropertiesFromHandle(handle int64, slots []protocol.ScopeProperty) {
	target, ok := m.lookup[handle]
	if !ok {
		return
	}
	prop := m.resolve(target.scopeIndex, target.path)
	if prop == nil {
		return
	}
	prop.Children = newPropertyMapFromSlots(slots)
	m.dirty = true
}

// IsStandby reports whether any scope is still waiting on its "scope"
// response.
func (m *Model) IsStandby() bool {
	for _, s := range m.scopes {
		if s.Standby {
			return true
		}
	}
	return false
}

// renderLine is one line of rendered output together with the path
// information needed to map a fold toggle back into the tree
// (spec §4.7's "Fold state").
type renderLine struct {
	isScopeRoot bool
	scopeIndex  int
	path        []string
	expandable  bool
}

func (m *Model) renderLines() []renderLine {
	var lines []renderLine
	for _, scope := range m.scopes {
		lines = append(lines, renderLine{isScopeRoot: true, scopeIndex: scope.Index, expandable: true})
		if scope.Expanded {
			lines = append(lines, propertyLines(scope.Index, scope.Properties, nil)...)
		}
	}
	return lines
}

func propertyLines(scopeIndex int, props *PropertyMap, prefix []string) []renderLine {
	var lines []renderLine
	for _, name := range props.Names() {
		p, _ := props.Get(name)
		path := append(append([]string{}, prefix...), name)
		lines = append(lines, renderLine{scopeIndex: scopeIndex, path: path, expandable: p.IsComposite()})
		if p.IsComposite() && p.Expanded && p.Children != nil {
			lines = append(lines, propertyLines(scopeIndex, p.Children, path)...)
		}
	}
	return lines
}

// Foldvar toggles the fold state of the tree node rendered at lnum
// (1-based, matching the editor's "foldvar" command, spec §6). It
// returns a handle to "lookup" when expanding a composite that has no
// children yet, or -1 ("no lookup needed") when collapsing, expanding
// an already-populated composite, or toggling a leaf.
func (m *Model) Foldvar(lnum int) int64 {
	lines := m.renderLines()
	if lnum < 1 || lnum > len(lines) {
		return -1
	}
	line := lines[lnum-1]

	if line.path == nil {
		scope := m.scopeByIndex(line.scopeIndex)
		if scope != nil {
			scope.Expanded = !scope.Expanded
			m.dirty = true
		}
		return -1
	}

	prop := m.resolve(line.scopeIndex, line.path)
	if prop == nil || !prop.IsComposite() {
		return -1
	}
	prop.Expanded = !prop.Expanded
	m.dirty = true
	if !prop.Expanded || prop.Children != nil {
		return -1
	}
	ref := *prop.Value.Ref
	m.lookup[ref] = lookupTarget{scopeIndex: line.scopeIndex, path: append([]string{}, line.path...)}
	return ref
}

func toggleLabel(expandable, expanded bool) string {
	if !expandable {
		return "   "
	}
	if expanded {
		return "[-]"
	}
	return "[+]"
}

func valueLabel(v protocol.ValueDescriptor) string {
	if len(v.Value) > 0 {
		s := string(v.Value)
		return strings.Trim(s, `"`)
	}
	if v.ClassName != "" {
		return fmt.Sprintf("<%s>", v.ClassName)
	}
	return fmt.Sprintf("<%s>", v.Type)
}

// String renders the whole tree (spec §4.7's "Change highlighting"
// and the toggle-label rendering from §4.7.1). Rendering clears the
// dirty flag, matching NodeVar.__str__'s side effect in the original.
func (m *Model) String() string {
	var b strings.Builder
	for _, scope := range m.scopes {
		prev := m.prevScopeByIndex(scope.Index)
		fmt.Fprintf(&b, "%s %s\n", toggleLabel(true, scope.Expanded), scope.Kind)
		if scope.Expanded {
			// After a property-set shape break there is no prior to
			// compare against, so no previous properties are used.
			var prevProps *PropertyMap
			if prev != nil && propertiesEqual(scope.Properties, prev.Properties) {
				prevProps = prev.Properties
			}
			writeProperties(&b, scope.Properties, prevProps, 1)
		}
	}
	m.dirty = false
	return b.String()
}

func writeProperties(b *strings.Builder, props, prevProps *PropertyMap, depth int) {
	for _, name := range props.Names() {
		p, _ := props.Get(name)
		var prevProp *Property
		if prevProps != nil {
			prevProp, _ = prevProps.Get(name)
		}
		hilite := highlight(p, prevProp)
		indent := strings.Repeat("  ", depth)
		fmt.Fprintf(b, "%s%s %s ={%s} %s\n", indent, toggleLabel(p.IsComposite(), p.Expanded), p.Name, hilite, valueLabel(p.Value))
		if p.IsComposite() && p.Expanded && p.Children != nil {
			writeProperties(b, p.Children, childrenOf(prevProp), depth+1)
		}
	}
}

func childrenOf(p *Property) *PropertyMap {
	if p == nil {
		return nil
	}
	return p.Children
}

// highlight implements spec §4.7's change-highlighting rule: '*' when
// the leaf value text differs (or the type changed) from the previous
// stop, '=' when unchanged. Composite nodes are compared by type
// only, matching the original's scope_var_str. A property with no
// prior counterpart (first render, or any property after a
// property-set shape break per spec §8 S4) has nothing to compare
// against and renders '='.
func highlight(cur, prev *Property) string {
	if prev == nil {
		return "="
	}
	if len(cur.Value.Value) > 0 {
		if len(prev.Value.Value) == 0 || string(cur.Value.Value) != string(prev.Value.Value) {
			return "*"
		}
		return "="
	}
	if cur.Value.Type != prev.Value.Type {
		return "*"
	}
	return "="
}

// Dirty reports whether the tree has changed since String was last
// called, the signal session.Controller uses to decide whether to
// push a new render to the VarView sink.
func (m *Model) Dirty() bool { return m.dirty }
