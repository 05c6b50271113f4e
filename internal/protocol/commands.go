package protocol

// Command is the payload side of an outbound Request: a name and its
// arguments. This is the teacher's Command shape
// (go/command.go: Name()/Params()/Done()) reduced to its synchronous
// core — Done is dropped because this bridge correlates responses by
// seq through the Dispatcher rather than invoking a per-command
// callback (see DESIGN.md).
type Command interface {
	Name() string
	Params() interface{}
}

type setBreakpointCmd struct{ args SetBreakpointArgs }

// SetBreakpointArgs are the arguments of a "setbreakpoint" request
// (spec §4.4). Line is already translated to the wire's 0-based
// convention by NewSetBreakpoint.
type SetBreakpointArgs struct {
	Type        string `json:"type"`
	Target      string `json:"target"`
	Line        uint32 `json:"line"`
	Column      uint32 `json:"column"`
	Enabled     bool   `json:"enabled"`
	Condition   string `json:"condition,omitempty"`
	IgnoreCount uint32 `json:"ignoreCount"`
}

// NewSetBreakpoint builds a "setbreakpoint" command for a 1-based
// editor line; arguments carry the 0-based wire line.
func NewSetBreakpoint(scriptName string, editorLine uint32, enabled bool, condition string, ignoreCount uint32) Command {
	return &setBreakpointCmd{SetBreakpointArgs{
		Type:        "script",
		Target:      scriptName,
		Line:        editorLine - 1,
		Column:      0,
		Enabled:     enabled,
		Condition:   condition,
		IgnoreCount: ignoreCount,
	}}
}

func (c *setBreakpointCmd) Name() string        { return "setbreakpoint" }
func (c *setBreakpointCmd) Params() interface{} { return c.args }

type clearBreakpointCmd struct{ args ClearBreakpointArgs }

type ClearBreakpointArgs struct {
	Breakpoint uint32 `json:"breakpoint"`
}

func NewClearBreakpoint(bpID uint32) Command {
	return &clearBreakpointCmd{ClearBreakpointArgs{Breakpoint: bpID}}
}

func (c *clearBreakpointCmd) Name() string        { return "clearbreakpoint" }
func (c *clearBreakpointCmd) Params() interface{} { return c.args }

type changeBreakpointCmd struct{ args ChangeBreakpointArgs }

type ChangeBreakpointArgs struct {
	Breakpoint  uint32 `json:"breakpoint"`
	Enabled     bool   `json:"enabled"`
	Condition   string `json:"condition,omitempty"`
	IgnoreCount uint32 `json:"ignoreCount"`
}

func NewChangeBreakpoint(bpID uint32, enabled bool, condition string, ignoreCount uint32) Command {
	return &changeBreakpointCmd{ChangeBreakpointArgs{
		Breakpoint:  bpID,
		Enabled:     enabled,
		Condition:   condition,
		IgnoreCount: ignoreCount,
	}}
}

func (c *changeBreakpointCmd) Name() string        { return "changebreakpoint" }
func (c *changeBreakpointCmd) Params() interface{} { return c.args }

// StepAction selects how "continue" steps the debuggee (spec §4.4).
type StepAction string

const (
	StepNone StepAction = ""
	StepIn   StepAction = "in"
	StepOut  StepAction = "out"
	StepNext StepAction = "next"
)

type continueCmd struct {
	action StepAction
	count  uint32
}

func NewContinue() Command { return &continueCmd{} }

func NewStep(action StepAction, count uint32) Command {
	return &continueCmd{action: action, count: count}
}

func (c *continueCmd) Name() string { return "continue" }

func (c *continueCmd) Params() interface{} {
	if c.action == StepNone {
		// Plain continue: omit arguments entirely, matching the
		// original's "del req['arguments']" when step is None.
		return nil
	}
	return struct {
		StepAction string `json:"stepaction"`
		StepCount  uint32 `json:"stepcount"`
	}{string(c.action), c.count}
}

type evaluateCmd struct {
	expression string
	frame      *uint32
}

// NewEvaluate builds an "evaluate" command. frame is nil for a global
// evaluation (spec §4.4: global=(frame==null)).
func NewEvaluate(expression string, frame *uint32) Command {
	return &evaluateCmd{expression: expression, frame: frame}
}

func (c *evaluateCmd) Name() string { return "evaluate" }

func (c *evaluateCmd) Params() interface{} {
	return struct {
		Expression      string `json:"expression"`
		Frame           *uint32 `json:"frame,omitempty"`
		Global          bool   `json:"global"`
		DisableBreak    bool   `json:"disable_break"`
		MaxStringLength int    `json:"maxStringLength"`
	}{c.expression, c.frame, c.frame == nil, true, 100000}
}

type scriptsCmd struct{}

func NewScripts() Command                { return scriptsCmd{} }
func (scriptsCmd) Name() string          { return "scripts" }
func (scriptsCmd) Params() interface{}   { return nil }

type backtraceCmd struct{}

func NewBacktrace() Command              { return backtraceCmd{} }
func (backtraceCmd) Name() string        { return "backtrace" }
func (backtraceCmd) Params() interface{} { return nil }

type frameCmd struct{}

func NewFrame() Command              { return frameCmd{} }
func (frameCmd) Name() string        { return "frame" }
func (frameCmd) Params() interface{} { return nil }

type scopeCmd struct{ index uint32 }

func NewScope(index uint32) Command { return scopeCmd{index} }
func (c scopeCmd) Name() string     { return "scope" }
func (c scopeCmd) Params() interface{} {
	return struct {
		Number uint32 `json:"number"`
	}{c.index}
}

type lookupCmd struct{ handles []int64 }

func NewLookup(handles []int64) Command { return lookupCmd{handles} }
func (c lookupCmd) Name() string        { return "lookup" }
func (c lookupCmd) Params() interface{} {
	return struct {
		Handles []int64 `json:"handles"`
	}{c.handles}
}

type setExceptionBreakCmd struct {
	typ     string
	enabled bool
}

func NewSetExceptionBreak(uncaughtOnly bool, enabled bool) Command {
	typ := "all"
	if uncaughtOnly {
		typ = "uncaught"
	}
	return setExceptionBreakCmd{typ, enabled}
}

func (c setExceptionBreakCmd) Name() string { return "setexceptionbreak" }
func (c setExceptionBreakCmd) Params() interface{} {
	return struct {
		Type    string `json:"type"`
		Enabled bool   `json:"enabled"`
	}{c.typ, c.enabled}
}

type disconnectCmd struct{}

func NewDisconnect() Command              { return disconnectCmd{} }
func (disconnectCmd) Name() string        { return "disconnect" }
func (disconnectCmd) Params() interface{} { return nil }
