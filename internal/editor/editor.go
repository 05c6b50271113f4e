// Package editor defines the abstract boundary between the session
// controller and whatever drives it (spec §1, §6): a console for
// plain text feedback, a frame view for the current stop location,
// a variable view for the rendered scope tree, and the enumerated
// commands the editor side issues.
package editor

// Console receives plain text feedback: command acknowledgements,
// error messages, backtraces.
type Console interface {
	Print(line string)
}

// FrameView receives the current stop location, or is cleared when
// the debuggee resumes running.
type FrameView interface {
	ShowFrame(scriptName string, line uint32)
	Clear()
}

// VarView receives the rendered variable tree whenever it changes.
type VarView interface {
	Render(text string)
}

// CommandKind enumerates the operations an editor can issue to the
// session controller (spec §6).
type CommandKind int

const (
	CmdAttach CommandKind = iota
	CmdDettach
	CmdQuit
	CmdBreak
	CmdClear
	CmdDisable
	CmdEnable
	CmdContinue
	CmdStep
	CmdStepIn
	CmdStepOut
	CmdPrint
	CmdBacktrace
	CmdFoldvar
)

// Command is one editor-issued instruction, with the kind-specific
// arguments the controller needs to act on it.
type Command struct {
	Kind CommandKind

	// CmdAttach
	Addr string

	// CmdBreak, CmdClear (ScriptName and Line only)
	ScriptName  string
	Line        uint32
	Condition   string
	IgnoreCount uint32

	// CmdDisable, CmdEnable: raw user text, validated as a
	// breakpoint id by the controller (spec §9 Open Question (b)).
	BreakpointID string

	// CmdPrint
	Expression string

	// CmdFoldvar
	Lnum int
}
