// Package session is the Session Controller (spec §4.8): it owns the
// state machine, the periodic tick that drives standby promotion and
// the deferred-continuation queue, and the break/exception round trip
// that refreshes the Variable Model. Grounded on original_source/
// clewn/nodedbg.py's NodeDbg class (myjob, handle_resp, cmd_continue).
package session

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/hankei6km/nodedbg-go/internal/breakpoint"
	"github.com/hankei6km/nodedbg-go/internal/bridgeerr"
	"github.com/hankei6km/nodedbg-go/internal/editor"
	"github.com/hankei6km/nodedbg-go/internal/protocol"
	"github.com/hankei6km/nodedbg-go/internal/script"
	"github.com/hankei6km/nodedbg-go/internal/transport"
	"github.com/hankei6km/nodedbg-go/internal/variable"
)

// State is one node of the state machine in spec §4.8.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateRunning
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateRunning:
		return "Running"
	case StatePaused:
		return "Paused"
	default:
		return "Unknown"
	}
}

var errQuit = errors.New("quit")

// Controller is the Session Controller. It is exclusively owned by
// the goroutine running Run; nothing else may touch its fields (spec
// §5's "no shared mutable state besides atomic session-status
// flags").
type Controller struct {
	dialFunc func(addr string) (*transport.Transport, error)

	transport *transport.Transport
	state     State

	breakpoints *breakpoint.Catalog
	scripts     *script.Catalog
	vars        *variable.Model

	currentScript string
	currentLine   uint32

	deferredQueue []protocol.Command

	console   editor.Console
	frameView editor.FrameView
	varView   editor.VarView

	commands chan editor.Command

	tickInterval   time.Duration
	requestTimeout time.Duration
}

// Option customizes a newly constructed Controller.
type Option func(*Controller)

func WithTickInterval(d time.Duration) Option { return func(c *Controller) { c.tickInterval = d } }

func WithRequestTimeout(d time.Duration) Option {
	return func(c *Controller) { c.requestTimeout = d }
}

// NewController builds a disconnected controller. The dialFunc
// indirection lets tests substitute an in-process transport for
// transport.Dial.
func NewController(console editor.Console, frameView editor.FrameView, varView editor.VarView, dialFunc func(string) (*transport.Transport, error), opts ...Option) *Controller {
	c := &Controller{
		dialFunc:       dialFunc,
		breakpoints:    breakpoint.NewCatalog(),
		scripts:        script.NewCatalog(),
		vars:           variable.NewModel(),
		console:        console,
		frameView:      frameView,
		varView:        varView,
		commands:       make(chan editor.Command, 16),
		tickInterval:   100 * time.Millisecond,
		requestTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit enqueues an editor-issued command for the controller
// goroutine to process on its next loop iteration.
func (c *Controller) Submit(cmd editor.Command) { c.commands <- cmd }

// State reports the current state machine node; safe to call only
// from the controller goroutine or in tests against a non-running
// Controller.
func (c *Controller) State() State { return c.state }

// Run is the controller's goroutine body (spec §5's "Controller
// context"): it blocks until ctx is cancelled, a "quit" command is
// processed, or the commands channel is closed.
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.tickInterval)
	defer ticker.Stop()

	for {
		var events <-chan *protocol.Event
		var done <-chan struct{}
		if c.transport != nil {
			events = c.transport.Events()
			done = c.transport.Done()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			c.onTick(ctx)

		case cmd, ok := <-c.commands:
			if !ok {
				return nil
			}
			if err := c.handleCommand(ctx, cmd); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
			}

		case evt, ok := <-events:
			if ok {
				c.handleEvent(ctx, evt)
			}

		case <-done:
			c.handleClose()
		}
	}
}

func (c *Controller) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.requestTimeout)
}

// call wraps transport.Call with the configured request timeout and
// surfaces a timed-out request as console feedback (spec §4.8.2).
func (c *Controller) call(ctx context.Context, cmd protocol.Command) (*protocol.Response, error) {
	cctx, cancel := c.withTimeout(ctx)
	defer cancel()
	resp, err := c.transport.Call(cctx, cmd)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.console.Print(bridgeerr.RequestTimeout(cmd.Name()).Error())
		}
		return nil, err
	}
	return resp, nil
}

// onTick drives the periodic scripts poll (spec §4.8): standby
// promotion and the deferred-continuation drain.
func (c *Controller) onTick(ctx context.Context) {
	if c.transport == nil {
		return
	}
	resp, err := c.call(ctx, protocol.NewScripts())
	if err != nil || !resp.Success {
		return
	}
	var entries []protocol.ScriptEntry
	if err := json.Unmarshal(resp.Body, &entries); err != nil {
		return
	}
	c.scripts.SetScripts(entries)

	for _, bp := range c.breakpoints.StandbyCandidates(c.scripts.Exists) {
		c.trySetBreakpoint(ctx, bp)
	}

	if !c.breakpoints.HasStandby() {
		c.drainDeferred(ctx)
	}
}

func (c *Controller) trySetBreakpoint(ctx context.Context, bp *breakpoint.Breakpoint) {
	resp, err := c.call(ctx, protocol.NewSetBreakpoint(bp.ScriptName, bp.Line, bp.Enabled, bp.Condition, bp.IgnoreCount))
	if err != nil {
		return
	}
	if !resp.Success {
		c.console.Print(resp.Message)
		return
	}
	var body protocol.SetBreakpointBody
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return
	}
	c.breakpoints.Promote(bp.ScriptName, bp.Line, body.Breakpoint)
	c.console.Print(bp.String())
}

// drainDeferred executes every queued continuation exactly once, in
// order (spec §4.8.1 and invariant 5 — no coalescing).
func (c *Controller) drainDeferred(ctx context.Context) {
	queue := c.deferredQueue
	c.deferredQueue = nil
	for _, cmd := range queue {
		c.sendContinueLike(ctx, cmd)
	}
}

func (c *Controller) sendContinueLike(ctx context.Context, cmd protocol.Command) {
	resp, err := c.call(ctx, cmd)
	if err != nil {
		return
	}
	if !resp.Success {
		c.console.Print(resp.Message)
		return
	}
	c.state = StateRunning
	c.frameView.Clear()
}

// enqueueOrSend implements the deferred-continuation gate: while any
// breakpoint is standby the command is queued rather than sent.
func (c *Controller) enqueueOrSend(ctx context.Context, cmd protocol.Command) {
	if c.breakpoints.HasStandby() {
		c.deferredQueue = append(c.deferredQueue, cmd)
		return
	}
	c.sendContinueLike(ctx, cmd)
}

func (c *Controller) handleCommand(ctx context.Context, cmd editor.Command) error {
	switch cmd.Kind {
	case editor.CmdAttach:
		c.attach(cmd.Addr)
		return nil
	case editor.CmdDettach:
		c.dettach()
		return nil
	case editor.CmdQuit:
		c.dettach()
		return errQuit

	case editor.CmdBreak:
		bp := c.breakpoints.AddStandby(cmd.ScriptName, cmd.Line, cmd.Condition, cmd.IgnoreCount)
		if c.transport != nil && c.scripts.Exists(cmd.ScriptName) {
			c.trySetBreakpoint(ctx, bp)
		}
		return nil

	case editor.CmdClear:
		return c.handleClear(ctx, cmd)

	case editor.CmdDisable, editor.CmdEnable:
		return c.handleChangeBreakpoint(ctx, cmd)

	case editor.CmdContinue:
		if c.transport == nil {
			return nil
		}
		c.enqueueOrSend(ctx, protocol.NewContinue())
		return nil

	case editor.CmdStep, editor.CmdStepIn, editor.CmdStepOut:
		if c.transport == nil {
			return nil
		}
		c.enqueueOrSend(ctx, protocol.NewStep(stepActionFor(cmd.Kind), 1))
		return nil

	case editor.CmdPrint:
		return c.handlePrint(ctx, cmd)

	case editor.CmdBacktrace:
		return c.handleBacktrace(ctx)

	case editor.CmdFoldvar:
		return c.handleFoldvar(ctx, cmd)
	}
	return nil
}

func stepActionFor(kind editor.CommandKind) protocol.StepAction {
	switch kind {
	case editor.CmdStepIn:
		return protocol.StepIn
	case editor.CmdStepOut:
		return protocol.StepOut
	default:
		return protocol.StepNext
	}
}

func (c *Controller) handleClear(ctx context.Context, cmd editor.Command) error {
	bp, ok := c.breakpoints.Get(cmd.ScriptName, cmd.Line)
	if !ok {
		c.console.Print("Invalid arguments.")
		return nil
	}
	if bp.Standby || c.transport == nil {
		c.breakpoints.Remove(cmd.ScriptName, cmd.Line)
		return nil
	}
	resp, err := c.call(ctx, protocol.NewClearBreakpoint(bp.ServerID))
	if err != nil {
		return nil
	}
	if !resp.Success {
		c.console.Print(resp.Message)
		return nil
	}
	c.breakpoints.Remove(cmd.ScriptName, cmd.Line)
	return nil
}

func (c *Controller) handleChangeBreakpoint(ctx context.Context, cmd editor.Command) error {
	id, err := strconv.ParseUint(strings.TrimSpace(cmd.BreakpointID), 10, 32)
	if err != nil {
		c.console.Print("Invalid arguments.")
		return nil
	}
	bp, ok := c.breakpoints.ByID(uint32(id))
	if !ok {
		c.console.Print("Invalid arguments.")
		return nil
	}
	enabled := cmd.Kind == editor.CmdEnable
	if bp.Standby || c.transport == nil {
		bp.Enabled = enabled
		return nil
	}
	resp, err := c.call(ctx, protocol.NewChangeBreakpoint(bp.ServerID, enabled, bp.Condition, bp.IgnoreCount))
	if err != nil {
		return nil
	}
	if !resp.Success {
		c.console.Print(resp.Message)
		return nil
	}
	bp.Enabled = enabled
	return nil
}

func (c *Controller) handlePrint(ctx context.Context, cmd editor.Command) error {
	if c.transport == nil {
		c.console.Print("Invalid arguments.")
		return nil
	}
	var frame *uint32
	if c.state == StatePaused {
		zero := uint32(0)
		frame = &zero
	}
	resp, err := c.call(ctx, protocol.NewEvaluate(cmd.Expression, frame))
	if err != nil {
		return nil
	}
	if !resp.Success {
		c.console.Print(resp.Message)
		return nil
	}
	var body protocol.ObjectBody
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil
	}
	c.console.Print(evaluatedText(body))
	return nil
}

func evaluatedText(body protocol.ObjectBody) string {
	if len(body.Value) > 0 {
		return strings.Trim(string(body.Value), `"`)
	}
	if body.Text != "" {
		return body.Text
	}
	if body.ClassName != "" {
		return "<" + body.ClassName + ">"
	}
	return "<" + body.Type + ">"
}

func (c *Controller) handleBacktrace(ctx context.Context) error {
	if c.transport == nil {
		c.console.Print("Invalid arguments.")
		return nil
	}
	resp, err := c.call(ctx, protocol.NewBacktrace())
	if err != nil {
		return nil
	}
	if !resp.Success {
		c.console.Print(resp.Message)
		return nil
	}
	var body protocol.BacktraceBody
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil
	}
	lines := make([]string, len(body.Frames))
	for i, f := range body.Frames {
		lines[i] = f.Text
	}
	c.console.Print(strings.Join(lines, "\n"))
	return nil
}

func (c *Controller) handleFoldvar(ctx context.Context, cmd editor.Command) error {
	ref := c.vars.Foldvar(cmd.Lnum)
	if ref >= 0 {
		c.doLookup(ctx, []int64{ref})
	}
	if c.vars.Dirty() {
		c.varView.Render(c.vars.String())
	}
	return nil
}

// handleEvent processes a server-pushed event: break/exception pause
// the debuggee and trigger the frame→scope refresh; close tears the
// session down (spec §4.8).
func (c *Controller) handleEvent(ctx context.Context, evt *protocol.Event) {
	switch evt.Event {
	case "break", "exception":
		var body protocol.BreakEventBody
		if err := json.Unmarshal(evt.Body, &body); err != nil {
			return
		}
		c.state = StatePaused
		c.currentScript = body.Script.Name
		c.currentLine = protocol.EditorSourceLine(body.SourceLine)
		c.frameView.ShowFrame(c.currentScript, c.currentLine)
		if body.Exception != nil {
			c.console.Print(body.Exception.Text)
		}
		c.refreshFrame(ctx)
	case "close":
		c.handleClose()
	}
}

// refreshFrame performs the frame→scope(index)*→lookup round trip
// that rebuilds the Variable Model after a stop (spec §4.7/§4.8). A
// failed or scope-less "frame" response, or a failed "scope" response,
// restores the previous stop's tree rather than leaving a half-built
// one visible.
func (c *Controller) refreshFrame(ctx context.Context) {
	if c.transport == nil {
		return
	}
	resp, err := c.call(ctx, protocol.NewFrame())
	if err != nil {
		return
	}
	if !resp.Success {
		c.vars.RestorePrevScopes()
		return
	}
	var fb protocol.FrameBody
	if err := json.Unmarshal(resp.Body, &fb); err != nil || len(fb.Scopes) == 0 {
		c.vars.RestorePrevScopes()
		return
	}

	c.vars.SetScopes(fb.Scopes)
	for _, s := range fb.Scopes {
		if !c.refreshScope(ctx, s.Index) {
			return
		}
	}

	if refs := c.vars.GetLookupList(); len(refs) > 0 {
		c.doLookup(ctx, refs)
	}

	if c.vars.Dirty() {
		c.varView.Render(c.vars.String())
	}
}

func (c *Controller) refreshScope(ctx context.Context, index int) bool {
	resp, err := c.call(ctx, protocol.NewScope(uint32(index)))
	if err != nil || !resp.Success {
		c.vars.RestorePrevScopes()
		return false
	}
	var sb protocol.ScopeBody
	if err := json.Unmarshal(resp.Body, &sb); err != nil {
		c.vars.RestorePrevScopes()
		return false
	}
	c.vars.SetScopeProperties(sb.Index, sb.Object.Properties)
	return true
}

// doLookup resolves a batch of handles and feeds each object's joined
// properties back into the Variable Model.
func (c *Controller) doLookup(ctx context.Context, handles []int64) {
	resp, err := c.call(ctx, protocol.NewLookup(handles))
	if err != nil || !resp.Success {
		return
	}
	var body protocol.LookupBody
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return
	}
	for key, obj := range body {
		handle, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		joined := protocol.JoinLookupProperties(obj.Properties, resp.Refs)
		c.vars.SetPropertiesFromHandle(handle, joined)
	}
}

func (c *Controller) attach(addr string) {
	if c.transport != nil {
		return
	}
	c.state = StateConnecting
	tr, err := c.dialFunc(addr)
	if err != nil {
		c.console.Print(err.Error())
		c.state = StateDisconnected
		return
	}
	c.transport = tr
	c.state = StateRunning
}

func (c *Controller) dettach() {
	if c.transport == nil {
		return
	}
	c.transport.Close()
	c.resetSession()
}

func (c *Controller) handleClose() {
	c.console.Print("Node.js debugger connection closed.")
	c.resetSession()
}

func (c *Controller) resetSession() {
	c.transport = nil
	c.state = StateDisconnected
	c.breakpoints.StandbyAll()
	c.scripts = script.NewCatalog()
	c.vars = variable.NewModel()
	c.deferredQueue = nil
	c.frameView.Clear()
}
