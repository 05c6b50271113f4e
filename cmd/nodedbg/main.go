// Command nodedbg wires a transport, a session controller, and a pair
// of trivial stdout/stdin-backed editor sinks together. It exercises
// the bridge end-to-end; it is not a real editor integration — no
// sign placement, key mappings, or Vim/Netbeans wire format, which is
// what the real front end this bridge replaces would provide.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yijinliu/algo-lib/go/src/logging"

	"github.com/hankei6km/nodedbg-go/internal/editor"
	"github.com/hankei6km/nodedbg-go/internal/session"
	"github.com/hankei6km/nodedbg-go/internal/transport"
)

var (
	addrFlag           = flag.String("addr", transport.DefaultAddr, "address of the Node.js debugger")
	loopTimeoutFlag    = flag.Duration("loop-timeout", 100*time.Millisecond, "controller tick interval")
	requestTimeoutFlag = flag.Duration("request-timeout", 5*time.Second, "per-request timeout")
)

type stdoutConsole struct{}

func (stdoutConsole) Print(line string) { fmt.Println(line) }

type stdoutFrameView struct{}

func (stdoutFrameView) ShowFrame(scriptName string, line uint32) {
	fmt.Printf("-- %s:%d --\n", scriptName, line)
}

func (stdoutFrameView) Clear() { fmt.Println("-- running --") }

type stdoutVarView struct{}

func (stdoutVarView) Render(text string) { fmt.Print(text) }

func main() {
	flag.Parse()

	ctrl := session.NewController(
		stdoutConsole{}, stdoutFrameView{}, stdoutVarView{},
		transport.Dial,
		session.WithTickInterval(*loopTimeoutFlag),
		session.WithRequestTimeout(*requestTimeoutFlag),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ctrl.Run(ctx) })
	g.Go(func() error { return readCommands(ctx, ctrl) })

	ctrl.Submit(editor.Command{Kind: editor.CmdAttach, Addr: *addrFlag})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logging.Fatal(err)
		os.Exit(1)
	}
}

// readCommands parses one command per line from stdin, in the
// "cmd [args]" shape a real front end's wire protocol would otherwise
// carry, and submits it to the controller.
func readCommands(ctx context.Context, ctrl *session.Controller) error {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cmd, ok := parseCommand(line)
		if !ok {
			fmt.Println("Invalid arguments.")
			continue
		}
		ctrl.Submit(cmd)
		if cmd.Kind == editor.CmdQuit {
			return nil
		}
	}
	return scanner.Err()
}

func parseCommand(line string) (editor.Command, bool) {
	fields := strings.SplitN(line, " ", 2)
	name := fields[0]
	var rest string
	if len(fields) == 2 {
		rest = strings.TrimSpace(fields[1])
	}

	switch name {
	case "attach":
		addr := rest
		if addr == "" {
			addr = transport.DefaultAddr
		}
		return editor.Command{Kind: editor.CmdAttach, Addr: addr}, true
	case "dettach":
		return editor.Command{Kind: editor.CmdDettach}, true
	case "quit":
		return editor.Command{Kind: editor.CmdQuit}, true
	case "break":
		return parseFileLine(editor.CmdBreak, rest)
	case "clear":
		return parseFileLine(editor.CmdClear, rest)
	case "disable":
		return editor.Command{Kind: editor.CmdDisable, BreakpointID: rest}, true
	case "enable":
		return editor.Command{Kind: editor.CmdEnable, BreakpointID: rest}, true
	case "continue":
		return editor.Command{Kind: editor.CmdContinue}, true
	case "step":
		return editor.Command{Kind: editor.CmdStep}, true
	case "stepin":
		return editor.Command{Kind: editor.CmdStepIn}, true
	case "stepout":
		return editor.Command{Kind: editor.CmdStepOut}, true
	case "print":
		return editor.Command{Kind: editor.CmdPrint, Expression: rest}, true
	case "backtrace":
		return editor.Command{Kind: editor.CmdBacktrace}, true
	case "foldvar":
		lnum, err := strconv.Atoi(rest)
		if err != nil {
			return editor.Command{}, false
		}
		return editor.Command{Kind: editor.CmdFoldvar, Lnum: lnum}, true
	default:
		return editor.Command{}, false
	}
}

// parseFileLine splits a "fname:lnum" argument for break/clear.
func parseFileLine(kind editor.CommandKind, arg string) (editor.Command, bool) {
	parts := strings.SplitN(arg, ":", 2)
	if len(parts) != 2 {
		return editor.Command{}, false
	}
	lnum, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return editor.Command{}, false
	}
	return editor.Command{Kind: kind, ScriptName: parts[0], Line: uint32(lnum)}, true
}
