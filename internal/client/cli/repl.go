package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Status(ctx context.Context) error
	Stream(ctx context.Context) error
	Stop(ctx context.Context) error
	Image(ctx context.Context, path string) error
	Video(ctx context.Context, path string) error
	Color(ctx context.Context, value string) error
	Confidence(ctx context.Context, value string) error
}

// runREPL starts a simple read-eval-print loop for the tracker CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Not logged in:
//	  - help           — show available commands
//	  - register       — create an account
//	  - login          — authenticate
//	  - exit | quit    — leave the program
//
//	Logged in:
//	  - help           — show available commands
//	  - stream         — start live camera streaming
//	  - stop           — stop the live stream
//	  - image <path>   — analyze a single image
//	  - video <path>   — analyze a whole video
//	  - color <name>   — set the target color
//	  - conf <value>   — set the confidence threshold
//	  - status         — show session and connection state
//	  - logout         — log out
//	  - exit | quit    — leave the program
//
// Any errors returned by command handlers are ignored here; handlers should
// log their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("trk %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: stream, stop, image <path>, video <path>, color <name>, conf <value>, status, logout, exit")
			} else {
				printlnFn("Available commands: register, login, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "status":
			_ = a.Status(ctx)

		case "stream":
			_ = a.Stream(ctx)

		case "stop":
			_ = a.Stop(ctx)

		case "image":
			if len(args) == 0 {
				printlnFn("Usage: image <path>")
				continue
			}
			_ = a.Image(ctx, args[0])

		case "video":
			if len(args) == 0 {
				printlnFn("Usage: video <path>")
				continue
			}
			_ = a.Video(ctx, args[0])

		case "color":
			if len(args) == 0 {
				printlnFn("Usage: color <red|green|blue>")
				continue
			}
			_ = a.Color(ctx, args[0])

		case "conf":
			if len(args) == 0 {
				printlnFn("Usage: conf <value between 0 and 1>")
				continue
			}
			_ = a.Confidence(ctx, args[0])

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
