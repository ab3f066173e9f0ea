package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to
// operate. The real App type satisfies this interface; tests can
// provide a lightweight stub.
type execIface interface {
	Clients(ctx context.Context) error
	Today(ctx context.Context) error
	Collect(ctx context.Context) error
	Visit(ctx context.Context) error
	Sync(ctx context.Context) error
	Status(ctx context.Context) error
	ConnectPrinter(ctx context.Context) error
	Reprint(ctx context.Context) error
}

// runREPL starts a simple read-eval-print loop for the collector
// console. It reads a line from the provided scanner, parses the first
// token as the command, and dispatches to methods on 'a'. Unknown
// commands are reported back to the user. The loop exits on scanner
// EOF or when the user types "exit" or "quit".
//
// Any errors returned by command handlers are ignored here; handlers
// print their own errors. This keeps the REPL loop resilient and
// focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("cobrador %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		switch cmd {
		case "help":
			printlnFn("Available commands: (l)ist clients, today, cobrar, visita, sync, status, printer, reprint, exit")

		case "l", "list", "clients":
			_ = a.Clients(ctx)

		case "today":
			_ = a.Today(ctx)

		case "cobrar":
			_ = a.Collect(ctx)

		case "visita":
			_ = a.Visit(ctx)

		case "sync":
			_ = a.Sync(ctx)

		case "status":
			_ = a.Status(ctx)

		case "printer":
			_ = a.ConnectPrinter(ctx)

		case "print", "reprint":
			_ = a.Reprint(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
