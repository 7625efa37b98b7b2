package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with
// a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a
// lightweight stub.
type execIface interface {
	isUnlocked() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Lock(ctx context.Context) error
	StoreEntry(ctx context.Context) error
	Show(ctx context.Context) error
	List(ctx context.Context) error
	Delete(ctx context.Context) error
	Export(ctx context.Context) error
	Import(ctx context.Context) error
	GuestStart(ctx context.Context) error
	GuestEnd(ctx context.Context) error
	Profiles(ctx context.Context) error
}

// runREPL reads a line from the scanner, parses the first token as the
// command, and dispatches to methods on a. The loop exits on scanner EOF or
// when the user types "exit" or "quit". Errors are printed by the handlers
// themselves; the loop stays alive regardless.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("vault> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "help":
			if a.isUnlocked() {
				printlnFn("Available commands: store, get, (l)ist, delete, export, import, lock, profiles, exit")
			} else {
				printlnFn("Available commands: register, login, guest, guestend, profiles, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login", "unlock":
			_ = a.Login(ctx)

		case "lock", "logout":
			_ = a.Lock(ctx)

		case "store", "add":
			_ = a.StoreEntry(ctx)

		case "get", "show":
			_ = a.Show(ctx)

		case "l", "list":
			_ = a.List(ctx)

		case "delete", "del":
			_ = a.Delete(ctx)

		case "export":
			_ = a.Export(ctx)

		case "import":
			_ = a.Import(ctx)

		case "guest":
			_ = a.GuestStart(ctx)

		case "guestend":
			_ = a.GuestEnd(ctx)

		case "profiles":
			_ = a.Profiles(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", parts[0])
		}
	}
}
