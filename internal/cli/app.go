// Package cli is the interactive front-end of the vault: a small REPL over
// the application core with terminal prompts for names, entry values and
// passwords.
package cli

import (
	"bufio"
	"context"
	"os"

	"profilevault/internal/app"
	"profilevault/internal/autolock"
)

// App binds the REPL to the application core.
type App struct {
	core   *app.App
	reader *bufio.Reader
	out    *os.File
}

// NewApp wraps the application core for interactive use.
func NewApp(core *app.App) *App {
	return &App{core: core, reader: bufio.NewReader(os.Stdin), out: os.Stdout}
}

// Run starts the REPL and blocks until the user exits or input ends.
func (a *App) Run(ctx context.Context) {
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.status, scanner)
}

func (a *App) isUnlocked() bool {
	return a.core.Profiles.ActiveProfile() != nil || a.core.Guest.Active() != nil
}

func (a *App) status() string {
	if g := a.core.Guest.Active(); g != nil {
		return "guest:" + g.Name
	}
	if p := a.core.Profiles.ActiveProfile(); p != nil {
		return p.Name
	}
	return "locked"
}

// touch counts a REPL command as user activity for the auto-lock timers.
func (a *App) touch(ctx context.Context) {
	a.core.AutoLock.RecordActivity(ctx, autolock.ActivityKey)
}
