package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubExec struct {
	unlocked bool
	calls    []string
}

func (s *stubExec) record(name string) error {
	s.calls = append(s.calls, name)
	return nil
}

func (s *stubExec) isUnlocked() bool                    { return s.unlocked }
func (s *stubExec) Register(ctx context.Context) error  { return s.record("register") }
func (s *stubExec) Login(ctx context.Context) error     { return s.record("login") }
func (s *stubExec) Lock(ctx context.Context) error      { return s.record("lock") }
func (s *stubExec) StoreEntry(ctx context.Context) error { return s.record("store") }
func (s *stubExec) Show(ctx context.Context) error      { return s.record("show") }
func (s *stubExec) List(ctx context.Context) error      { return s.record("list") }
func (s *stubExec) Delete(ctx context.Context) error    { return s.record("delete") }
func (s *stubExec) Export(ctx context.Context) error    { return s.record("export") }
func (s *stubExec) Import(ctx context.Context) error    { return s.record("import") }
func (s *stubExec) GuestStart(ctx context.Context) error { return s.record("guest") }
func (s *stubExec) GuestEnd(ctx context.Context) error  { return s.record("guestend") }
func (s *stubExec) Profiles(ctx context.Context) error  { return s.record("profiles") }

func captureOutput(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		lines = append(lines, strings.TrimSpace(fmt.Sprintln(a...)))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func runWithInput(t *testing.T, s *stubExec, input string) {
	t.Helper()
	scanner := bufio.NewScanner(strings.NewReader(input))
	runREPL(context.Background(), s, func() string { return "test" }, scanner)
}

func TestREPLDispatch(t *testing.T) {
	captureOutput(t)
	s := &stubExec{}

	runWithInput(t, s, "register\nlogin\nstore\nget\nlist\ndelete\nexport\nimport\nguest\nguestend\nprofiles\nlock\nquit\n")
	assert.Equal(t, []string{
		"register", "login", "store", "show", "list", "delete",
		"export", "import", "guest", "guestend", "profiles", "lock",
	}, s.calls)
}

func TestREPLAliases(t *testing.T) {
	captureOutput(t)
	s := &stubExec{}

	runWithInput(t, s, "unlock\nl\nadd\nshow\ndel\nlogout\nexit\n")
	assert.Equal(t, []string{"login", "list", "store", "show", "delete", "lock"}, s.calls)
}

func TestREPLUnknownCommand(t *testing.T) {
	lines := captureOutput(t)
	s := &stubExec{}

	runWithInput(t, s, "frobnicate\nquit\n")
	assert.Empty(t, s.calls)
	assert.Contains(t, *lines, "Unknown command: frobnicate")
}

func TestREPLHelp(t *testing.T) {
	lines := captureOutput(t)

	runWithInput(t, &stubExec{unlocked: false}, "help\nquit\n")
	joined := strings.Join(*lines, "\n")
	assert.Contains(t, joined, "register, login")

	*lines = nil
	runWithInput(t, &stubExec{unlocked: true}, "help\nquit\n")
	joined = strings.Join(*lines, "\n")
	assert.Contains(t, joined, "store, get")
}

func TestREPLExitsOnEOF(t *testing.T) {
	captureOutput(t)
	s := &stubExec{}

	runWithInput(t, s, "list\n") // no quit; scanner hits EOF
	assert.Equal(t, []string{"list"}, s.calls)
}
