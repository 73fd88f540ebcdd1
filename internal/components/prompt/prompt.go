// Package prompt abstracts interactive questions so that the login flow and the
// station reconciliation can run against a terminal, a script or plain defaults.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

var ErrNonInteractive = errors.New("prompt: cannot ask for secrets in non-interactive mode")

// Provider answers questions. An empty answer means "use the default".
type Provider interface {
	Ask(ctx context.Context, question string) (string, error)
	Secret(ctx context.Context, question string) (string, error)
}

// Terminal asks questions on stdout and reads answers from stdin.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
}

var (
	readersMutex sync.Mutex
	readers      = map[*os.File]*bufio.Reader{}
)

// sharedReader hands out one buffered reader per file, a second reader on the same
// file would miss whatever the first one already buffered.
func sharedReader(f *os.File) *bufio.Reader {
	readersMutex.Lock()
	defer readersMutex.Unlock()

	r, ok := readers[f]
	if !ok {
		r = bufio.NewReader(f)
		readers[f] = r
	}
	return r
}

// NewTerminal reads from stdin, every Terminal shares the same buffered input.
func NewTerminal() *Terminal {
	return newTerminalOn(os.Stdin, os.Stdout)
}

func newTerminalOn(in *os.File, out io.Writer) *Terminal {
	return &Terminal{
		in:  sharedReader(in),
		out: out,
		fd:  int(in.Fd()),
	}
}

func (t *Terminal) Ask(ctx context.Context, question string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprint(t.out, question)
	line, err := t.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("prompt: read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Secret reads without echo when stdin is a terminal.
func (t *Terminal) Secret(ctx context.Context, question string) (string, error) {
	if !term.IsTerminal(t.fd) {
		return t.Ask(ctx, question)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprint(t.out, question)
	secret, err := term.ReadPassword(t.fd)
	fmt.Fprintln(t.out)
	if err != nil {
		return "", fmt.Errorf("prompt: read secret: %w", err)
	}
	return string(secret), nil
}

// Defaults answers every question with the default and refuses secrets.
type Defaults struct{}

func (Defaults) Ask(context.Context, string) (string, error) {
	return "", nil
}

func (Defaults) Secret(context.Context, string) (string, error) {
	return "", ErrNonInteractive
}

// Scripted answers questions from a fixed list, in order. Once the list runs out
// every further question is answered with the default. Secrets share the same list.
type Scripted struct {
	mutex     sync.Mutex
	answers   []string
	Questions []string
}

func NewScripted(answers ...string) *Scripted {
	return &Scripted{answers: answers}
}

func (s *Scripted) next(question string) string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.Questions = append(s.Questions, question)
	if len(s.answers) == 0 {
		return ""
	}
	answer := s.answers[0]
	s.answers = s.answers[1:]
	return answer
}

func (s *Scripted) Ask(_ context.Context, question string) (string, error) {
	return s.next(question), nil
}

func (s *Scripted) Secret(_ context.Context, question string) (string, error) {
	return s.next(question), nil
}
