package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	corechat "github.com/kilianp07/carfuel/core/chat"
)

// ConsoleRoom is the room name given to console messages.
const ConsoleRoom = "console"

// ConsoleAdapter feeds lines from in to a Receiver as direct messages and
// writes replies to out, one per line.
type ConsoleAdapter struct {
	recv corechat.Receiver
	in   io.Reader
	out  io.Writer
	user string
	mu   sync.Mutex
}

// NewConsoleAdapter creates a console adapter.
func NewConsoleAdapter(recv corechat.Receiver, in io.Reader, out io.Writer, user string) *ConsoleAdapter {
	if user == "" {
		user = "shell"
	}
	return &ConsoleAdapter{recv: recv, in: in, out: out, user: user}
}

// Send writes text as one output line.
func (a *ConsoleAdapter) Send(text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, err := fmt.Fprintln(a.out, text)
	return err
}

// Run reads input until EOF or until ctx is canceled.
func (a *ConsoleAdapter) Run(ctx context.Context) error {
	lines := make(chan string)
	errs := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(a.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		errs <- sc.Err()
	}()

	var n int
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errs:
					return err
				default:
					return nil
				}
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			n++
			a.recv.Receive(corechat.Incoming{
				ID:     strconv.Itoa(n),
				Room:   ConsoleRoom,
				User:   a.user,
				Text:   line,
				Direct: true,
			}, a)
		}
	}
}
