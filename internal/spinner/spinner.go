// Package spinner provides a terminal spinner for phases whose total work
// is unknown up front, such as the index merge.
package spinner

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

// Spinner renders a spinning progress indicator on its own goroutine until
// stopped.
type Spinner struct {
	frames  []string
	delay   time.Duration
	writer  io.Writer
	message string

	mu     sync.Mutex
	active bool
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a spinner writing to w with a fixed message.
func New(w io.Writer, message string) *Spinner {
	return &Spinner{
		frames:  []string{"◜", "◠", "◝", "◞", "◡", "◟"},
		delay:   100 * time.Millisecond,
		writer:  w,
		message: message,
	}
}

// Start begins the animation. Starting a running spinner is a no-op.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return
	}
	s.active = true

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop halts the animation and clears the spinner line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()

	// clear the line only when writing to a real terminal
	if f, ok := s.writer.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(s.writer, "\r\033[2K")
	} else {
		fmt.Fprint(s.writer, "\r")
	}
}

func (s *Spinner) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.delay)
	defer ticker.Stop()

	frame := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Fprintf(s.writer, "\r%s %s", s.frames[frame%len(s.frames)], s.message)
			frame++
		}
	}
}
