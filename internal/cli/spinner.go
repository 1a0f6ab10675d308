package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// spinnerOut is where spinner frames are drawn.
var spinnerOut io.Writer = os.Stderr

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerInterval = 80 * time.Millisecond

// Spinner animates a one-line progress message on stderr while a blocking
// call runs. It stops on Stop or when its context ends.
type Spinner struct {
	message string
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}

	start sync.Once
	stop  sync.Once
	mu    sync.Mutex // serializes writes to spinnerOut
}

func newSpinner(ctx context.Context, message string) *Spinner {
	ctx, cancel := context.WithCancel(ctx)
	return &Spinner{message: message, ctx: ctx, cancel: cancel, stopped: make(chan struct{})}
}

// Start begins drawing frames.
func (s *Spinner) Start() {
	s.start.Do(func() { go s.run() })
}

func (s *Spinner) run() {
	defer close(s.stopped)
	tick := time.NewTicker(spinnerInterval)
	defer tick.Stop()

	for frame := 0; ; frame = (frame + 1) % len(spinnerFrames) {
		select {
		case <-s.ctx.Done():
			s.write("\r" + strings.Repeat(" ", len(s.message)+4) + "\r")
			return
		case <-tick.C:
			s.write("\r" + styleIconSpinner.Render(spinnerFrames[frame]) + " " + StyleDim.Render(s.message))
		}
	}
}

func (s *Spinner) write(text string) {
	s.mu.Lock()
	fmt.Fprint(spinnerOut, text)
	s.mu.Unlock()
}

// Stop clears the line. Calling it again, or before Start, is harmless.
func (s *Spinner) Stop() {
	s.stop.Do(func() {
		s.cancel()
		// A spinner that never started has nothing to wait for.
		s.start.Do(func() { close(s.stopped) })
		<-s.stopped
	})
}

// StopWithSuccess stops and prints a success line.
func (s *Spinner) StopWithSuccess(message string) {
	s.Stop()
	printSuccess("%s", message)
}

// StopWithError stops and prints an error line.
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	printError("%s", message)
}
