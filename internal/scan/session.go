// Package scan drives a capture device: it polls frames on a fixed interval
// until one decodes, then hands the decoded token to the check-in API.
package scan

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"
)

// ErrNoFrame is returned by a FrameSource when nothing is ready yet.
var ErrNoFrame = errors.New("no frame available")

// FrameSource yields raw captured frames. Next returns ErrNoFrame when the
// device has nothing new and io.EOF once it is closed.
type FrameSource interface {
	Next(ctx context.Context) (string, error)
}

// Session polls Source every Interval until Decode accepts a frame.
type Session struct {
	Source   FrameSource
	Interval time.Duration
	Decode   func(string) error
	Logger   *slog.Logger
}

// Run returns the first frame that decodes. The ticker is stopped before Run
// returns, whether it succeeded, the source ran dry or ctx was cancelled.
func (s *Session) Run(ctx context.Context) (string, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := s.Interval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		frame, err := s.Source.Next(ctx)
		switch {
		case err == nil:
			derr := s.Decode(frame)
			if derr == nil {
				return frame, nil
			}
			logger.DebugContext(ctx, "frame rejected", slog.String("error", derr.Error()))
		case errors.Is(err, ErrNoFrame):
		default:
			return "", err
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

// LineSource adapts a line-oriented reader such as a keyboard-wedge barcode
// scanner on stdin. Lines are read in the background; Next never blocks.
type LineSource struct {
	lines chan string
	done  chan struct{}
	err   error
}

// NewLineSource starts reading r. The reader goroutine exits when r is
// exhausted or when ctx is cancelled and it next has a line to hand over.
// A Read already blocked inside r is not interrupted; close r to release it.
func NewLineSource(ctx context.Context, r io.Reader) *LineSource {
	ls := &LineSource{lines: make(chan string, 16), done: make(chan struct{})}
	go func() {
		defer close(ls.done)
		defer close(ls.lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			select {
			case ls.lines <- line:
			case <-ctx.Done():
				ls.err = ctx.Err()
				return
			}
		}
		ls.err = sc.Err()
	}()
	return ls
}

// Done is closed once the reader goroutine has exited.
func (ls *LineSource) Done() <-chan struct{} { return ls.done }

// Next returns the next buffered line, ErrNoFrame when none is buffered, or
// io.EOF (or the read error) once the reader is exhausted.
func (ls *LineSource) Next(ctx context.Context) (string, error) {
	select {
	case line, ok := <-ls.lines:
		if ok {
			return line, nil
		}
		<-ls.done
		if ls.err != nil {
			return "", ls.err
		}
		return "", io.EOF
	case <-ctx.Done():
		return "", ctx.Err()
	default:
		return "", ErrNoFrame
	}
}
