package channel

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// ErrRecvTimeout is returned by Recv when no line arrives within the
// transport's read timeout.
var ErrRecvTimeout = errors.New("receive timeout")

// LineTransport frames a subprocess conversation as one line in, one line out.
//
// A single reader goroutine pulls raw lines (newline included) from the
// process and hands them over one at a time; read errors, including io.EOF,
// arrive on a separate error channel after the last line. Recv waits on the
// line, the error, the caller's context, and the read timeout, so a silent
// peer can never block the caller forever.
//
// Send writes exactly one line and flushes before returning.
//
// A LineTransport is not safe for concurrent use; one conversation owns it.
type LineTransport struct {
	w       *bufio.Writer
	timeout time.Duration

	lines chan string
	errc  chan error
	done  chan struct{}
	wg    sync.WaitGroup

	closeOnce sync.Once
	err       error // sticky terminal read error
}

// NewLineTransport starts reading r and writes replies to w.
// A timeout of zero disables the read timeout.
func NewLineTransport(r io.Reader, w io.Writer, timeout time.Duration) *LineTransport {
	t := &LineTransport{
		w:       bufio.NewWriter(w),
		timeout: timeout,
		lines:   make(chan string),
		errc:    make(chan error, 1),
		done:    make(chan struct{}),
	}
	t.wg.Add(1)
	go t.readLoop(bufio.NewReaderSize(r, 64*1024))
	return t
}

func (t *LineTransport) readLoop(r *bufio.Reader) {
	defer t.wg.Done()
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			select {
			case t.lines <- line:
			case <-t.done:
				return
			}
		}
		if err != nil {
			t.errc <- err
			return
		}
	}
}

// Recv returns the next raw line, newline included when the peer sent one.
// At end of stream it returns io.EOF, and keeps returning it.
func (t *LineTransport) Recv(ctx context.Context) (string, error) {
	if t.err != nil {
		return "", t.err
	}

	var timeout <-chan time.Time
	if t.timeout > 0 {
		timer := time.NewTimer(t.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case line := <-t.lines:
		return line, nil
	case err := <-t.errc:
		t.err = err
		return "", err
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timeout:
		return "", ErrRecvTimeout
	}
}

// Send writes line followed by a newline and flushes it.
func (t *LineTransport) Send(ctx context.Context, line string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.w.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	if err := t.w.Flush(); err != nil {
		return fmt.Errorf("send: flush: %w", err)
	}
	return nil
}

// Timeout returns the configured read timeout.
func (t *LineTransport) Timeout() time.Duration {
	return t.timeout
}

// Close stops the reader goroutine and waits for it to exit.
// The underlying reader must already be closed or at EOF, otherwise Close
// blocks until the pending read returns.
func (t *LineTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.done)
	})
	t.wg.Wait()
	return nil
}
