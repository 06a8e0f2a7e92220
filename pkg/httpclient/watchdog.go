package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// watchdog cancels a request when it makes no progress for timeout. The
// total duration is not capped while data keeps arriving.
type watchdog struct {
	ctx     context.Context
	cancel  context.CancelCauseFunc
	timer   *time.Timer
	timeout time.Duration
}

func newWatchdog(parent context.Context, timeout time.Duration) (context.Context, *watchdog) {
	ctx, cancel := context.WithCancelCause(parent)
	wd := &watchdog{ctx: ctx, cancel: cancel, timeout: timeout}
	if timeout > 0 {
		wd.timer = time.AfterFunc(timeout, func() { cancel(ErrTimeout) })
	}
	return ctx, wd
}

func (w *watchdog) kick() {
	if w.timer != nil {
		w.timer.Reset(w.timeout)
	}
}

func (w *watchdog) stop() {
	if w.timer != nil {
		w.timer.Stop()
	}
	w.cancel(nil)
}

// wrap replaces a cancellation error caused by the watchdog with ErrTimeout.
func (w *watchdog) wrap(err error) error {
	if errors.Is(context.Cause(w.ctx), ErrTimeout) {
		return fmt.Errorf("%w after %s: %v", ErrTimeout, w.timeout, err)
	}
	return err
}

// watchedBody re-arms the watchdog on every read and releases it on Close.
type watchedBody struct {
	rc io.ReadCloser
	wd *watchdog
}

func (b *watchedBody) Read(p []byte) (int, error) {
	n, err := b.rc.Read(p)
	if n > 0 {
		b.wd.kick()
	}
	if err != nil && !errors.Is(err, io.EOF) {
		err = b.wd.wrap(err)
	}
	return n, err
}

func (b *watchedBody) Close() error {
	err := b.rc.Close()
	b.wd.stop()
	return err
}
