// Package reactor drives one FIX session's engine.Engine over a single
// net.Conn (component H, §4.8): a reader goroutine frames inbound bytes
// and feeds them to engine.NextMsg, a ticker goroutine drives
// engine.Next, and a drain goroutine writes engine.DrainEvents() to the
// wire and tears the connection down on a DisconnectEvent.
package reactor

import (
	"bufio"
	"context"
	"net"
	"time"

	"github.com/golang/snappy"
	"golang.org/x/sync/errgroup"

	"github.com/gravwell/fixengine/engine"
	"github.com/gravwell/fixengine/fixcodec"
	"github.com/gravwell/fixengine/fixlog"
)

const (
	defaultTickInterval = time.Second
	defaultReadTimeout  = 2 * time.Second
	readChunkSize       = 4096
)

// Reactor owns the socket plumbing for one engine.Engine instance.
type Reactor struct {
	Engine       *engine.Engine
	Conn         net.Conn
	TickInterval time.Duration
	ReadTimeout  time.Duration

	// Compressed wraps both directions in snappy framing, negotiated
	// out of band the way the teacher's EntryWriter.ConfigureStream
	// negotiates stream compression before any entries flow.
	Compressed bool

	Log *fixlog.Logger

	notify chan struct{}
	w      *bufio.Writer
}

// New builds a Reactor around e and conn.
func New(e *engine.Engine, conn net.Conn, compressed bool, log *fixlog.Logger) *Reactor {
	if log == nil {
		log = fixlog.NewDiscard()
	}
	var w *bufio.Writer
	if compressed {
		w = bufio.NewWriter(snappy.NewWriter(conn))
	} else {
		w = bufio.NewWriter(conn)
	}
	return &Reactor{
		Engine:       e,
		Conn:         conn,
		TickInterval: defaultTickInterval,
		ReadTimeout:  defaultReadTimeout,
		Compressed:   compressed,
		Log:          log,
		notify:       make(chan struct{}, 1),
		w:            w,
	}
}

func (r *Reactor) signal() {
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Run drives the session until ctx is cancelled, the connection is
// lost, or the engine emits a DisconnectEvent. It blocks until all
// three goroutines have exited, then closes the connection.
func (r *Reactor) Run(ctx context.Context) error {
	grp, gctx := errgroup.WithContext(ctx)
	gctx, cancel := context.WithCancel(gctx)
	defer cancel()

	grp.Go(func() error { return r.readLoop(gctx, cancel) })
	grp.Go(func() error { return r.tickLoop(gctx) })
	grp.Go(func() error { return r.writeLoop(gctx, cancel) })

	err := grp.Wait()
	r.Conn.Close()
	return err
}

func (r *Reactor) readLoop(ctx context.Context, cancel context.CancelFunc) error {
	defer cancel()

	var src interface{ Read([]byte) (int, error) }
	src = r.Conn
	if r.Compressed {
		src = snappy.NewReader(r.Conn)
	}

	var buf []byte
	chunk := make([]byte, readChunkSize)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		r.Conn.SetReadDeadline(time.Now().Add(r.ReadTimeout))
		n, err := src.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			for {
				frameLen, ok := fixcodec.FindFrame(buf)
				if !ok {
					break
				}
				frame := append([]byte(nil), buf[:frameLen]...)
				buf = buf[frameLen:]

				if merr := r.Engine.NextMsg(frame); merr != nil {
					r.signal()
					return merr
				}
				r.signal()
			}
		}
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return err
		}
	}
}

func (r *Reactor) tickLoop(ctx context.Context) error {
	interval := r.TickInterval
	if interval <= 0 {
		interval = defaultTickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if err := r.Engine.Next(now); err != nil {
				return err
			}
			r.signal()
		}
	}
}

func (r *Reactor) writeLoop(ctx context.Context, cancel context.CancelFunc) error {
	for {
		select {
		case <-ctx.Done():
			return r.drainOnce(cancel)
		case <-r.notify:
			if err := r.drainOnce(cancel); err != nil {
				return err
			}
		}
	}
}

func (r *Reactor) drainOnce(cancel context.CancelFunc) error {
	for _, ev := range r.Engine.DrainEvents() {
		switch e := ev.(type) {
		case engine.MessageEvent:
			if err := r.writeFrame(e.Bytes); err != nil {
				return err
			}
		case engine.DisconnectEvent:
			r.Log.Info("session disconnected", fixlog.Field("reason", e.Reason))
			cancel()
		case engine.ResetEvent:
			r.Log.Info("session reset", fixlog.Field("reason", e.Reason))
		}
	}
	return nil
}

func (r *Reactor) writeFrame(b []byte) error {
	r.Conn.SetWriteDeadline(time.Now().Add(r.ReadTimeout))
	if _, err := r.w.Write(b); err != nil {
		return err
	}
	return r.w.Flush()
}
