package engine

import (
	"errors"

	"github.com/gravwell/fixengine/fixcodec"
	"github.com/gravwell/fixengine/session"
)

// ErrDoNotSend is returned by Application.ToAdmin/ToApp to silently
// drop an outbound message (§6).
var ErrDoNotSend = errors.New("engine: do not send")

// Application is the engine's consumer callback interface (§6).
// Any callback may return an error; ErrDoNotSend is special-cased to
// silently drop the outbound message. Any other error stops processing
// of that message and is returned from the Engine method (NextMsg or
// Next) that ran the callback; it is not logged, and no Reject or
// BusinessMessageReject is sent for it.
type Application interface {
	OnCreate(id session.ID)
	OnLogon(id session.ID)
	OnLogout(id session.ID)
	ToAdmin(msg *fixcodec.Message, id session.ID) error
	FromAdmin(msg *fixcodec.Message, id session.ID) error
	ToApp(msg *fixcodec.Message, id session.ID) error
	FromApp(msg *fixcodec.Message, id session.ID) error
}

// NoopApplication implements Application with no-ops, useful as a base
// to embed when a caller only cares about a subset of callbacks.
type NoopApplication struct{}

func (NoopApplication) OnCreate(session.ID)                      {}
func (NoopApplication) OnLogon(session.ID)                        {}
func (NoopApplication) OnLogout(session.ID)                       {}
func (NoopApplication) ToAdmin(*fixcodec.Message, session.ID) error { return nil }
func (NoopApplication) FromAdmin(*fixcodec.Message, session.ID) error { return nil }
func (NoopApplication) ToApp(*fixcodec.Message, session.ID) error   { return nil }
func (NoopApplication) FromApp(*fixcodec.Message, session.ID) error { return nil }
