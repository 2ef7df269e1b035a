package engine

// Event is one item in the engine's outbound event stream, drained by
// the reactor (§4.8, §9 "Cyclic-looking Session <-> Responder"). Only
// events that need to cross into the reactor's domain — writing to the
// socket, logging, or terminating the connection — are modeled this
// way; sequence-number and store bookkeeping is applied directly by the
// engine against its owned MessageStore handle, since a plain Go
// interface value carries no back-reference cycle risk the way a
// Responder would.
type Event interface{ isEvent() }

// MessageEvent asks the reactor to write Bytes to the socket and flush.
type MessageEvent struct{ Bytes []byte }

// DisconnectEvent asks the reactor to close the socket, recording
// Reason for logging.
type DisconnectEvent struct{ Reason string }

// ResetEvent is emitted alongside a store Reset for the reactor to log.
type ResetEvent struct{ Reason string }

func (MessageEvent) isEvent()    {}
func (DisconnectEvent) isEvent() {}
func (ResetEvent) isEvent()      {}
