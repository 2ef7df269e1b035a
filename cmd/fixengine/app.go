package main

import (
	"github.com/gravwell/fixengine/fixcodec"
	"github.com/gravwell/fixengine/fixlog"
	"github.com/gravwell/fixengine/session"
)

// loggingApplication is a minimal engine.Application that logs every
// callback and passes every message through unmodified. It stands in
// for the business-logic layer a real deployment would supply.
type loggingApplication struct {
	log *fixlog.Logger
}

func (a *loggingApplication) OnCreate(id session.ID) {
	a.log.Info("session created", fixlog.Session(id.BeginString, id.SenderCompID, id.TargetCompID))
}

func (a *loggingApplication) OnLogon(id session.ID) {
	a.log.Info("logon received", fixlog.Session(id.BeginString, id.SenderCompID, id.TargetCompID))
}

func (a *loggingApplication) OnLogout(id session.ID) {
	a.log.Info("logout received", fixlog.Session(id.BeginString, id.SenderCompID, id.TargetCompID))
}

func (a *loggingApplication) ToAdmin(msg *fixcodec.Message, id session.ID) error {
	return nil
}

func (a *loggingApplication) FromAdmin(msg *fixcodec.Message, id session.ID) error {
	return nil
}

func (a *loggingApplication) ToApp(msg *fixcodec.Message, id session.ID) error {
	return nil
}

func (a *loggingApplication) FromApp(msg *fixcodec.Message, id session.ID) error {
	a.log.Debug("application message received", fixlog.Session(id.BeginString, id.SenderCompID, id.TargetCompID))
	return nil
}
