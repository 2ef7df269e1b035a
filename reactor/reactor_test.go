package reactor

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gravwell/fixengine/dictionary"
	"github.com/gravwell/fixengine/engine"
	"github.com/gravwell/fixengine/session"
	"github.com/gravwell/fixengine/store"
)

const testDictXML = `<fix type="FIX" major="4" minor="2">
  <header>
    <field name="BeginString" required="Y"/>
    <field name="BodyLength" required="Y"/>
    <field name="MsgType" required="Y"/>
    <field name="SenderCompID" required="Y"/>
    <field name="TargetCompID" required="Y"/>
    <field name="MsgSeqNum" required="Y"/>
    <field name="SendingTime" required="Y"/>
  </header>
  <trailer>
    <field name="CheckSum" required="Y"/>
  </trailer>
  <messages>
    <message name="Logon" msgtype="A" msgcat="admin">
      <field name="EncryptMethod" required="Y"/>
      <field name="HeartBtInt" required="Y"/>
    </message>
    <message name="Logout" msgtype="5" msgcat="admin">
      <field name="Text" required="N"/>
    </message>
    <message name="Heartbeat" msgtype="0" msgcat="admin">
      <field name="TestReqID" required="N"/>
    </message>
    <message name="TestRequest" msgtype="1" msgcat="admin">
      <field name="TestReqID" required="Y"/>
    </message>
  </messages>
  <fields>
    <field number="8" name="BeginString" type="STRING"/>
    <field number="9" name="BodyLength" type="LENGTH"/>
    <field number="35" name="MsgType" type="STRING"/>
    <field number="49" name="SenderCompID" type="STRING"/>
    <field number="56" name="TargetCompID" type="STRING"/>
    <field number="34" name="MsgSeqNum" type="SEQNUM"/>
    <field number="52" name="SendingTime" type="UTCTIMESTAMP"/>
    <field number="10" name="CheckSum" type="STRING"/>
    <field number="98" name="EncryptMethod" type="INT"/>
    <field number="108" name="HeartBtInt" type="INT"/>
    <field number="58" name="Text" type="STRING"/>
    <field number="112" name="TestReqID" type="STRING"/>
  </fields>
</fix>`

func loadTestDict(t *testing.T) *dictionary.DataDictionary {
	t.Helper()
	dd, err := dictionary.Load(strings.NewReader(testDictXML))
	require.NoError(t, err)
	return dd
}

// TestLogonExchangeOverPipe drives two engines (acceptor and initiator)
// through paired Reactors wired to a net.Pipe, and checks that a Logon
// issued by the initiator's tick loop reaches the acceptor and is
// echoed back.
func TestLogonExchangeOverPipe(t *testing.T) {
	dd := loadTestDict(t)

	acceptorConn, initiatorConn := net.Pipe()

	acceptorID := session.ID{BeginString: "FIX.4.2", SenderCompID: "SERVER", TargetCompID: "CLIENT"}
	initiatorID := session.ID{BeginString: "FIX.4.2", SenderCompID: "CLIENT", TargetCompID: "SERVER"}

	settings := engine.DefaultSettings()
	settings.CheckLatency = false

	acceptorEngine := engine.New(acceptorID, false, store.NewMemoryStore(), dd, dd, nil, engine.NoopApplication{}, settings, nil)
	initiatorEngine := engine.New(initiatorID, true, store.NewMemoryStore(), dd, dd, nil, engine.NoopApplication{}, settings, nil)

	acceptorReactor := New(acceptorEngine, acceptorConn, false, nil)
	acceptorReactor.TickInterval = 10 * time.Millisecond
	acceptorReactor.ReadTimeout = 50 * time.Millisecond

	initiatorReactor := New(initiatorEngine, initiatorConn, false, nil)
	initiatorReactor.TickInterval = 10 * time.Millisecond
	initiatorReactor.ReadTimeout = 50 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	done := make(chan struct{}, 2)
	go func() { acceptorReactor.Run(ctx); done <- struct{}{} }()
	go func() { initiatorReactor.Run(ctx); done <- struct{}{} }()

	deadline := time.After(2 * time.Second)
	for {
		if acceptorEngine.State.ReceivedLogon && initiatorEngine.State.ReceivedLogon {
			break
		}
		select {
		case <-deadline:
			t.Fatal("logon exchange did not complete in time")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	<-done
	<-done

	require.True(t, acceptorEngine.State.SentLogon)
	require.True(t, initiatorEngine.State.SentLogon)
}
