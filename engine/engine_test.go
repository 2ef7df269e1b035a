package engine

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gravwell/fixengine/dictionary"
	"github.com/gravwell/fixengine/fixcodec"
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
      <field name="ResetSeqNumFlag" required="N"/>
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
    <message name="ResendRequest" msgtype="2" msgcat="admin">
      <field name="BeginSeqNo" required="Y"/>
      <field name="EndSeqNo" required="Y"/>
    </message>
    <message name="SequenceReset" msgtype="4" msgcat="admin">
      <field name="GapFillFlag" required="N"/>
      <field name="NewSeqNo" required="Y"/>
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
    <field number="141" name="ResetSeqNumFlag" type="BOOLEAN"/>
    <field number="58" name="Text" type="STRING"/>
    <field number="112" name="TestReqID" type="STRING"/>
    <field number="7" name="BeginSeqNo" type="SEQNUM"/>
    <field number="16" name="EndSeqNo" type="SEQNUM"/>
    <field number="123" name="GapFillFlag" type="BOOLEAN"/>
    <field number="36" name="NewSeqNo" type="SEQNUM"/>
    <field number="43" name="PossDupFlag" type="BOOLEAN"/>
    <field number="122" name="OrigSendingTime" type="UTCTIMESTAMP"/>
  </fields>
</fix>`

func loadTestDict(t *testing.T) *dictionary.DataDictionary {
	t.Helper()
	dd, err := dictionary.Load(strings.NewReader(testDictXML))
	require.NoError(t, err)
	return dd
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	dd := loadTestDict(t)
	id := session.ID{BeginString: "FIX.4.2", SenderCompID: "SERVER", TargetCompID: "CLIENT"}
	settings := DefaultSettings()
	settings.CheckLatency = false
	e := New(id, false, store.NewMemoryStore(), dd, dd, nil, NoopApplication{}, settings, nil)
	e.State.Heartbeat = 0
	return e
}

func inboundLogon(t *testing.T, seq int) []byte {
	t.Helper()
	msg := fixcodec.NewMessage()
	msg.Header.Set(8, []byte("FIX.4.2"))
	msg.Header.Set(35, []byte("A"))
	msg.Header.Set(49, []byte("CLIENT"))
	msg.Header.Set(56, []byte("SERVER"))
	msg.Header.Set(34, []byte(strconv.Itoa(seq)))
	msg.Header.Set(52, []byte("20260731-00:00:00"))
	msg.Body.Set(98, []byte("0"))
	msg.Body.Set(108, []byte("30"))
	return fixcodec.Serialize(msg)
}

func TestValidLogonCorrectSeq(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.NextMsg(inboundLogon(t, 1)))

	require.True(t, e.State.ReceivedLogon)
	require.True(t, e.State.SentLogon)
	require.Equal(t, uint64(2), e.State.NextTargetSeq())
	require.Equal(t, uint64(2), e.State.NextSenderSeq())

	events := e.DrainEvents()
	require.Len(t, events, 1)
	msgEv, ok := events[0].(MessageEvent)
	require.True(t, ok)
	require.True(t, strings.Contains(string(msgEv.Bytes), "\x0134=1\x0149=SERVER\x01"))
	require.True(t, strings.Contains(string(msgEv.Bytes), "\x0156=CLIENT\x01"))
	require.True(t, strings.Contains(string(msgEv.Bytes), "35=A"))
}

func TestTooHighSeqTriggersResendRequest(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.NextMsg(inboundLogon(t, 5)))

	events := e.DrainEvents()
	require.Len(t, events, 1)
	msgEv, ok := events[0].(MessageEvent)
	require.True(t, ok)
	raw := string(msgEv.Bytes)
	require.True(t, strings.Contains(raw, "35=2"))
	require.True(t, strings.Contains(raw, "7=1"))
	require.True(t, strings.Contains(raw, "16=4"))
	require.False(t, e.State.ReceivedLogon)
}

func TestTestRequestEcho(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.NextMsg(inboundLogon(t, 1)))
	e.DrainEvents()

	msg := fixcodec.NewMessage()
	msg.Header.Set(8, []byte("FIX.4.2"))
	msg.Header.Set(35, []byte("1"))
	msg.Header.Set(49, []byte("CLIENT"))
	msg.Header.Set(56, []byte("SERVER"))
	msg.Header.Set(34, []byte("2"))
	msg.Header.Set(52, []byte("20260731-00:00:00"))
	msg.Body.Set(112, []byte("foo"))
	raw := fixcodec.Serialize(msg)

	require.NoError(t, e.NextMsg(raw))
	events := e.DrainEvents()
	require.Len(t, events, 1)
	msgEv := events[0].(MessageEvent)
	out := string(msgEv.Bytes)
	require.True(t, strings.Contains(out, "35=0"))
	require.True(t, strings.Contains(out, "112=foo"))
}

func TestSequenceResetGapFill(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.NextMsg(inboundLogon(t, 1)))
	e.DrainEvents()
	require.NoError(t, e.State.SetNextTargetSeq(7))

	msg := fixcodec.NewMessage()
	msg.Header.Set(8, []byte("FIX.4.2"))
	msg.Header.Set(35, []byte("4"))
	msg.Header.Set(49, []byte("CLIENT"))
	msg.Header.Set(56, []byte("SERVER"))
	msg.Header.Set(34, []byte("7"))
	msg.Header.Set(52, []byte("20260731-00:00:00"))
	msg.Body.Set(123, []byte("Y"))
	msg.Body.Set(36, []byte("10"))
	raw := fixcodec.Serialize(msg)

	require.NoError(t, e.NextMsg(raw))
	require.Equal(t, uint64(10), e.State.NextTargetSeq())
	require.Empty(t, e.DrainEvents())
}
