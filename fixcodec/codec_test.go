package fixcodec

import (
	"strings"
	"testing"

	"github.com/gravwell/fixengine/dictionary"
	"github.com/gravwell/fixengine/fixmap"
	"github.com/stretchr/testify/require"
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
    <message name="NewOrderSingle" msgtype="D" msgcat="app">
      <field name="ClOrdID" required="Y"/>
      <group name="NoAllocs" required="N">
        <field name="AllocAccount" required="Y"/>
      </group>
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
    <field number="11" name="ClOrdID" type="STRING"/>
    <field number="78" name="NoAllocs" type="NUMINGROUP"/>
    <field number="79" name="AllocAccount" type="STRING"/>
  </fields>
</fix>`

func loadTestDict(t *testing.T) *dictionary.DataDictionary {
	t.Helper()
	dd, err := dictionary.Load(strings.NewReader(testDictXML))
	require.NoError(t, err)
	return dd
}

func TestSerializeThenParseRoundTrip(t *testing.T) {
	dd := loadTestDict(t)

	msg := NewMessage()
	msg.Header.Set(8, []byte("FIX.4.2"))
	msg.Header.Set(35, []byte("A"))
	msg.Header.Set(49, []byte("CLIENT"))
	msg.Header.Set(56, []byte("SERVER"))
	msg.Header.Set(34, []byte("1"))
	msg.Header.Set(52, []byte("20240102-03:04:05"))
	msg.Body.Set(98, []byte("0"))
	msg.Body.Set(108, []byte("30"))

	raw := Serialize(msg)
	require.True(t, strings.HasPrefix(string(raw), "8=FIX.4.2\x019="))

	got, err := Parse(raw, nil, dd, true)
	require.NoError(t, err)
	require.True(t, got.StructurallyValid)

	v, err := got.Body.Get(108)
	require.NoError(t, err)
	require.Equal(t, "30", string(v))
}

func TestParseDetectsChecksumMismatch(t *testing.T) {
	dd := loadTestDict(t)
	raw := []byte("8=FIX.4.2\x019=10\x0135=A\x0198=0\x0110=000\x01")
	_, err := Parse(raw, nil, dd, true)
	require.Error(t, err)
}

func TestParseGroup(t *testing.T) {
	dd := loadTestDict(t)
	msg := NewMessage()
	msg.Header.Set(8, []byte("FIX.4.2"))
	msg.Header.Set(35, []byte("D"))
	msg.Header.Set(49, []byte("CLIENT"))
	msg.Header.Set(56, []byte("SERVER"))
	msg.Header.Set(34, []byte("1"))
	msg.Header.Set(52, []byte("20240102-03:04:05"))
	msg.Body.Set(11, []byte("ORD1"))

	g1 := fixmap.NewGroup(78, 79)
	g1.Map.Set(79, []byte("ACC1"))
	g2 := fixmap.NewGroup(78, 79)
	g2.Map.Set(79, []byte("ACC2"))
	msg.Body.AddGroup(g1, true)
	msg.Body.AddGroup(g2, true)

	raw := Serialize(msg)
	got, err := Parse(raw, nil, dd, true)
	require.NoError(t, err)
	require.Equal(t, 2, got.Body.GroupCount(78))
	occ, err := got.Body.GetGroup(2, 78)
	require.NoError(t, err)
	v, _ := occ.Map.Get(79)
	require.Equal(t, "ACC2", string(v))
}

func TestFindFrame(t *testing.T) {
	raw := "8=FIX.4.2\x019=5\x0135=0\x0110=123\x01TRAILING"
	n, ok := FindFrame([]byte(raw))
	require.True(t, ok)
	require.Equal(t, len(raw)-len("TRAILING"), n)
}
