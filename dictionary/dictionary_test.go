package dictionary

import (
	"strings"
	"testing"

	"github.com/gravwell/fixengine/fixmap"
	"github.com/stretchr/testify/require"
)

const sampleXML = `<fix type="FIX" major="4" minor="2">
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
    <message name="NewOrderSingle" msgtype="D" msgcat="app">
      <field name="ClOrdID" required="Y"/>
      <field name="Side" required="Y"/>
      <group name="NoAllocs" required="N">
        <field name="AllocAccount" required="Y"/>
        <field name="AllocShares" required="N"/>
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
    <field number="11" name="ClOrdID" type="STRING"/>
    <field number="54" name="Side" type="CHAR">
      <value enum="1" description="BUY"/>
      <value enum="2" description="SELL"/>
    </field>
    <field number="78" name="NoAllocs" type="NUMINGROUP"/>
    <field number="79" name="AllocAccount" type="STRING"/>
    <field number="80" name="AllocShares" type="QTY"/>
  </fields>
</fix>`

func TestLoadAndValidate(t *testing.T) {
	dd, err := Load(strings.NewReader(sampleXML))
	require.NoError(t, err)
	require.Equal(t, "FIX.4.2", dd.Version)
	require.True(t, dd.Header.IsField(8))
	require.True(t, dd.Messages["D"].IsField(11))

	grp, ok := dd.Messages["D"].Group(78)
	require.True(t, ok)
	require.Equal(t, Tag(79), grp.DelimiterTag)

	header := fixmap.NewFieldMap()
	header.Set(8, []byte("FIX.4.2"))
	header.Set(9, []byte("5"))
	header.Set(35, []byte("D"))
	header.Set(49, []byte("A"))
	header.Set(56, []byte("B"))
	header.Set(34, []byte("1"))
	header.Set(52, []byte("20240102-03:04:05"))

	body := fixmap.NewFieldMap()
	body.Set(11, []byte("ORD1"))
	body.Set(54, []byte("1"))

	trailer := fixmap.NewFieldMap()
	trailer.Set(10, []byte("000"))

	dd.Flags = Flags{CheckFieldsHaveValues: true}
	require.NoError(t, Validate(header, body, trailer, nil, dd, "FIX.4.2", "D", 0))

	body.Set(54, []byte("9")) // not in enum
	require.Error(t, Validate(header, body, trailer, nil, dd, "FIX.4.2", "D", 0))
}

func TestValidateRejectsMissingRequiredField(t *testing.T) {
	dd, err := Load(strings.NewReader(sampleXML))
	require.NoError(t, err)

	header := fixmap.NewFieldMap()
	body := fixmap.NewFieldMap()
	body.Set(54, []byte("1")) // ClOrdID missing
	trailer := fixmap.NewFieldMap()

	err = Validate(header, body, trailer, nil, dd, "FIX.4.2", "D", 0)
	require.Error(t, err)
}
