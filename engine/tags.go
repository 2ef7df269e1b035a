package engine

import "github.com/gravwell/fixengine/fixmap"

// Well-known tags the engine itself inspects or sets, per §4.7/§4.4.
const (
	tagBeginString             fixmap.Tag = 8
	tagBodyLength              fixmap.Tag = 9
	tagMsgType                 fixmap.Tag = 35
	tagSenderCompID            fixmap.Tag = 49
	tagTargetCompID            fixmap.Tag = 56
	tagMsgSeqNum               fixmap.Tag = 34
	tagSendingTime             fixmap.Tag = 52
	tagPossDupFlag             fixmap.Tag = 43
	tagOrigSendingTime         fixmap.Tag = 122
	tagEncryptMethod           fixmap.Tag = 98
	tagHeartBtInt              fixmap.Tag = 108
	tagResetSeqNumFlag         fixmap.Tag = 141
	tagTestReqID               fixmap.Tag = 112
	tagGapFillFlag             fixmap.Tag = 123
	tagNewSeqNo                fixmap.Tag = 36
	tagBeginSeqNo              fixmap.Tag = 7
	tagEndSeqNo                fixmap.Tag = 16
	tagText                    fixmap.Tag = 58
	tagDefaultApplVerID        fixmap.Tag = 1137
	tagLastMsgSeqNumProcessed  fixmap.Tag = 369
	tagSessionRejectReason     fixmap.Tag = 373
	tagRefTagID                fixmap.Tag = 371
	tagRefMsgType              fixmap.Tag = 372
	tagRefSeqNum               fixmap.Tag = 45
	tagSenderSubID             fixmap.Tag = 50
	tagSenderLocationID        fixmap.Tag = 142
	tagTargetSubID             fixmap.Tag = 57
	tagTargetLocationID        fixmap.Tag = 143
)

// Admin message type codes (§4.4 is_admin_msg_type / glossary).
const (
	msgTypeHeartbeat     = "0"
	msgTypeLogon         = "A"
	msgTypeTestRequest   = "1"
	msgTypeResendRequest = "2"
	msgTypeReject        = "3"
	msgTypeSequenceReset = "4"
	msgTypeLogout        = "5"
)
