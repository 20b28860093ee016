// Package cpdlcmsg implements the CPDLC message type and its textual wire
// encoding. The real-world cpdlc_msg catalog carries hundreds of uplink and
// downlink message types; this package only names the ones the relay and the
// tracker need to reason about (LOGON, the response-discipline tokens, and
// the link-management terminators), and treats everything else as an opaque
// request or response distinguished solely by its response discipline.
package cpdlcmsg

import "strconv"

// RespDiscipline is the expected-response discipline carried by a segment,
// mirroring CPDLC's RESP field.
type RespDiscipline uint8

const (
	RespN  RespDiscipline = iota // no response expected
	RespY                       // a response is required
	RespWU                      // WILCO/UNABLE expected
	RespAN                      // AFFIRM/NEGATIVE expected
	RespNE                      // no response expected, ever (notice)
)

func (r RespDiscipline) String() string {
	switch r {
	case RespN:
		return "N"
	case RespY:
		return "Y"
	case RespWU:
		return "WU"
	case RespAN:
		return "AN"
	case RespNE:
		return "NE"
	default:
		return "N"
	}
}

// ParseRespDiscipline parses the wire token produced by RespDiscipline.String.
func ParseRespDiscipline(s string) RespDiscipline {
	switch s {
	case "Y":
		return RespY
	case "WU":
		return RespWU
	case "AN":
		return RespAN
	case "NE":
		return RespNE
	default:
		return RespN
	}
}

// MsgType names the handful of CPDLC message types whose identity changes
// thread-status recomputation (§4.10). Every other message type is
// represented by MsgGeneric and classified purely by its response discipline.
type MsgType uint16

const (
	MsgGeneric MsgType = iota

	// Downlink tokens (aircraft -> ATC).
	MsgDM0Wilco
	MsgDM1Unable
	MsgDM2Standby
	MsgDM3Roger
	MsgDM4Affirm
	MsgDM5Negative
	MsgDM62Error

	// Uplink tokens (ATC -> aircraft).
	MsgUM0Unable
	MsgUM1Standby
	MsgUM3Roger
	MsgUM4Affirm
	MsgUM5Negative
	MsgUM159Error
	MsgUM160NextDataAuthority
	MsgUM161EndSvc
	MsgUM168Disregard
)

var msgTypeWire = map[MsgType]string{
	MsgGeneric:                "",
	MsgDM0Wilco:               "DM0",
	MsgDM1Unable:              "DM1",
	MsgDM2Standby:             "DM2",
	MsgDM3Roger:               "DM3",
	MsgDM4Affirm:              "DM4",
	MsgDM5Negative:            "DM5",
	MsgDM62Error:              "DM62",
	MsgUM0Unable:              "UM0",
	MsgUM1Standby:             "UM1",
	MsgUM3Roger:               "UM3",
	MsgUM4Affirm:              "UM4",
	MsgUM5Negative:            "UM5",
	MsgUM159Error:             "UM159",
	MsgUM160NextDataAuthority: "UM160",
	MsgUM161EndSvc:            "UM161",
	MsgUM168Disregard:         "UM168",
}

var wireMsgType = func() map[string]MsgType {
	m := make(map[string]MsgType, len(msgTypeWire))
	for k, v := range msgTypeWire {
		if v != "" {
			m[v] = k
		}
	}
	return m
}()

func (t MsgType) wire() string {
	if s, ok := msgTypeWire[t]; ok && s != "" {
		return s
	}
	return "G"
}

func parseMsgType(s string) MsgType {
	if t, ok := wireMsgType[s]; ok {
		return t
	}
	return MsgGeneric
}

// SegInfo describes one segment's protocol metadata: direction, identity,
// response discipline and an optional per-segment timeout in seconds.
type SegInfo struct {
	IsDL    bool // true: downlink (aircraft -> ATC); false: uplink
	Type    MsgType
	Resp    RespDiscipline
	Timeout uint32 // seconds; 0 = none
}

// Segment is one CPDLC element within a message: its metadata plus free text.
type Segment struct {
	Info SegInfo
	Text string
}

// InvalidSeqNr is the sentinel MRN value meaning "not a reply to anything".
const InvalidSeqNr uint32 = 0xFFFFFFFF

// Message is one decoded CPDLC message: header fields plus an ordered list
// of segments.
type Message struct {
	From    string
	To      string
	Min     uint32
	Mrn     uint32
	IsLogon bool
	Segs    []Segment
}

// NewLogon builds a LOGON message declaring from/to.
func NewLogon(from, to string) *Message {
	return &Message{From: from, To: to, Mrn: InvalidSeqNr, IsLogon: true}
}

// NewSingleSeg builds a message carrying exactly one segment, the common
// case for every status-bearing reply (WILCO, ROGER, UNABLE, ...).
func NewSingleSeg(from, to string, seg Segment) *Message {
	return &Message{From: from, To: to, Mrn: InvalidSeqNr, Segs: []Segment{seg}}
}

func (m *Message) String() string {
	return "cpdlc msg from=" + m.From + " to=" + m.To + " min=" + strconv.FormatUint(uint64(m.Min), 10)
}
