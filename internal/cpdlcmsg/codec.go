package cpdlcmsg

import (
	"bytes"
	"strconv"
	"strings"
)

// Wire format: one message is a sequence of '\x1f'-separated KEY=VALUE
// fields terminated by a trailing '\x01' byte. The real cpdlc_msg wire
// syntax is an external collaborator out of scope for this system; this
// encoding only has to satisfy the framing contract of message dispatch
// (§4.3): every byte in range 1..127, self-delimiting, and able to report
// how many bytes it consumed out of a partially-filled buffer.
const (
	fieldSep byte = 0x1f
	msgEnd   byte = 0x01
	segSep        = ","
	segPartSep    = ":"
)

// Encode renders m into its wire form. A nil receiver or empty message still
// produces a minimal, valid (empty) message.
func Encode(m *Message) []byte {
	if m == nil {
		m = &Message{}
	}
	var b bytes.Buffer

	writeField(&b, "FROM", m.From)
	writeField(&b, "TO", m.To)
	writeField(&b, "MIN", strconv.FormatUint(uint64(m.Min), 10))
	writeField(&b, "MRN", strconv.FormatUint(uint64(m.Mrn), 10))
	if m.IsLogon {
		writeField(&b, "LOGON", "1")
	}
	if len(m.Segs) > 0 {
		parts := make([]string, len(m.Segs))
		for i, seg := range m.Segs {
			dl := "0"
			if seg.Info.IsDL {
				dl = "1"
			}
			parts[i] = strings.Join([]string{
				seg.Info.Type.wire(),
				dl,
				seg.Info.Resp.String(),
				strconv.FormatUint(uint64(seg.Info.Timeout), 10),
				escapeText(seg.Text),
			}, segPartSep)
		}
		writeField(&b, "SEG", strings.Join(parts, segSep))
	}
	b.WriteByte(msgEnd)
	return b.Bytes()
}

func writeField(b *bytes.Buffer, key, val string) {
	if b.Len() > 0 {
		b.WriteByte(fieldSep)
	}
	b.WriteString(key)
	b.WriteByte('=')
	b.WriteString(val)
}

// escapeText neutralizes the separator bytes inside free text so a segment's
// text field can never be mistaken for a field or segment boundary.
func escapeText(s string) string {
	r := strings.NewReplacer(
		string(fieldSep), "\\u001f",
		string(msgEnd), "\\u0001",
		segSep, "\\u002c",
		segPartSep, "\\u003a",
	)
	return r.Replace(s)
}

func unescapeText(s string) string {
	r := strings.NewReplacer(
		"\\u001f", string(fieldSep),
		"\\u0001", string(msgEnd),
		"\\u002c", segSep,
		"\\u003a", segPartSep,
	)
	return r.Replace(s)
}

// Decode attempts to pull one complete message off the front of buf. It
// returns the decoded message, the number of bytes consumed, and whether a
// message was actually found. Per §4.3, consumed is always > 0 when ok is
// true, and the caller is expected to call Decode repeatedly against the
// remainder of buf until it returns ok=false.
func Decode(buf []byte) (msg *Message, consumed int, ok bool) {
	idx := bytes.IndexByte(buf, msgEnd)
	if idx < 0 {
		return nil, 0, false
	}

	raw := buf[:idx]
	m := &Message{Mrn: InvalidSeqNr}

	for _, field := range bytes.Split(raw, []byte{fieldSep}) {
		if len(field) == 0 {
			continue
		}
		key, val, found := strings.Cut(string(field), "=")
		if !found {
			continue
		}
		switch key {
		case "FROM":
			m.From = val
		case "TO":
			m.To = val
		case "MIN":
			m.Min = parseUint32(val)
		case "MRN":
			m.Mrn = parseUint32(val)
		case "LOGON":
			m.IsLogon = val == "1"
		case "SEG":
			m.Segs = decodeSegs(val)
		}
	}

	return m, idx + 1, true
}

func decodeSegs(val string) []Segment {
	if val == "" {
		return nil
	}
	rawSegs := strings.Split(val, segSep)
	segs := make([]Segment, 0, len(rawSegs))
	for _, rs := range rawSegs {
		parts := strings.SplitN(rs, segPartSep, 5)
		if len(parts) < 4 {
			continue
		}
		seg := Segment{
			Info: SegInfo{
				Type:    parseMsgType(parts[0]),
				IsDL:    parts[1] == "1",
				Resp:    ParseRespDiscipline(parts[2]),
				Timeout: uint32(parseUint32(parts[3])),
			},
		}
		if len(parts) == 5 {
			seg.Text = unescapeText(parts[4])
		}
		segs = append(segs, seg)
	}
	return segs
}

func parseUint32(s string) uint32 {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0
	}
	return uint32(v)
}

// ValidateByte reports whether b is acceptable on the wire: every inbound
// byte must satisfy 0 < b <= 127 (§6).
func ValidateByte(b byte) bool {
	return b > 0 && b <= 127
}
