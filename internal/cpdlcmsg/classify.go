package cpdlcmsg

// The predicates below mirror msg_is_dl_req, msg_is_dl_req_y, msg_is_standby,
// msg_is_accepted, msg_is_rejected, msg_is_roger_or_link_mgmt and
// msg_is_disregard from the original thread tracker: each looks only at the
// first segment, which is how the original treats multi-segment messages too.

func (m *Message) firstSeg() (Segment, bool) {
	if len(m.Segs) == 0 {
		return Segment{}, false
	}
	return m.Segs[0], true
}

// IsDownlinkRequest reports whether the message is an aircraft-originated
// request (as opposed to a reply token).
func (m *Message) IsDownlinkRequest() bool {
	seg, ok := m.firstSeg()
	return ok && seg.Info.IsDL && seg.Info.Type == MsgGeneric
}

// RequiresResponse reports whether the first segment's discipline demands a
// reply (RESP=Y precisely, matching msg_is_dl_req_y).
func (m *Message) RequiresResponse() bool {
	seg, ok := m.firstSeg()
	return ok && seg.Info.Resp == RespY
}

// RequiresWilcoUnableOrSimilar reports whether the first segment expects one
// of WILCO/UNABLE, AFFIRM/NEGATIVE or a notice-only reply.
func (m *Message) RequiresWilcoUnableOrSimilar() bool {
	seg, ok := m.firstSeg()
	if !ok {
		return false
	}
	switch seg.Info.Resp {
	case RespWU, RespAN, RespNE:
		return true
	default:
		return false
	}
}

// IsStandby reports DM2_STANDBY / UM1_STANDBY.
func (m *Message) IsStandby() bool {
	seg, ok := m.firstSeg()
	if !ok {
		return false
	}
	return (seg.Info.IsDL && seg.Info.Type == MsgDM2Standby) ||
		(!seg.Info.IsDL && seg.Info.Type == MsgUM1Standby)
}

// IsAccepted reports WILCO / AFFIRM.
func (m *Message) IsAccepted() bool {
	seg, ok := m.firstSeg()
	if !ok {
		return false
	}
	return (seg.Info.IsDL && (seg.Info.Type == MsgDM0Wilco || seg.Info.Type == MsgDM4Affirm)) ||
		(!seg.Info.IsDL && seg.Info.Type == MsgUM4Affirm)
}

// IsRejected reports UNABLE / NEGATIVE / standalone error segment.
func (m *Message) IsRejected() bool {
	seg, ok := m.firstSeg()
	if !ok {
		return false
	}
	return (seg.Info.IsDL && (seg.Info.Type == MsgDM1Unable || seg.Info.Type == MsgDM5Negative || seg.Info.Type == MsgDM62Error)) ||
		(!seg.Info.IsDL && (seg.Info.Type == MsgUM0Unable || seg.Info.Type == MsgUM5Negative || seg.Info.Type == MsgUM159Error))
}

// IsStandaloneError reports a bare error segment (DM62 / UM159).
func (m *Message) IsStandaloneError() bool {
	seg, ok := m.firstSeg()
	if !ok {
		return false
	}
	return (seg.Info.IsDL && seg.Info.Type == MsgDM62Error) ||
		(!seg.Info.IsDL && seg.Info.Type == MsgUM159Error)
}

// IsRogerOrLinkMgmt reports ROGER, END_SVC or NEXT_DATA_AUTHORITY.
func (m *Message) IsRogerOrLinkMgmt() bool {
	seg, ok := m.firstSeg()
	if !ok {
		return false
	}
	return (seg.Info.IsDL && seg.Info.Type == MsgDM3Roger) ||
		(!seg.Info.IsDL && (seg.Info.Type == MsgUM3Roger ||
			seg.Info.Type == MsgUM161EndSvc ||
			seg.Info.Type == MsgUM160NextDataAuthority))
}

// IsDisregard reports UM168_DISREGARD. Downlink messages have no disregard
// counterpart in the original catalog.
func (m *Message) IsDisregard() bool {
	seg, ok := m.firstSeg()
	return ok && !seg.Info.IsDL && seg.Info.Type == MsgUM168Disregard
}

// MinSegTimeout returns the smallest nonzero segment timeout in the message,
// or 0 if none of its segments carry one.
func (m *Message) MinSegTimeout() uint32 {
	var t uint32
	for _, seg := range m.Segs {
		if seg.Info.Timeout == 0 {
			continue
		}
		if t == 0 || seg.Info.Timeout < t {
			t = seg.Info.Timeout
		}
	}
	return t
}
