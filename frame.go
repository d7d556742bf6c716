package wmedium

//
// 802.11 frame header accessors
//
// The accessors read fixed offsets in the raw frame because the
// offsets are part of the hwsim wire contract; full dissection of
// delivered frames lives in the pcap capture and the tests.
//

// frame-control field masks and values, first octet.
const (
	fctlFtype    = 0x0c
	ftypeMgmt    = 0x00
	ftypeData    = 0x08
	stypeQoSData = 0x80
	stypeAction  = 0xd0
)

// frame-control field masks, second octet.
const (
	fctlToDS   = 0x01
	fctlFromDS = 0x02
)

// qosCtlTag1dMask extracts the 802.1D priority from the QoS control field.
const qosCtlTag1dMask = 0x07

// frameMinLen is the shortest frame the medium accepts: enough to
// read the second address field.
const frameMinLen = 16

// frameDest returns the destination address (addr1).
func frameDest(payload []byte) [6]byte {
	var addr [6]byte
	copy(addr[:], payload[4:10])
	return addr
}

// frameSource returns the transmitter address (addr2).
func frameSource(payload []byte) [6]byte {
	var addr [6]byte
	copy(addr[:], payload[10:16])
	return addr
}

// frameIsMgmt reports whether the frame is a management frame.
func frameIsMgmt(payload []byte) bool {
	return payload[0]&fctlFtype == ftypeMgmt
}

// frameIsData reports whether the frame is a data frame.
func frameIsData(payload []byte) bool {
	return payload[0]&fctlFtype == ftypeData
}

// frameIsDataQoS reports whether the frame is a QoS data frame.
func frameIsDataQoS(payload []byte) bool {
	return payload[0]&(fctlFtype|stypeQoSData) == ftypeData|stypeQoSData
}

// frameHasA4 reports whether the frame carries a fourth address,
// which shifts the QoS control field.
func frameHasA4(payload []byte) bool {
	return payload[1]&(fctlToDS|fctlFromDS) == fctlToDS|fctlFromDS
}

// frameQoSCtl returns the first octet of the QoS control field, or
// zero when the frame is too short to carry one.
func frameQoSCtl(payload []byte) byte {
	offset := 24
	if frameHasA4(payload) {
		offset = 30
	}
	if len(payload) <= offset {
		return 0
	}
	return payload[offset]
}

// frameSelectQueue maps a frame onto its EDCA access category:
// non-data frames are voice, non-QoS data is best effort, QoS data
// follows the 802.1D priority in its QoS control field.
func frameSelectQueue(payload []byte) int {
	if !frameIsData(payload) {
		return ACVO
	}
	if !frameIsDataQoS(payload) {
		return ACBE
	}
	priority := int(frameQoSCtl(payload) & qosCtlTag1dMask)
	return ieee8021dToAC[priority]
}

// frameIsAction reports whether the frame is a management action frame.
func frameIsAction(payload []byte) bool {
	return payload[0]&0xfc == stypeAction
}

// Action category and action codes identifying SAE authentication
// exchange messages.
const (
	actionCategorySAE = 3
	actionSAECommit   = 1
	actionSAEConfirm  = 2
)

// frameActionCode returns the category and action octets of an action
// frame, or (0, 0) when the frame is too short to carry them.
func frameActionCode(payload []byte) (category, action byte) {
	if len(payload) < 26 {
		return 0, 0
	}
	return payload[24], payload[25]
}

// frameIsSAECommit reports whether the frame is an SAE commit.
func frameIsSAECommit(payload []byte) bool {
	if !frameIsAction(payload) {
		return false
	}
	category, action := frameActionCode(payload)
	return category == actionCategorySAE && action == actionSAECommit
}

// frameIsSAEConfirm reports whether the frame is an SAE confirm.
func frameIsSAEConfirm(payload []byte) bool {
	if !frameIsAction(payload) {
		return false
	}
	category, action := frameActionCode(payload)
	return category == actionCategorySAE && action == actionSAEConfirm
}

// isMulticastAddr reports whether the address is multicast.
func isMulticastAddr(addr [6]byte) bool {
	return addr[0]&0x01 != 0
}
