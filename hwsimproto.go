package wmedium

//
// MAC80211_HWSIM generic netlink wire format
//
// The command and attribute numbers mirror the kernel's hwsim uapi
// and are fixed by compatibility with the radio driver.
//

import (
	"encoding/binary"
	"errors"

	"github.com/mdlayher/netlink"
)

// HWSimFamilyName is the generic netlink family of the radio driver.
const HWSimFamilyName = "MAC80211_HWSIM"

// HWSimVersion is the genl header version byte.
const HWSimVersion = 1

// hwsim commands.
const (
	HWSimCmdRegister    = 1
	HWSimCmdFrame       = 2
	HWSimCmdTXInfoFrame = 3
)

// hwsim attributes.
const (
	HWSimAttrAddrReceiver    = 1
	HWSimAttrAddrTransmitter = 2
	HWSimAttrFrame           = 3
	HWSimAttrFlags           = 4
	HWSimAttrRXRate          = 5
	HWSimAttrSignal          = 6
	HWSimAttrTXInfo          = 7
	HWSimAttrCookie          = 8
	HWSimAttrFreq            = 19
)

// hwsim TX control/status flags.
const (
	TXCtlReqTXStatus = 1 << 0
	TXCtlNoAck       = 1 << 1
	TXStatACK        = 1 << 2
)

// DefaultFreq is the frequency assumed when a submission does not
// carry one, in MHz.
const DefaultFreq = 2412

// ErrTruncatedMessage indicates a netlink-framed message shorter
// than its headers claim.
var ErrTruncatedMessage = errors.New("wmedium: truncated netlink message")

// HWSimMsg is one generic-netlink message of the hwsim family: a
// command plus its marshaled attribute payload. Transports frame it
// as needed for their wire.
type HWSimMsg struct {
	// Cmd is the hwsim command.
	Cmd uint8

	// Attrs is the marshaled netlink attribute payload.
	Attrs []byte
}

// TXFrame is a frame submission decoded from a CmdFrame message.
type TXFrame struct {
	// Transmitter is the hardware address of the submitting radio.
	Transmitter [6]byte

	// Payload is the raw 802.11 frame.
	Payload []byte

	// Flags carries the TX control flags.
	Flags uint32

	// Rates is the multi-rate retry table, at most [MaxTXRates] rows.
	Rates []TXRate

	// Cookie correlates the transmit status with the submission.
	Cookie uint64

	// Freq is the frequency in MHz; [DefaultFreq] when absent.
	Freq uint32
}

// ParseTXFrame decodes the attribute payload of a CmdFrame message.
// It returns nil when the message carries no transmitter address,
// which is how the kernel frames messages not meant for the medium.
func ParseTXFrame(attrs []byte) (*TXFrame, error) {
	ad, err := netlink.NewAttributeDecoder(attrs)
	if err != nil {
		return nil, err
	}

	tx := &TXFrame{Freq: DefaultFreq}
	hasTransmitter := false
	for ad.Next() {
		switch ad.Type() {
		case HWSimAttrAddrTransmitter:
			copy(tx.Transmitter[:], ad.Bytes())
			hasTransmitter = true
		case HWSimAttrFrame:
			tx.Payload = ad.Bytes()
		case HWSimAttrFlags:
			tx.Flags = ad.Uint32()
		case HWSimAttrTXInfo:
			tx.Rates = decodeTXRates(ad.Bytes())
		case HWSimAttrCookie:
			tx.Cookie = ad.Uint64()
		case HWSimAttrFreq:
			tx.Freq = ad.Uint32()
		}
	}
	if err := ad.Err(); err != nil {
		return nil, err
	}
	if !hasTransmitter {
		return nil, nil
	}
	return tx, nil
}

// decodeTXRates unpacks an array of {s8 idx, u8 count} pairs.
func decodeTXRates(raw []byte) []TXRate {
	count := len(raw) / 2
	if count > MaxTXRates {
		count = MaxTXRates
	}
	rates := make([]TXRate, count)
	for i := 0; i < count; i++ {
		rates[i] = TXRate{Idx: int8(raw[2*i]), Count: int8(raw[2*i+1])}
	}
	return rates
}

// encodeTXRates packs the retry table into wire form.
func encodeTXRates(rates []TXRate) []byte {
	raw := make([]byte, 0, 2*len(rates))
	for _, rate := range rates {
		raw = append(raw, byte(rate.Idx), byte(rate.Count))
	}
	return raw
}

// EncodeTXFrameMsg builds the CmdFrame message a radio uses to
// submit a frame to the medium. Client implementations and tests use
// it; the engine only ever parses submissions.
func EncodeTXFrameMsg(tx *TXFrame) *HWSimMsg {
	ae := netlink.NewAttributeEncoder()
	ae.Bytes(HWSimAttrAddrTransmitter, tx.Transmitter[:])
	ae.Bytes(HWSimAttrFrame, tx.Payload)
	ae.Uint32(HWSimAttrFlags, tx.Flags)
	ae.Bytes(HWSimAttrTXInfo, encodeTXRates(tx.Rates))
	ae.Uint64(HWSimAttrCookie, tx.Cookie)
	ae.Uint32(HWSimAttrFreq, tx.Freq)
	attrs := Must1(ae.Encode())
	return &HWSimMsg{Cmd: HWSimCmdFrame, Attrs: attrs}
}

// encodeFrameMsg builds the CmdFrame message that delivers a frame
// to a receiving radio.
func encodeFrameMsg(receiver [6]byte, payload []byte, rxRate uint32,
	signal int, freq uint32) *HWSimMsg {
	ae := netlink.NewAttributeEncoder()
	ae.Bytes(HWSimAttrAddrReceiver, receiver[:])
	ae.Bytes(HWSimAttrFrame, payload)
	ae.Uint32(HWSimAttrRXRate, rxRate)
	ae.Uint32(HWSimAttrFreq, freq)
	ae.Int32(HWSimAttrSignal, int32(signal))
	attrs := Must1(ae.Encode())
	return &HWSimMsg{Cmd: HWSimCmdFrame, Attrs: attrs}
}

// encodeTXInfoMsg builds the CmdTXInfoFrame message that reports a
// frame's transmit status to its originator.
func encodeTXInfoMsg(transmitter [6]byte, flags uint32, signal int,
	rates []TXRate, cookie uint64) *HWSimMsg {
	ae := netlink.NewAttributeEncoder()
	ae.Bytes(HWSimAttrAddrTransmitter, transmitter[:])
	ae.Uint32(HWSimAttrFlags, flags)
	ae.Int32(HWSimAttrSignal, int32(signal))
	ae.Bytes(HWSimAttrTXInfo, encodeTXRates(rates))
	ae.Uint64(HWSimAttrCookie, cookie)
	attrs := Must1(ae.Encode())
	return &HWSimMsg{Cmd: HWSimCmdTXInfoFrame, Attrs: attrs}
}

// netlink and genl header sizes for stream framing.
const (
	nlmsgHdrLen   = 16
	genlmsgHdrLen = 4
)

// MarshalStream frames the message the way it travels on byte-stream
// transports: a netlink header, a genl header, and the attributes.
// The family id is whatever the peer registered with the kernel, or
// zero when the medium runs without the kernel transport.
func (msg *HWSimMsg) MarshalStream(familyID uint16) []byte {
	length := nlmsgHdrLen + genlmsgHdrLen + len(msg.Attrs)
	raw := make([]byte, length)
	binary.LittleEndian.PutUint32(raw[0:4], uint32(length))
	binary.LittleEndian.PutUint16(raw[4:6], familyID)
	binary.LittleEndian.PutUint16(raw[6:8], uint16(netlink.Request))
	raw[nlmsgHdrLen] = msg.Cmd
	raw[nlmsgHdrLen+1] = HWSimVersion
	copy(raw[nlmsgHdrLen+genlmsgHdrLen:], msg.Attrs)
	return raw
}

// ParseStream decodes one netlink-framed message from the head of a
// byte stream and returns it with the number of bytes consumed. A
// message of any command is returned; callers filter on its Cmd.
func ParseStream(raw []byte) (*HWSimMsg, int, error) {
	if len(raw) < nlmsgHdrLen+genlmsgHdrLen {
		return nil, 0, ErrTruncatedMessage
	}
	length := int(binary.LittleEndian.Uint32(raw[0:4]))
	if length < nlmsgHdrLen+genlmsgHdrLen || length > len(raw) {
		return nil, 0, ErrTruncatedMessage
	}
	msg := &HWSimMsg{
		Cmd:   raw[nlmsgHdrLen],
		Attrs: raw[nlmsgHdrLen+genlmsgHdrLen : length],
	}
	// netlink messages are 4-byte aligned on the wire
	consumed := (length + 3) &^ 3
	if consumed > len(raw) {
		consumed = len(raw)
	}
	return msg, consumed, nil
}
