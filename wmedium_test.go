package wmedium

//
// Shared test helpers
//

import (
	"testing"

	"github.com/mdlayher/netlink"
)

// seqRNG is a [MediumRNG] replaying a fixed sequence, then 0.5.
type seqRNG struct {
	values []float64
	calls  int
}

func (r *seqRNG) Float64() float64 {
	r.calls++
	if len(r.values) > 0 {
		value := r.values[0]
		r.values = r.values[1:]
		return value
	}
	return 0.5
}

// recordClient is a [Client] collecting everything sent to it.
type recordClient struct {
	name    string
	frames  []*HWSimMsg
	txInfos []*HWSimMsg
	sendErr error
}

func (c *recordClient) Name() string {
	return c.name
}

func (c *recordClient) Send(msg *HWSimMsg) error {
	switch msg.Cmd {
	case HWSimCmdFrame:
		c.frames = append(c.frames, msg)
	case HWSimCmdTXInfoFrame:
		c.txInfos = append(c.txInfos, msg)
	}
	return c.sendErr
}

var _ Client = &recordClient{}

// mac returns a station MAC with the given final octet.
func mac(last byte) [6]byte {
	return [6]byte{0x02, 0, 0, 0, 0, last}
}

// macText formats mac(last) the way the config file spells it.
func macText(last byte) string {
	return macString(mac(last))
}

var broadcastAddr = [6]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// dataFrame builds a non-QoS data frame of the given total length.
func dataFrame(src, dst [6]byte, length int) []byte {
	payload := make([]byte, length)
	payload[0] = 0x08
	copy(payload[4:10], dst[:])
	copy(payload[10:16], src[:])
	return payload
}

// qosDataFrame builds a QoS data frame carrying the given TID.
func qosDataFrame(src, dst [6]byte, tid byte, length int) []byte {
	payload := dataFrame(src, dst, length)
	payload[0] = 0x88
	payload[24] = tid
	return payload
}

// actionFrame builds a management action frame with the given
// category and action codes.
func actionFrame(src, dst [6]byte, category, action byte) []byte {
	payload := make([]byte, 32)
	payload[0] = 0xd0
	copy(payload[4:10], dst[:])
	copy(payload[10:16], src[:])
	payload[24] = category
	payload[25] = action
	return payload
}

// newTestEngine builds an engine in virtual time with a quiet logger.
func newTestEngine(t *testing.T, cfg *Config, rng MediumRNG) *Engine {
	t.Helper()
	engine, err := NewEngine(&EngineConfig{
		Config:      cfg,
		Logger:      &NullLogger{},
		RNG:         rng,
		VirtualTime: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	return engine
}

// linksConfig is a two-or-more station config with explicit links.
func linksConfig(count int, links ...[]int) *Config {
	cfg := &Config{}
	for idx := 0; idx < count; idx++ {
		cfg.Ifaces.IDs = append(cfg.Ifaces.IDs, macText(byte(idx)))
	}
	cfg.Ifaces.Links = links
	return cfg
}

// submit pushes a frame submission straight into the engine.
func submit(e *Engine, client Client, payload []byte, rates []TXRate) {
	e.handleTXFrame(client, &TXFrame{
		Transmitter: frameSource(payload),
		Payload:     payload,
		Flags:       TXCtlReqTXStatus,
		Rates:       rates,
		Cookie:      1,
		Freq:        DefaultFreq,
	})
}

// runAll fires every pending job except the periodic interference
// rebuild, which would reschedule itself forever.
func runAll(e *Engine) {
	for {
		job := e.sched.Peek()
		if job == nil || job == &e.intfJob {
			return
		}
		e.sched.RunNext()
	}
}

// decodedTXInfo is an unpacked transmit-status report.
type decodedTXInfo struct {
	transmitter [6]byte
	flags       uint32
	signal      int32
	rates       []TXRate
	cookie      uint64
}

// decodeTXInfo unpacks a CmdTXInfoFrame message.
func decodeTXInfo(t *testing.T, msg *HWSimMsg) *decodedTXInfo {
	t.Helper()
	if msg.Cmd != HWSimCmdTXInfoFrame {
		t.Fatalf("expected tx info message, got command %d", msg.Cmd)
	}
	ad, err := netlink.NewAttributeDecoder(msg.Attrs)
	if err != nil {
		t.Fatal(err)
	}
	info := &decodedTXInfo{}
	for ad.Next() {
		switch ad.Type() {
		case HWSimAttrAddrTransmitter:
			copy(info.transmitter[:], ad.Bytes())
		case HWSimAttrFlags:
			info.flags = ad.Uint32()
		case HWSimAttrSignal:
			info.signal = ad.Int32()
		case HWSimAttrTXInfo:
			info.rates = decodeTXRates(ad.Bytes())
		case HWSimAttrCookie:
			info.cookie = ad.Uint64()
		}
	}
	if err := ad.Err(); err != nil {
		t.Fatal(err)
	}
	return info
}

// decodedFrame is an unpacked frame delivery.
type decodedFrame struct {
	receiver [6]byte
	payload  []byte
	rxRate   uint32
	signal   int32
	freq     uint32
}

// decodeFrame unpacks a CmdFrame message.
func decodeFrame(t *testing.T, msg *HWSimMsg) *decodedFrame {
	t.Helper()
	if msg.Cmd != HWSimCmdFrame {
		t.Fatalf("expected frame message, got command %d", msg.Cmd)
	}
	ad, err := netlink.NewAttributeDecoder(msg.Attrs)
	if err != nil {
		t.Fatal(err)
	}
	frame := &decodedFrame{}
	for ad.Next() {
		switch ad.Type() {
		case HWSimAttrAddrReceiver:
			copy(frame.receiver[:], ad.Bytes())
		case HWSimAttrFrame:
			frame.payload = ad.Bytes()
		case HWSimAttrRXRate:
			frame.rxRate = ad.Uint32()
		case HWSimAttrSignal:
			frame.signal = ad.Int32()
		case HWSimAttrFreq:
			frame.freq = ad.Uint32()
		}
	}
	if err := ad.Err(); err != nil {
		t.Fatal(err)
	}
	return frame
}
