package wmedium

//
// Data model
//

// Timing and signal constants of the simulated medium. The noise level
// and CCA threshold are in dBm; inter-frame gaps are in microseconds.
const (
	// NoiseLevel is the thermal noise floor used in signal arithmetic.
	NoiseLevel = -91

	// CCAThreshold is the clear-channel-assessment floor. Signals below
	// this level count as background interference, not receptions.
	CCAThreshold = -90

	// SNRDefault is the link SNR assumed when no link source sets one.
	SNRDefault = 30
)

// MaxTXRates is the maximum number of rows in a frame's multi-rate
// retry table, fixed by the hwsim wire format.
const MaxTXRates = 4

// TXRate is one row of a multi-rate retry table: try rate Idx up to
// Count times. Idx < 0 terminates the table.
type TXRate struct {
	// Idx is the rate index, or -1 to terminate the table.
	Idx int8

	// Count is how many transmission attempts to make at Idx.
	Count int8
}

// Frame is a frame in flight on the medium. A frame is owned by the
// engine from ingress until it has been delivered and its transmit
// status reported; it sits in exactly one per-station access-category
// queue and has exactly one pending scheduler job during that time.
type Frame struct {
	// Payload is the raw 802.11 frame, starting at the frame control field.
	Payload []byte

	// Flags carries the hwsim TX control/status flags.
	Flags uint32

	// Cookie is the opaque correlator assigned by the submitting radio.
	Cookie uint64

	// Freq is the frequency in MHz the frame was sent on.
	Freq uint32

	// TXRates is the multi-rate retry table. The ACK decision truncates
	// it in place to reflect the attempts actually made.
	TXRates []TXRate

	// Sender is the station that transmitted this frame.
	Sender *Station

	// Signal is the computed receive signal in dBm.
	Signal int

	// src is the client that submitted the frame, so the transmit
	// status can be routed back. Non-owning back-reference.
	src Client

	// duration is the frame's total airtime in microseconds.
	duration int

	// job is the delivery job for this frame.
	job Job
}

// Logger is the logger we're using.
type Logger interface {
	// Debugf formats and emits a debug message.
	Debugf(format string, v ...any)

	// Debug emits a debug message.
	Debug(message string)

	// Infof formats and emits an informational message.
	Infof(format string, v ...any)

	// Info emits an informational message.
	Info(message string)

	// Warnf formats and emits a warning message.
	Warnf(format string, v ...any)

	// Warn emits a warning message.
	Warn(message string)
}

// NullLogger is a [Logger] that does not emit logs.
type NullLogger struct{}

// Debug implements Logger
func (nl *NullLogger) Debug(message string) {
	// nothing
}

// Debugf implements Logger
func (nl *NullLogger) Debugf(format string, v ...any) {
	// nothing
}

// Info implements Logger
func (nl *NullLogger) Info(message string) {
	// nothing
}

// Infof implements Logger
func (nl *NullLogger) Infof(format string, v ...any) {
	// nothing
}

// Warn implements Logger
func (nl *NullLogger) Warn(message string) {
	// nothing
}

// Warnf implements Logger
func (nl *NullLogger) Warnf(format string, v ...any) {
	// nothing
}

var _ Logger = &NullLogger{}

// MediumRNG is the [Engine] view of its random number source,
// abstracted for testability.
type MediumRNG interface {
	// Float64 returns a uniform draw in [0, 1).
	Float64() float64
}

// drand48 is a 48-bit linear congruential generator producing the
// same sequence as the libc function of the same name, which the
// error-probability invariants depend on.
type drand48 struct {
	state uint64
}

// newDrand48 seeds the generator the way srand48 does: the seed in the
// high 32 bits, 0x330e in the low 16.
func newDrand48(seed int64) *drand48 {
	return &drand48{state: (uint64(seed)<<16 | 0x330e) & (1<<48 - 1)}
}

// Float64 implements MediumRNG.
func (d *drand48) Float64() float64 {
	d.state = (d.state*0x5deece66d + 0xb) & (1<<48 - 1)
	return float64(d.state) / (1 << 48)
}

var _ MediumRNG = &drand48{}
