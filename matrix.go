package wmedium

//
// Link matrices and the link model variant
//

// linkModelKind selects how link SNR and error probability are
// obtained, chosen once at configuration time.
type linkModelKind int

const (
	// linkModelSNR reads the SNR matrix and derives the error
	// probability from the per-rate SNR curves. This is the model
	// for explicit links, path loss, and the all-defaults case.
	linkModelSNR = linkModelKind(iota)

	// linkModelErrProb short-circuits the SNR matrix (every link
	// reports the default SNR) and reads the error probability
	// straight out of a per-pair matrix. This model also switches
	// the retry walk to a single fixed random draw per frame.
	linkModelErrProb
)

// intfInfo tracks interference caused by one source station as seen
// by one destination station.
type intfInfo struct {
	// signal is the latest interfering signal in dBm.
	signal int

	// duration accumulates interfering airtime in microseconds since
	// the last rebuild tick.
	duration int

	// probCol is the collision probability derived from duration at
	// the last rebuild tick.
	probCol float64
}

// linkMatrices holds the process-wide N x N link state, row-major and
// indexed [src*N + dst]. The diagonal is never read.
type linkMatrices struct {
	// numStations is N.
	numStations int

	// kind selects the link model.
	kind linkModelKind

	// snr is the per-pair SNR in dB.
	snr []int

	// errProb is the per-pair error probability; nil unless kind is
	// linkModelErrProb.
	errProb []float64

	// intf is the interference matrix; nil when interference
	// modeling is disabled.
	intf []intfInfo
}

// newLinkMatrices creates matrices for n stations with every
// off-diagonal SNR set to the default.
func newLinkMatrices(n int) *linkMatrices {
	m := &linkMatrices{
		numStations: n,
		snr:         make([]int, n*n),
	}
	for i := range m.snr {
		m.snr[i] = SNRDefault
	}
	return m
}

// enableInterference allocates the interference matrix.
func (m *linkMatrices) enableInterference() {
	m.intf = make([]intfInfo, m.numStations*m.numStations)
}

// enableErrProb switches to the error-probability link model with an
// all-zero matrix.
func (m *linkMatrices) enableErrProb() {
	m.kind = linkModelErrProb
	m.errProb = make([]float64, m.numStations*m.numStations)
}

// linkSNR returns the SNR of the sender->receiver link. Under the
// error-probability model the matrix is bypassed and every link
// reports the default SNR.
func (m *linkMatrices) linkSNR(sender, receiver *Station) int {
	if m.kind == linkModelErrProb {
		return SNRDefault
	}
	return m.snr[sender.Index*m.numStations+receiver.Index]
}

// setLinkSNR sets the SNR of both directions of a link.
func (m *linkMatrices) setLinkSNR(start, end, snr int) {
	m.snr[start*m.numStations+end] = snr
	m.snr[end*m.numStations+start] = snr
}

// setErrProb sets the error probability of both directions of a link.
func (m *linkMatrices) setErrProb(start, end int, prob float64) {
	m.errProb[start*m.numStations+end] = prob
	m.errProb[end*m.numStations+start] = prob
}

// errorProb returns the error probability for one transmission
// attempt. Under the error-probability model the per-pair matrix is
// authoritative and a multicast destination (dst == nil) reports zero
// because the value is never used; otherwise the probability comes
// from the per-rate SNR curves.
func (m *linkMatrices) errorProb(per *PERModel, snr float64, rateIdx int,
	frameLen int, src, dst *Station) float64 {
	if m.kind == linkModelErrProb {
		if dst == nil {
			return 0.0
		}
		return m.errProb[src.Index*m.numStations+dst.Index]
	}
	return per.errorProb(snr, rateIdx, frameLen)
}

// fixedRandomValue reports whether the retry walk must sample its
// random choice once per frame instead of once per attempt.
func (m *linkMatrices) fixedRandomValue() bool {
	return m.kind == linkModelErrProb
}
