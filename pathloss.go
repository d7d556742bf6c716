package wmedium

//
// Log-distance path loss
//

import "math"

// Carrier frequency and speed of light used by the free-space term.
const (
	freq1Ch    = 2.412e9      // [Hz]
	speedLight = 2.99792458e8 // [meter/sec]
)

// logDistanceModel is the log-distance path loss model.
type logDistanceModel struct {
	// exponent is the path loss exponent.
	exponent float64

	// xg is the normal random variable term, fixed at configuration.
	xg float64
}

// pathLoss returns the path loss in dB between two stations.
func (m *logDistanceModel) pathLoss(dst, src *Station) int {
	d := math.Sqrt((src.X-dst.X)*(src.X-dst.X) + (src.Y-dst.Y)*(src.Y-dst.Y))

	// Free-space path loss at one meter:
	//
	// 20 * log10 * (4 * M_PI * d * f / c)
	//   d: distance [meter]
	//   f: frequency [Hz]
	//   c: speed of light in a vacuum [meter/second]
	//
	// https://en.wikipedia.org/wiki/Free-space_path_loss
	pl0 := 20.0 * math.Log10(4.0*math.Pi*1.0*freq1Ch/speedLight)

	// https://en.wikipedia.org/wiki/Log-distance_path_loss_model
	pl := pl0 + 10.0*m.exponent*math.Log10(d) + m.xg

	return int(pl)
}

// applyPathLoss fills the SNR matrix from station positions and
// transmit powers. The matrix is generally asymmetric because the
// transmit power differs per source.
func applyPathLoss(model *logDistanceModel, reg *Registry, m *linkMatrices) {
	stations := make([]*Station, reg.Len())
	reg.ForEach(func(sta *Station) {
		stations[sta.Index] = sta
	})
	for start := 0; start < m.numStations; start++ {
		for end := 0; end < m.numStations; end++ {
			if start == end {
				continue
			}
			loss := model.pathLoss(stations[end], stations[start])
			m.snr[start*m.numStations+end] = stations[start].TXPower - loss - NoiseLevel
		}
	}
}
