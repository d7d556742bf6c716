package wmedium

//
// Interference bookkeeping
//

import "math"

// interferenceTickInterval is how often accumulated interference
// durations are converted into collision probabilities, in
// microseconds. It is also the window the conversion divides by.
const interferenceTickInterval = 10000

// intfClampDB caps |NoiseLevel - signal| before the dB-to-mW
// conversion so the exponent cannot under- or overflow.
const intfClampDB = 31

// dBmToMilliwatt converts an interfering signal relative to the noise
// floor into linear milliwatts, saturating at the clamp.
func dBmToMilliwatt(decibelIntf int) float64 {
	diff := NoiseLevel - decibelIntf
	if diff >= intfClampDB {
		return 0.001
	}
	if diff <= -intfClampDB {
		return 1000.0
	}
	return math.Pow(10.0, -float64(diff)/10.0)
}

// milliwattToDBm converts linear milliwatts back to dBm.
func milliwattToDBm(value float64) float64 {
	return 10.0 * math.Log10(value)
}

// setInterferenceDuration records that the given source occupied the
// channel for the given duration at the given signal level. Signals
// at or above the CCA threshold are receptions, not background, and
// are not recorded. It reports whether anything was recorded.
func (e *Engine) setInterferenceDuration(srcIdx, duration, signal int) bool {
	if e.matrices.intf == nil {
		return false
	}
	if signal >= CCAThreshold {
		return false
	}
	n := e.matrices.numStations
	for i := 0; i < n; i++ {
		e.matrices.intf[n*srcIdx+i].duration += duration
		// use only latest value
		e.matrices.intf[n*srcIdx+i].signal = signal
	}
	return true
}

// interferenceOffset returns the signal penalty in dB that background
// interference imposes on the src->dst link. Every potential
// interferer contributes its latest signal with its collision
// probability, drawn independently.
func (e *Engine) interferenceOffset(srcIdx, dstIdx int) int {
	if e.matrices.intf == nil {
		return 0
	}
	n := e.matrices.numStations
	power := 0.0
	for i := 0; i < n; i++ {
		if i == srcIdx || i == dstIdx {
			continue
		}
		if e.rng.Float64() < e.matrices.intf[i*n+dstIdx].probCol {
			power += dBmToMilliwatt(e.matrices.intf[i*n+dstIdx].signal)
		}
	}
	if power <= 1.0 {
		return 0
	}
	return int(milliwattToDBm(power) + 0.5)
}

// interferenceTick rebuilds the collision probabilities from the
// durations accumulated over the last window, zeroes the durations,
// and reschedules itself.
func (e *Engine) interferenceTick(job *Job) {
	n := e.matrices.numStations
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			// probability is used for the next window; queued-up
			// airtime can exceed the window, so cap at certainty
			probCol := float64(e.matrices.intf[i*n+j].duration) / interferenceTickInterval
			if probCol > 1 {
				probCol = 1
			}
			e.matrices.intf[i*n+j].probCol = probCol
			e.matrices.intf[i*n+j].duration = 0
		}
	}

	job.Start += interferenceTickInterval
	e.sched.Add(job)
}
