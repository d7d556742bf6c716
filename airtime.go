package wmedium

//
// Airtime, contention, and the multi-rate retry walk
//

// 802.11 channel-access timing in microseconds.
const (
	slotTime = 9
	sifs     = 16
	difs     = 2*slotTime + sifs
)

// ackFrameLen is the length of an ACK frame in bytes.
const ackFrameLen = 14

// divRound divides rounding up.
func divRound(a, b int) int {
	return (a + b - 1) / b
}

// pktDuration returns the airtime in microseconds of a frame of the
// given length at the given rate in 100 kbps units: preamble plus
// signal plus symbol time times symbol count.
func pktDuration(length, rate int) int {
	return 16 + 4 + 4*divRound((16+8*length+6)*10, 4*rate)
}

// queueFrame decides the fate of a frame on the medium and schedules
// its delivery.
//
// The frame's send time is the airtime of every transmission attempt
// the retry walk predicts, including inter-frame spacing, contention
// backoff, and ACK timing. The delivery start is that send time after
// the last queued frame of equal or higher priority across all
// stations, because a frame in flight on the shared medium delays
// everyone else.
func (e *Engine) queueFrame(station *Station, frame *Frame) {
	dest := frameDest(frame.Payload)

	ac := frameSelectQueue(frame.Payload)
	queue := &station.queues[ac]

	ackTime := pktDuration(ackFrameLen, indexToRate(0, frame.Freq)) + sifs

	sendTime := 0
	cw := queue.cwMin

	snr := SNRDefault
	var destStation *Station
	if !isMulticastAddr(dest) {
		destStation = e.registry.LookupMAC(dest)
		if destStation != nil {
			snr = e.matrices.linkSNR(station, destStation) -
				e.interferenceOffset(station.Index, destStation.Index)
			snr += e.fadingSignal()
		}
	}
	frame.Signal = snr + NoiseLevel

	noAck := frameIsMgmt(frame.Payload) || isMulticastAddr(dest)

	// the error-probability matrix fixes the draw for the whole walk
	choice := e.rng.Float64()

	isAcked := false
	ackedRow, ackedTry := 0, 0
walk:
	for i := 0; i < len(frame.TXRates); i++ {
		rateIdx := int(frame.TXRates[i].Idx)

		// no more rates in MRR
		if rateIdx < 0 {
			break
		}

		errorProb := e.matrices.errorProb(e.per, float64(snr), rateIdx,
			len(frame.Payload), station, destStation)
		for j := 0; j < int(frame.TXRates[i].Count); j++ {
			sendTime += difs + pktDuration(len(frame.Payload), indexToRate(rateIdx, frame.Freq))

			// no ack, no backoff, no retries
			if noAck {
				isAcked = true
				ackedRow, ackedTry = i, j
				break walk
			}

			// backoff
			if j > 0 {
				sendTime += (cw * slotTime) / 2
				cw = cw<<1 + 1
				if cw > queue.cwMax {
					cw = queue.cwMax
				}
			}

			sendTime += ackTime

			if choice > errorProb {
				isAcked = true
				ackedRow, ackedTry = i, j
				break walk
			}

			if !e.matrices.fixedRandomValue() {
				choice = e.rng.Float64()
			}
		}
	}

	if isAcked {
		frame.TXRates[ackedRow].Count = int8(ackedTry + 1)
		for i := ackedRow + 1; i < len(frame.TXRates); i++ {
			frame.TXRates[i].Idx = -1
			frame.TXRates[i].Count = -1
		}
		frame.Flags |= TXStatACK
	}

	// delivery starts after any equal or higher priority frame in
	// flight, or now if there is none
	target := e.sched.Now()
	for prio := 0; prio <= ac; prio++ {
		e.registry.ForEach(func(other *Station) {
			if tail := other.queues[prio].tail(); tail != nil && target < tail.job.Start {
				target = tail.job.Start
			}
		})
	}
	target += uint64(sendTime)

	frame.duration = sendTime
	frame.job = Job{
		Start:    target,
		Name:     "frame",
		Callback: func(job *Job) { e.deliverFrame(frame) },
	}
	e.sched.Add(&frame.job)
	queue.frames = append(queue.frames, frame)
}
