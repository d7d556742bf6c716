package wmedium

//
// Delivery and fan-out
//

// deliverFrame runs when a frame's delivery job fires: the frame
// leaves its queue, fans out to every eligible receiver, and its
// transmit status goes back to the originating client.
func (e *Engine) deliverFrame(frame *Frame) {
	dest := frameDest(frame.Payload)
	src := frame.Sender.Addr

	ac := frameSelectQueue(frame.Payload)
	frame.Sender.queues[ac].remove(frame)

	if e.capture != nil {
		e.capture.Record(e.sched.Now(), frame.Payload)
	}

	if frame.Flags&TXStatACK != 0 {
		e.registry.ForEach(func(station *Station) {
			if station.Addr == src {
				return
			}

			if isMulticastAddr(dest) {
				// reception depends on the link from the sender to
				// each receiver; re-evaluate it per station
				snr := e.matrices.linkSNR(frame.Sender, station)
				snr += e.fadingSignal()
				signal := snr + NoiseLevel
				if signal < CCAThreshold {
					return
				}

				if e.setInterferenceDuration(frame.Sender.Index, frame.duration, signal) &&
					e.deafenOnInterference {
					return
				}

				snr -= e.interferenceOffset(frame.Sender.Index, station.Index)
				rateIdx := 0
				if len(frame.TXRates) > 0 {
					rateIdx = int(frame.TXRates[0].Idx)
				}
				errorProb := e.matrices.errorProb(e.per, float64(snr), rateIdx,
					len(frame.Payload), frame.Sender, station)

				if e.rng.Float64() <= errorProb {
					e.logger.Infof("wmedium: dropped mcast from %s to %s at receiver",
						macString(src), macString(station.Addr))
					return
				}

				e.deliverToStation(station, frame, signal)
			} else if station.Addr == dest {
				if e.setInterferenceDuration(frame.Sender.Index, frame.duration, frame.Signal) &&
					e.deafenOnInterference {
					return
				}

				e.deliverToStation(station, frame, frame.Signal)
			}
		})
	} else {
		e.setInterferenceDuration(frame.Sender.Index, frame.duration, frame.Signal)
	}

	e.sendTXInfo(frame)
}

// deliverToStation publishes the raw frame bytes to the receiver's
// bound client, or to every client in the broadcast set when the
// receiver is unbound.
func (e *Engine) deliverToStation(station *Station, frame *Frame, signal int) {
	msg := encodeFrameMsg(station.HWAddr, frame.Payload, 1, signal, frame.Freq)

	e.logger.Debugf("wmedium: cloned msg dest %s (radio: %s) len %d",
		macString(station.Addr), macString(station.HWAddr), len(frame.Payload))

	if station.client != nil {
		e.sendToClient(station.client, msg)
		return
	}
	for _, client := range e.clients {
		e.sendToClient(client, msg)
	}
}

// sendTXInfo reports the transmit status of a frame back to the
// client that submitted it.
func (e *Engine) sendTXInfo(frame *Frame) {
	msg := encodeTXInfoMsg(frame.Sender.HWAddr, frame.Flags, frame.Signal,
		frame.TXRates, frame.Cookie)
	e.sendToClient(frame.src, msg)
}

// sendToClient hands a message to a client transport. Egress is best
// effort: transport errors are logged and the message is considered
// delivered.
func (e *Engine) sendToClient(client Client, msg *HWSimMsg) {
	if client == nil {
		return
	}
	if err := client.Send(msg); err != nil {
		e.logger.Warnf("wmedium: send to client %s: %s", client.Name(), err.Error())
	}
}
