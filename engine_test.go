package wmedium

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestUnicastPerfectLink(t *testing.T) {
	// two stations with an explicit 50 dB link; a 100-byte data
	// frame at 6 Mbps should be acked and delivered after exactly
	// DIFS + airtime + ACK time
	cfg := linksConfig(2, []int{0, 1, 50})
	engine := newTestEngine(t, cfg, &seqRNG{})
	client := &recordClient{name: "test"}
	engine.AddClient(client)

	payload := dataFrame(mac(0), mac(1), 100)
	submit(engine, client, payload, []TXRate{{Idx: 0, Count: 1}, {Idx: -1, Count: -1}})

	sta0 := engine.registry.LookupMAC(mac(0))
	if got := len(sta0.queues[ACBE].frames); got != 1 {
		t.Fatalf("expected one queued frame, got %d", got)
	}
	frame := sta0.queues[ACBE].frames[0]
	if frame.job.Start != 254 {
		t.Fatalf("expected delivery at 254 usec, got %d", frame.job.Start)
	}
	if frame.Flags&TXStatACK == 0 {
		t.Fatal("expected frame to be acked")
	}

	runAll(engine)

	if len(client.frames) != 1 {
		t.Fatalf("expected one delivered frame, got %d", len(client.frames))
	}
	delivered := decodeFrame(t, client.frames[0])
	if delivered.receiver != mac(1) {
		t.Fatalf("delivered to %s", macString(delivered.receiver))
	}
	if delivered.signal != 50+NoiseLevel {
		t.Fatalf("expected signal %d, got %d", 50+NoiseLevel, delivered.signal)
	}
	if diff := cmp.Diff(payload, delivered.payload); diff != "" {
		t.Fatal(diff)
	}

	if len(client.txInfos) != 1 {
		t.Fatalf("expected one tx status, got %d", len(client.txInfos))
	}
	info := decodeTXInfo(t, client.txInfos[0])
	if info.flags&TXStatACK == 0 {
		t.Fatal("expected TXStatACK in tx status")
	}
	wantRates := []TXRate{{Idx: 0, Count: 1}, {Idx: -1, Count: -1}}
	if diff := cmp.Diff(wantRates, info.rates); diff != "" {
		t.Fatal(diff)
	}
	if info.signal != 50+NoiseLevel {
		t.Fatalf("expected signal %d, got %d", 50+NoiseLevel, info.signal)
	}

	// the frame has left its queue and the scheduler
	if got := len(sta0.queues[ACBE].frames); got != 0 {
		t.Fatalf("expected empty queue, got %d frames", got)
	}
	if frame.job.Pending() {
		t.Fatal("expected delivery job to be done")
	}
}

func TestDeterministicLossViaErrorProb(t *testing.T) {
	// an error probability of 1.0 makes every attempt fail with a
	// single random draw for the whole walk
	cfg := linksConfig(2)
	cfg.Ifaces.ErrorProbs = [][]float64{
		{0, 1.0},
		{1.0, 0},
	}
	rng := &seqRNG{}
	engine := newTestEngine(t, cfg, rng)
	client := &recordClient{name: "test"}
	engine.AddClient(client)

	payload := dataFrame(mac(0), mac(1), 100)
	submit(engine, client, payload, []TXRate{{Idx: 0, Count: 4}, {Idx: -1, Count: -1}})

	sta0 := engine.registry.LookupMAC(mac(0))
	frame := sta0.queues[ACBE].frames[0]
	if frame.Flags&TXStatACK != 0 {
		t.Fatal("expected frame not to be acked")
	}
	// four attempts with exponentially growing backoff from the
	// second attempt on
	if frame.job.Start != 1505 {
		t.Fatalf("expected delivery at 1505 usec, got %d", frame.job.Start)
	}
	if rng.calls != 1 {
		t.Fatalf("expected a single random draw, got %d", rng.calls)
	}

	runAll(engine)

	if len(client.frames) != 0 {
		t.Fatalf("expected no delivery, got %d frames", len(client.frames))
	}
	if len(client.txInfos) != 1 {
		t.Fatalf("expected one tx status, got %d", len(client.txInfos))
	}
	info := decodeTXInfo(t, client.txInfos[0])
	if info.flags&TXStatACK != 0 {
		t.Fatal("unexpected TXStatACK")
	}
	wantRates := []TXRate{{Idx: 0, Count: 4}, {Idx: -1, Count: -1}}
	if diff := cmp.Diff(wantRates, info.rates); diff != "" {
		t.Fatal(diff)
	}
}

func TestMulticastFanOut(t *testing.T) {
	cfg := linksConfig(3, []int{0, 1, 40}, []int{0, 2, 40})
	engine := newTestEngine(t, cfg, &seqRNG{})
	client := &recordClient{name: "test"}
	engine.AddClient(client)

	payload := dataFrame(mac(0), broadcastAddr, 100)
	rates := []TXRate{{Idx: 0, Count: 1}, {Idx: -1, Count: -1}}
	submit(engine, client, payload, rates)
	runAll(engine)

	if len(client.frames) != 2 {
		t.Fatalf("expected two copies, got %d", len(client.frames))
	}
	receivers := map[[6]byte]int32{}
	for _, msg := range client.frames {
		delivered := decodeFrame(t, msg)
		receivers[delivered.receiver] = delivered.signal
	}
	for _, last := range []byte{1, 2} {
		signal, ok := receivers[mac(last)]
		if !ok {
			t.Fatalf("station %d received nothing", last)
		}
		if signal != 40+NoiseLevel {
			t.Fatalf("station %d: expected signal %d, got %d", last, 40+NoiseLevel, signal)
		}
	}

	if len(client.txInfos) != 1 {
		t.Fatalf("expected one tx status, got %d", len(client.txInfos))
	}
	info := decodeTXInfo(t, client.txInfos[0])
	if info.flags&TXStatACK == 0 {
		t.Fatal("no-ack frames count as acked for delivery")
	}
	if diff := cmp.Diff(rates, info.rates); diff != "" {
		t.Fatal(diff)
	}
}

func TestManagementFrameNeverRetries(t *testing.T) {
	// management frames are no-ack: one attempt regardless of the
	// link quality and of the retry budget
	cfg := linksConfig(2)
	cfg.Ifaces.ErrorProbs = [][]float64{
		{0, 1.0},
		{1.0, 0},
	}
	engine := newTestEngine(t, cfg, &seqRNG{})
	client := &recordClient{name: "test"}

	payload := actionFrame(mac(0), mac(1), 9, 9)
	submit(engine, client, payload, []TXRate{{Idx: 0, Count: 4}, {Idx: -1, Count: -1}})

	sta0 := engine.registry.LookupMAC(mac(0))
	frame := sta0.queues[ACVO].frames[0]
	if frame.Flags&TXStatACK == 0 {
		t.Fatal("expected no-ack frame to count as acked")
	}
	// a single DIFS plus the frame airtime: no backoff, no ACK wait
	want := uint64(difs + pktDuration(len(payload), 60))
	if frame.job.Start != want {
		t.Fatalf("expected delivery at %d usec, got %d", want, frame.job.Start)
	}
}

func TestClientDisconnectCleanup(t *testing.T) {
	cfg := linksConfig(2, []int{0, 1, 50})
	engine := newTestEngine(t, cfg, &seqRNG{})
	client := &recordClient{name: "test"}
	engine.AddClient(client)

	for i := 0; i < 10; i++ {
		payload := dataFrame(mac(0), mac(1), 100)
		submit(engine, client, payload, []TXRate{{Idx: 0, Count: 1}})
	}
	sta0 := engine.registry.LookupMAC(mac(0))
	if got := len(sta0.queues[ACBE].frames); got != 10 {
		t.Fatalf("expected 10 queued frames, got %d", got)
	}
	if sta0.client != client {
		t.Fatal("expected station to be bound to the client")
	}

	engine.RemoveClient(client)

	if got := len(sta0.queues[ACBE].frames); got != 0 {
		t.Fatalf("expected empty queue after disconnect, got %d", got)
	}
	if job := engine.sched.Peek(); job != nil {
		t.Fatalf("expected no pending jobs, found %q", job.Name)
	}
	if sta0.client != nil {
		t.Fatal("expected station to be unbound")
	}

	runAll(engine)
	if len(client.txInfos) != 0 || len(client.frames) != 0 {
		t.Fatal("expected no traffic after disconnect")
	}
}

func TestQueueTailDominance(t *testing.T) {
	// two back-to-back frames from the same station and AC: the
	// second delivery happens at least one send time after the first
	cfg := linksConfig(2, []int{0, 1, 50})
	engine := newTestEngine(t, cfg, &seqRNG{})
	client := &recordClient{name: "test"}

	for i := 0; i < 2; i++ {
		payload := dataFrame(mac(0), mac(1), 100)
		submit(engine, client, payload, []TXRate{{Idx: 0, Count: 1}})
	}
	sta0 := engine.registry.LookupMAC(mac(0))
	queue := sta0.queues[ACBE].frames
	if len(queue) != 2 {
		t.Fatalf("expected two queued frames, got %d", len(queue))
	}
	gap := queue[1].job.Start - queue[0].job.Start
	if gap < uint64(queue[0].duration) {
		t.Fatalf("expected gap >= %d, got %d", queue[0].duration, gap)
	}
}

func TestHigherPriorityDelaysOtherStations(t *testing.T) {
	// a voice frame in flight from one station delays a best-effort
	// frame from another, because the medium is shared
	cfg := linksConfig(3, []int{0, 1, 50}, []int{2, 1, 50})
	engine := newTestEngine(t, cfg, &seqRNG{})
	client := &recordClient{name: "test"}

	voice := qosDataFrame(mac(0), mac(1), 6, 100)
	submit(engine, client, voice, []TXRate{{Idx: 0, Count: 1}})
	sta0 := engine.registry.LookupMAC(mac(0))
	voiceStart := sta0.queues[ACVO].frames[0].job.Start

	best := dataFrame(mac(2), mac(1), 100)
	submit(engine, client, best, []TXRate{{Idx: 0, Count: 1}})
	sta2 := engine.registry.LookupMAC(mac(2))
	bestFrame := sta2.queues[ACBE].frames[0]

	if bestFrame.job.Start <= voiceStart {
		t.Fatalf("expected best-effort start after %d, got %d",
			voiceStart, bestFrame.job.Start)
	}
}

func TestUnknownSenderDropped(t *testing.T) {
	cfg := linksConfig(2, []int{0, 1, 50})
	engine := newTestEngine(t, cfg, &seqRNG{})
	client := &recordClient{name: "test"}

	payload := dataFrame(mac(9), mac(1), 100)
	submit(engine, client, payload, []TXRate{{Idx: 0, Count: 1}})

	if job := engine.sched.Peek(); job != nil {
		t.Fatal("expected nothing scheduled for an unknown sender")
	}
}

func TestShortFrameDropped(t *testing.T) {
	cfg := linksConfig(2, []int{0, 1, 50})
	engine := newTestEngine(t, cfg, &seqRNG{})
	client := &recordClient{name: "test"}

	engine.handleTXFrame(client, &TXFrame{Payload: make([]byte, 15)})

	if job := engine.sched.Peek(); job != nil {
		t.Fatal("expected nothing scheduled for a short frame")
	}
}

func TestHardwareAddressRebinding(t *testing.T) {
	cfg := linksConfig(2, []int{0, 1, 50})
	engine := newTestEngine(t, cfg, &seqRNG{})
	client := &recordClient{name: "test"}
	engine.AddClient(client)

	hwaddr := [6]byte{0x42, 0, 0, 0, 0, 0x99}
	payload := dataFrame(mac(0), mac(1), 100)
	engine.handleTXFrame(client, &TXFrame{
		Transmitter: hwaddr,
		Payload:     payload,
		Rates:       []TXRate{{Idx: 0, Count: 1}},
		Freq:        DefaultFreq,
	})
	runAll(engine)

	sta0 := engine.registry.LookupMAC(mac(0))
	if sta0.HWAddr != hwaddr {
		t.Fatal("expected hardware address to be rebound on first transmit")
	}
	info := decodeTXInfo(t, client.txInfos[0])
	if info.transmitter != hwaddr {
		t.Fatal("expected tx status to carry the hardware address")
	}
}

func TestBoundClientReceivesInsteadOfBroadcast(t *testing.T) {
	cfg := linksConfig(2, []int{0, 1, 50})
	engine := newTestEngine(t, cfg, &seqRNG{})
	sender := &recordClient{name: "sender"}
	receiver := &recordClient{name: "receiver"}
	engine.AddClient(sender)
	engine.AddClient(receiver)

	// bind station 1 to its own client by transmitting once
	submit(engine, receiver, dataFrame(mac(1), mac(0), 100),
		[]TXRate{{Idx: 0, Count: 1}})
	runAll(engine)
	sender.frames, receiver.frames = nil, nil

	submit(engine, sender, dataFrame(mac(0), mac(1), 100),
		[]TXRate{{Idx: 0, Count: 1}})
	runAll(engine)

	if len(receiver.frames) != 1 {
		t.Fatalf("expected the bound client to receive, got %d", len(receiver.frames))
	}
	if len(sender.frames) != 0 {
		t.Fatal("expected no broadcast copy for a bound station")
	}
}

func TestSetLinkSNRSymmetric(t *testing.T) {
	cfg := linksConfig(2)
	engine := newTestEngine(t, cfg, &seqRNG{})

	engine.SetLinkSNR(0, 1, 7)
	sta0 := engine.registry.LookupMAC(mac(0))
	sta1 := engine.registry.LookupMAC(mac(1))
	if got := engine.matrices.linkSNR(sta0, sta1); got != 7 {
		t.Fatalf("expected 7, got %d", got)
	}
	if got := engine.matrices.linkSNR(sta1, sta0); got != 7 {
		t.Fatalf("expected 7 on the mirror link, got %d", got)
	}
}
