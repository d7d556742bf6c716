package wmedium

//
// Client multiplexing
//

// Client is a connected consumer of medium events: the kernel radio
// driver, a virtio-backed device, or an API-socket peer. A station is
// bound to at most one client at a time; frames carry a non-owning
// back-reference to the client that submitted them.
type Client interface {
	// Name labels the client in log messages.
	Name() string

	// Send delivers a medium event to the client. Egress is best
	// effort; errors are logged by the engine and not retried.
	Send(msg *HWSimMsg) error
}

// AddClient joins a client to the broadcast set. Frames whose
// destination station has no bound client are published to every
// client in the set. It reports false when the client is already in
// the set. Runs on the engine goroutine.
func (e *Engine) AddClient(client Client) bool {
	for _, cur := range e.clients {
		if cur == client {
			return false
		}
	}
	e.clients = append(e.clients, client)
	return true
}

// DropClient removes a client from the broadcast set without reaping
// its frames, which is what an API peer's unregister asks for. It
// reports false when the client is not in the set.
func (e *Engine) DropClient(client Client) bool {
	for idx, cur := range e.clients {
		if cur == client {
			e.clients = append(e.clients[:idx], e.clients[idx+1:]...)
			return true
		}
	}
	return false
}

// RemoveClient disconnects a client: stations bound to it are
// unbound, every frame it originated leaves its queue and the
// scheduler, and the client leaves the broadcast set. Runs on the
// engine goroutine.
func (e *Engine) RemoveClient(client Client) {
	e.registry.ForEach(func(station *Station) {
		if station.client == client {
			station.client = nil
		}
	})

	e.registry.ForEach(func(station *Station) {
		for ac := 0; ac < NumACs; ac++ {
			queue := &station.queues[ac]
			kept := queue.frames[:0]
			for _, frame := range queue.frames {
				if frame.src == client {
					e.sched.Remove(&frame.job)
					continue
				}
				kept = append(kept, frame)
			}
			queue.frames = kept
		}
	})

	e.DropClient(client)
}
