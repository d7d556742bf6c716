// Package wmedium simulates a shared wireless medium for virtualized
// 802.11 radios.
//
// Radios hand their outgoing frames to the medium through a [Client]
// transport (the kernel's generic-netlink hwsim interface, an API
// socket, or a virtio-style stream). For each frame the [Engine]
// computes the signal over the sender-receiver link, walks the frame's
// multi-rate retry table to decide whether the frame is acknowledged
// and how much airtime it consumes, and schedules delivery on a
// virtual-time [Scheduler]. When the delivery job fires, the frame
// fans out to every eligible receiver and a transmit-status report
// goes back to the originating client.
//
// Link quality comes from one of three sources chosen at configuration
// time: an explicit SNR link list, a full error-probability matrix, or
// a log-distance path-loss model computed from station positions. See
// [LoadConfig] for the configuration file format.
//
// The engine is single-threaded: transports post operations to the
// engine goroutine and all medium state is mutated there. Time is
// either paced against the wall clock or fully virtual, optionally
// driven by an external time controller (see [TimeControl]).
package wmedium
