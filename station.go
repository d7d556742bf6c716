package wmedium

//
// Station registry and EDCA queues
//

import "net"

// Access-category numbers, ordered such that a lower number means a
// higher priority. This ordering is what lets the delivery scheduler
// scan queues [0..ac] to find all higher-or-equal priority traffic.
const (
	ACVO = iota
	ACVI
	ACBE
	ACBK

	// NumACs is the number of EDCA access categories.
	NumACs
)

// ieee8021dToAC maps IEEE 802.1D priorities to access categories.
var ieee8021dToAC = [8]int{
	ACBE, // 0
	ACBK, // 1
	ACBK, // 2
	ACBE, // 3
	ACVI, // 4
	ACVI, // 5
	ACVO, // 6
	ACVO, // 7
}

// wqueue is a per-station, per-access-category transmit queue with
// its contention-window bounds.
type wqueue struct {
	// frames are the queued frames, ordered by non-decreasing
	// delivery start time.
	frames []*Frame

	// cwMin is the initial contention window.
	cwMin int

	// cwMax caps contention-window expansion.
	cwMax int
}

// remove deletes the given frame from the queue, if present.
func (q *wqueue) remove(frame *Frame) {
	for idx, cur := range q.frames {
		if cur == frame {
			q.frames = append(q.frames[:idx], q.frames[idx+1:]...)
			return
		}
	}
}

// tail returns the last queued frame, or nil when the queue is empty.
func (q *wqueue) tail() *Frame {
	if len(q.frames) == 0 {
		return nil
	}
	return q.frames[len(q.frames)-1]
}

// Station is a simulated radio on the medium. Stations are created at
// configuration load; Index is immutable and equals the station's
// position in the registry at creation time.
type Station struct {
	// Index identifies the station in the link matrices.
	Index int

	// Addr is the virtual interface MAC address.
	Addr [6]byte

	// HWAddr is the hardware address of the backing radio; it is
	// rebound when the owning client first transmits.
	HWAddr [6]byte

	// X and Y are the station position in meters.
	X, Y float64

	// TXPower is the transmit power in dBm.
	TXPower int

	// client is the client bound to this station, or nil. Non-owning
	// back-reference cleared when the client goes away.
	client Client

	// queues are the four EDCA transmit queues, indexed by AC.
	queues [NumACs]wqueue
}

// initQueues sets up the four EDCA queues with their standard
// contention-window bounds.
func (sta *Station) initQueues() {
	sta.queues[ACBK] = wqueue{cwMin: 15, cwMax: 1023}
	sta.queues[ACBE] = wqueue{cwMin: 15, cwMax: 1023}
	sta.queues[ACVI] = wqueue{cwMin: 7, cwMax: 15}
	sta.queues[ACVO] = wqueue{cwMin: 3, cwMax: 7}
}

// Registry owns the ordered set of stations. The zero value is an
// empty registry ready for use.
type Registry struct {
	stations []*Station
}

// Add appends a station with the given MAC address. The new station's
// index is its append position; the hardware address starts out equal
// to the interface address.
func (r *Registry) Add(addr [6]byte) *Station {
	sta := &Station{
		Index:   len(r.stations),
		Addr:    addr,
		HWAddr:  addr,
		TXPower: SNRDefault,
	}
	sta.initQueues()
	r.stations = append(r.stations, sta)
	return sta
}

// LookupMAC returns the station with the given interface address, or
// nil if there is none.
func (r *Registry) LookupMAC(addr [6]byte) *Station {
	for _, sta := range r.stations {
		if sta.Addr == addr {
			return sta
		}
	}
	return nil
}

// Remove deletes a station from the registry. Indices of the
// remaining stations are not recomputed and the link matrices are
// not resized, so removal is only safe while no frame or matrix
// consumer references the index.
func (r *Registry) Remove(sta *Station) {
	for idx, cur := range r.stations {
		if cur == sta {
			r.stations = append(r.stations[:idx], r.stations[idx+1:]...)
			return
		}
	}
}

// Len returns the number of registered stations.
func (r *Registry) Len() int {
	return len(r.stations)
}

// ForEach calls fn for every station in index order.
func (r *Registry) ForEach(fn func(sta *Station)) {
	for _, sta := range r.stations {
		fn(sta)
	}
}

// parseMAC parses a "xx:xx:xx:xx:xx:xx" string into a MAC address.
func parseMAC(text string) ([6]byte, error) {
	var addr [6]byte
	hw, err := net.ParseMAC(text)
	if err != nil {
		return addr, err
	}
	copy(addr[:], hw)
	return addr, nil
}

// macString formats a MAC address for log messages.
func macString(addr [6]byte) string {
	return net.HardwareAddr(addr[:]).String()
}
