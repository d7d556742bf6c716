package wmedium

//
// PCAP capture of frames reaching the channel
//

import (
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// captureSnapLen is the snapshot length written to the pcap header.
const captureSnapLen = 65536

// Capture writes every frame that reaches the channel to a PCAP file
// with the 802.11 link type. The zero value is invalid; use
// [NewCapture] to construct. The engine records frames at delivery
// time on its own goroutine, so Capture needs no locking.
type Capture struct {
	// filep is the open pcap file.
	filep *os.File

	// writer emits pcap records.
	writer *pcapgo.Writer

	// epoch anchors virtual timestamps to a wall-clock origin so
	// the file is readable by standard tools.
	epoch time.Time
}

// NewCapture creates a pcap file at the given path.
func NewCapture(path string) (*Capture, error) {
	filep, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	writer := pcapgo.NewWriter(filep)
	if err := writer.WriteFileHeader(captureSnapLen, layers.LinkTypeIEEE80211); err != nil {
		filep.Close()
		return nil, err
	}
	return &Capture{
		filep:  filep,
		writer: writer,
		epoch:  time.Now(),
	}, nil
}

// Record appends one frame at the given virtual time in microseconds.
func (c *Capture) Record(now uint64, payload []byte) error {
	info := gopacket.CaptureInfo{
		Timestamp:     c.epoch.Add(time.Duration(now) * time.Microsecond),
		CaptureLength: len(payload),
		Length:        len(payload),
	}
	return c.writer.WritePacket(info, payload)
}

// Close closes the pcap file.
func (c *Capture) Close() error {
	return c.filep.Close()
}
