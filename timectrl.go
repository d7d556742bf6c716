package wmedium

//
// External time controller
//
// When the medium runs under an external scheduler, virtual time
// only advances inside grants handed out over the time-control
// socket. The exchange below is the contract this client implements:
// fixed-size little-endian records of an operation code and a
// microsecond timestamp.
//

import (
	"encoding/binary"
	"io"
	"net"
)

// time-control operations.
const (
	timeCtrlRequest = 1
	timeCtrlGrant   = 2
)

// timeCtrlRecordLen is the wire size of one exchange record.
const timeCtrlRecordLen = 12

// TimeControl is a connection to an external time controller. The
// zero value is invalid; use [DialTimeControl] to construct.
type TimeControl struct {
	conn net.Conn
}

// DialTimeControl connects to a time-control socket.
func DialTimeControl(path string) (*TimeControl, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, err
	}
	return &TimeControl{conn: conn}, nil
}

// Request asks for permission to run until the given virtual time and
// blocks until the controller grants a time, which may be earlier.
func (tc *TimeControl) Request(until uint64) (uint64, error) {
	var record [timeCtrlRecordLen]byte
	binary.LittleEndian.PutUint32(record[0:4], timeCtrlRequest)
	binary.LittleEndian.PutUint64(record[4:12], until)
	if _, err := tc.conn.Write(record[:]); err != nil {
		return 0, err
	}

	for {
		if _, err := io.ReadFull(tc.conn, record[:]); err != nil {
			return 0, err
		}
		if binary.LittleEndian.Uint32(record[0:4]) == timeCtrlGrant {
			return binary.LittleEndian.Uint64(record[4:12]), nil
		}
	}
}

// Close closes the connection to the controller.
func (tc *TimeControl) Close() error {
	return tc.conn.Close()
}
