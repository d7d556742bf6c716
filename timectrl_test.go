package wmedium

import (
	"encoding/binary"
	"io"
	"net"
	"path/filepath"
	"testing"
)

func TestTimeControlRequestGrant(t *testing.T) {
	path := filepath.Join(t.TempDir(), "time.sock")
	listener, err := net.Listen("unix", path)
	if err != nil {
		t.Fatal(err)
	}
	defer listener.Close()

	// a controller that grants exactly what was asked for
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		var record [timeCtrlRecordLen]byte
		for {
			if _, err := io.ReadFull(conn, record[:]); err != nil {
				return
			}
			if binary.LittleEndian.Uint32(record[0:4]) != timeCtrlRequest {
				continue
			}
			until := binary.LittleEndian.Uint64(record[4:12])
			binary.LittleEndian.PutUint32(record[0:4], timeCtrlGrant)
			binary.LittleEndian.PutUint64(record[4:12], until)
			if _, err := conn.Write(record[:]); err != nil {
				return
			}
		}
	}()

	ctrl, err := DialTimeControl(path)
	if err != nil {
		t.Fatal(err)
	}
	defer ctrl.Close()

	granted, err := ctrl.Request(12345)
	if err != nil {
		t.Fatal(err)
	}
	if granted != 12345 {
		t.Fatalf("expected grant 12345, got %d", granted)
	}
}
