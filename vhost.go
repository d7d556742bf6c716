package wmedium

//
// Virtio-backed stream clients
//
// The virtio device plumbing (vhost-user negotiation, memory table,
// virtqueue rings) is an external collaborator; the medium consumes
// its data path only. A stream client carries concatenated
// netlink-framed messages: submissions arrive on the transmit
// direction and deliveries leave on the receive direction, exactly
// what the device backend moves through its TX and RX queues.
//

import (
	"net"
	"sync"

	"golang.org/x/sys/unix"
)

// VhostServer accepts stream clients on a unix listener. The zero
// value is invalid; use [ListenVhost] to construct.
type VhostServer struct {
	// engine is the medium served to the clients.
	engine *Engine

	// logger is the logger to use.
	logger Logger

	// familyID frames outgoing netlink messages.
	familyID uint16

	// listener accepts device connections.
	listener net.Listener
}

// ListenVhost creates the device socket at the given path, replacing
// any stale socket file left behind by an earlier run.
func ListenVhost(engine *Engine, logger Logger, path string, familyID uint16) (*VhostServer, error) {
	_ = unix.Unlink(path)
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	return &VhostServer{
		engine:   engine,
		logger:   logger,
		familyID: familyID,
		listener: listener,
	}, nil
}

// Serve accepts device connections until the listener closes. Run it
// on its own goroutine.
func (srv *VhostServer) Serve() error {
	for {
		conn, err := srv.listener.Accept()
		if err != nil {
			return err
		}
		client := &streamClient{
			conn:   conn,
			server: srv,
		}
		// a connected device joins the broadcast set immediately
		srv.engine.Do(func() {
			srv.engine.AddClient(client)
		})
		go client.serve()
	}
}

// Close closes the listener.
func (srv *VhostServer) Close() error {
	return srv.listener.Close()
}

// streamClient is one connected device.
type streamClient struct {
	// conn is the connection to the device backend.
	conn net.Conn

	// server is the owning listener.
	server *VhostServer

	// mu serializes egress writes.
	mu sync.Mutex
}

// Name implements Client.
func (sc *streamClient) Name() string {
	return "vhost:" + sc.conn.RemoteAddr().String()
}

// Send implements Client.
func (sc *streamClient) Send(msg *HWSimMsg) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	_, err := sc.conn.Write(msg.MarshalStream(sc.server.familyID))
	return err
}

// serve reads netlink-framed submissions until the device goes away,
// then reaps the client's frames.
func (sc *streamClient) serve() {
	defer func() {
		sc.conn.Close()
		sc.server.engine.Do(func() {
			sc.server.engine.RemoveClient(sc)
		})
	}()

	buf := make([]byte, 0, 4096)
	chunk := make([]byte, 4096)
	for {
		count, err := sc.conn.Read(chunk)
		if err != nil {
			return
		}
		buf = append(buf, chunk[:count]...)

		for {
			msg, consumed, err := ParseStream(buf)
			if err != nil {
				// incomplete message; wait for more bytes
				break
			}
			buf = buf[consumed:]
			if msg.Cmd != HWSimCmdFrame {
				continue
			}
			tx, err := ParseTXFrame(msg.Attrs)
			if err != nil {
				sc.server.logger.Warnf("wmedium: stream frame: %s", err.Error())
				continue
			}
			if tx == nil {
				continue
			}
			sc.server.engine.SubmitTXFrame(sc, tx)
		}
	}
}

var _ Client = &streamClient{}
