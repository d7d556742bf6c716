package wmedium

//
// API socket server
//

import (
	"io"
	"net"
	"sync"

	"github.com/josharian/native"
	"golang.org/x/sys/unix"
)

// API message types. Every request yields exactly one response header
// carrying [APIMsgAck] or [APIMsgInvalid] and no payload.
const (
	APIMsgInvalid = uint32(iota)
	APIMsgAck
	APIMsgRegister
	APIMsgUnregister
	APIMsgNetlink
)

// apiHdrLen is the wire size of the API message header: a type and a
// payload length, both native-endian u32.
const apiHdrLen = 8

// apiMaxDataLen caps the payload length a peer may announce.
const apiMaxDataLen = 1024 * 1024

// APIServer accepts API-socket clients on a unix listener. The zero
// value is invalid; use [ListenAPI] to construct.
type APIServer struct {
	// engine is the medium served to the clients.
	engine *Engine

	// logger is the logger to use.
	logger Logger

	// familyID frames outgoing netlink messages; zero when the
	// medium runs without the kernel transport.
	familyID uint16

	// listener accepts client connections.
	listener net.Listener
}

// ListenAPI creates an API socket at the given path, replacing any
// stale socket file left behind by an earlier run.
func ListenAPI(engine *Engine, logger Logger, path string, familyID uint16) (*APIServer, error) {
	_ = unix.Unlink(path)
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	return &APIServer{
		engine:   engine,
		logger:   logger,
		familyID: familyID,
		listener: listener,
	}, nil
}

// Serve accepts clients until the listener closes. Run it on its own
// goroutine.
func (srv *APIServer) Serve() error {
	for {
		conn, err := srv.listener.Accept()
		if err != nil {
			return err
		}
		client := &apiClient{
			conn:   conn,
			server: srv,
		}
		go client.serve()
	}
}

// Close closes the listener.
func (srv *APIServer) Close() error {
	return srv.listener.Close()
}

// apiClient is one API-socket connection.
type apiClient struct {
	// conn is the connection to the peer.
	conn net.Conn

	// server is the owning listener.
	server *APIServer

	// mu serializes writes: the engine goroutine delivers frames
	// while the connection goroutine writes request responses.
	mu sync.Mutex
}

// Name implements Client.
func (ac *apiClient) Name() string {
	return "api:" + ac.conn.RemoteAddr().String()
}

// Send implements Client: a frame or transmit status travels to the
// peer as a netlink-framed payload; the peer answers with an ACK
// message that the read loop consumes.
func (ac *apiClient) Send(msg *HWSimMsg) error {
	return ac.write(APIMsgNetlink, msg.MarshalStream(ac.server.familyID))
}

// write sends one header-plus-payload message.
func (ac *apiClient) write(msgType uint32, data []byte) error {
	var hdr [apiHdrLen]byte
	native.Endian.PutUint32(hdr[0:4], msgType)
	native.Endian.PutUint32(hdr[4:8], uint32(len(data)))

	ac.mu.Lock()
	defer ac.mu.Unlock()
	if _, err := ac.conn.Write(hdr[:]); err != nil {
		return err
	}
	if len(data) > 0 {
		if _, err := ac.conn.Write(data); err != nil {
			return err
		}
	}
	return nil
}

// serve handles requests until the peer misbehaves or goes away, then
// reaps the client's frames.
func (ac *apiClient) serve() {
	defer func() {
		ac.conn.Close()
		ac.server.engine.Do(func() {
			ac.server.engine.RemoveClient(ac)
		})
	}()

	var hdr [apiHdrLen]byte
	for {
		if _, err := io.ReadFull(ac.conn, hdr[:]); err != nil {
			return
		}
		msgType := native.Endian.Uint32(hdr[0:4])
		dataLen := native.Endian.Uint32(hdr[4:8])

		// safety valve
		if dataLen > apiMaxDataLen {
			return
		}
		data := make([]byte, dataLen)
		if _, err := io.ReadFull(ac.conn, data); err != nil {
			return
		}

		if msgType == APIMsgAck {
			// the peer acknowledging one of our deliveries
			continue
		}

		response := APIMsgAck
		switch msgType {
		case APIMsgRegister:
			ac.server.engine.Do(func() {
				if !ac.server.engine.AddClient(ac) {
					response = APIMsgInvalid
				}
			})
		case APIMsgUnregister:
			ac.server.engine.Do(func() {
				if !ac.server.engine.DropClient(ac) {
					response = APIMsgInvalid
				}
			})
		case APIMsgNetlink:
			if !ac.submitNetlink(data) {
				response = APIMsgInvalid
			}
		default:
			response = APIMsgInvalid
		}

		if err := ac.write(response, nil); err != nil {
			return
		}
	}
}

// submitNetlink decodes a netlink-framed payload and feeds any frame
// submission to the engine. It reports whether the payload was a
// well-formed netlink message.
func (ac *apiClient) submitNetlink(data []byte) bool {
	msg, _, err := ParseStream(data)
	if err != nil {
		return false
	}
	if msg.Cmd != HWSimCmdFrame {
		return true
	}
	tx, err := ParseTXFrame(msg.Attrs)
	if err != nil || tx == nil {
		return err == nil
	}
	ac.server.engine.Do(func() {
		ac.server.engine.handleTXFrame(ac, tx)
	})
	return true
}

var _ Client = &apiClient{}
