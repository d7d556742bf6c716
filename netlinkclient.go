package wmedium

//
// Kernel client: generic netlink to the radio driver
//

import (
	"fmt"

	"github.com/mdlayher/genetlink"
	"github.com/mdlayher/netlink"
)

// KernelClient is the singleton client talking generic netlink to the
// hwsim radio driver. The zero value is invalid; use [DialKernel].
type KernelClient struct {
	// conn is the generic netlink connection.
	conn *genetlink.Conn

	// family is the resolved hwsim family.
	family genetlink.Family

	// engine is the medium this client feeds.
	engine *Engine

	// logger is the logger to use.
	logger Logger
}

// DialKernel connects to the hwsim generic netlink family and
// registers with the driver so the medium starts receiving frames.
func DialKernel(engine *Engine, logger Logger) (*KernelClient, error) {
	conn, err := genetlink.Dial(nil)
	if err != nil {
		return nil, fmt.Errorf("wmedium: netlink dial: %w", err)
	}

	family, err := conn.GetFamily(HWSimFamilyName)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("wmedium: family %s not registered: %w", HWSimFamilyName, err)
	}

	client := &KernelClient{
		conn:   conn,
		family: family,
		engine: engine,
		logger: logger,
	}

	if err := client.register(); err != nil {
		conn.Close()
		return nil, err
	}
	logger.Info("wmedium: registered with the radio driver")

	return client, nil
}

// FamilyID returns the resolved generic netlink family id, which
// stream transports reuse when framing messages.
func (kc *KernelClient) FamilyID() uint16 {
	return kc.family.ID
}

// register subscribes this socket to the driver's frame stream.
func (kc *KernelClient) register() error {
	req := genetlink.Message{
		Header: genetlink.Header{
			Command: HWSimCmdRegister,
			Version: HWSimVersion,
		},
	}
	_, err := kc.conn.Send(req, kc.family.ID, netlink.Request)
	if err != nil {
		return fmt.Errorf("wmedium: register: %w", err)
	}
	return nil
}

// Serve receives driver messages until the connection closes and
// feeds frame submissions to the engine. Run it on its own goroutine.
func (kc *KernelClient) Serve() error {
	for {
		msgs, _, err := kc.conn.Receive()
		if err != nil {
			return err
		}
		for _, msg := range msgs {
			if msg.Header.Command != HWSimCmdFrame {
				continue
			}
			tx, err := ParseTXFrame(msg.Data)
			if err != nil {
				kc.logger.Warnf("wmedium: kernel frame: %s", err.Error())
				continue
			}
			if tx == nil {
				continue
			}
			kc.engine.SubmitTXFrame(kc, tx)
		}
	}
}

// Name implements Client.
func (kc *KernelClient) Name() string {
	return "netlink"
}

// Send implements Client.
func (kc *KernelClient) Send(msg *HWSimMsg) error {
	req := genetlink.Message{
		Header: genetlink.Header{
			Command: msg.Cmd,
			Version: HWSimVersion,
		},
		Data: msg.Attrs,
	}
	_, err := kc.conn.Send(req, kc.family.ID, netlink.Request)
	return err
}

// Close closes the netlink connection.
func (kc *KernelClient) Close() error {
	return kc.conn.Close()
}

var _ Client = &KernelClient{}
