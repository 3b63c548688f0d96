// Package printer delivers receipt scripts to a thermal printer, one job at
// a time.
package printer

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"
)

// Printer types accepted by NewTransportFromConfig.
const (
	TypeUSB     = "usb"
	TypeNetwork = "network"
	TypeNone    = "none"
)

// Transport sends a rendered script to the device. The order id is only a
// tag for logs; no acknowledgement of physical completion is expected.
type Transport interface {
	Send(ctx context.Context, script []byte, orderID string) error
	// IsConnected returns true if the device is reachable.
	IsConnected() bool
}

// --- USB printer (writes to device file, e.g. /dev/usb/lp0) ---

type usbTransport struct {
	path string
}

func NewUSBTransport(devicePath string) Transport {
	return &usbTransport{path: devicePath}
}

func (p *usbTransport) Send(ctx context.Context, script []byte, orderID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.OpenFile(p.path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("printer: open %s for order %s: %w", p.path, orderID, err)
	}
	defer f.Close()

	if _, err := f.Write(script); err != nil {
		return fmt.Errorf("printer: write %s for order %s: %w", p.path, orderID, err)
	}
	return nil
}

func (p *usbTransport) IsConnected() bool {
	_, err := os.Stat(p.path)
	return err == nil
}

// --- Network printer (raw TCP, e.g. 192.168.1.100:9100) ---

type networkTransport struct {
	address      string
	dialTimeout  time.Duration
	writeTimeout time.Duration
}

// NewNetworkTransport connects to address per job. A missing port defaults
// to 9100.
func NewNetworkTransport(address string) Transport {
	if _, _, err := net.SplitHostPort(address); err != nil {
		address = net.JoinHostPort(address, "9100")
	}
	return &networkTransport{
		address:      address,
		dialTimeout:  5 * time.Second,
		writeTimeout: 10 * time.Second,
	}
}

func (p *networkTransport) Send(ctx context.Context, script []byte, orderID string) error {
	d := net.Dialer{Timeout: p.dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", p.address)
	if err != nil {
		return fmt.Errorf("printer: connect %s for order %s: %w", p.address, orderID, err)
	}
	defer conn.Close()

	_ = conn.SetWriteDeadline(time.Now().Add(p.writeTimeout))

	if _, err := conn.Write(script); err != nil {
		return fmt.Errorf("printer: write %s for order %s: %w", p.address, orderID, err)
	}
	return nil
}

func (p *networkTransport) IsConnected() bool {
	conn, err := net.DialTimeout("tcp", p.address, 2*time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// --- Null printer (no hardware configured) ---

type nullTransport struct{}

func NewNullTransport() Transport {
	return nullTransport{}
}

func (nullTransport) Send(ctx context.Context, script []byte, orderID string) error {
	return nil
}

func (nullTransport) IsConnected() bool {
	return false
}

// NewTransportFromConfig creates the Transport for printerType: "usb",
// "network" or "none".
func NewTransportFromConfig(printerType, usbPath, address string) (Transport, error) {
	switch printerType {
	case TypeUSB:
		if usbPath == "" {
			return nil, fmt.Errorf("printer: USB path is required for USB printer type")
		}
		return NewUSBTransport(usbPath), nil
	case TypeNetwork:
		if address == "" {
			return nil, fmt.Errorf("printer: address is required for network printer type")
		}
		return NewNetworkTransport(address), nil
	case TypeNone, "":
		return NewNullTransport(), nil
	default:
		return nil, fmt.Errorf("printer: unknown printer type %q (use usb, network, or none)", printerType)
	}
}
