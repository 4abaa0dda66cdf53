// Package gps manages the serial session with the MIC2's u-blox receiver.
// Opening a Device configures the receiver for PUBX output and starts a
// background goroutine that folds incoming sentences into an nmea.Info
// snapshot.
package gps

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	serial "go.bug.st/serial"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/intrepidcs/mic2-go/nmea"
)

// DefaultBaudRate is what the u-blox receivers in the MIC2 run at.
const DefaultBaudRate = 115200

// readTimeout keeps reads short so close requests are noticed promptly.
const readTimeout = 100 * time.Millisecond

// maxPendingBytes caps the unframed accumulation buffer; a receiver
// spewing garbage must not grow it without bound.
const maxPendingBytes = 4096

// Options configure the serial session.
type Options struct {
	BaudRate int
}

// OpenPort opens the receiver's serial port. Overridable so a fake
// transport can stand in during tests.
var OpenPort = func(portName string, options Options) (io.ReadWriteCloser, error) {
	baud := options.BaudRate
	if baud == 0 {
		baud = DefaultBaudRate
	}
	port, err := serial.Open(portName, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		return nil, multierr.Combine(err, port.Close())
	}
	return port, nil
}

// Device is a session with one receiver. The zero value is not usable; use
// NewDevice.
type Device struct {
	mu       sync.RWMutex
	logger   golog.Logger
	portName string
	options  Options

	isOpen                  bool
	port                    io.ReadWriteCloser
	info                    nmea.Info
	cancelCtx               context.Context
	cancelFunc              func()
	activeBackgroundWorkers sync.WaitGroup
}

// NewDevice prepares a session for the receiver behind the given port. No
// hardware is touched until Open.
func NewDevice(portName string, options Options, logger golog.Logger) *Device {
	return &Device{
		logger:   logger,
		portName: portName,
		options:  options,
	}
}

// Open claims the port, configures the receiver and starts the reader.
// Opening an open device is a no-op.
func (d *Device) Open(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.isOpen {
		return nil
	}
	port, err := OpenPort(d.portName, d.options)
	if err != nil {
		return errors.Wrapf(err, "opening gps port %q", d.portName)
	}
	if err := configureReceiver(port); err != nil {
		return multierr.Combine(errors.Wrap(err, "configuring receiver"), port.Close())
	}

	cancelCtx, cancelFunc := context.WithCancel(context.Background())
	d.port = port
	d.cancelCtx = cancelCtx
	d.cancelFunc = cancelFunc
	d.info = nmea.Info{}
	d.isOpen = true

	d.activeBackgroundWorkers.Add(1)
	utils.PanicCapturingGo(func() {
		defer d.activeBackgroundWorkers.Done()
		d.readLoop(cancelCtx, port)
	})
	return nil
}

func (d *Device) readLoop(ctx context.Context, port io.Reader) {
	buf := make([]byte, 1024)
	var pending []byte
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := port.Read(buf)
		if err != nil {
			select {
			case <-ctx.Done():
			default:
				d.logger.Errorw("gps read failed", "error", err)
			}
			return
		}
		if n == 0 {
			// Read timeout; check for shutdown and go again.
			continue
		}
		pending = append(pending, buf[:n]...)
		for {
			idx := bytes.IndexByte(pending, '\n')
			if idx < 0 {
				break
			}
			line := strings.TrimRight(string(pending[:idx]), "\r")
			pending = pending[idx+1:]
			// The receiver acks UBX config in binary; only sentences
			// are interesting.
			if line == "" || line[0] != '$' {
				continue
			}
			d.mu.Lock()
			err := d.info.Update(line)
			d.mu.Unlock()
			if err != nil {
				d.logger.Debugw("discarding sentence", "sentence", line, "error", err)
			}
		}
		if len(pending) > maxPendingBytes {
			pending = pending[:0]
		}
	}
}

// Close stops the reader, waits for it to exit and releases the port.
// Closing a closed device is a no-op; a reader that already died on a
// transport error is joined without issue.
func (d *Device) Close() error {
	d.mu.Lock()
	if !d.isOpen {
		d.mu.Unlock()
		return nil
	}
	cancelFunc := d.cancelFunc
	port := d.port
	d.isOpen = false
	d.port = nil
	d.cancelCtx = nil
	d.cancelFunc = nil
	d.mu.Unlock()

	cancelFunc()
	d.activeBackgroundWorkers.Wait()
	if err := port.Close(); err != nil {
		return errors.Wrap(err, "closing gps port")
	}
	return nil
}

// IsOpen reports whether a session is active.
func (d *Device) IsOpen() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.isOpen
}

var errNotOpen = errors.New("gps device is not open")

// HasLock reports whether the receiver currently claims a position fix.
func (d *Device) HasLock() (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.isOpen {
		return false, errNotOpen
	}
	return d.info.HasFix(), nil
}

// Info returns a copy of the current snapshot.
func (d *Device) Info() (nmea.Info, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.isOpen {
		return nmea.Info{}, errNotOpen
	}
	return d.info, nil
}
