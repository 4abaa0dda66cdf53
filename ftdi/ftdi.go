// Package ftdi exposes the MIC2's digital IO, an FT232R whose CBUS pins are
// wired to the buzzer, the push button and the GPS LED.
package ftdi

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
	ftdilib "github.com/ziutek/ftdi"
	"go.uber.org/multierr"
)

// The FT232R as it appears on the bus. MIC2 units program their serial
// number into the chip with an "MC" prefix.
const (
	VendorID  = 0x0403
	ProductID = 0x6001

	SerialPrefix = "MC"
)

// CBUS pin assignments.
const (
	PinBuzzer byte = 1 << 0
	PinButton byte = 1 << 1
	PinGPSLED byte = 1 << 2
)

// outputMask marks which CBUS pins are driven; the button stays an input.
const outputMask = PinBuzzer | PinGPSLED

// Channel is an exclusive claim on one device's CBUS pins.
type Channel interface {
	// SetOutputs drives the output pins to the given values. Bits outside
	// the output pins are ignored.
	SetOutputs(values byte) error
	// ReadPins returns the current level of all CBUS pins.
	ReadPins() (byte, error)
	Close() error
}

// OpenChannel claims the FT232R with the given serial number and puts it in
// CBUS bit-bang mode with all outputs low. Overridable so hardware can be
// faked in tests.
var OpenChannel = func(serial string) (Channel, error) {
	devs, err := ftdilib.FindAll(VendorID, ProductID)
	if err != nil {
		return nil, errors.Wrap(err, "enumerating ftdi devices")
	}
	var match *ftdilib.USBDev
	for _, dev := range devs {
		if match == nil && dev.Serial == serial {
			match = dev
			continue
		}
		dev.Close()
	}
	if match == nil {
		return nil, errors.Errorf("no ftdi device with serial %q", serial)
	}
	dev, err := ftdilib.OpenUSBDev(match, ftdilib.ChannelAny)
	if err != nil {
		return nil, errors.Wrapf(err, "opening ftdi device %q", serial)
	}
	ch := &cbusChannel{dev: dev}
	if err := ch.SetOutputs(0); err != nil {
		return nil, multierr.Combine(err, dev.Close())
	}
	return ch, nil
}

// FindSerials returns the serial numbers of all attached MIC2 FT232R chips,
// sorted. Overridable so enumeration can be faked in tests.
var FindSerials = func() ([]string, error) {
	devs, err := ftdilib.FindAll(VendorID, ProductID)
	if err != nil {
		return nil, errors.Wrap(err, "enumerating ftdi devices")
	}
	var serials []string
	for _, dev := range devs {
		if isUnitSerial(dev.Serial) {
			serials = append(serials, dev.Serial)
		}
		dev.Close()
	}
	sort.Strings(serials)
	return serials, nil
}

// isUnitSerial reports whether a serial number belongs to a MIC2; other
// FT232R boards on the bus carry different programming.
func isUnitSerial(serial string) bool {
	return strings.HasPrefix(serial, SerialPrefix)
}

type cbusChannel struct {
	dev *ftdilib.Device
}

// cbusMask packs the bitmode argument: directions in the upper nibble,
// values in the lower. Bits outside the output pins are dropped.
func cbusMask(values byte) byte {
	return outputMask<<4 | (values & outputMask)
}

func (c *cbusChannel) SetOutputs(values byte) error {
	if err := c.dev.SetBitmode(cbusMask(values), ftdilib.ModeCBUS); err != nil {
		return errors.Wrap(err, "setting cbus pins")
	}
	return nil
}

func (c *cbusChannel) ReadPins() (byte, error) {
	pins, err := c.dev.Pins()
	if err != nil {
		return 0, errors.Wrap(err, "reading cbus pins")
	}
	return pins, nil
}

func (c *cbusChannel) Close() error {
	return multierr.Combine(
		c.dev.SetBitmode(0, ftdilib.ModeReset),
		c.dev.Close(),
	)
}
