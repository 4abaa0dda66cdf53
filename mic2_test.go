package mic2

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/intrepidcs/mic2-go/audio"
	"github.com/intrepidcs/mic2-go/ftdi"
	"github.com/intrepidcs/mic2-go/gps"
	"github.com/intrepidcs/mic2-go/usb"
)

type fakeChannel struct {
	mu      sync.Mutex
	values  byte
	pins    byte
	sets    int
	closed  bool
	readErr error
}

func (c *fakeChannel) SetOutputs(values byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = values
	c.sets++
	return nil
}

func (c *fakeChannel) ReadPins() (byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return 0, c.readErr
	}
	return c.pins, nil
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func installEnumerationFakes(t *testing.T, serials []string, gpsPorts []usb.Description, captureNames []string) {
	t.Helper()
	prevFind := ftdi.FindSerials
	ftdi.FindSerials = func() ([]string, error) { return serials, nil }
	prevSearch := usb.SearchSerialDevices
	usb.SearchSerialDevices = func(include func(vendorID, productID int) bool) ([]usb.Description, error) {
		return gpsPorts, nil
	}
	prevList := audio.ListCaptureNames
	audio.ListCaptureNames = func() ([]string, error) { return captureNames, nil }
	t.Cleanup(func() {
		ftdi.FindSerials = prevFind
		usb.SearchSerialDevices = prevSearch
		audio.ListCaptureNames = prevList
	})
}

func TestFindNoDevices(t *testing.T) {
	installEnumerationFakes(t, nil, nil, nil)
	devices, err := Find(golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, devices, test.ShouldBeEmpty)
}

func TestFindFailure(t *testing.T) {
	prevFind := ftdi.FindSerials
	ftdi.FindSerials = func() ([]string, error) { return nil, errors.New("usb stack down") }
	t.Cleanup(func() { ftdi.FindSerials = prevFind })

	_, err := Find(golog.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFindPairsSubsystems(t *testing.T) {
	installEnumerationFakes(t,
		[]string{"MC0001", "MC0002"},
		[]usb.Description{
			{ID: usb.IdentifierGPS8, Serial: "MC0002", Path: "/dev/ttyACM1"},
		},
		[]string{
			"PCM2912A Audio Codec Analog Stereo",
			"PCM2912A Audio Codec Analog Stereo #2",
		},
	)

	devices, err := Find(golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(devices), test.ShouldEqual, 2)

	first, second := devices[0], devices[1]
	test.That(t, first.SerialNumber(), test.ShouldEqual, "MC0001")
	test.That(t, first.HasGPS(), test.ShouldBeFalse)
	test.That(t, first.Info().AudioCaptureName, test.ShouldEqual, "PCM2912A Audio Codec Analog Stereo")
	test.That(t, first.String(), test.ShouldEqual, "neoVI MIC2 MC0001")

	test.That(t, second.SerialNumber(), test.ShouldEqual, "MC0002")
	test.That(t, second.HasGPS(), test.ShouldBeTrue)
	test.That(t, second.Info().GPSPort, test.ShouldEqual, "/dev/ttyACM1")
}

func TestFindSingleUnitClaimsLoneReceiver(t *testing.T) {
	// A receiver is its own USB device with its own serial; a lone unit
	// still gets paired with a lone receiver.
	installEnumerationFakes(t,
		[]string{"MC0001"},
		[]usb.Description{
			{ID: usb.IdentifierGPS7, Serial: "EZ1234", Path: "/dev/ttyACM0"},
		},
		nil,
	)

	devices, err := Find(golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(devices), test.ShouldEqual, 1)
	test.That(t, devices[0].HasGPS(), test.ShouldBeTrue)
	test.That(t, devices[0].Info().GPSPort, test.ShouldEqual, "/dev/ttyACM0")
}

func TestIOLifecycle(t *testing.T) {
	ch := &fakeChannel{}
	prevOpen := ftdi.OpenChannel
	opens := 0
	ftdi.OpenChannel = func(serial string) (ftdi.Channel, error) {
		opens++
		test.That(t, serial, test.ShouldEqual, "MC0001")
		return ch, nil
	}
	t.Cleanup(func() { ftdi.OpenChannel = prevOpen })

	d := newDevice(DeviceInfo{SerialNumber: "MC0001"}, golog.NewTestLogger(t))
	test.That(t, d.IOIsOpen(), test.ShouldBeFalse)

	// Closed-channel operations fail.
	test.That(t, d.IOBuzzerEnable(true), test.ShouldNotBeNil)
	_, err := d.IOButtonIsPressed()
	test.That(t, err, test.ShouldNotBeNil)

	test.That(t, d.IOOpen(), test.ShouldBeNil)
	test.That(t, d.IOOpen(), test.ShouldBeNil)
	test.That(t, opens, test.ShouldEqual, 1)
	test.That(t, d.IOIsOpen(), test.ShouldBeTrue)

	test.That(t, d.IOBuzzerEnable(true), test.ShouldBeNil)
	test.That(t, ch.values&ftdi.PinBuzzer, test.ShouldEqual, ftdi.PinBuzzer)
	on, err := d.IOBuzzerIsEnabled()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, on, test.ShouldBeTrue)

	test.That(t, d.IOGPSLEDEnable(true), test.ShouldBeNil)
	test.That(t, ch.values, test.ShouldEqual, ftdi.PinBuzzer|ftdi.PinGPSLED)
	test.That(t, d.IOBuzzerEnable(false), test.ShouldBeNil)
	test.That(t, ch.values, test.ShouldEqual, ftdi.PinGPSLED)

	ch.pins = ftdi.PinButton
	pressed, err := d.IOButtonIsPressed()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pressed, test.ShouldBeTrue)
	ch.pins = 0
	pressed, err = d.IOButtonIsPressed()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pressed, test.ShouldBeFalse)

	test.That(t, d.IOClose(), test.ShouldBeNil)
	test.That(t, ch.closed, test.ShouldBeTrue)
	test.That(t, d.IOIsOpen(), test.ShouldBeFalse)
	test.That(t, d.IOClose(), test.ShouldBeNil)

	_, err = d.IOBuzzerIsEnabled()
	test.That(t, err, test.ShouldNotBeNil)
}

func TestGPSOpsWithoutReceiver(t *testing.T) {
	d := newDevice(DeviceInfo{SerialNumber: "MC0001"}, golog.NewTestLogger(t))
	test.That(t, d.GPSOpen(context.Background()), test.ShouldNotBeNil)
	test.That(t, d.GPSClose(), test.ShouldNotBeNil)
	_, err := d.GPSIsOpen()
	test.That(t, err, test.ShouldNotBeNil)
	_, err = d.GPSHasLock()
	test.That(t, err, test.ShouldNotBeNil)
	_, err = d.GPSInfo()
	test.That(t, err, test.ShouldNotBeNil)
}

type idlePort struct {
	mu     sync.Mutex
	closed bool
}

func (p *idlePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return 0, io.EOF
	}
	time.Sleep(2 * time.Millisecond)
	return 0, nil
}

func (p *idlePort) Write(b []byte) (int, error) { return len(b), nil }

func (p *idlePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func TestCloseForcesSubsystemsDown(t *testing.T) {
	prevPort := gps.OpenPort
	gps.OpenPort = func(portName string, options gps.Options) (io.ReadWriteCloser, error) {
		return &idlePort{}, nil
	}
	t.Cleanup(func() { gps.OpenPort = prevPort })

	closedStream := false
	prevStream := audio.OpenStream
	audio.OpenStream = func(captureName string, sampleRate uint32, onData func(chunk []byte)) (io.Closer, error) {
		return closerFunc(func() error {
			closedStream = true
			return nil
		}), nil
	}
	t.Cleanup(func() { audio.OpenStream = prevStream })

	ch := &fakeChannel{}
	prevOpen := ftdi.OpenChannel
	ftdi.OpenChannel = func(serial string) (ftdi.Channel, error) { return ch, nil }
	t.Cleanup(func() { ftdi.OpenChannel = prevOpen })

	d := newDevice(DeviceInfo{
		SerialNumber:     "MC0001",
		HasGPS:           true,
		GPSPort:          "/dev/ttyACM0",
		AudioCaptureName: "PCM2912A Audio Codec Analog Stereo",
	}, golog.NewTestLogger(t))

	test.That(t, d.IOOpen(), test.ShouldBeNil)
	test.That(t, d.GPSOpen(context.Background()), test.ShouldBeNil)
	test.That(t, d.AudioStart(44100), test.ShouldBeNil)

	isOpen, err := d.GPSIsOpen()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, isOpen, test.ShouldBeTrue)

	test.That(t, d.Close(), test.ShouldBeNil)

	isOpen, err = d.GPSIsOpen()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, isOpen, test.ShouldBeFalse)
	test.That(t, d.IOIsOpen(), test.ShouldBeFalse)
	test.That(t, ch.closed, test.ShouldBeTrue)
	test.That(t, closedStream, test.ShouldBeTrue)

	// Close is idempotent.
	test.That(t, d.Close(), test.ShouldBeNil)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
