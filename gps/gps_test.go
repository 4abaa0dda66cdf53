package gps

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/edaniels/golog"
	"go.viam.com/test"
)

const (
	pubx00Fix = "$PUBX,00,081350.00,4717.113210,N,00833.915187,E,546.589,G3,2.1,2.0,0.007,77.52,0.007,,0.92,1.19,0.77,9,0,0*5F\r\n"
	pubx03Six = "$PUBX,03,06,2,U,137,37,24,000,8,U,053,52,28,064,9,U,202,12,21,000,14,-,,,22,000,27,-,049,16,,000,81,-,,,08,000*54\r\n"
)

type fakePort struct {
	mu     sync.Mutex
	reads  [][]byte
	writes bytes.Buffer
	closed bool
}

func (f *fakePort) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, io.EOF
	}
	if len(f.reads) == 0 {
		// Behave like a serial read timeout.
		f.mu.Unlock()
		time.Sleep(2 * time.Millisecond)
		f.mu.Lock()
		return 0, nil
	}
	chunk := f.reads[0]
	n := copy(p, chunk)
	if n < len(chunk) {
		f.reads[0] = chunk[n:]
	} else {
		f.reads = f.reads[1:]
	}
	return n, nil
}

func (f *fakePort) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes.Write(p)
}

func (f *fakePort) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakePort) queue(chunks ...[]byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads = append(f.reads, chunks...)
}

func (f *fakePort) written() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes.Bytes()
}

func installFakePort(t *testing.T, port *fakePort, opens *int) {
	t.Helper()
	prevOpen := OpenPort
	OpenPort = func(portName string, options Options) (io.ReadWriteCloser, error) {
		if opens != nil {
			*opens++
		}
		return port, nil
	}
	t.Cleanup(func() { OpenPort = prevOpen })
}

func TestOpenConfiguresReceiver(t *testing.T) {
	port := &fakePort{}
	installFakePort(t, port, nil)
	dev := NewDevice("/dev/ttyACM0", Options{}, golog.NewTestLogger(t))
	test.That(t, dev.Open(context.Background()), test.ShouldBeNil)
	defer dev.Close()

	written := port.written()
	test.That(t, len(written), test.ShouldBeGreaterThan, 0)
	test.That(t, written[0], test.ShouldEqual, 0xB5)
	test.That(t, written[1], test.ShouldEqual, 0x62)
	// One reset, one disable per standard message, three PUBX enables.
	test.That(t, bytes.Count(written, []byte{0xB5, 0x62}), test.ShouldEqual, 1+len(standardNMEAMsgIDs)+3)
	test.That(t, dev.IsOpen(), test.ShouldBeTrue)
}

func TestReaderParsesSentences(t *testing.T) {
	port := &fakePort{}
	// Split a sentence across reads to exercise reassembly, and lead with
	// binary ack noise the reader must skip.
	payload := []byte("\xb5\x62\x05\x01\x02\x00\x06\x01\x0f\x38\r\n" + pubx00Fix + pubx03Six)
	port.queue(payload[:20], payload[20:41], payload[41:])
	installFakePort(t, port, nil)

	dev := NewDevice("/dev/ttyACM0", Options{}, golog.NewTestLogger(t))
	test.That(t, dev.Open(context.Background()), test.ShouldBeNil)
	defer dev.Close()

	deadline := time.Now().Add(5 * time.Second)
	for {
		info, err := dev.Info()
		test.That(t, err, test.ShouldBeNil)
		if info.SatelliteCount == 6 && info.HasFix() {
			test.That(t, info.Altitude, test.ShouldEqual, 546.589)
			test.That(t, info.Satellites[0].PRN, test.ShouldEqual, 2)
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("snapshot never converged: %+v", info)
		}
		time.Sleep(2 * time.Millisecond)
	}

	hasLock, err := dev.HasLock()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, hasLock, test.ShouldBeTrue)
}

func TestOpenAndCloseIdempotent(t *testing.T) {
	port := &fakePort{}
	opens := 0
	installFakePort(t, port, &opens)

	dev := NewDevice("/dev/ttyACM0", Options{}, golog.NewTestLogger(t))
	test.That(t, dev.Open(context.Background()), test.ShouldBeNil)
	test.That(t, dev.Open(context.Background()), test.ShouldBeNil)
	test.That(t, opens, test.ShouldEqual, 1)

	test.That(t, dev.Close(), test.ShouldBeNil)
	test.That(t, dev.IsOpen(), test.ShouldBeFalse)
	test.That(t, dev.Close(), test.ShouldBeNil)

	_, err := dev.Info()
	test.That(t, err, test.ShouldNotBeNil)
	_, err = dev.HasLock()
	test.That(t, err, test.ShouldNotBeNil)
}

func TestCloseAfterReaderDeath(t *testing.T) {
	port := &fakePort{}
	installFakePort(t, port, nil)

	dev := NewDevice("/dev/ttyACM0", Options{}, golog.NewTestLogger(t))
	test.That(t, dev.Open(context.Background()), test.ShouldBeNil)

	// Kill the transport out from under the reader; it exits on the EOF.
	port.Close()
	test.That(t, dev.Close(), test.ShouldBeNil)
}

func TestOpenFailure(t *testing.T) {
	prevOpen := OpenPort
	OpenPort = func(portName string, options Options) (io.ReadWriteCloser, error) {
		return nil, io.ErrClosedPipe
	}
	t.Cleanup(func() { OpenPort = prevOpen })

	dev := NewDevice("/dev/ttyACM0", Options{}, golog.NewTestLogger(t))
	test.That(t, dev.Open(context.Background()), test.ShouldNotBeNil)
	test.That(t, dev.IsOpen(), test.ShouldBeFalse)
}
