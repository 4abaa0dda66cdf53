// Package audio records from the MIC2's PCM2912A microphone codec. A
// Recorder captures mono 16-bit PCM into memory and saves it as a WAV file.
package audio

import (
	"io"
	"os"
	"sync"

	"github.com/edaniels/golog"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Capture format. The codec is a stereo part but the MIC2 wires a single
// microphone, so one channel is enough.
const (
	NumChannels = 1
	BitDepth    = 16
)

// Recorder is an audio capture session for one device. Samples accumulate
// between Start and Stop and stay available to SaveToFile until the next
// Start discards them.
type Recorder struct {
	mu          sync.Mutex
	captureName string
	logger      golog.Logger

	stream     io.Closer
	recording  bool
	sampleRate uint32
	samples    []byte // S16LE
	hasBuffer  bool
}

// NewRecorder prepares a recorder for the named capture device. An empty
// name selects the system default device.
func NewRecorder(captureName string, logger golog.Logger) *Recorder {
	return &Recorder{captureName: captureName, logger: logger}
}

// CaptureName returns the device name the recorder was built for.
func (r *Recorder) CaptureName() string {
	return r.captureName
}

// IsRecording reports whether a capture stream is running.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Start claims the capture device and begins accumulating samples at the
// given rate, discarding any previous recording.
func (r *Recorder) Start(sampleRate uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recording {
		return errors.New("already recording")
	}
	if sampleRate == 0 {
		return errors.New("sample rate must be nonzero")
	}
	stream, err := OpenStream(r.captureName, sampleRate, r.appendSamples)
	if err != nil {
		return errors.Wrapf(err, "starting capture on %q", r.captureName)
	}
	r.stream = stream
	r.recording = true
	r.sampleRate = sampleRate
	r.samples = nil
	r.hasBuffer = true
	return nil
}

func (r *Recorder) appendSamples(chunk []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return
	}
	r.samples = append(r.samples, chunk...)
}

// Stop ends the capture. The recording stays buffered. Stopping a stopped
// recorder is a no-op.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return nil
	}
	stream := r.stream
	r.stream = nil
	r.recording = false
	r.mu.Unlock()

	// Closed outside the lock: the stream teardown waits for in-flight
	// data callbacks, which take the lock.
	if err := stream.Close(); err != nil {
		return errors.Wrap(err, "stopping capture")
	}
	return nil
}

// SaveToFile writes the buffered recording as a WAV file.
func (r *Recorder) SaveToFile(path string) error {
	r.mu.Lock()
	if !r.hasBuffer {
		r.mu.Unlock()
		return errors.New("nothing recorded")
	}
	sampleRate := r.sampleRate
	raw := make([]byte, len(r.samples))
	copy(raw, r.samples)
	r.mu.Unlock()

	data := make([]int, len(raw)/2)
	for i := range data {
		data[i] = int(int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8))
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %q", path)
	}
	enc := wav.NewEncoder(f, int(sampleRate), BitDepth, NumChannels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: NumChannels, SampleRate: int(sampleRate)},
		Data:           data,
		SourceBitDepth: BitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return multierr.Combine(errors.Wrapf(err, "writing %q", path), enc.Close(), f.Close())
	}
	if err := enc.Close(); err != nil {
		return multierr.Combine(errors.Wrapf(err, "finishing %q", path), f.Close())
	}
	return f.Close()
}
