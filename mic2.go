// Package mic2 is a driver for the Intrepid Control Systems neoVI MIC2, a
// handheld USB pendant with a buzzer, a push button, a microphone and an
// optional GPS receiver. Find enumerates attached units; each NeoVIMIC
// handle exposes the unit's IO, GPS and audio subsystems.
package mic2

import (
	"context"
	"fmt"
	"sync"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/intrepidcs/mic2-go/audio"
	"github.com/intrepidcs/mic2-go/ftdi"
	"github.com/intrepidcs/mic2-go/gps"
	"github.com/intrepidcs/mic2-go/nmea"
)

// DeviceInfo describes one attached unit as discovered by Find.
type DeviceInfo struct {
	SerialNumber     string
	HasGPS           bool
	GPSPort          string
	AudioCaptureName string
}

// NeoVIMIC is a handle to one unit. All operations serialize on the
// handle's mutex; the subsystems start closed and are claimed on demand.
type NeoVIMIC struct {
	mu     sync.Mutex
	logger golog.Logger
	info   DeviceInfo

	ioChannel ftdi.Channel
	buzzerOn  bool
	gpsLEDOn  bool

	gps   *gps.Device
	audio *audio.Recorder
}

func newDevice(info DeviceInfo, logger golog.Logger) *NeoVIMIC {
	d := &NeoVIMIC{
		logger: logger,
		info:   info,
		audio:  audio.NewRecorder(info.AudioCaptureName, logger),
	}
	if info.HasGPS {
		d.gps = gps.NewDevice(info.GPSPort, gps.Options{}, logger)
	}
	return d
}

var (
	errIONotOpen      = errors.New("io channel is not open")
	errGPSUnavailable = errors.New("device has no gps receiver")
)

// SerialNumber returns the unit's serial number ("MC" prefixed).
func (d *NeoVIMIC) SerialNumber() string {
	return d.info.SerialNumber
}

// HasGPS reports whether the unit carries a GPS receiver.
func (d *NeoVIMIC) HasGPS() bool {
	return d.info.HasGPS
}

// Info returns the discovery descriptor.
func (d *NeoVIMIC) Info() DeviceInfo {
	return d.info
}

func (d *NeoVIMIC) String() string {
	return fmt.Sprintf("neoVI MIC2 %s", d.info.SerialNumber)
}

// IOOpen claims the unit's FTDI chip in bit-bang mode with the buzzer and
// LED off. Opening an open channel is a no-op.
func (d *NeoVIMIC) IOOpen() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ioChannel != nil {
		return nil
	}
	ch, err := ftdi.OpenChannel(d.info.SerialNumber)
	if err != nil {
		return errors.Wrap(err, "claiming io channel")
	}
	d.ioChannel = ch
	d.buzzerOn = false
	d.gpsLEDOn = false
	return nil
}

// IOClose releases the FTDI chip. Closing a closed channel is a no-op.
func (d *NeoVIMIC) IOClose() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ioCloseLocked()
}

func (d *NeoVIMIC) ioCloseLocked() error {
	if d.ioChannel == nil {
		return nil
	}
	err := d.ioChannel.Close()
	d.ioChannel = nil
	d.buzzerOn = false
	d.gpsLEDOn = false
	if err != nil {
		return errors.Wrap(err, "releasing io channel")
	}
	return nil
}

// IOIsOpen reports whether the IO channel is claimed.
func (d *NeoVIMIC) IOIsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ioChannel != nil
}

func (d *NeoVIMIC) outputsLocked() byte {
	var v byte
	if d.buzzerOn {
		v |= ftdi.PinBuzzer
	}
	if d.gpsLEDOn {
		v |= ftdi.PinGPSLED
	}
	return v
}

func (d *NeoVIMIC) setOutputLocked(on bool, state *bool) error {
	if d.ioChannel == nil {
		return errIONotOpen
	}
	prev := *state
	*state = on
	if err := d.ioChannel.SetOutputs(d.outputsLocked()); err != nil {
		*state = prev
		return err
	}
	return nil
}

// IOBuzzerEnable turns the buzzer on or off.
func (d *NeoVIMIC) IOBuzzerEnable(enable bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setOutputLocked(enable, &d.buzzerOn)
}

// IOBuzzerIsEnabled reports the commanded buzzer state.
func (d *NeoVIMIC) IOBuzzerIsEnabled() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ioChannel == nil {
		return false, errIONotOpen
	}
	return d.buzzerOn, nil
}

// IOGPSLEDEnable turns the GPS LED on or off.
func (d *NeoVIMIC) IOGPSLEDEnable(enable bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setOutputLocked(enable, &d.gpsLEDOn)
}

// IOGPSLEDIsEnabled reports the commanded LED state.
func (d *NeoVIMIC) IOGPSLEDIsEnabled() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ioChannel == nil {
		return false, errIONotOpen
	}
	return d.gpsLEDOn, nil
}

// IOButtonIsPressed reads the button pin live.
func (d *NeoVIMIC) IOButtonIsPressed() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ioChannel == nil {
		return false, errIONotOpen
	}
	pins, err := d.ioChannel.ReadPins()
	if err != nil {
		return false, err
	}
	return pins&ftdi.PinButton != 0, nil
}

// GPSOpen starts the GPS session. Fails on units without a receiver.
func (d *NeoVIMIC) GPSOpen(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gps == nil {
		return errGPSUnavailable
	}
	return d.gps.Open(ctx)
}

// GPSClose stops the GPS session.
func (d *NeoVIMIC) GPSClose() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gps == nil {
		return errGPSUnavailable
	}
	return d.gps.Close()
}

// GPSIsOpen reports whether the GPS session is active.
func (d *NeoVIMIC) GPSIsOpen() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gps == nil {
		return false, errGPSUnavailable
	}
	return d.gps.IsOpen(), nil
}

// GPSHasLock reports whether the receiver claims a position fix.
func (d *NeoVIMIC) GPSHasLock() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gps == nil {
		return false, errGPSUnavailable
	}
	return d.gps.HasLock()
}

// GPSInfo returns a copy of the current GPS snapshot.
func (d *NeoVIMIC) GPSInfo() (nmea.Info, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gps == nil {
		return nmea.Info{}, errGPSUnavailable
	}
	return d.gps.Info()
}

// AudioStart begins recording from the unit's microphone.
func (d *NeoVIMIC) AudioStart(sampleRate uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.audio.Start(sampleRate)
}

// AudioStop stops the recording, keeping it buffered for AudioSaveToFile.
func (d *NeoVIMIC) AudioStop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.audio.Stop()
}

// AudioSaveToFile writes the buffered recording as a WAV file.
func (d *NeoVIMIC) AudioSaveToFile(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.audio.SaveToFile(path)
}

// Close force-stops every subsystem: the recorder, the GPS session (the
// reader goroutine is joined) and the IO channel. Idempotent.
func (d *NeoVIMIC) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var err error
	if d.audio != nil {
		err = multierr.Combine(err, d.audio.Stop())
	}
	if d.gps != nil {
		err = multierr.Combine(err, d.gps.Close())
	}
	return multierr.Combine(err, d.ioCloseLocked())
}
