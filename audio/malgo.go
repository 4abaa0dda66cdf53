package audio

import (
	"io"

	"github.com/gen2brain/malgo"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// OpenStream claims a capture device and feeds S16LE sample chunks to
// onData until closed. Overridable so hardware can be faked in tests.
var OpenStream = func(captureName string, sampleRate uint32, onData func(chunk []byte)) (io.Closer, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "initializing audio context")
	}
	teardownCtx := func() error {
		err := ctx.Uninit()
		ctx.Free()
		return err
	}

	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.Capture.Format = malgo.FormatS16
	config.Capture.Channels = NumChannels
	config.SampleRate = sampleRate
	config.Alsa.NoMMap = 1
	if captureName != "" {
		infos, err := ctx.Devices(malgo.Capture)
		if err != nil {
			return nil, multierr.Combine(errors.Wrap(err, "listing capture devices"), teardownCtx())
		}
		found := false
		for _, info := range infos {
			if info.Name() == captureName {
				id := info.ID
				config.Capture.DeviceID = id.Pointer()
				found = true
				break
			}
		}
		if !found {
			return nil, multierr.Combine(errors.Errorf("no capture device named %q", captureName), teardownCtx())
		}
	}

	callbacks := malgo.DeviceCallbacks{
		Data: func(outputSamples, inputSamples []byte, frameCount uint32) {
			chunk := make([]byte, len(inputSamples))
			copy(chunk, inputSamples)
			onData(chunk)
		},
	}
	device, err := malgo.InitDevice(ctx.Context, config, callbacks)
	if err != nil {
		return nil, multierr.Combine(errors.Wrap(err, "claiming capture device"), teardownCtx())
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, multierr.Combine(errors.Wrap(err, "starting capture device"), teardownCtx())
	}
	return &malgoStream{device: device, teardown: teardownCtx}, nil
}

type malgoStream struct {
	device   *malgo.Device
	teardown func() error
}

func (s *malgoStream) Close() error {
	s.device.Uninit()
	return s.teardown()
}

// ListCaptureNames enumerates capture device names. Overridable in tests.
var ListCaptureNames = func() ([]string, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "initializing audio context")
	}
	defer func() {
		ctx.Uninit()
		ctx.Free()
	}()
	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, errors.Wrap(err, "listing capture devices")
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	return names, nil
}
