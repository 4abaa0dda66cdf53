package mic2

import (
	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/intrepidcs/mic2-go/audio"
	"github.com/intrepidcs/mic2-go/ftdi"
	"github.com/intrepidcs/mic2-go/usb"
)

// Find enumerates the attached neoVI MIC2 units, one handle per FTDI chip
// with an "MC" serial number, ordered by serial number. Nothing is opened;
// each subsystem stays untouched until its open call. No attached units is
// not an error.
func Find(logger golog.Logger) ([]*NeoVIMIC, error) {
	serials, err := ftdi.FindSerials()
	if err != nil {
		return nil, errors.Wrap(err, "enumerating units")
	}
	if len(serials) == 0 {
		return nil, nil
	}

	gpsPorts, err := usb.SearchSerialDevices(usb.IsGPSReceiver)
	if err != nil {
		return nil, errors.Wrap(err, "probing gps receivers")
	}
	captureDevices, err := audio.FindCaptureDevices()
	if err != nil {
		return nil, errors.Wrap(err, "probing audio codecs")
	}

	// Sanity check the composite on hosts where the bus is visible.
	if hubs, err := usb.SearchDevices(usb.SearchFilter{}, func(vendorID, productID int) bool {
		return vendorID == usb.IdentifierHub.Vendor && productID == usb.IdentifierHub.Product
	}); err == nil && len(hubs) > 0 && len(hubs) < len(serials) {
		logger.Debugw("fewer hubs visible than units", "hubs", len(hubs), "units", len(serials))
	}

	devices := make([]*NeoVIMIC, 0, len(serials))
	for i, serialNumber := range serials {
		info := DeviceInfo{SerialNumber: serialNumber}
		if port := matchGPSPort(gpsPorts, serialNumber, len(serials)); port != "" {
			info.HasGPS = true
			info.GPSPort = port
		}
		if i < len(captureDevices) {
			info.AudioCaptureName = captureDevices[i].Name
		}
		logger.Debugw("found unit",
			"serial", info.SerialNumber,
			"gps", info.HasGPS,
			"audio", info.AudioCaptureName,
		)
		devices = append(devices, newDevice(info, logger))
	}
	return devices, nil
}

// matchGPSPort pairs a receiver port with a unit. Receivers programmed
// with the unit's serial number match directly; otherwise a single
// unclaimed receiver next to a single unit must belong to it.
func matchGPSPort(ports []usb.Description, serialNumber string, unitCount int) string {
	for _, port := range ports {
		if port.Serial == serialNumber {
			return port.Path
		}
	}
	if unitCount == 1 && len(ports) == 1 {
		return ports[0].Path
	}
	return ""
}
