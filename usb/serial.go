package usb

import (
	"strconv"

	"github.com/pkg/errors"
	"go.bug.st/serial/enumerator"
)

// SearchSerialDevices lists USB serial ports and returns a Description for
// every port whose device the includeDevice callback accepts. The Path of
// each result is the port name suitable for opening (e.g. /dev/ttyACM0).
// Overridable so enumeration can be faked in tests.
var SearchSerialDevices = func(includeDevice func(vendorID, productID int) bool) ([]Description, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, errors.Wrap(err, "listing serial ports")
	}
	var results []Description
	for _, port := range ports {
		if !port.IsUSB {
			continue
		}
		vendorID, err := strconv.ParseInt(port.VID, 16, 64)
		if err != nil {
			continue
		}
		productID, err := strconv.ParseInt(port.PID, 16, 64)
		if err != nil {
			continue
		}
		if !includeDevice(int(vendorID), int(productID)) {
			continue
		}
		results = append(results, Description{
			ID:     Identifier{Vendor: int(vendorID), Product: int(productID)},
			Serial: port.SerialNumber,
			Path:   port.Name,
		})
	}
	return results, nil
}
