//go:build !linux

package usb

// SearchDevices returns no devices on platforms without a sysfs USB bus.
func SearchDevices(filter SearchFilter, includeDevice func(vendorID, productID int) bool) ([]Description, error) {
	return nil, nil
}
