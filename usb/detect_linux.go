//go:build linux

package usb

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const sysPath = "/sys/bus/usb/devices"

// SearchDevices walks the sysfs USB bus and returns a Description for every
// device whose vendor/product pair the includeDevice callback accepts. A bus
// that cannot be read (no sysfs, containers) yields no devices and no error.
func SearchDevices(filter SearchFilter, includeDevice func(vendorID, productID int) bool) ([]Description, error) {
	devicesDir, err := os.Open(sysPath)
	if err != nil {
		return nil, nil
	}
	defer devicesDir.Close()
	devices, err := devicesDir.Readdir(0)
	if err != nil {
		return nil, nil
	}
	var results []Description
	for _, device := range devices {
		devicePath := filepath.Join(sysPath, device.Name())
		ueventFile, err := os.Open(filepath.Join(devicePath, "uevent"))
		if err != nil {
			continue
		}
		reader := bufio.NewReader(ueventFile)
	searchProduct:
		for {
			line, _, err := reader.ReadLine()
			if err != nil {
				break searchProduct
			}
			lineStr := string(line)
			const productPrefix = "PRODUCT="
			if !strings.HasPrefix(lineStr, productPrefix) {
				continue
			}
			productInfo := strings.TrimPrefix(lineStr, productPrefix)
			productInfoParts := strings.Split(productInfo, "/")
			if len(productInfoParts) < 2 {
				continue
			}
			vendorID, err := strconv.ParseInt(productInfoParts[0], 16, 64)
			if err != nil {
				continue
			}
			productID, err := strconv.ParseInt(productInfoParts[1], 16, 64)
			if err != nil {
				continue
			}
			if !includeDevice(int(vendorID), int(productID)) {
				continue
			}
			desc := Description{
				ID:   Identifier{Vendor: int(vendorID), Product: int(productID)},
				Path: devicePath,
			}
			if serial, err := os.ReadFile(filepath.Join(devicePath, "serial")); err == nil {
				desc.Serial = strings.TrimSpace(string(serial))
			}
			results = append(results, desc)
		}
		ueventFile.Close()
	}
	return results, nil
}
