package usb

import (
	"testing"

	"go.viam.com/test"
)

func TestIsGPSReceiver(t *testing.T) {
	test.That(t, IsGPSReceiver(0x1546, 0x01A7), test.ShouldBeTrue)
	test.That(t, IsGPSReceiver(0x1546, 0x01A8), test.ShouldBeTrue)
	test.That(t, IsGPSReceiver(0x0403, 0x6001), test.ShouldBeFalse)
	test.That(t, IsGPSReceiver(0, 0), test.ShouldBeFalse)
}

func TestSearchDevicesNoBus(t *testing.T) {
	// The walk must not error out on hosts without the bus attached; the
	// filter below rejects everything so a populated bus also yields nil.
	descs, err := SearchDevices(SearchFilter{}, func(vendorID, productID int) bool {
		return false
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, descs, test.ShouldBeEmpty)
}
