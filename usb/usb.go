// Package usb provides utilities for searching for and working with the USB
// devices that make up a neoVI MIC2.
//
// A MIC2 shows up on the bus as a composite behind an internal hub: an FTDI
// FT232R for the digital IO (buzzer, button, GPS LED), a TI PCM2912A audio
// codec for the microphone, and on GPS-equipped units a u-blox receiver.
package usb

// Identifier identifies a specific USB device by the vendor
// who produced it and the product that it is. These should
// be unique across products.
type Identifier struct {
	Vendor  int
	Product int
}

// The devices found inside a neoVI MIC2.
var (
	// IdentifierHub is the internal Microchip hub all subsystems hang off of.
	IdentifierHub = Identifier{Vendor: 0x0424, Product: 0x2514}
	// IdentifierFTDI is the FT232R driving the buzzer/button/LED pins.
	IdentifierFTDI = Identifier{Vendor: 0x0403, Product: 0x6001}
	// IdentifierAudioCodec is the PCM2912A microphone codec.
	IdentifierAudioCodec = Identifier{Vendor: 0x08BB, Product: 0x2912}
	// IdentifierGPS7 and IdentifierGPS8 are the u-blox 7 and 8 series
	// receivers found on GPS-equipped units.
	IdentifierGPS7 = Identifier{Vendor: 0x1546, Product: 0x01A7}
	IdentifierGPS8 = Identifier{Vendor: 0x1546, Product: 0x01A8}
)

// Description describes a specific USB device.
type Description struct {
	ID     Identifier
	Serial string
	Path   string
}

// SearchFilter describes a filter to search for devices by.
type SearchFilter struct{}

// IsGPSReceiver reports whether the vendor/product pair belongs to one of
// the u-blox receivers shipped in the MIC2.
func IsGPSReceiver(vendorID, productID int) bool {
	for _, id := range []Identifier{IdentifierGPS7, IdentifierGPS8} {
		if id.Vendor == vendorID && id.Product == productID {
			return true
		}
	}
	return false
}
