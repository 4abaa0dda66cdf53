package ftdi

import (
	"testing"

	"go.viam.com/test"
)

func TestCBUSMask(t *testing.T) {
	// Direction nibble always marks buzzer and LED as outputs.
	test.That(t, cbusMask(0), test.ShouldEqual, byte(0x50))
	test.That(t, cbusMask(PinBuzzer), test.ShouldEqual, byte(0x51))
	test.That(t, cbusMask(PinGPSLED), test.ShouldEqual, byte(0x54))
	test.That(t, cbusMask(PinBuzzer|PinGPSLED), test.ShouldEqual, byte(0x55))

	// The button is an input; attempts to drive it are dropped.
	test.That(t, cbusMask(PinButton), test.ShouldEqual, byte(0x50))
	test.That(t, cbusMask(0xFF), test.ShouldEqual, byte(0x55))
}

func TestIsUnitSerial(t *testing.T) {
	test.That(t, isUnitSerial("MC0001"), test.ShouldBeTrue)
	test.That(t, isUnitSerial("MC"), test.ShouldBeTrue)
	test.That(t, isUnitSerial("FT1234"), test.ShouldBeFalse)
	test.That(t, isUnitSerial(""), test.ShouldBeFalse)
	test.That(t, isUnitSerial("mc0001"), test.ShouldBeFalse)
}
