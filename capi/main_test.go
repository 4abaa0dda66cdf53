package main

import (
	"testing"

	"go.viam.com/test"
)

func TestFindNegotiation(t *testing.T) {
	// Null out-parameters are rejected before negotiation.
	test.That(t, mic2_find(nil, nil, 1, 1024), test.ShouldEqual, errInvalidParameter)

	test.That(t, negotiateFind(2, 1024), test.ShouldEqual, errVersionMismatch)
	test.That(t, negotiateFind(0, 1024), test.ShouldEqual, errVersionMismatch)
	test.That(t, negotiateFind(1, 0), test.ShouldEqual, errSizeMismatch)
	test.That(t, negotiateFind(1, 8), test.ShouldEqual, errSizeMismatch)
	test.That(t, negotiateFind(1, 1024), test.ShouldEqual, errSuccess)
}

func TestErrorStringNullArguments(t *testing.T) {
	test.That(t, mic2_error_string(0, nil, nil), test.ShouldEqual, errInvalidParameter)
}

func TestErrorMessages(t *testing.T) {
	test.That(t, len(errorMessages), test.ShouldEqual, 6)
	test.That(t, errorMessages[0], test.ShouldEqual, "Success")
	test.That(t, errorMessages[2], test.ShouldEqual, "Invalid Parameter")
	test.That(t, errorMessages[5], test.ShouldEqual, "Size Mismatch")
	_, known := errorMessages[6]
	test.That(t, known, test.ShouldBeFalse)
}

func TestCopyMessage(t *testing.T) {
	// Exact fit: message plus terminator.
	buf := make([]byte, 8)
	needed, fit := copyMessage("Failure", buf)
	test.That(t, fit, test.ShouldBeTrue)
	test.That(t, needed, test.ShouldEqual, 7)
	test.That(t, string(buf[:7]), test.ShouldEqual, "Failure")
	test.That(t, buf[7], test.ShouldEqual, byte(0))

	// Too small: truncated, no terminator, required length reported.
	buf = make([]byte, 4)
	needed, fit = copyMessage("Failure", buf)
	test.That(t, fit, test.ShouldBeFalse)
	test.That(t, needed, test.ShouldEqual, 7)
	test.That(t, string(buf), test.ShouldEqual, "Fail")

	// Roomy: terminator right after the message.
	buf = []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	needed, fit = copyMessage("Success", buf)
	test.That(t, fit, test.ShouldBeTrue)
	test.That(t, needed, test.ShouldEqual, 7)
	test.That(t, string(buf[:7]), test.ShouldEqual, "Success")
	test.That(t, buf[7], test.ShouldEqual, byte(0))
}
