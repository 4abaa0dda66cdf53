package nmea

import (
	"testing"

	"go.viam.com/test"
)

func TestParseDMS(t *testing.T) {
	dms, err := ParseDMS("4717.113210")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dms.Degrees, test.ShouldEqual, 47)
	test.That(t, dms.Minutes, test.ShouldEqual, 17)
	test.That(t, dms.Seconds, test.ShouldEqual, 7) // 0.113210' ~ 6.79"

	dms, err = ParseDMS("00833.915187")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dms.Degrees, test.ShouldEqual, 8)
	test.That(t, dms.Minutes, test.ShouldEqual, 33)
	test.That(t, dms.Seconds, test.ShouldEqual, 55)

	dms, err = ParseDMS("0000.00000")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dms, test.ShouldResemble, DMS{})

	// Fractional minutes that round up to a whole minute must carry.
	dms, err = ParseDMS("0159.99999")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dms.Degrees, test.ShouldEqual, 2)
	test.That(t, dms.Minutes, test.ShouldEqual, 0)
	test.That(t, dms.Seconds, test.ShouldEqual, 0)

	for _, bad := range []string{"", "12", "12.5", "garbage", "12x4.5"} {
		_, err := ParseDMS(bad)
		test.That(t, err, test.ShouldNotBeNil)
	}
}

func TestDMSDecimalRoundTrip(t *testing.T) {
	dms := DMS{Degrees: 47, Minutes: 17, Seconds: 7}
	test.That(t, dms.Decimal(), test.ShouldAlmostEqual, 47.2853, 0.001)

	back := DMSFromDecimal(dms.Decimal())
	test.That(t, back, test.ShouldResemble, dms)

	// Sign is carried by the hemisphere, not the DMS value.
	test.That(t, DMSFromDecimal(-47.2853), test.ShouldResemble, DMSFromDecimal(47.2853))
}

func TestCoordinateDecimal(t *testing.T) {
	c := Coordinate{DMS: DMS{Degrees: 51, Minutes: 30}, Hemisphere: 'N', Valid: true}
	test.That(t, c.Decimal(), test.ShouldAlmostEqual, 51.5, 1e-9)
	c.Hemisphere = 'S'
	test.That(t, c.Decimal(), test.ShouldAlmostEqual, -51.5, 1e-9)
	c.Hemisphere = 'W'
	test.That(t, c.Decimal(), test.ShouldAlmostEqual, -51.5, 1e-9)
}
