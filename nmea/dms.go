package nmea

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// DMS is one coordinate component in whole degrees, minutes and seconds.
// The hemisphere sign lives next to it in Coordinate.
type DMS struct {
	Degrees uint16
	Minutes uint8
	Seconds uint8
}

// ParseDMS converts an NMEA ddmm.mmmm (latitude) or dddmm.mmmm (longitude)
// field. Fractional minutes are rounded to whole seconds.
func ParseDMS(field string) (DMS, error) {
	dot := strings.IndexByte(field, '.')
	if dot < 3 {
		return DMS{}, errors.Errorf("malformed coordinate %q", field)
	}
	degrees, err := strconv.ParseUint(field[:dot-2], 10, 16)
	if err != nil {
		return DMS{}, errors.Errorf("malformed coordinate %q", field)
	}
	minutes, err := strconv.ParseUint(field[dot-2:dot], 10, 8)
	if err != nil {
		return DMS{}, errors.Errorf("malformed coordinate %q", field)
	}
	frac, err := strconv.ParseFloat("0"+field[dot:], 64)
	if err != nil {
		return DMS{}, errors.Errorf("malformed coordinate %q", field)
	}
	dms := DMS{
		Degrees: uint16(degrees),
		Minutes: uint8(minutes),
		Seconds: uint8(math.Round(frac * 60)),
	}
	dms.carry()
	return dms, nil
}

// DMSFromDecimal converts decimal degrees; the sign is discarded.
func DMSFromDecimal(degrees float64) DMS {
	degrees = math.Abs(degrees)
	whole := math.Floor(degrees)
	minutes := (degrees - whole) * 60
	wholeMinutes := math.Floor(minutes)
	dms := DMS{
		Degrees: uint16(whole),
		Minutes: uint8(wholeMinutes),
		Seconds: uint8(math.Round((minutes - wholeMinutes) * 60)),
	}
	dms.carry()
	return dms
}

func (d *DMS) carry() {
	if d.Seconds >= 60 {
		d.Seconds -= 60
		d.Minutes++
	}
	if d.Minutes >= 60 {
		d.Minutes -= 60
		d.Degrees++
	}
}

// Decimal returns the unsigned decimal-degree value.
func (d DMS) Decimal() float64 {
	return float64(d.Degrees) + (float64(d.Minutes)+float64(d.Seconds)/60)/60
}

func (d DMS) String() string {
	return fmt.Sprintf(`%d°%d'%d"`, d.Degrees, d.Minutes, d.Seconds)
}

// Coordinate is a DMS value plus the hemisphere it falls in.
type Coordinate struct {
	DMS        DMS
	Hemisphere byte // 'N', 'S', 'E' or 'W'
	Valid      bool
}

// Decimal returns signed decimal degrees, negative for 'S' and 'W'.
func (c Coordinate) Decimal() float64 {
	v := c.DMS.Decimal()
	if c.Hemisphere == 'S' || c.Hemisphere == 'W' {
		return -v
	}
	return v
}
