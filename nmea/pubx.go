package nmea

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// updatePUBX merges one of the u-blox proprietary sentences the receiver is
// configured to emit. The snapshot is only mutated once the whole sentence
// has parsed.
func (n *Info) updatePUBX(line string) error {
	payload, err := stripChecksum(line)
	if err != nil {
		return err
	}
	fields := strings.Split(payload, ",")
	if len(fields) < 2 || fields[0] != "PUBX" {
		return errors.Errorf("malformed PUBX sentence %q", line)
	}
	switch fields[1] {
	case "00":
		return n.updatePUBX00(fields)
	case "03":
		return n.updatePUBX03(fields)
	case "04":
		return n.updatePUBX04(fields)
	}
	return errors.Errorf("unhandled PUBX message %q", fields[1])
}

// PUBX,00: position, navigation status, accuracy, velocity and DOP.
func (n *Info) updatePUBX00(fields []string) error {
	if len(fields) < 18 {
		return errors.Errorf("PUBX00 has %d fields", len(fields))
	}
	hour, minute, second, nanosecond, err := parseClock(fields[2])
	if err != nil {
		return err
	}
	lat, err := ParseDMS(fields[3])
	if err != nil {
		return err
	}
	if fields[4] != "N" && fields[4] != "S" {
		return errors.Errorf("bad latitude direction %q", fields[4])
	}
	lng, err := ParseDMS(fields[5])
	if err != nil {
		return err
	}
	if fields[6] != "E" && fields[6] != "W" {
		return errors.Errorf("bad longitude direction %q", fields[6])
	}
	alt, err := parseFloatField(fields[7], "altitude")
	if err != nil {
		return err
	}
	status, ok := navStatusCodes[fields[8]]
	if !ok {
		return errors.Errorf("unknown navigation status %q", fields[8])
	}
	hAcc, err := parseFloatField(fields[9], "horizontal accuracy")
	if err != nil {
		return err
	}
	vAcc, err := parseFloatField(fields[10], "vertical accuracy")
	if err != nil {
		return err
	}
	sog, err := parseFloatField(fields[11], "speed over ground")
	if err != nil {
		return err
	}
	cog, err := parseFloatField(fields[12], "course over ground")
	if err != nil {
		return err
	}
	vVel, err := parseFloatField(fields[13], "vertical velocity")
	if err != nil {
		return err
	}
	ageC, ageErr := strconv.ParseFloat(fields[14], 64) // empty without DGPS
	hdop, err := parseFloatField(fields[15], "HDOP")
	if err != nil {
		return err
	}
	vdop, err := parseFloatField(fields[16], "VDOP")
	if err != nil {
		return err
	}
	tdop, err := parseFloatField(fields[17], "TDOP")
	if err != nil {
		return err
	}

	n.fillTime(hour, minute, second, nanosecond)
	n.Latitude = Coordinate{DMS: lat, Hemisphere: fields[4][0], Valid: true}
	n.Longitude = Coordinate{DMS: lng, Hemisphere: fields[6][0], Valid: true}
	n.Altitude, n.AltitudeValid = alt, true
	n.NavStatus = status
	n.HorizontalAccuracy, n.HorizontalAccuracyValid = hAcc, true
	n.VerticalAccuracy, n.VerticalAccuracyValid = vAcc, true
	n.SpeedKMH, n.SpeedValid = sog, true
	n.Course, n.CourseValid = cog, true
	n.VerticalVelocity, n.VerticalVelocityValid = vVel, true
	if ageErr == nil {
		n.CorrectionAge, n.CorrectionAgeValid = ageC, true
	}
	n.HDOP, n.HDOPValid = hdop, true
	n.VDOP, n.VDOPValid = vdop, true
	n.TDOP, n.TDOPValid = tdop, true
	return nil
}

// PUBX,03: the tracked satellite table, replaced wholesale.
func (n *Info) updatePUBX03(fields []string) error {
	if len(fields) < 3 {
		return errors.Errorf("PUBX03 has %d fields", len(fields))
	}
	count, err := strconv.Atoi(fields[2])
	if err != nil {
		return errors.Errorf("bad satellite count %q", fields[2])
	}
	if len(fields) < 3+count*6 {
		return errors.Errorf("PUBX03 claims %d satellites but has %d fields", count, len(fields))
	}
	sats := make([]SatInfo, 0, count)
	for i := 0; i < count; i++ {
		row := fields[3+i*6 : 3+i*6+6]
		prn, err := strconv.ParseUint(row[0], 10, 16)
		if err != nil {
			return errors.Errorf("bad satellite id %q", row[0])
		}
		sat := SatInfo{PRN: uint16(prn), Used: row[1] == "U"}
		// Azimuth, elevation and signal strength are blank for
		// satellites not currently received.
		if v, err := strconv.ParseUint(row[2], 10, 16); err == nil {
			sat.Azimuth, sat.AzimuthValid = uint16(v), true
		}
		if v, err := strconv.ParseUint(row[3], 10, 16); err == nil {
			sat.Elevation, sat.ElevationValid = uint16(v), true
		}
		if v, err := strconv.ParseUint(row[4], 10, 8); err == nil {
			sat.SNR, sat.SNRValid = uint8(v), true
		}
		if v, err := strconv.ParseUint(row[5], 10, 8); err == nil {
			sat.LockTime = uint8(v)
		}
		sats = append(sats, sat)
	}
	n.setSatellites(sats)
	return nil
}

// PUBX,04: receiver clock: full date and time, bias, drift, granularity.
func (n *Info) updatePUBX04(fields []string) error {
	if len(fields) < 10 {
		return errors.Errorf("PUBX04 has %d fields", len(fields))
	}
	hour, minute, second, nanosecond, err := parseClock(fields[2])
	if err != nil {
		return err
	}
	year, month, day, err := parseDate(fields[3])
	if err != nil {
		return err
	}
	bias, err := parseFloatField(fields[7], "clock bias")
	if err != nil {
		return err
	}
	drift, err := parseFloatField(fields[8], "clock drift")
	if err != nil {
		return err
	}
	granularity, err := parseFloatField(fields[9], "timepulse granularity")
	if err != nil {
		return err
	}

	n.setDateTime(year, month, day, hour, minute, second, nanosecond)
	n.ClockBias, n.ClockBiasValid = bias, true
	n.ClockDrift, n.ClockDriftValid = drift, true
	n.TimepulseGranularity, n.TimepulseGranularityValid = granularity, true
	return nil
}
