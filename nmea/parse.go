package nmea

import (
	"math"
	"strconv"
	"strings"
	"time"

	gonmea "github.com/adrianmo/go-nmea"
	"github.com/pkg/errors"
)

// Update merges a single sentence into the snapshot. Malformed or
// unsupported sentences return an error and leave the snapshot untouched.
func (n *Info) Update(raw string) error {
	line := strings.TrimSpace(raw)
	if line == "" {
		return errors.New("empty sentence")
	}
	if strings.HasPrefix(line, "$PUBX,") {
		return n.updatePUBX(line)
	}
	s, err := gonmea.Parse(line)
	if err != nil {
		return errors.Wrap(err, "parsing sentence")
	}
	switch m := s.(type) {
	case gonmea.GGA:
		n.updateGGA(m)
	case gonmea.RMC:
		n.updateRMC(m)
	case gonmea.GSA:
		n.updateGSA(m)
	case gonmea.GSV:
		n.updateGSV(m)
	case gonmea.GST:
		n.updateGST(m)
	case gonmea.VTG:
		n.updateVTG(m)
	default:
		return errors.Errorf("unhandled sentence type %q", s.DataType())
	}
	return nil
}

func (n *Info) updateGGA(m gonmea.GGA) {
	valid := m.FixQuality != gonmea.Invalid
	switch m.FixQuality {
	case gonmea.Invalid:
		n.NavStatus = NavStatusNoFix
	case gonmea.GPS, gonmea.PPS:
		n.NavStatus = NavStatusStandalone3D
	case gonmea.DGPS, gonmea.RTK, gonmea.FRTK:
		n.NavStatus = NavStatusDifferential3D
	case gonmea.EST:
		n.NavStatus = NavStatusDeadReckoning
	}
	n.setDecimalPosition(m.Latitude, m.Longitude, valid)
	if valid {
		n.Altitude, n.AltitudeValid = m.Altitude, true
		if m.HDOP > 0 {
			n.HDOP, n.HDOPValid = m.HDOP, true
		}
	}
	if m.Time.Valid {
		n.fillTime(m.Time.Hour, m.Time.Minute, m.Time.Second, m.Time.Millisecond*1e6)
	}
}

func (n *Info) updateRMC(m gonmea.RMC) {
	valid := m.Validity == "A"
	n.setDecimalPosition(m.Latitude, m.Longitude, valid)
	if !valid {
		n.NavStatus = NavStatusNoFix
		return
	}
	n.SpeedKMH, n.SpeedValid = m.Speed*1.852, true
	n.Course, n.CourseValid = m.Course, true
	if m.Time.Valid && m.Date.Valid {
		n.setDateTime(
			2000+m.Date.YY, time.Month(m.Date.MM), m.Date.DD,
			m.Time.Hour, m.Time.Minute, m.Time.Second, m.Time.Millisecond*1e6,
		)
	}
}

func (n *Info) updateGSA(m gonmea.GSA) {
	switch m.FixType {
	case gonmea.FixNone:
		n.NavStatus = NavStatusNoFix
	case gonmea.Fix2D:
		n.NavStatus = NavStatusStandalone2D
	case gonmea.Fix3D:
		n.NavStatus = NavStatusStandalone3D
	}
	if m.HDOP > 0 {
		n.HDOP, n.HDOPValid = m.HDOP, true
	}
	if m.VDOP > 0 {
		n.VDOP, n.VDOPValid = m.VDOP, true
	}
	// Flag the satellites participating in the solution.
	for _, sv := range m.SV {
		prn, err := strconv.ParseUint(sv, 10, 16)
		if err != nil {
			continue
		}
		for i := range n.Satellites[:n.SatelliteCount] {
			if n.Satellites[i].PRN == uint16(prn) {
				n.Satellites[i].Used = true
			}
		}
	}
}

func (n *Info) updateGSV(m gonmea.GSV) {
	if m.MessageNumber <= 1 {
		n.pendingCount = 0
	}
	for _, sv := range m.Info {
		if n.pendingCount >= MaxSatellites {
			break
		}
		sat := SatInfo{PRN: uint16(sv.SVPRNNumber)}
		if sv.Azimuth >= 0 {
			sat.Azimuth, sat.AzimuthValid = uint16(sv.Azimuth), true
		}
		if sv.Elevation >= 0 {
			sat.Elevation, sat.ElevationValid = uint16(sv.Elevation), true
		}
		if sv.SNR > 0 {
			sat.SNR, sat.SNRValid = uint8(sv.SNR), true
		}
		n.pendingSats[n.pendingCount] = sat
		n.pendingCount++
	}
	// Commit only on the final message so a torn group never shrinks the
	// published table.
	if m.MessageNumber >= m.TotalMessages {
		n.setSatellites(n.pendingSats[:n.pendingCount])
		n.pendingCount = 0
	}
}

func (n *Info) updateGST(m gonmea.GST) {
	if m.LatitudeError > 0 || m.LongitudeError > 0 {
		n.HorizontalAccuracy = math.Max(m.LatitudeError, m.LongitudeError)
		n.HorizontalAccuracyValid = true
	}
	if m.AltitudeError > 0 {
		n.VerticalAccuracy, n.VerticalAccuracyValid = m.AltitudeError, true
	}
}

func (n *Info) updateVTG(m gonmea.VTG) {
	n.SpeedKMH, n.SpeedValid = m.GroundSpeedKPH, true
	n.Course, n.CourseValid = m.TrueTrack, true
}
