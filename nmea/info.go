// Package nmea parses the sentences emitted by the MIC2's u-blox receiver
// and folds them into a point-in-time Info snapshot. The receiver is
// configured for the proprietary PUBX 00/03/04 set; the standard
// GGA/GSA/GSV/RMC/GST/VTG sentences are understood as well.
package nmea

import (
	"time"

	geo "github.com/kellydunn/golang-geo"
)

// MaxSatellites bounds the satellite table; anything past it is dropped.
const MaxSatellites = 16

// NavStatus is the receiver's navigation status (PUBX00 field 8).
type NavStatus int

const (
	NavStatusNoFix NavStatus = iota
	NavStatusDeadReckoning
	NavStatusStandalone2D
	NavStatusStandalone3D
	NavStatusDifferential2D
	NavStatusDifferential3D
	NavStatusCombined // GPS + dead reckoning
	NavStatusTimeOnly
)

var navStatusCodes = map[string]NavStatus{
	"NF": NavStatusNoFix,
	"DR": NavStatusDeadReckoning,
	"G2": NavStatusStandalone2D,
	"G3": NavStatusStandalone3D,
	"D2": NavStatusDifferential2D,
	"D3": NavStatusDifferential3D,
	"RK": NavStatusCombined,
	"TT": NavStatusTimeOnly,
}

func (s NavStatus) String() string {
	switch s {
	case NavStatusDeadReckoning:
		return "dead reckoning"
	case NavStatusStandalone2D:
		return "standalone 2D"
	case NavStatusStandalone3D:
		return "standalone 3D"
	case NavStatusDifferential2D:
		return "differential 2D"
	case NavStatusDifferential3D:
		return "differential 3D"
	case NavStatusCombined:
		return "combined GPS/dead reckoning"
	case NavStatusTimeOnly:
		return "time only"
	default:
		return "no fix"
	}
}

// SatInfo describes one tracked satellite (PUBX03 row or GSV entry).
// Azimuth, elevation and SNR are absent for satellites not being received.
type SatInfo struct {
	PRN            uint16
	Used           bool
	Azimuth        uint16
	AzimuthValid   bool
	Elevation      uint16
	ElevationValid bool
	SNR            uint8
	SNRValid       bool
	LockTime       uint8
}

// Info is a snapshot of everything the receiver has reported. The zero
// value has every Valid flag false and NavStatus == NavStatusNoFix.
// Update merges one sentence at a time; copying the struct yields an
// independent snapshot.
type Info struct {
	Time      time.Time
	TimeValid bool

	Latitude  Coordinate
	Longitude Coordinate

	Altitude      float64 // meters above mean sea level
	AltitudeValid bool

	NavStatus NavStatus

	HorizontalAccuracy      float64 // meters
	HorizontalAccuracyValid bool
	VerticalAccuracy        float64 // meters
	VerticalAccuracyValid   bool

	SpeedKMH              float64
	SpeedValid            bool
	Course                float64 // degrees true
	CourseValid           bool
	VerticalVelocity      float64 // m/s, positive down
	VerticalVelocityValid bool
	CorrectionAge         float64 // seconds
	CorrectionAgeValid    bool

	HDOP      float64
	HDOPValid bool
	VDOP      float64
	VDOPValid bool
	TDOP      float64
	TDOPValid bool

	Satellites     [MaxSatellites]SatInfo
	SatelliteCount int

	ClockBias                 float64 // ns
	ClockBiasValid            bool
	ClockDrift                float64 // ns/s
	ClockDriftValid           bool
	TimepulseGranularity      float64 // ns
	TimepulseGranularityValid bool

	// GSV groups span multiple sentences; entries accumulate here and
	// commit to Satellites only when the last message of a group lands.
	pendingSats  [MaxSatellites]SatInfo
	pendingCount int
}

// HasFix reports whether the receiver claims any kind of position fix.
func (n *Info) HasFix() bool {
	return n.NavStatus != NavStatusNoFix
}

// Location returns the position in decimal degrees, or nil before the
// receiver has reported one.
func (n *Info) Location() *geo.Point {
	if !n.Latitude.Valid || !n.Longitude.Valid {
		return nil
	}
	return geo.NewPoint(n.Latitude.Decimal(), n.Longitude.Decimal())
}

// UsedSatellites counts the satellites participating in the solution.
func (n *Info) UsedSatellites() int {
	used := 0
	for _, sat := range n.Satellites[:n.SatelliteCount] {
		if sat.Used {
			used++
		}
	}
	return used
}

// fillTime sets the timestamp from a time-of-day-only sentence. The
// receiver does not repeat the date here, so the host's UTC date fills in
// the first time; a timestamp already set (possibly with a receiver date)
// is left alone.
func (n *Info) fillTime(hour, minute, second, nanosecond int) {
	if n.TimeValid {
		return
	}
	now := time.Now().UTC()
	n.Time = time.Date(now.Year(), now.Month(), now.Day(), hour, minute, second, nanosecond, time.UTC)
	n.TimeValid = true
}

// setDateTime sets the timestamp from a sentence carrying both date and
// time of day.
func (n *Info) setDateTime(year int, month time.Month, day, hour, minute, second, nanosecond int) {
	n.Time = time.Date(year, month, day, hour, minute, second, nanosecond, time.UTC)
	n.TimeValid = true
}

// setDecimalPosition records a position reported in decimal degrees.
func (n *Info) setDecimalPosition(lat, lng float64, valid bool) {
	latHemi, lngHemi := byte('N'), byte('E')
	if lat < 0 {
		latHemi = 'S'
	}
	if lng < 0 {
		lngHemi = 'W'
	}
	n.Latitude = Coordinate{DMS: DMSFromDecimal(lat), Hemisphere: latHemi, Valid: valid}
	n.Longitude = Coordinate{DMS: DMSFromDecimal(lng), Hemisphere: lngHemi, Valid: valid}
}

// setSatellites replaces the satellite table wholesale.
func (n *Info) setSatellites(sats []SatInfo) {
	n.Satellites = [MaxSatellites]SatInfo{}
	if len(sats) > MaxSatellites {
		sats = sats[:MaxSatellites]
	}
	copy(n.Satellites[:], sats)
	n.SatelliteCount = len(sats)
}
