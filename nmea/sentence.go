package nmea

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// stripChecksum validates a "$payload*hh" frame and returns the payload.
func stripChecksum(line string) (string, error) {
	if len(line) < 4 || line[0] != '$' {
		return "", errors.Errorf("malformed sentence %q", line)
	}
	star := strings.LastIndexByte(line, '*')
	if star < 0 || len(line)-star != 3 {
		return "", errors.Errorf("sentence %q has no checksum", line)
	}
	want, err := strconv.ParseUint(line[star+1:], 16, 8)
	if err != nil {
		return "", errors.Errorf("sentence %q has a bad checksum field", line)
	}
	payload := line[1:star]
	var sum byte
	for i := 0; i < len(payload); i++ {
		sum ^= payload[i]
	}
	if sum != byte(want) {
		return "", errors.Errorf("sentence %q checksum mismatch: computed %02X", line, sum)
	}
	return payload, nil
}

// parseClock parses an hhmmss.ss time-of-day field.
func parseClock(field string) (hour, minute, second, nanosecond int, err error) {
	if len(field) < 6 {
		return 0, 0, 0, 0, errors.Errorf("malformed time %q", field)
	}
	hour, err1 := strconv.Atoi(field[:2])
	minute, err2 := strconv.Atoi(field[2:4])
	secs, err3 := strconv.ParseFloat(field[4:], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, 0, 0, 0, errors.Errorf("malformed time %q", field)
	}
	second = int(secs)
	nanosecond = int(math.Round((secs - float64(second)) * 1e9))
	return hour, minute, second, nanosecond, nil
}

// parseDate parses a ddmmyy date field.
func parseDate(field string) (year int, month time.Month, day int, err error) {
	if len(field) != 6 {
		return 0, 0, 0, errors.Errorf("malformed date %q", field)
	}
	day, err1 := strconv.Atoi(field[:2])
	monthNum, err2 := strconv.Atoi(field[2:4])
	year, err3 := strconv.Atoi(field[4:])
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, 0, 0, errors.Errorf("malformed date %q", field)
	}
	return 2000 + year, time.Month(monthNum), day, nil
}

func parseFloatField(field, what string) (float64, error) {
	v, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, errors.Errorf("malformed %s %q", what, field)
	}
	return v, nil
}
