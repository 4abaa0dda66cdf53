package audio

import (
	"regexp"
	"sort"
	"strconv"
)

// The codec advertises itself with this prefix; when several units are
// attached the host appends a running index ("... #2").
var (
	codecNamePattern = regexp.MustCompile(`^PCM2912A Audio Codec`)
	indexPattern     = regexp.MustCompile(`\d+$`)
)

// CaptureDevice is one MIC2 microphone as seen by the audio backend.
type CaptureDevice struct {
	Name  string
	Index int // starts at 1
}

// FindCaptureDevices returns the attached MIC2 microphone codecs sorted by
// index.
func FindCaptureDevices() ([]CaptureDevice, error) {
	names, err := ListCaptureNames()
	if err != nil {
		return nil, err
	}
	var devices []CaptureDevice
	for _, name := range names {
		if !codecNamePattern.MatchString(name) {
			continue
		}
		index := 1
		if m := indexPattern.FindString(name); m != "" {
			if v, err := strconv.Atoi(m); err == nil {
				index = v
			}
		}
		devices = append(devices, CaptureDevice{Name: name, Index: index})
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].Index < devices[j].Index })
	return devices, nil
}
