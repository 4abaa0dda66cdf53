// Package main builds libmic2, the C-compatible boundary of the driver.
// Build with: go build -buildmode=c-shared -o libmic2.so ./capi
//
// The surface mirrors mic2.h: a caller-allocated NeoVIMIC array filled by
// mic2_find after api-version and struct-size negotiation, per-subsystem
// calls taking the NeoVIMIC by pointer, and mic2_free to tear a unit down.
package main

/*
#include <stdbool.h>
#include <stdint.h>
#include <stdlib.h>

#define MIC2_API_VERSION 0x1

typedef enum {
	NeoVIMICErrTypeSuccess = 0,
	NeoVIMICErrTypeFailure,
	NeoVIMICErrTypeInvalidParameter,
	NeoVIMICErrTypeInvalidIndex,
	NeoVIMICErrTypeVersionMismatch,
	NeoVIMICErrTypeSizeMismatch
} NeoVIMICErrType;

typedef struct {
	// API version, must be MIC2_API_VERSION.
	uint32_t version;
	// Size of the struct, must be sizeof(NeoVIMIC).
	uint32_t size;
	// Serial number of the device, typically "MCxxxx". Null terminated.
	char serial_number[16];
	// Driver handle, valid until mic2_free.
	void *handle;
} NeoVIMIC;

typedef struct {
	uint16_t degrees;
	uint8_t minutes;
	uint8_t seconds;
} CGPSDMS;

typedef struct {
	uint16_t prn;
	bool used;
	uint16_t azimuth;
	bool azimuth_valid;
	uint16_t elevation;
	bool elevation_valid;
	uint8_t snr;
	bool snr_valid;
	uint8_t lock_time;
} CGPSSatInfo;

typedef struct {
	// Unix timestamp (UTC). Zero means invalid.
	int64_t current_time;
	CGPSDMS latitude;
	bool latitude_valid;
	char latitude_direction;
	CGPSDMS longitude;
	bool longitude_valid;
	char longitude_direction;
	// -1 means invalid for all doubles below.
	double altitude;
	uint32_t nav_stat;
	double h_acc;
	double v_acc;
	double sog_kmh;
	double cog;
	double vvel;
	double age_c;
	double hdop;
	double vdop;
	double tdop;
	CGPSSatInfo satellites[16];
	uint8_t satellites_count;
	double clock_bias;
	double clock_drift;
	double timepulse_granularity;
} CGPSInfo;
*/
import "C"

import (
	"context"
	"runtime/cgo"
	"unsafe"

	"github.com/edaniels/golog"

	mic2 "github.com/intrepidcs/mic2-go"
	"github.com/intrepidcs/mic2-go/nmea"
)

var logger = golog.NewLogger("mic2")

const (
	errSuccess          = C.NeoVIMICErrType(C.NeoVIMICErrTypeSuccess)
	errFailure          = C.NeoVIMICErrType(C.NeoVIMICErrTypeFailure)
	errInvalidParameter = C.NeoVIMICErrType(C.NeoVIMICErrTypeInvalidParameter)
	errVersionMismatch  = C.NeoVIMICErrType(C.NeoVIMICErrTypeVersionMismatch)
	errSizeMismatch     = C.NeoVIMICErrType(C.NeoVIMICErrTypeSizeMismatch)
)

var errorMessages = map[C.uint32_t]string{
	C.NeoVIMICErrTypeSuccess:          "Success",
	C.NeoVIMICErrTypeFailure:          "Failure",
	C.NeoVIMICErrTypeInvalidParameter: "Invalid Parameter",
	C.NeoVIMICErrTypeInvalidIndex:     "Invalid Index",
	C.NeoVIMICErrTypeVersionMismatch:  "Version Mismatch",
	C.NeoVIMICErrTypeSizeMismatch:     "Size Mismatch",
}

func getDevice(device *C.NeoVIMIC) (*mic2.NeoVIMIC, C.NeoVIMICErrType) {
	if device == nil || device.handle == nil {
		return nil, errInvalidParameter
	}
	h := cgo.Handle(uintptr(device.handle))
	d, ok := h.Value().(*mic2.NeoVIMIC)
	if !ok {
		return nil, errInvalidParameter
	}
	return d, errSuccess
}

// mic2_error_string copies the message for an error code into buffer. When
// the buffer is too small the message is truncated and *length is set to
// the required length (without the terminator).
//
//export mic2_error_string
func mic2_error_string(errorType C.uint32_t, buffer *C.char, length *C.uint32_t) C.NeoVIMICErrType {
	if buffer == nil || length == nil {
		return errInvalidParameter
	}
	msg, ok := errorMessages[errorType]
	if !ok {
		return errInvalidParameter
	}
	buf := unsafe.Slice((*byte)(unsafe.Pointer(buffer)), int(*length))
	if needed, fit := copyMessage(msg, buf); !fit {
		*length = C.uint32_t(needed)
	}
	return errSuccess
}

// copyMessage copies msg and its terminator into buf. When buf is too small
// the copy is truncated without a terminator and the caller gets the length
// required for the full message.
func copyMessage(msg string, buf []byte) (int, bool) {
	copy(buf, msg)
	if len(buf) < len(msg)+1 {
		return len(msg), false
	}
	buf[len(msg)] = 0
	return len(msg), true
}

// negotiateFind validates the caller's ABI expectations. mic2_find runs it
// before writing anything to the caller's array.
func negotiateFind(apiVersion, neoviMicSize C.uint32_t) C.NeoVIMICErrType {
	if apiVersion != C.MIC2_API_VERSION {
		return errVersionMismatch
	}
	if neoviMicSize < C.uint32_t(C.sizeof_NeoVIMIC) {
		return errSizeMismatch
	}
	return errSuccess
}

// mic2_find fills a caller-allocated NeoVIMIC array with the attached
// units. *length carries the array capacity in and the number of units
// out. Units beyond the capacity are closed again.
//
//export mic2_find
func mic2_find(devices *C.NeoVIMIC, length *C.uint32_t, apiVersion, neoviMicSize C.uint32_t) C.NeoVIMICErrType {
	if devices == nil || length == nil {
		return errInvalidParameter
	}
	if rc := negotiateFind(apiVersion, neoviMicSize); rc != errSuccess {
		return rc
	}
	found, err := mic2.Find(logger)
	if err != nil {
		return errFailure
	}
	count := int(*length)
	if len(found) < count {
		count = len(found)
	}
	*length = C.uint32_t(count)
	slots := unsafe.Slice(devices, count)
	for i := range slots {
		d := found[i]
		slots[i].version = apiVersion
		slots[i].size = neoviMicSize
		for j := range slots[i].serial_number {
			slots[i].serial_number[j] = 0
		}
		sn := d.SerialNumber()
		if max := len(slots[i].serial_number) - 1; len(sn) > max {
			sn = sn[:max]
		}
		for j := 0; j < len(sn); j++ {
			slots[i].serial_number[j] = C.char(sn[j])
		}
		h := cgo.NewHandle(d)
		slots[i].handle = unsafe.Pointer(h)
	}
	for _, d := range found[count:] {
		if err := d.Close(); err != nil {
			logger.Errorw("closing surplus unit", "error", err)
		}
	}
	return errSuccess
}

//export mic2_has_gps
func mic2_has_gps(device *C.NeoVIMIC, hasGPS *C.bool) C.NeoVIMICErrType {
	d, rc := getDevice(device)
	if rc != errSuccess {
		return rc
	}
	if hasGPS == nil {
		return errInvalidParameter
	}
	*hasGPS = C.bool(d.HasGPS())
	return errSuccess
}

//export mic2_io_open
func mic2_io_open(device *C.NeoVIMIC) C.NeoVIMICErrType {
	d, rc := getDevice(device)
	if rc != errSuccess {
		return rc
	}
	if err := d.IOOpen(); err != nil {
		return errFailure
	}
	return errSuccess
}

//export mic2_io_close
func mic2_io_close(device *C.NeoVIMIC) C.NeoVIMICErrType {
	d, rc := getDevice(device)
	if rc != errSuccess {
		return rc
	}
	if err := d.IOClose(); err != nil {
		return errFailure
	}
	return errSuccess
}

//export mic2_io_is_open
func mic2_io_is_open(device *C.NeoVIMIC, isOpen *C.bool) C.NeoVIMICErrType {
	d, rc := getDevice(device)
	if rc != errSuccess {
		return rc
	}
	if isOpen == nil {
		return errInvalidParameter
	}
	*isOpen = C.bool(d.IOIsOpen())
	return errSuccess
}

//export mic2_io_buzzer_enable
func mic2_io_buzzer_enable(device *C.NeoVIMIC, enable C.bool) C.NeoVIMICErrType {
	d, rc := getDevice(device)
	if rc != errSuccess {
		return rc
	}
	if err := d.IOBuzzerEnable(bool(enable)); err != nil {
		return errFailure
	}
	return errSuccess
}

//export mic2_io_buzzer_is_enabled
func mic2_io_buzzer_is_enabled(device *C.NeoVIMIC, isEnabled *C.bool) C.NeoVIMICErrType {
	d, rc := getDevice(device)
	if rc != errSuccess {
		return rc
	}
	if isEnabled == nil {
		return errInvalidParameter
	}
	enabled, err := d.IOBuzzerIsEnabled()
	if err != nil {
		return errFailure
	}
	*isEnabled = C.bool(enabled)
	return errSuccess
}

//export mic2_io_gpsled_enable
func mic2_io_gpsled_enable(device *C.NeoVIMIC, enable C.bool) C.NeoVIMICErrType {
	d, rc := getDevice(device)
	if rc != errSuccess {
		return rc
	}
	if err := d.IOGPSLEDEnable(bool(enable)); err != nil {
		return errFailure
	}
	return errSuccess
}

//export mic2_io_gpsled_is_enabled
func mic2_io_gpsled_is_enabled(device *C.NeoVIMIC, isEnabled *C.bool) C.NeoVIMICErrType {
	d, rc := getDevice(device)
	if rc != errSuccess {
		return rc
	}
	if isEnabled == nil {
		return errInvalidParameter
	}
	enabled, err := d.IOGPSLEDIsEnabled()
	if err != nil {
		return errFailure
	}
	*isEnabled = C.bool(enabled)
	return errSuccess
}

//export mic2_io_button_is_pressed
func mic2_io_button_is_pressed(device *C.NeoVIMIC, isPressed *C.bool) C.NeoVIMICErrType {
	d, rc := getDevice(device)
	if rc != errSuccess {
		return rc
	}
	if isPressed == nil {
		return errInvalidParameter
	}
	pressed, err := d.IOButtonIsPressed()
	if err != nil {
		return errFailure
	}
	*isPressed = C.bool(pressed)
	return errSuccess
}

//export mic2_audio_start
func mic2_audio_start(device *C.NeoVIMIC, sampleRate C.uint32_t) C.NeoVIMICErrType {
	d, rc := getDevice(device)
	if rc != errSuccess {
		return rc
	}
	if err := d.AudioStart(uint32(sampleRate)); err != nil {
		return errFailure
	}
	return errSuccess
}

//export mic2_audio_stop
func mic2_audio_stop(device *C.NeoVIMIC) C.NeoVIMICErrType {
	d, rc := getDevice(device)
	if rc != errSuccess {
		return rc
	}
	if err := d.AudioStop(); err != nil {
		return errFailure
	}
	return errSuccess
}

//export mic2_audio_save
func mic2_audio_save(device *C.NeoVIMIC, path *C.char) C.NeoVIMICErrType {
	d, rc := getDevice(device)
	if rc != errSuccess {
		return rc
	}
	if path == nil {
		return errInvalidParameter
	}
	if err := d.AudioSaveToFile(C.GoString(path)); err != nil {
		return errFailure
	}
	return errSuccess
}

//export mic2_gps_open
func mic2_gps_open(device *C.NeoVIMIC) C.NeoVIMICErrType {
	d, rc := getDevice(device)
	if rc != errSuccess {
		return rc
	}
	if err := d.GPSOpen(context.Background()); err != nil {
		return errFailure
	}
	return errSuccess
}

//export mic2_gps_close
func mic2_gps_close(device *C.NeoVIMIC) C.NeoVIMICErrType {
	d, rc := getDevice(device)
	if rc != errSuccess {
		return rc
	}
	if err := d.GPSClose(); err != nil {
		return errFailure
	}
	return errSuccess
}

//export mic2_gps_is_open
func mic2_gps_is_open(device *C.NeoVIMIC, isOpen *C.bool) C.NeoVIMICErrType {
	d, rc := getDevice(device)
	if rc != errSuccess {
		return rc
	}
	if isOpen == nil {
		return errInvalidParameter
	}
	open, err := d.GPSIsOpen()
	if err != nil {
		return errFailure
	}
	*isOpen = C.bool(open)
	return errSuccess
}

//export mic2_gps_has_lock
func mic2_gps_has_lock(device *C.NeoVIMIC, hasLock *C.bool) C.NeoVIMICErrType {
	d, rc := getDevice(device)
	if rc != errSuccess {
		return rc
	}
	if hasLock == nil {
		return errInvalidParameter
	}
	lock, err := d.GPSHasLock()
	if err != nil {
		return errFailure
	}
	*hasLock = C.bool(lock)
	return errSuccess
}

//export mic2_gps_info
func mic2_gps_info(device *C.NeoVIMIC, info *C.CGPSInfo, infoSize C.size_t) C.NeoVIMICErrType {
	d, rc := getDevice(device)
	if rc != errSuccess {
		return rc
	}
	if info == nil {
		return errInvalidParameter
	}
	if infoSize < C.size_t(C.sizeof_CGPSInfo) {
		return errSizeMismatch
	}
	snapshot, err := d.GPSInfo()
	if err != nil {
		return errFailure
	}
	*info = convertGPSInfo(&snapshot)
	return errSuccess
}

// mic2_free force-closes every subsystem of the unit and releases the
// driver handle. Null-safe.
//
//export mic2_free
func mic2_free(device *C.NeoVIMIC) {
	if device == nil || device.handle == nil {
		return
	}
	h := cgo.Handle(uintptr(device.handle))
	if d, ok := h.Value().(*mic2.NeoVIMIC); ok {
		if err := d.Close(); err != nil {
			logger.Errorw("closing unit", "error", err)
		}
	}
	h.Delete()
	device.handle = nil
}

func optDouble(v float64, valid bool) C.double {
	if !valid {
		return -1.0
	}
	return C.double(v)
}

func convertDMS(d nmea.DMS) C.CGPSDMS {
	return C.CGPSDMS{
		degrees: C.uint16_t(d.Degrees),
		minutes: C.uint8_t(d.Minutes),
		seconds: C.uint8_t(d.Seconds),
	}
}

func convertGPSInfo(n *nmea.Info) C.CGPSInfo {
	var out C.CGPSInfo
	if n.TimeValid {
		out.current_time = C.int64_t(n.Time.Unix())
	}
	out.latitude = convertDMS(n.Latitude.DMS)
	out.latitude_valid = C.bool(n.Latitude.Valid)
	if n.Latitude.Valid {
		out.latitude_direction = C.char(n.Latitude.Hemisphere)
	}
	out.longitude = convertDMS(n.Longitude.DMS)
	out.longitude_valid = C.bool(n.Longitude.Valid)
	if n.Longitude.Valid {
		out.longitude_direction = C.char(n.Longitude.Hemisphere)
	}
	out.altitude = optDouble(n.Altitude, n.AltitudeValid)
	out.nav_stat = C.uint32_t(n.NavStatus)
	out.h_acc = optDouble(n.HorizontalAccuracy, n.HorizontalAccuracyValid)
	out.v_acc = optDouble(n.VerticalAccuracy, n.VerticalAccuracyValid)
	out.sog_kmh = optDouble(n.SpeedKMH, n.SpeedValid)
	out.cog = optDouble(n.Course, n.CourseValid)
	out.vvel = optDouble(n.VerticalVelocity, n.VerticalVelocityValid)
	out.age_c = optDouble(n.CorrectionAge, n.CorrectionAgeValid)
	out.hdop = optDouble(n.HDOP, n.HDOPValid)
	out.vdop = optDouble(n.VDOP, n.VDOPValid)
	out.tdop = optDouble(n.TDOP, n.TDOPValid)
	count := n.SatelliteCount
	if count > len(out.satellites) {
		count = len(out.satellites)
	}
	for i := 0; i < count; i++ {
		sat := n.Satellites[i]
		out.satellites[i] = C.CGPSSatInfo{
			prn:             C.uint16_t(sat.PRN),
			used:            C.bool(sat.Used),
			azimuth:         C.uint16_t(sat.Azimuth),
			azimuth_valid:   C.bool(sat.AzimuthValid),
			elevation:       C.uint16_t(sat.Elevation),
			elevation_valid: C.bool(sat.ElevationValid),
			snr:             C.uint8_t(sat.SNR),
			snr_valid:       C.bool(sat.SNRValid),
			lock_time:       C.uint8_t(sat.LockTime),
		}
	}
	out.satellites_count = C.uint8_t(count)
	out.clock_bias = optDouble(n.ClockBias, n.ClockBiasValid)
	out.clock_drift = optDouble(n.ClockDrift, n.ClockDriftValid)
	out.timepulse_granularity = optDouble(n.TimepulseGranularity, n.TimepulseGranularityValid)
	return out
}

func main() {}
