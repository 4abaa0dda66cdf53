package gps

import (
	"encoding/binary"
	"io"
)

// UBX framing: 0xB5 0x62, class, id, little-endian payload length, payload,
// Fletcher-8 checksum over everything between the sync bytes and the
// checksum itself.
const (
	ubxSync1 = 0xB5
	ubxSync2 = 0x62

	ubxClassCfg = 0x06
	ubxCfgMsg   = 0x01
	ubxCfgRst   = 0x04
)

type ubxPacket struct {
	class   byte
	id      byte
	payload []byte
}

func (p ubxPacket) encode() []byte {
	buf := make([]byte, 0, 8+len(p.payload))
	buf = append(buf, ubxSync1, ubxSync2, p.class, p.id)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(p.payload)))
	buf = append(buf, p.payload...)
	var ckA, ckB byte
	for _, b := range buf[2:] {
		ckA += b
		ckB += ckA
	}
	return append(buf, ckA, ckB)
}

// cfgMsgRate builds a CFG-MSG packet setting the output rate of one message
// on the current port.
func cfgMsgRate(msgClass, msgID, rate byte) ubxPacket {
	return ubxPacket{class: ubxClassCfg, id: ubxCfgMsg, payload: []byte{msgClass, msgID, rate}}
}

// standardNMEAMsgIDs are the NMEA 0183 messages (class 0xF0) a receiver may
// emit out of the box.
var standardNMEAMsgIDs = []byte{
	0x00, // GGA
	0x01, // GLL
	0x02, // GSA
	0x03, // GSV
	0x04, // RMC
	0x05, // VTG
	0x06, // GRS
	0x07, // GST
	0x08, // ZDA
	0x09, // GBS
	0x0A, // DTM
	0x0D, // GNS
	0x0E, // THS
	0x0F, // VLW
	0x40, // GPQ
	0x41, // TXT
	0x42, // GNQ
	0x43, // GLQ
	0x44, // GBQ
}

// configureReceiver resets the receiver and swaps its output from the
// standard NMEA set to the proprietary PUBX 00/03/04 messages.
func configureReceiver(w io.Writer) error {
	packets := []ubxPacket{
		// CFG-RST: software reset, hot start.
		{class: ubxClassCfg, id: ubxCfgRst, payload: []byte{0x00, 0x00, 0x01, 0x00}},
	}
	for _, id := range standardNMEAMsgIDs {
		packets = append(packets, cfgMsgRate(0xF0, id, 0))
	}
	for _, id := range []byte{0x00, 0x03, 0x04} {
		packets = append(packets, cfgMsgRate(0xF1, id, 1))
	}
	for _, p := range packets {
		if _, err := w.Write(p.encode()); err != nil {
			return err
		}
	}
	return nil
}
