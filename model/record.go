// Package model holds the wire-exact data types shared by the ring, the
// persisted block layout, and the exported memory format: ErrorRecord and
// Block. Field order and widths here are load-bearing — readers and
// writers on both sides (RAM ring, external storage, exported buffers)
// agree on this exact layout, so it is hand-serialized with
// encoding/binary rather than left to native struct packing.
package model

import "encoding/binary"

// ErrorDatMagic is the sentinel byte stamped into Valid when a slot is
// occupied. Zeroed storage therefore parses as an empty slot.
const ErrorDatMagic byte = 0xA5

// RecordSize is the wire size of one ErrorRecord: valid(1) level(1)
// source(2) err(4) argument(2) time(4).
const RecordSize = 14

// BusSourceReserved is the exclusive upper bound of source tags reserved
// for the platform bus library; sources >= this value are free for
// application subsystems.
const BusSourceReserved = 50

// SPIErrorDatTag is the frame tag stamped into an exported memory image's
// first byte, identifying it to a remote bus print helper as an
// error-log export frame rather than some other SPI payload.
const SPIErrorDatTag byte = 0xE5

// FrameHeaderSize is the exported frame's fixed prefix: tag(1) +
// sender bus address(1) + record count(2), ahead of the packed records.
const FrameHeaderSize = 4

// ErrorRecord is one reported event.
type ErrorRecord struct {
	Valid    byte
	Level    uint8
	Source   uint16
	Err      int32
	Argument uint16
	Time     uint32
}

// IsValid reports whether the slot is occupied (stamped with the sentinel).
func (r *ErrorRecord) IsValid() bool {
	return r.Valid == ErrorDatMagic
}

// MarshalBinary writes the record into the fixed 14-byte wire layout.
func (r *ErrorRecord) MarshalBinary() []byte {
	buf := make([]byte, RecordSize)
	r.Put(buf)
	return buf
}

// Put serializes the record into buf[:RecordSize]. Panics if buf is too
// short; callers own pre-sizing, matching the teacher's fixed-offset
// serialization style (no bounds-checked append).
func (r *ErrorRecord) Put(buf []byte) {
	_ = buf[RecordSize-1]
	buf[0] = r.Valid
	buf[1] = r.Level
	binary.LittleEndian.PutUint16(buf[2:4], r.Source)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(r.Err))
	binary.LittleEndian.PutUint16(buf[8:10], r.Argument)
	binary.LittleEndian.PutUint32(buf[10:14], r.Time)
}

// UnmarshalRecord reconstructs an ErrorRecord from its wire layout.
func UnmarshalRecord(buf []byte) ErrorRecord {
	_ = buf[RecordSize-1]
	return ErrorRecord{
		Valid:    buf[0],
		Level:    buf[1],
		Source:   binary.LittleEndian.Uint16(buf[2:4]),
		Err:      int32(binary.LittleEndian.Uint32(buf[4:8])),
		Argument: binary.LittleEndian.Uint16(buf[8:10]),
		Time:     binary.LittleEndian.Uint32(buf[10:14]),
	}
}
