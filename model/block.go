package model

import (
	"encoding/binary"
	"errors"

	"errlog/internal/crc16"
)

// Block signature words. New blocks are written with the two-word header;
// a legacy three-word header (Sig1, Sig2, Sig3) is still accepted on read
// for compatibility with blocks written by older firmware revisions.
const (
	Sig1       uint16 = 0xA55A
	Sig2       uint16 = 0xCB31
	LegacySig3 uint16 = 0xE93A
)

// headerSize/crcSize are the two-word layout's envelope overhead: sig1(2)
// + sig2(2) + number(2) header, chk(2) trailer.
const (
	headerSize  = 6
	crcSize     = 2
	legacyExtra = 2 // extra bytes consumed by the legacy 3-word header
)

// ErrBlockCorrupt is returned when a block fails its CRC or has neither a
// valid two-word nor legacy three-word signature pair.
var ErrBlockCorrupt = errors.New("errlog: block signature or checksum mismatch")

// Layout describes the block geometry derived from a configured block
// size: how many records fit alongside the fixed header and trailer.
type Layout struct {
	BlockSize uint64
	N         int
}

// NewLayout computes N, the largest record count that fits the given
// block size together with the fixed header and trailing checksum.
func NewLayout(blockSize uint64) Layout {
	avail := int64(blockSize) - headerSize - crcSize
	n := 0
	if avail > 0 {
		n = int(avail / RecordSize)
	}
	return Layout{BlockSize: blockSize, N: n}
}

// Block is the persistent-storage form of the RAM ring: signature words,
// a monotonic block number, the record array, and a trailing CRC-16.
type Block struct {
	Sig1    uint16
	Sig2    uint16
	Number  uint16
	Records []ErrorRecord
	Chk     uint16

	// Legacy is set when this block was parsed from the older three
	// signature-word layout (read-compatibility only; never written).
	Legacy bool
}

// NewBlock returns a freshly zeroed block stamped with the current
// signature words and an all-empty record array.
func NewBlock(layout Layout) *Block {
	return &Block{
		Sig1:    Sig1,
		Sig2:    Sig2,
		Records: make([]ErrorRecord, layout.N),
	}
}

// Marshal serializes the block into its fixed-size on-storage form,
// computing the CRC-16 over every byte except Chk itself. Always writes
// the current (two signature word) layout.
func (b *Block) Marshal(layout Layout) []byte {
	buf := make([]byte, layout.BlockSize)
	binary.LittleEndian.PutUint16(buf[0:2], b.Sig1)
	binary.LittleEndian.PutUint16(buf[2:4], b.Sig2)
	binary.LittleEndian.PutUint16(buf[4:6], b.Number)
	off := headerSize
	for i := 0; i < layout.N; i++ {
		var rec ErrorRecord
		if i < len(b.Records) {
			rec = b.Records[i]
		}
		rec.Put(buf[off : off+RecordSize])
		off += RecordSize
	}
	chkOff := int(layout.BlockSize) - crcSize
	chk := crc16.Checksum(buf[:chkOff])
	binary.LittleEndian.PutUint16(buf[chkOff:], chk)
	b.Chk = chk
	return buf
}

// ParseBlock reconstructs a Block from its on-storage bytes. Both layouts
// checksum the same byte range, so the legacy three-word layout (one fewer
// record slot) is tried first, recognised by LegacySig3 in the word where
// the current layout keeps its number; otherwise the current two-word
// layout is parsed. A current-layout block whose number equals LegacySig3
// is therefore read as a legacy block. Returns ErrBlockCorrupt if neither
// layout's signature and CRC both check out.
func ParseBlock(buf []byte, layout Layout) (*Block, error) {
	if blk, err := parseFixed(buf, layout, true); err == nil {
		return blk, nil
	}
	if blk, err := parseFixed(buf, layout, false); err == nil {
		return blk, nil
	}
	return nil, ErrBlockCorrupt
}

func parseFixed(buf []byte, layout Layout, legacy bool) (*Block, error) {
	hdr := headerSize
	if legacy {
		hdr += legacyExtra
	}
	chkOff := int(layout.BlockSize) - crcSize
	if len(buf) < chkOff+crcSize || chkOff < hdr {
		return nil, ErrBlockCorrupt
	}

	sig1 := binary.LittleEndian.Uint16(buf[0:2])
	sig2 := binary.LittleEndian.Uint16(buf[2:4])
	var sig3 uint16
	numberOff := 4
	if legacy {
		sig3 = binary.LittleEndian.Uint16(buf[4:6])
		numberOff = 6
	}
	if sig1 != Sig1 || sig2 != Sig2 || (legacy && sig3 != LegacySig3) {
		return nil, ErrBlockCorrupt
	}

	storedChk := binary.LittleEndian.Uint16(buf[chkOff:])
	computedChk := crc16.Checksum(buf[:chkOff])
	if storedChk != computedChk {
		return nil, ErrBlockCorrupt
	}

	number := binary.LittleEndian.Uint16(buf[numberOff : numberOff+2])
	off := numberOff + 2
	n := (chkOff - off) / RecordSize
	records := make([]ErrorRecord, n)
	for i := 0; i < n; i++ {
		records[i] = UnmarshalRecord(buf[off : off+RecordSize])
		off += RecordSize
	}

	return &Block{
		Sig1:    sig1,
		Sig2:    sig2,
		Number:  number,
		Records: records,
		Chk:     storedChk,
		Legacy:  legacy,
	}, nil
}
