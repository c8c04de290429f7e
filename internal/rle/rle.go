// Package rle run-length-encodes a grid's flat cell-value slice as
// (value, run length) varint pairs. Grounded in the teacher's
// internal/sim/encoding voxel-palette RLE codec, generalized from
// uint16 block ids to the engine's uint8 alphabet values and from a
// base64-string wire format to raw bytes (the caller's JSON encoding,
// e.g. trace.Entry's []byte field, already base64s a []byte for free).
// Procedurally generated grids are usually dominated by one background
// symbol, so this shrinks typical snapshots considerably.
package rle

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Encode compresses values into (value, run) varint pairs.
func Encode(values []uint8) []byte {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	i := 0
	for i < len(values) {
		v := values[i]
		run := 1
		for j := i + 1; j < len(values) && values[j] == v && run < 1<<31; j++ {
			run++
		}

		n := binary.PutUvarint(tmp[:], uint64(v))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])

		i += run
	}
	return buf.Bytes()
}

// Decode reverses Encode. wantLen, if > 0, is checked against the
// decoded length so a truncated or corrupt stream is caught early.
func Decode(enc []byte, wantLen int) ([]uint8, error) {
	var out []uint8
	for i := 0; i < len(enc); {
		v, n := binary.Uvarint(enc[i:])
		if n <= 0 {
			return nil, fmt.Errorf("rle: bad value varint at byte %d", i)
		}
		i += n
		run, n := binary.Uvarint(enc[i:])
		if n <= 0 {
			return nil, fmt.Errorf("rle: bad run varint at byte %d", i)
		}
		i += n
		if v > 0xFF {
			return nil, fmt.Errorf("rle: value %d exceeds uint8 range", v)
		}
		for k := uint64(0); k < run; k++ {
			out = append(out, uint8(v))
		}
	}
	if wantLen > 0 && len(out) != wantLen {
		return nil, fmt.Errorf("rle: decoded %d values, want %d", len(out), wantLen)
	}
	return out, nil
}
