// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wire implements the ZIP-225 v5 transaction format: the
// transparent bundle, the Orchard bundle, and the compact-size integer
// encoding shared by both.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrVarIntTooLong is returned when a compact-size integer uses a
	// longer encoding than necessary. Canonical encodings are required
	// so a transaction has exactly one serialization.
	ErrVarIntTooLong = errors.New("non-canonical compact size encoding")
)

// WriteCompactSize serializes n using the Bitcoin/Zcash compact-size
// format.
func WriteCompactSize(w io.Writer, n uint64) error {
	switch {
	case n < 0xfd:
		_, err := w.Write([]byte{byte(n)})
		return err
	case n <= 0xffff:
		var buf [3]byte
		buf[0] = 0xfd
		binary.LittleEndian.PutUint16(buf[1:], uint16(n))
		_, err := w.Write(buf[:])
		return err
	case n <= 0xffffffff:
		var buf [5]byte
		buf[0] = 0xfe
		binary.LittleEndian.PutUint32(buf[1:], uint32(n))
		_, err := w.Write(buf[:])
		return err
	default:
		var buf [9]byte
		buf[0] = 0xff
		binary.LittleEndian.PutUint64(buf[1:], n)
		_, err := w.Write(buf[:])
		return err
	}
}

// CompactSizeBytes returns the compact-size encoding of n.
func CompactSizeBytes(n uint64) []byte {
	switch {
	case n < 0xfd:
		return []byte{byte(n)}
	case n <= 0xffff:
		buf := make([]byte, 3)
		buf[0] = 0xfd
		binary.LittleEndian.PutUint16(buf[1:], uint16(n))
		return buf
	case n <= 0xffffffff:
		buf := make([]byte, 5)
		buf[0] = 0xfe
		binary.LittleEndian.PutUint32(buf[1:], uint32(n))
		return buf
	default:
		buf := make([]byte, 9)
		buf[0] = 0xff
		binary.LittleEndian.PutUint64(buf[1:], n)
		return buf
	}
}

// ReadCompactSize deserializes a compact-size integer, rejecting
// non-canonical encodings.
func ReadCompactSize(r io.Reader) (uint64, error) {
	var disc [1]byte
	if _, err := io.ReadFull(r, disc[:]); err != nil {
		return 0, err
	}

	switch disc[0] {
	case 0xfd:
		var buf [2]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		n := uint64(binary.LittleEndian.Uint16(buf[:]))
		if n < 0xfd {
			return 0, ErrVarIntTooLong
		}
		return n, nil
	case 0xfe:
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		n := uint64(binary.LittleEndian.Uint32(buf[:]))
		if n <= 0xffff {
			return 0, ErrVarIntTooLong
		}
		return n, nil
	case 0xff:
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		n := binary.LittleEndian.Uint64(buf[:])
		if n <= 0xffffffff {
			return 0, ErrVarIntTooLong
		}
		return n, nil
	default:
		return uint64(disc[0]), nil
	}
}

func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeInt64(w io.Writer, v int64) error {
	return writeUint64(w, uint64(v))
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func readUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func readInt64(r io.Reader) (int64, error) {
	v, err := readUint64(r)
	return int64(v), err
}

// readVarBytes reads a compact-size prefixed byte slice, enforcing the
// given maximum so a corrupt length cannot trigger a huge allocation.
func readVarBytes(r io.Reader, maxLen uint64, field string) ([]byte, error) {
	n, err := ReadCompactSize(r)
	if err != nil {
		return nil, err
	}
	if n > maxLen {
		return nil, fmt.Errorf("%s length %d exceeds maximum %d", field, n, maxLen)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeVarBytes(w io.Writer, b []byte) error {
	if err := WriteCompactSize(w, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}
