// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package orchard

import (
	"bytes"
	"fmt"
	"io"

	"github.com/robustfengbin/zwallet/crypto/pallas"
	"github.com/robustfengbin/zwallet/wire"
)

// Frontier and witness serialization. The format mirrors the upstream
// commitment-tree encoding: optional nodes are a presence byte followed
// by 32 bytes, vectors are compact-size prefixed.

func writeOptionalNode(w io.Writer, node *pallas.Element) error {
	if node == nil {
		_, err := w.Write([]byte{0x00})
		return err
	}
	if _, err := w.Write([]byte{0x01}); err != nil {
		return err
	}
	b := node.Bytes()
	_, err := w.Write(b[:])
	return err
}

func readOptionalNode(r io.Reader) (*pallas.Element, error) {
	var flag [1]byte
	if _, err := io.ReadFull(r, flag[:]); err != nil {
		return nil, err
	}
	switch flag[0] {
	case 0x00:
		return nil, nil
	case 0x01:
		var buf [32]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, err
		}
		node, err := pallas.FromBytes(buf[:])
		if err != nil {
			return nil, err
		}
		return node, nil
	default:
		return nil, fmt.Errorf("invalid optional-node flag %#02x", flag[0])
	}
}

func writeFrontier(w io.Writer, f *frontier) error {
	if err := writeOptionalNode(w, f.left); err != nil {
		return err
	}
	if err := writeOptionalNode(w, f.right); err != nil {
		return err
	}
	if err := wire.WriteCompactSize(w, uint64(len(f.parents))); err != nil {
		return err
	}
	for _, p := range f.parents {
		if err := writeOptionalNode(w, p); err != nil {
			return err
		}
	}
	return nil
}

func readFrontier(r io.Reader) (*frontier, error) {
	f := newFrontier()
	var err error
	if f.left, err = readOptionalNode(r); err != nil {
		return nil, err
	}
	if f.right, err = readOptionalNode(r); err != nil {
		return nil, err
	}
	n, err := wire.ReadCompactSize(r)
	if err != nil {
		return nil, err
	}
	if n > TreeDepth {
		return nil, fmt.Errorf("frontier has %d parent levels, max %d", n, TreeDepth)
	}
	f.parents = make([]*pallas.Element, n)
	for i := uint64(0); i < n; i++ {
		if f.parents[i], err = readOptionalNode(r); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func frontierToBytes(f *frontier) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeFrontier(&buf, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func frontierFromBytes(b []byte) (*frontier, error) {
	r := bytes.NewReader(b)
	f, err := readFrontier(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrontier, err)
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidFrontier, r.Len())
	}
	return f, nil
}

// SerializeWitness renders an incremental witness as an opaque blob for
// the persistence port.
func SerializeWitness(w *IncrementalWitness) ([]byte, error) {
	var buf bytes.Buffer

	if err := writeFrontier(&buf, w.tree); err != nil {
		return nil, err
	}

	if err := wire.WriteCompactSize(&buf, uint64(len(w.filled))); err != nil {
		return nil, err
	}
	for _, node := range w.filled {
		b := node.Bytes()
		if _, err := buf.Write(b[:]); err != nil {
			return nil, err
		}
	}

	if w.cursor == nil {
		buf.WriteByte(0x00)
	} else {
		buf.WriteByte(0x01)
		buf.WriteByte(byte(w.cursorDepth))
		if err := writeFrontier(&buf, w.cursor); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// DeserializeWitness parses a blob written by SerializeWitness.
func DeserializeWitness(b []byte) (*IncrementalWitness, error) {
	r := bytes.NewReader(b)

	tree, err := readFrontier(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWitness, err)
	}
	w := &IncrementalWitness{tree: tree}

	n, err := wire.ReadCompactSize(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWitness, err)
	}
	if n > TreeDepth {
		return nil, fmt.Errorf("%w: %d filled levels", ErrInvalidWitness, n)
	}
	for i := uint64(0); i < n; i++ {
		var buf [32]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWitness, err)
		}
		node, err := pallas.FromBytes(buf[:])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWitness, err)
		}
		w.filled = append(w.filled, node)
	}

	var flag [1]byte
	if _, err := io.ReadFull(r, flag[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWitness, err)
	}
	if flag[0] == 0x01 {
		var depth [1]byte
		if _, err := io.ReadFull(r, depth[:]); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWitness, err)
		}
		w.cursorDepth = int(depth[0])
		if w.cursor, err = readFrontier(r); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWitness, err)
		}
	} else if flag[0] != 0x00 {
		return nil, fmt.Errorf("%w: bad cursor flag %#02x", ErrInvalidWitness, flag[0])
	}

	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidWitness, r.Len())
	}
	return w, nil
}
