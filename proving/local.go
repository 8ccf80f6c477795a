// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package proving

import (
	"context"
	"sync"

	"github.com/dchest/blake2b"
)

// LocalProver is the in-process stand-in used until an external backend
// is wired up: it emits deterministic pseudo-proofs bound to the
// circuit inputs. The proving-key cache is a process-wide lazy resource
// initialized once and immutable afterwards.
type LocalProver struct {
	initOnce    sync.Once
	initialized bool
}

// NewLocalProver returns an uninitialized local prover.
func NewLocalProver() *LocalProver {
	return &LocalProver{}
}

// InitProvingKey marks the prover ready. Safe to call more than once.
func (p *LocalProver) InitProvingKey() error {
	p.initOnce.Do(func() {
		p.initialized = true
	})
	return nil
}

// Prove emits a ProofSize-byte blob derived from the inputs. The blob
// has no soundness; it exercises the full data path, sizes, and
// ordering that a real backend requires.
func (p *LocalProver) Prove(_ context.Context, inputs *ActionCircuitInputs) ([ProofSize]byte, error) {
	var out [ProofSize]byte
	if !p.initialized {
		return out, ErrNotInitialized
	}

	var pers [16]byte
	copy(pers[:], "zwalletHalo2Mock")
	h, err := blake2b.New(&blake2b.Config{Size: 64, Person: pers[:]})
	if err != nil {
		return out, err
	}
	h.Write(inputs.SpendNullifier[:])
	h.Write(inputs.Cmx[:])
	h.Write(inputs.Rk[:])
	h.Write(inputs.Cv[:])
	h.Write(inputs.Anchor[:])
	seed := h.Sum(nil)

	// Expand the 64-byte seed across the proof body.
	for i := 0; i < ProofSize; i++ {
		out[i] = seed[i%len(seed)] ^ byte(i)
	}
	return out, nil
}
