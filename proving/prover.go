// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package proving defines the port to the external Halo 2 proving
// backend and a blocking worker pool that keeps proof generation off
// the scan loop.
package proving

import (
	"context"
	"errors"
	"sync"
)

// ProofSize is the size of one Halo 2 action proof.
const ProofSize = 2720

var (
	// ErrProofGeneration is the generic failure class for backend
	// errors.
	ErrProofGeneration = errors.New("proof generation failed")

	// ErrNotInitialized is returned when Prove is called before
	// InitProvingKey.
	ErrNotInitialized = errors.New("proving key not initialized")
)

// ActionCircuitInputs carries everything the backend needs to prove one
// action. All fields are raw encodings; the backend owns their
// interpretation.
type ActionCircuitInputs struct {
	// SpendNullifier, Cmx, Rk, Cv bind the proof to the action's public
	// fields.
	SpendNullifier [32]byte
	Cmx            [32]byte
	Rk             [32]byte
	Cv             [32]byte

	// Anchor and AuthPath prove membership of the spent note.
	Anchor   [32]byte
	Position uint64
	AuthPath [][32]byte

	// SpendValue and OutputValue are the action's private values.
	SpendValue  uint64
	OutputValue uint64
}

// Prover is the proving backend port. Implementations may be invoked
// from many goroutines at once.
type Prover interface {
	// InitProvingKey loads or builds the proving key. It must be called
	// once at startup before any Prove call; later calls are no-ops.
	InitProvingKey() error

	// Prove produces one action proof. It may block for seconds; it is
	// not cancellable once dispatched, though callers may abandon the
	// result.
	Prove(ctx context.Context, inputs *ActionCircuitInputs) ([ProofSize]byte, error)
}

// Pool runs a Prover on a fixed number of worker goroutines. Proof jobs
// are dispatched out of order but results are returned in action
// order, so bundle assembly stays deterministic.
type Pool struct {
	prover  Prover
	workers int
}

// NewPool sizes a pool. Worker counts below one are clamped to one.
func NewPool(prover Prover, workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{prover: prover, workers: workers}
}

// ProveAll proves every action and concatenates the proofs in input
// order. On error the first failure wins; in-flight jobs finish but
// their results are discarded.
func (p *Pool) ProveAll(ctx context.Context, inputs []*ActionCircuitInputs) ([]byte, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	type job struct {
		idx    int
		inputs *ActionCircuitInputs
	}

	jobs := make(chan job)
	results := make([][ProofSize]byte, len(inputs))
	errOnce := sync.Once{}
	var firstErr error

	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				proof, err := p.prover.Prove(ctx, j.inputs)
				if err != nil {
					errOnce.Do(func() { firstErr = err })
					continue
				}
				results[j.idx] = proof
			}
		}()
	}

	for i, in := range inputs {
		select {
		case jobs <- job{idx: i, inputs: in}:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(inputs)*ProofSize)
	for _, proof := range results {
		out = append(out, proof[:]...)
	}
	return out, nil
}
