// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package scan

import (
	"context"
	"errors"
)

// DefaultBatchSize is the number of blocks processed per sync round.
const DefaultBatchSize = 500

// Syncer drives the manager from its resume height to the chain tip.
type Syncer struct {
	mgr       *Manager
	batchSize uint64
}

// NewSyncer wraps a manager. batchSize zero selects DefaultBatchSize.
func NewSyncer(mgr *Manager, batchSize uint64) *Syncer {
	if batchSize == 0 {
		batchSize = DefaultBatchSize
	}
	return &Syncer{mgr: mgr, batchSize: batchSize}
}

// Sync runs one full pass: restore or seed state, run the rescue path
// when notes lack witnesses, then scan forward to the tip in batches.
// Cancellation stops between batches (and, inside the manager, between
// blocks) without a further save: the last durable checkpoint stands,
// and blocks applied after it are scanned again on the next pass.
func (s *Syncer) Sync(ctx context.Context) (*ScanProgress, error) {
	resumeHeight, err := s.mgr.Initialize(ctx)
	if err != nil {
		return nil, err
	}

	knownPositions := map[uint64]string{}

	// Rescue path: persisted notes without witness blobs force a
	// rescan from just below the earliest such note, with their
	// positions pre-loaded so the witnesses are rebuilt.
	rescueHeight, needRescue, err := s.mgr.CheckRescueNeeded(ctx)
	if err != nil {
		return nil, err
	}
	if needRescue {
		log.Warnf("Notes without witness state detected; rescanning from %d", rescueHeight)
		knownPositions, err = s.mgr.BuildKnownPositions(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.mgr.ResetForRescue(ctx, rescueHeight); err != nil {
			return nil, err
		}
		resumeHeight = s.mgr.TreeHeight()
	} else if resumeHeight == 0 {
		// First run: seed the frontier just below the scan start.
		start, err := s.mgr.NextScanHeight(ctx)
		if err != nil {
			return nil, err
		}
		seed := start
		if seed > 0 {
			seed--
		}
		if err := s.mgr.InitFromFrontier(ctx, seed); err != nil {
			return nil, err
		}
		resumeHeight = seed
	}

	tip, err := s.mgr.cfg.Chain.GetBlockCount(ctx)
	if err != nil {
		return nil, err
	}

	current := resumeHeight + 1
	for current <= tip {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := current + s.batchSize - 1
		if end > tip {
			end = tip
		}

		blocks, err := s.mgr.cfg.Chain.FetchBlocks(ctx, current, end)
		if err != nil {
			// The batch aborts; the last durable checkpoint stands.
			return nil, err
		}

		if _, _, err := s.mgr.ProcessBlocks(ctx, blocks, knownPositions); err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			return nil, err
		}
		current = end + 1
	}

	return s.mgr.Progress(ctx)
}
