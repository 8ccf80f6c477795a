// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package orchard

// CompactTransaction is the scan-relevant slice of one transaction: its
// id and Orchard actions.
type CompactTransaction struct {
	Hash    string
	Actions []*CompactAction
}

// CompactBlock is the scan-relevant slice of one block. Transactions
// without Orchard actions are omitted.
type CompactBlock struct {
	Height       uint64
	Hash         string
	Transactions []*CompactTransaction
}

// ActionCount returns the number of Orchard actions in the block.
func (b *CompactBlock) ActionCount() int {
	n := 0
	for _, tx := range b.Transactions {
		n += len(tx.Actions)
	}
	return n
}
