// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package transfer

// ZIP-317 fee constants.
const (
	// DefaultFeeZatoshis is the conventional base fee.
	DefaultFeeZatoshis = uint64(10_000)

	// MarginalFeeZatoshis is charged per logical action beyond the
	// grace window.
	MarginalFeeZatoshis = uint64(5_000)

	// GraceActions is the number of actions covered by the base fee.
	GraceActions = 2
)

// FeeCalculator computes ZIP-317 fees for Orchard bundles.
type FeeCalculator struct {
	baseFee     uint64
	marginalFee uint64
	grace       int
}

// NewFeeCalculator returns a calculator with the conventional
// parameters.
func NewFeeCalculator() *FeeCalculator {
	return &FeeCalculator{
		baseFee:     DefaultFeeZatoshis,
		marginalFee: MarginalFeeZatoshis,
		grace:       GraceActions,
	}
}

// FeeForActions returns base + max(0, actions-grace) * marginal. The
// action count must be the final, padded count; callers recompute
// after padding.
func (fc *FeeCalculator) FeeForActions(actions int) uint64 {
	if actions <= fc.grace {
		return fc.baseFee
	}
	return fc.baseFee + uint64(actions-fc.grace)*fc.marginalFee
}

// MinFee is the smallest possible fee: a bundle at or under the grace
// count.
func (fc *FeeCalculator) MinFee() uint64 {
	return fc.baseFee
}
