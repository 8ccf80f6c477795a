// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// stubChain implements Chain with fixed answers.
type stubChain struct {
	name string
}

func (s *stubChain) Name() string { return s.name }
func (s *stubChain) NativeBalance(context.Context, string) (uint64, error) {
	return 42, nil
}
func (s *stubChain) TokenBalance(context.Context, string, string) (uint64, error) {
	return 0, ErrUnsupported
}
func (s *stubChain) AllBalances(context.Context, string) (map[string]uint64, error) {
	return map[string]uint64{"STUB": 42}, nil
}
func (s *stubChain) EstimateGas(context.Context, string, string, uint64) (uint64, error) {
	return 0, ErrUnsupported
}
func (s *stubChain) TransferNative(context.Context, string, string, uint64, string) (string, error) {
	return "txid", nil
}
func (s *stubChain) TransferToken(context.Context, string, string, string, uint64, string) (string, error) {
	return "", ErrUnsupported
}
func (s *stubChain) TxStatus(context.Context, string) (*TxStatus, error) {
	return &TxStatus{Confirmed: true}, nil
}
func (s *stubChain) ValidateAddress(string) bool                          { return true }
func (s *stubChain) ImportAddressForTracking(context.Context, string) error { return nil }

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(&stubChain{name: "stub"}))
	require.ErrorIs(t, r.Register(&stubChain{name: "stub"}), ErrAlreadyRegistered)

	c, err := r.Get("stub")
	require.NoError(t, err)
	require.Equal(t, "stub", c.Name())

	_, err = r.Get("missing")
	require.ErrorIs(t, err, ErrUnknownChain)

	// A plain chain does not expose the shielded capability.
	_, err = r.GetShielded("stub")
	require.ErrorIs(t, err, ErrUnsupported)

	require.Equal(t, []string{"stub"}, r.Names())
}
