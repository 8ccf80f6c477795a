// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chain models blockchains behind a capability interface so
// callers dispatch by chain name instead of concrete type. Shielded
// operations live on a separate optional capability.
package chain

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrUnsupported is returned by capability methods a chain does not
	// implement.
	ErrUnsupported = errors.New("chain: operation not supported")

	// ErrUnknownChain is returned when a registry lookup misses.
	ErrUnknownChain = errors.New("chain: unknown chain")

	// ErrAlreadyRegistered is returned on duplicate registration.
	ErrAlreadyRegistered = errors.New("chain: already registered")
)

// TxStatus is the reported state of a broadcast transaction.
type TxStatus struct {
	TxID          string
	Confirmations int64
	Confirmed     bool
	Orphaned      bool
}

// Chain is the capability surface every supported chain exposes.
type Chain interface {
	// Name returns the registry key.
	Name() string

	// NativeBalance returns the base-asset balance for an address.
	NativeBalance(ctx context.Context, address string) (uint64, error)

	// TokenBalance returns a token balance; chains without tokens
	// return ErrUnsupported.
	TokenBalance(ctx context.Context, address, token string) (uint64, error)

	// AllBalances returns every known balance for an address keyed by
	// asset symbol.
	AllBalances(ctx context.Context, address string) (map[string]uint64, error)

	// EstimateGas estimates execution cost; UTXO chains return
	// ErrUnsupported.
	EstimateGas(ctx context.Context, from, to string, amount uint64) (uint64, error)

	// TransferNative moves the base asset and returns a txid.
	TransferNative(ctx context.Context, from, to string, amount uint64, privKey string) (string, error)

	// TransferToken moves a token; chains without tokens return
	// ErrUnsupported.
	TransferToken(ctx context.Context, from, to, token string, amount uint64, privKey string) (string, error)

	// TxStatus reports the confirmation state of a transaction.
	TxStatus(ctx context.Context, txid string) (*TxStatus, error)

	// ValidateAddress reports whether the address parses for this
	// chain.
	ValidateAddress(address string) bool

	// ImportAddressForTracking registers an address with whatever
	// indexing the chain's node offers.
	ImportAddressForTracking(ctx context.Context, address string) error
}

// ShieldedChain is the optional capability for chains with a shielded
// pool.
type ShieldedChain interface {
	Chain

	// ShieldedBalance returns the spendable shielded balance for a
	// wallet.
	ShieldedBalance(ctx context.Context, walletID int32) (uint64, error)

	// ShieldedTransfer builds, signs, and broadcasts a shielded
	// transfer, returning the txid.
	ShieldedTransfer(ctx context.Context, walletID int32, toAddress string, amount uint64) (string, error)
}

// Registry maps chain names to implementations.
type Registry struct {
	mu     sync.RWMutex
	chains map[string]Chain
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{chains: make(map[string]Chain)}
}

// Register adds a chain under its name.
func (r *Registry) Register(c Chain) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.chains[c.Name()]; exists {
		return ErrAlreadyRegistered
	}
	r.chains[c.Name()] = c
	return nil
}

// Get returns the chain registered under name.
func (r *Registry) Get(name string) (Chain, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.chains[name]
	if !ok {
		return nil, ErrUnknownChain
	}
	return c, nil
}

// GetShielded returns the chain when it carries the shielded
// capability.
func (r *Registry) GetShielded(name string) (ShieldedChain, error) {
	c, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	sc, ok := c.(ShieldedChain)
	if !ok {
		return nil, ErrUnsupported
	}
	return sc, nil
}

// Names lists the registered chains.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.chains))
	for name := range r.chains {
		names = append(names, name)
	}
	return names
}
