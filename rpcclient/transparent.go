// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpcclient

import (
	"context"
)

// UTXO is one unspent transparent output as reported by
// getaddressutxos.
type UTXO struct {
	Address     string `json:"address"`
	TxID        string `json:"txid"`
	OutputIndex uint32 `json:"outputIndex"`
	Script      string `json:"script"`
	Satoshis    int64  `json:"satoshis"`
	Height      uint64 `json:"height"`
}

// GetAddressUTXOs lists unspent outputs for the given transparent
// addresses.
func (c *Client) GetAddressUTXOs(ctx context.Context, addresses []string) ([]*UTXO, error) {
	params := []interface{}{map[string]interface{}{"addresses": addresses}}
	var utxos []*UTXO
	if err := c.Call(ctx, "getaddressutxos", params, &utxos); err != nil {
		return nil, err
	}
	return utxos, nil
}

// AddressBalance is the getaddressbalance result.
type AddressBalance struct {
	Balance  int64 `json:"balance"`
	Received int64 `json:"received"`
}

// GetAddressBalance returns the confirmed balance of the given
// transparent addresses.
func (c *Client) GetAddressBalance(ctx context.Context, addresses []string) (*AddressBalance, error) {
	params := []interface{}{map[string]interface{}{"addresses": addresses}}
	balance := &AddressBalance{}
	if err := c.Call(ctx, "getaddressbalance", params, balance); err != nil {
		return nil, err
	}
	return balance, nil
}

// TransactionStatus is the confirmation state of a broadcast
// transaction.
type TransactionStatus struct {
	TxID          string `json:"txid"`
	Confirmations int64  `json:"confirmations"`
	BlockHash     string `json:"blockhash"`
}

// GetTransaction returns the wallet-visible status of a transaction.
// Negative confirmations indicate an orphaned (conflicted) tx.
func (c *Client) GetTransaction(ctx context.Context, txid string) (*TransactionStatus, error) {
	status := &TransactionStatus{}
	if err := c.Call(ctx, "gettransaction", []interface{}{txid}, status); err != nil {
		return nil, err
	}
	return status, nil
}

// ImportAddress registers a transparent address with the node's
// address index for tracking, without rescan.
func (c *Client) ImportAddress(ctx context.Context, address, label string) error {
	return c.Call(ctx, "importaddress", []interface{}{address, label, false}, nil)
}
