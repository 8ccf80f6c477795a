// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"context"

	"github.com/robustfengbin/zwallet/addresses"
	"github.com/robustfengbin/zwallet/chaincfg"
	"github.com/robustfengbin/zwallet/orchard"
	"github.com/robustfengbin/zwallet/rpcclient"
	"github.com/robustfengbin/zwallet/scan"
	"github.com/robustfengbin/zwallet/transfer"
)

// Zcash implements Chain and ShieldedChain on top of the node RPC
// client, the sync manager, and the transfer service.
type Zcash struct {
	params  *chaincfg.Params
	client  *rpcclient.Client
	mgr     *scan.Manager
	service *transfer.Service

	// keyForWallet resolves spending keys at signing time. Zcash
	// zeroizes each returned key after use.
	keyForWallet func(walletID int32) (*orchard.SpendingKey, error)
}

// NewZcash wires the Zcash chain capability.
func NewZcash(params *chaincfg.Params, client *rpcclient.Client, mgr *scan.Manager, service *transfer.Service, keyForWallet func(int32) (*orchard.SpendingKey, error)) *Zcash {
	return &Zcash{
		params:       params,
		client:       client,
		mgr:          mgr,
		service:      service,
		keyForWallet: keyForWallet,
	}
}

// Name implements Chain.
func (z *Zcash) Name() string { return "zcash" }

// NativeBalance implements Chain.
func (z *Zcash) NativeBalance(ctx context.Context, address string) (uint64, error) {
	balance, err := z.client.GetAddressBalance(ctx, []string{address})
	if err != nil {
		return 0, err
	}
	if balance.Balance < 0 {
		return 0, nil
	}
	return uint64(balance.Balance), nil
}

// TokenBalance implements Chain. Zcash has no token layer.
func (z *Zcash) TokenBalance(context.Context, string, string) (uint64, error) {
	return 0, ErrUnsupported
}

// AllBalances implements Chain.
func (z *Zcash) AllBalances(ctx context.Context, address string) (map[string]uint64, error) {
	native, err := z.NativeBalance(ctx, address)
	if err != nil {
		return nil, err
	}
	return map[string]uint64{"ZEC": native}, nil
}

// EstimateGas implements Chain. Zcash fees follow ZIP-317, not gas.
func (z *Zcash) EstimateGas(context.Context, string, string, uint64) (uint64, error) {
	return 0, ErrUnsupported
}

// TransferNative implements Chain: a t-to-t v5 transfer funded by the
// sender address's UTXOs.
func (z *Zcash) TransferNative(ctx context.Context, from, to string, amount uint64, privKey string) (string, error) {
	key, err := transfer.ParsePrivateKey(privKey)
	if err != nil {
		return "", err
	}

	utxos, err := z.client.GetAddressUTXOs(ctx, []string{from})
	if err != nil {
		return "", err
	}

	tip, err := z.client.GetBlockCount(ctx)
	if err != nil {
		return "", err
	}

	fee := transfer.DefaultFeeZatoshis
	builder := transfer.NewTransparentBuilder(z.params, uint32(tip), uint32(tip)+chaincfg.ExpiryDelta)

	var total uint64
	for _, u := range utxos {
		if total >= amount+fee {
			break
		}
		var prevTxID [32]byte
		raw, err := decodeTxID(u.TxID)
		if err != nil {
			return "", err
		}
		prevTxID = raw
		script, err := decodeScript(u.Script)
		if err != nil {
			return "", err
		}
		builder.AddInput(prevTxID, u.OutputIndex, uint64(u.Satoshis), script)
		total += uint64(u.Satoshis)
	}
	if total < amount+fee {
		return "", &transfer.InsufficientBalanceError{Available: total, Required: amount + fee}
	}

	if err := builder.AddOutput(to, amount); err != nil {
		return "", err
	}
	if change := total - amount - fee; change > 0 {
		if err := builder.AddOutput(from, change); err != nil {
			return "", err
		}
	}

	rawHex, _, err := builder.Sign(key)
	if err != nil {
		return "", err
	}
	return z.client.SendRawTransaction(ctx, rawHex)
}

// TransferToken implements Chain.
func (z *Zcash) TransferToken(context.Context, string, string, string, uint64, string) (string, error) {
	return "", ErrUnsupported
}

// TxStatus implements Chain. Negative confirmations map to orphaned.
func (z *Zcash) TxStatus(ctx context.Context, txid string) (*TxStatus, error) {
	status, err := z.client.GetTransaction(ctx, txid)
	if err != nil {
		return nil, err
	}
	return &TxStatus{
		TxID:          txid,
		Confirmations: status.Confirmations,
		Confirmed:     status.Confirmations >= 1,
		Orphaned:      status.Confirmations < 0,
	}, nil
}

// ValidateAddress implements Chain: transparent or unified.
func (z *Zcash) ValidateAddress(address string) bool {
	if _, err := addresses.DecodeTransparent(address, z.params); err == nil {
		return true
	}
	if _, err := addresses.DecodeUnified(address, z.params); err == nil {
		return true
	}
	return false
}

// ImportAddressForTracking implements Chain.
func (z *Zcash) ImportAddressForTracking(ctx context.Context, address string) error {
	return z.client.ImportAddress(ctx, address, "zwallet")
}

// ShieldedBalance implements ShieldedChain.
func (z *Zcash) ShieldedBalance(ctx context.Context, walletID int32) (uint64, error) {
	return z.mgr.Balance(ctx, walletID)
}

// ShieldedTransfer implements ShieldedChain: proposal, build with a
// fresh anchor, broadcast. The spending key is zeroized before
// returning.
func (z *Zcash) ShieldedTransfer(ctx context.Context, walletID int32, toAddress string, amount uint64) (string, error) {
	tip, err := z.client.GetBlockCount(ctx)
	if err != nil {
		return "", err
	}

	shielded, err := z.mgr.Balance(ctx, walletID)
	if err != nil {
		return "", err
	}

	proposal, err := z.service.CreateProposal(&transfer.Request{
		WalletID:       walletID,
		ToAddress:      toAddress,
		AmountZatoshis: amount,
		Source:         transfer.FundShielded,
	}, 0, shielded, tip)
	if err != nil {
		return "", err
	}

	sk, err := z.keyForWallet(walletID)
	if err != nil {
		return "", err
	}
	defer sk.Zero()

	result, err := z.service.Transfer(ctx, proposal, sk, tip)
	if err != nil {
		return "", err
	}

	txid, err := z.client.SendRawTransaction(ctx, result.RawTxHex)
	if err != nil {
		return "", err
	}
	return txid, nil
}
