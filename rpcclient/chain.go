// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpcclient

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/robustfengbin/zwallet/orchard"
)

// GetBlockCount returns the node's current block height.
func (c *Client) GetBlockCount(ctx context.Context) (uint64, error) {
	var height uint64
	if err := c.Call(ctx, "getblockcount", nil, &height); err != nil {
		return 0, err
	}
	return height, nil
}

// GetBlockHash returns the block hash at the given height.
func (c *Client) GetBlockHash(ctx context.Context, height uint64) (string, error) {
	var hash string
	if err := c.Call(ctx, "getblockhash", []interface{}{height}, &hash); err != nil {
		return "", err
	}
	return hash, nil
}

// blockchainInfo is the subset of getblockchaininfo the engine needs.
type blockchainInfo struct {
	Blocks    uint64 `json:"blocks"`
	Consensus struct {
		ChainTip string `json:"chaintip"`
	} `json:"consensus"`
}

// GetConsensusBranchID returns the chain tip height and the consensus
// branch ID currently in force, parsed from the chaintip hex.
func (c *Client) GetConsensusBranchID(ctx context.Context) (uint64, uint32, error) {
	var info blockchainInfo
	if err := c.Call(ctx, "getblockchaininfo", nil, &info); err != nil {
		return 0, 0, err
	}
	branch, err := strconv.ParseUint(info.Consensus.ChainTip, 16, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("rpcclient: parse consensus chaintip %q: %w", info.Consensus.ChainTip, err)
	}
	return info.Blocks, uint32(branch), nil
}

// treeStateResponse is the orchard part of z_gettreestate.
type treeStateResponse struct {
	Orchard struct {
		Commitments struct {
			FinalState    string `json:"finalState"`
			FinalPosition uint64 `json:"finalPosition"`
		} `json:"commitments"`
		Root string `json:"root"`
	} `json:"orchard"`
}

// TreeState is a decoded z_gettreestate result.
type TreeState struct {
	FrontierBytes []byte
	Position      uint64
	Root          string
}

// GetTreeState fetches the serialized Orchard frontier at a height.
func (c *Client) GetTreeState(ctx context.Context, height uint64) (*TreeState, error) {
	var resp treeStateResponse
	if err := c.Call(ctx, "z_gettreestate", []interface{}{strconv.FormatUint(height, 10)}, &resp); err != nil {
		return nil, err
	}

	frontier, err := hex.DecodeString(resp.Orchard.Commitments.FinalState)
	if err != nil {
		return nil, fmt.Errorf("rpcclient: decode frontier hex: %w", err)
	}
	return &TreeState{
		FrontierBytes: frontier,
		Position:      resp.Orchard.Commitments.FinalPosition,
		Root:          resp.Orchard.Root,
	}, nil
}

// SendRawTransaction broadcasts a serialized transaction and returns
// the txid reported by the node. Recently broadcast transactions are
// remembered; a repeat is logged and still sent to the node.
func (c *Client) SendRawTransaction(ctx context.Context, txHex string) (string, error) {
	if c.sentTxs.Contains(txHex) {
		log.Debugf("Rebroadcasting recently sent %d-byte tx", len(txHex)/2)
	}

	var txid string
	if err := c.Call(ctx, "sendrawtransaction", []interface{}{txHex}, &txid); err != nil {
		return "", err
	}
	c.sentTxs.Add(txHex)
	return txid, nil
}

// verboseBlock is the getblock verbosity-2 shape the scanner consumes.
type verboseBlock struct {
	Height uint64 `json:"height"`
	Hash   string `json:"hash"`
	Tx     []struct {
		TxID    string `json:"txid"`
		Orchard *struct {
			Actions []struct {
				Cmx           string `json:"cmx"`
				Nullifier     string `json:"nullifier"`
				EphemeralKey  string `json:"ephemeralKey"`
				EncCiphertext string `json:"encCiphertext"`
			} `json:"actions"`
		} `json:"orchard"`
	} `json:"tx"`
}

// parseCompactBlock converts a verbose block into the scanner's compact
// form, keeping only transactions with Orchard actions.
func parseCompactBlock(raw json.RawMessage) (*orchard.CompactBlock, error) {
	var vb verboseBlock
	if err := json.Unmarshal(raw, &vb); err != nil {
		return nil, fmt.Errorf("rpcclient: decode block: %w", err)
	}

	block := &orchard.CompactBlock{Height: vb.Height, Hash: vb.Hash}
	for _, tx := range vb.Tx {
		if tx.Orchard == nil || len(tx.Orchard.Actions) == 0 {
			continue
		}
		compactTx := &orchard.CompactTransaction{Hash: tx.TxID}
		for _, a := range tx.Orchard.Actions {
			action := &orchard.CompactAction{}
			if err := decodeHex32(a.Cmx, &action.Cmx); err != nil {
				return nil, fmt.Errorf("rpcclient: block %d cmx: %w", vb.Height, err)
			}
			if err := decodeHex32(a.Nullifier, &action.Nullifier); err != nil {
				return nil, fmt.Errorf("rpcclient: block %d nullifier: %w", vb.Height, err)
			}
			if err := decodeHex32(a.EphemeralKey, &action.EphemeralKey); err != nil {
				return nil, fmt.Errorf("rpcclient: block %d ephemeral key: %w", vb.Height, err)
			}
			enc, err := hex.DecodeString(a.EncCiphertext)
			if err != nil || len(enc) < orchard.CompactNoteSize {
				return nil, fmt.Errorf("rpcclient: block %d ciphertext too short", vb.Height)
			}
			copy(action.Ciphertext[:], enc[:orchard.CompactNoteSize])
			compactTx.Actions = append(compactTx.Actions, action)
		}
		block.Transactions = append(block.Transactions, compactTx)
	}
	return block, nil
}

func decodeHex32(s string, out *[32]byte) error {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	if len(raw) != 32 {
		return fmt.Errorf("expected 32 bytes, got %d", len(raw))
	}
	copy(out[:], raw)
	return nil
}

// FetchBlocks fetches the inclusive height range as compact blocks in
// ascending order. Heights are resolved to hashes and blocks fetched
// in JSON-RPC batches of the configured size, with batches issued
// concurrently up to the same fan-out.
func (c *Client) FetchBlocks(ctx context.Context, fromHeight, toHeight uint64) ([]*orchard.CompactBlock, error) {
	if toHeight < fromHeight {
		return nil, nil
	}

	heights := make([]uint64, 0, toHeight-fromHeight+1)
	for h := fromHeight; h <= toHeight; h++ {
		heights = append(heights, h)
	}

	type chunkResult struct {
		idx    int
		blocks []*orchard.CompactBlock
		err    error
	}

	var chunks [][]uint64
	for start := 0; start < len(heights); start += c.cfg.BatchSize {
		end := start + c.cfg.BatchSize
		if end > len(heights) {
			end = len(heights)
		}
		chunks = append(chunks, heights[start:end])
	}

	results := make(chan chunkResult, len(chunks))
	sem := make(chan struct{}, c.cfg.BatchSize)
	for i, chunk := range chunks {
		go func(i int, chunk []uint64) {
			sem <- struct{}{}
			defer func() { <-sem }()
			blocks, err := c.fetchChunk(ctx, chunk)
			results <- chunkResult{idx: i, blocks: blocks, err: err}
		}(i, chunk)
	}

	ordered := make([][]*orchard.CompactBlock, len(chunks))
	for range chunks {
		res := <-results
		if res.err != nil {
			return nil, res.err
		}
		ordered[res.idx] = res.blocks
	}

	var out []*orchard.CompactBlock
	for _, blocks := range ordered {
		out = append(out, blocks...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Height < out[j].Height })
	return out, nil
}

// fetchChunk resolves one batch of heights to hashes, then fetches the
// blocks, via two batch calls.
func (c *Client) fetchChunk(ctx context.Context, heights []uint64) ([]*orchard.CompactBlock, error) {
	hashReqs := make([]batchRequest, len(heights))
	for i, h := range heights {
		hashReqs[i] = batchRequest{Method: "getblockhash", Params: []interface{}{h}}
	}
	hashResults, hashErrs, err := c.BatchCall(ctx, hashReqs)
	if err != nil {
		return nil, err
	}

	blockReqs := make([]batchRequest, 0, len(heights))
	for i := range heights {
		if hashErrs[i] != nil {
			return nil, fmt.Errorf("rpcclient: getblockhash %d: %w", heights[i], hashErrs[i])
		}
		var hash string
		if err := json.Unmarshal(hashResults[i], &hash); err != nil {
			return nil, fmt.Errorf("rpcclient: decode hash at %d: %w", heights[i], err)
		}
		blockReqs = append(blockReqs, batchRequest{Method: "getblock", Params: []interface{}{hash, 2}})
	}

	blockResults, blockErrs, err := c.BatchCall(ctx, blockReqs)
	if err != nil {
		return nil, err
	}

	blocks := make([]*orchard.CompactBlock, 0, len(heights))
	for i := range blockReqs {
		if blockErrs[i] != nil {
			return nil, fmt.Errorf("rpcclient: getblock %d: %w", heights[i], blockErrs[i])
		}
		block, err := parseCompactBlock(blockResults[i])
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}
