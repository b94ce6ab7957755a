package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tx-tracker/internal/model"
)

type fakeClient struct {
	receipts map[common.Hash]*types.Receipt
	err      error
}

func (c *fakeClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	if c.err != nil {
		return nil, c.err
	}
	r, ok := c.receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

const (
	okHash     = "0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060"
	revertHash = "0x0000000000000000000000000000000000000000000000000000000000000bad"
)

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, model.StatusSuccess, OutcomeOf(types.ReceiptStatusSuccessful))
	assert.Equal(t, model.StatusFailed, OutcomeOf(types.ReceiptStatusFailed))
	assert.Equal(t, model.StatusFailed, OutcomeOf(7))
}

func TestEthReceiptFetcher(t *testing.T) {
	client := &fakeClient{receipts: map[common.Hash]*types.Receipt{
		common.HexToHash(okHash):     {Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(42)},
		common.HexToHash(revertHash): {Status: types.ReceiptStatusFailed},
	}}
	f := NewEthReceiptFetcher(client)
	ctx := context.Background()

	r, err := f.TransactionReceipt(ctx, okHash)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, model.StatusSuccess, r.Status)
	assert.Equal(t, uint64(42), r.BlockNumber)

	r, err = f.TransactionReceipt(ctx, revertHash)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, model.StatusFailed, r.Status)

	// 未打包: nil, nil
	r, err = f.TransactionReceipt(ctx, "0x01")
	assert.NoError(t, err)
	assert.Nil(t, r)
}

func TestEthReceiptFetcherError(t *testing.T) {
	f := NewEthReceiptFetcher(&fakeClient{err: errors.New("connection refused")})

	r, err := f.TransactionReceipt(context.Background(), okHash)
	assert.Error(t, err)
	assert.Nil(t, r)
	assert.Contains(t, err.Error(), "connection refused")
}
