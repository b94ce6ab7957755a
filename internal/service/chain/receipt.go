package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"tx-tracker/internal/model"
)

// Receipt 交易回执的精简版本
type Receipt struct {
	Hash        string
	Status      model.Status // success / failed
	BlockNumber uint64
}

// ReceiptFetcher 链上查询能力
// 节点还没有回执 (交易未打包) 时返回 nil, nil
type ReceiptFetcher interface {
	TransactionReceipt(ctx context.Context, hash string) (*Receipt, error)
}

// receiptClient ethclient.Client 中用到的方法
type receiptClient interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// EthReceiptFetcher 基于 go-ethereum ethclient 的实现
type EthReceiptFetcher struct {
	client receiptClient
}

func NewEthReceiptFetcher(client receiptClient) *EthReceiptFetcher {
	return &EthReceiptFetcher{client: client}
}

func (f *EthReceiptFetcher) TransactionReceipt(ctx context.Context, hash string) (*Receipt, error) {
	r, err := f.client.TransactionReceipt(ctx, common.HexToHash(hash))
	if errors.Is(err, ethereum.NotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("eth_getTransactionReceipt %s: %w", hash, err)
	}
	if r == nil {
		return nil, nil
	}

	out := &Receipt{
		Hash:   hash,
		Status: OutcomeOf(r.Status),
	}
	if r.BlockNumber != nil {
		out.BlockNumber = r.BlockNumber.Uint64()
	}
	return out, nil
}

// OutcomeOf 回执 status == 1 为成功，其余都视为失败
func OutcomeOf(status uint64) model.Status {
	if status == types.ReceiptStatusSuccessful {
		return model.StatusSuccess
	}
	return model.StatusFailed
}
