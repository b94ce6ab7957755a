package transfer

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"tx-tracker/pkg/logger"
)

// NativeToken 原生币的 Token 标识
const NativeToken = "ETH"

const erc20ABI = `[
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"_to","type":"address"},{"name":"_value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"}
]`

var parsedERC20 = mustParseABI(erc20ABI)

var (
	ErrWrongNetwork   = errors.New("connected node is on a different network")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrInvalidAddress = errors.New("invalid address")
)

// Client ethclient.Client 中提交交易用到的方法
type Client interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Request 一次转账请求
// Token 为 "ETH" 时发送原生币，否则为 ERC20 合约地址
type Request struct {
	Token  string
	To     string
	Amount string // 十进制，人类可读单位
}

// Sender 签名并广播转账交易
type Sender struct {
	client  Client
	key     *ecdsa.PrivateKey
	from    common.Address
	chainID *big.Int
}

func NewSender(client Client, key *ecdsa.PrivateKey, chainID int64) *Sender {
	return &Sender{
		client:  client,
		key:     key,
		from:    crypto.PubkeyToAddress(key.PublicKey),
		chainID: big.NewInt(chainID),
	}
}

func (s *Sender) From() common.Address {
	return s.from
}

// Send 提交转账，返回交易 Hash; 是否上链由调用方追踪
func (s *Sender) Send(ctx context.Context, req Request) (common.Hash, error) {
	if !common.IsHexAddress(req.To) {
		return common.Hash{}, fmt.Errorf("%w: recipient %q", ErrInvalidAddress, req.To)
	}

	// 1. 校验网络
	nodeChainID, err := s.client.ChainID(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("get chain id: %w", err)
	}
	if nodeChainID.Cmp(s.chainID) != 0 {
		return common.Hash{}, fmt.Errorf("%w: node %s, expected %s", ErrWrongNetwork, nodeChainID, s.chainID)
	}

	// 2. 构造调用
	to, value, data, err := s.buildCall(ctx, req)
	if err != nil {
		return common.Hash{}, err
	}

	nonce, err := s.client.PendingNonceAt(ctx, s.from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("get nonce: %w", err)
	}
	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("suggest gas price: %w", err)
	}
	gasLimit, err := s.client.EstimateGas(ctx, ethereum.CallMsg{From: s.from, To: &to, Value: value, Data: data})
	if err != nil {
		return common.Hash{}, fmt.Errorf("estimate gas: %w", err)
	}

	// 3. 签名并广播
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign tx: %w", err)
	}
	if err := s.client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("send tx: %w", err)
	}

	logger.Info("交易已广播",
		zap.String("hash", signed.Hash().Hex()),
		zap.String("token", req.Token),
		zap.String("to", req.To),
		zap.String("amount", req.Amount),
	)
	return signed.Hash(), nil
}

// buildCall 原生币直接转账; ERC20 调用 transfer(to, amount)，金额按合约 decimals() 换算
func (s *Sender) buildCall(ctx context.Context, req Request) (common.Address, *big.Int, []byte, error) {
	recipient := common.HexToAddress(req.To)

	if req.Token == "" || strings.EqualFold(req.Token, NativeToken) {
		value, err := ParseUnits(req.Amount, ethDecimals)
		if err != nil {
			return common.Address{}, nil, nil, err
		}
		return recipient, value, nil, nil
	}

	if !common.IsHexAddress(req.Token) {
		return common.Address{}, nil, nil, fmt.Errorf("%w: token %q", ErrInvalidAddress, req.Token)
	}
	token := common.HexToAddress(req.Token)

	decimals, err := s.tokenDecimals(ctx, token)
	if err != nil {
		return common.Address{}, nil, nil, err
	}
	amount, err := ParseUnits(req.Amount, decimals)
	if err != nil {
		return common.Address{}, nil, nil, err
	}
	data, err := parsedERC20.Pack("transfer", recipient, amount)
	if err != nil {
		return common.Address{}, nil, nil, fmt.Errorf("pack transfer: %w", err)
	}
	return token, big.NewInt(0), data, nil
}

func (s *Sender) tokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	input, err := parsedERC20.Pack("decimals")
	if err != nil {
		return 0, err
	}
	out, err := s.client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: input}, nil)
	if err != nil {
		return 0, fmt.Errorf("call decimals(): %w", err)
	}
	values, err := parsedERC20.Unpack("decimals", out)
	if err != nil || len(values) != 1 {
		return 0, fmt.Errorf("decode decimals() of %s: %v", token.Hex(), err)
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("decode decimals() of %s: unexpected type %T", token.Hex(), values[0])
	}
	return decimals, nil
}

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}
