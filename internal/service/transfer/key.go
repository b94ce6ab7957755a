package transfer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"

	"tx-tracker/pkg/config"
)

var ErrNoKey = errors.New("no wallet key configured: set wallet.private_key or wallet.keystore_path")

// LoadKey 读取签名私钥
// 优先使用 wallet.private_key (Hex)，否则解密 wallet.keystore_path 指向的 keystore 文件
func LoadKey(cfg config.WalletConfig) (*ecdsa.PrivateKey, error) {
	switch {
	case cfg.PrivateKey != "":
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		return key, nil
	case cfg.KeystorePath != "":
		data, err := os.ReadFile(cfg.KeystorePath)
		if err != nil {
			return nil, fmt.Errorf("read keystore: %w", err)
		}
		key, err := keystore.DecryptKey(data, cfg.Password)
		if err != nil {
			return nil, fmt.Errorf("decrypt keystore (wrong password?): %w", err)
		}
		return key.PrivateKey, nil
	default:
		return nil, ErrNoKey
	}
}
