// Package wallet 管理交易钱包的私钥和地址
package wallet

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Wallet 交易钱包
type Wallet struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// FromPrivateKeyHex 从十六进制私钥创建钱包，接受可选的 0x 前缀
func FromPrivateKeyHex(hexKey string) (*Wallet, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, fmt.Errorf("私钥为空")
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("解析私钥失败: %w", err)
	}
	return &Wallet{
		privateKey: key,
		address:    crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// Address 钱包地址
func (w *Wallet) Address() common.Address {
	return w.address
}

// PrivateKey 签名用私钥
func (w *Wallet) PrivateKey() *ecdsa.PrivateKey {
	return w.privateKey
}
