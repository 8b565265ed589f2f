package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// 生成 secp256k1 公私钥对，地址为公钥 keccak256 的后 20 字节。
func GenerateKeyPair() (*ecdsa.PrivateKey, common.Address, error) {
	privateKey, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, common.Address{}, err
	}
	return privateKey, ethcrypto.PubkeyToAddress(privateKey.PublicKey), nil
}

// PrivateKeyToHex 将私钥编码为 64 个 hex 字符。
func PrivateKeyToHex(priv *ecdsa.PrivateKey) (string, error) {
	if priv == nil {
		return "", errors.New("nil private key")
	}
	return hex.EncodeToString(ethcrypto.FromECDSA(priv)), nil
}

// HexToPrivateKey 解析私钥，允许 0x 前缀。
func HexToPrivateKey(s string) (*ecdsa.PrivateKey, error) {
	return ethcrypto.HexToECDSA(strings.TrimPrefix(s, "0x"))
}

// AddressOf 返回私钥对应的地址。
func AddressOf(priv *ecdsa.PrivateKey) common.Address {
	return ethcrypto.PubkeyToAddress(priv.PublicKey)
}

// 对 32 字节摘要签名，返回 65 字节可恢复签名 [R || S || V]。
func Sign(privKey *ecdsa.PrivateKey, digest []byte) ([]byte, error) {
	if len(digest) != common.HashLength {
		return nil, errors.New("digest must be 32 bytes")
	}
	return ethcrypto.Sign(digest, privKey)
}

// RecoverAddress 从签名中恢复签名者地址。
func RecoverAddress(digest, signature []byte) (common.Address, error) {
	if len(signature) != ethcrypto.SignatureLength {
		return common.Address{}, errors.New("signature must be 65 bytes")
	}
	pub, err := ethcrypto.SigToPub(digest, signature)
	if err != nil {
		return common.Address{}, err
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}

// 检验签名是否由 addr 对应的私钥产生
func VerifySignature(addr common.Address, digest, signature []byte) bool {
	recovered, err := RecoverAddress(digest, signature)
	if err != nil {
		return false
	}
	return recovered == addr
}
