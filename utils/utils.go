package utils

import (
	"encoding/hex"
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/sha3"
)

// DeriveEthereumAddress 模拟以太坊的地址推导: keccak256(pubUncompressed[1:])最后20字节
func DeriveEthereumAddress(privKey *secp256k1.PrivateKey) string {
	return DeriveAddressFromPub(privKey.PubKey())
}

// DeriveAddressFromPub 从公钥推导地址
func DeriveAddressFromPub(pubKey *secp256k1.PublicKey) string {
	// 先获取 uncompressed 公钥 (首字节0x04 + 32字节X + 32字节Y = 65字节)
	pubUncompressed := pubKey.SerializeUncompressed()

	// keccak-256
	hash := sha3.NewLegacyKeccak256()
	// 跳过首字节 0x04，剩余 64 字节是 X、Y
	hash.Write(pubUncompressed[1:])
	digest := hash.Sum(nil) // 32字节

	// 取后20字节作为地址
	addr := digest[12:]
	return "0x" + hex.EncodeToString(addr)
}

// ParseSecp256k1PrivateKey 解析 16 进制的32字节私钥字符串
func ParseSecp256k1PrivateKey(keyStr string) (*secp256k1.PrivateKey, error) {
	raw, err := hex.DecodeString(keyStr)
	if err != nil {
		return nil, errors.New("invalid private key hex: " + err.Error())
	}
	if len(raw) != 32 {
		return nil, errors.New("invalid private key length in hex (must be 32 bytes)")
	}
	return secp256k1.PrivKeyFromBytes(raw), nil
}

// GeneratePrivateKey 生成新的 secp256k1 私钥
func GeneratePrivateKey() (*secp256k1.PrivateKey, error) {
	return secp256k1.GeneratePrivateKey()
}
