package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// SignPayload 对 payload 做 sha256 后签名，返回 DER 编码的十六进制签名
func SignPayload(priv *secp256k1.PrivateKey, payload []byte) string {
	digest := sha256.Sum256(payload)
	sig := secpecdsa.Sign(priv, digest[:])
	return hex.EncodeToString(sig.Serialize())
}

// VerifyPayload 校验签名；pubKeyHex 是压缩公钥的十六进制串
func VerifyPayload(pubKeyHex string, payload []byte, sigHex string) (*secp256k1.PublicKey, error) {
	pubBytes, err := hex.DecodeString(pubKeyHex)
	if err != nil {
		return nil, errors.New("invalid public key hex")
	}
	pubKey, err := secp256k1.ParsePubKey(pubBytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	sigBytes, err := hex.DecodeString(sigHex)
	if err != nil {
		return nil, errors.New("invalid signature hex")
	}
	sig, err := secpecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return nil, fmt.Errorf("parse signature: %w", err)
	}

	digest := sha256.Sum256(payload)
	if !sig.Verify(digest[:], pubKey) {
		return nil, errors.New("signature verification failed")
	}
	return pubKey, nil
}

// SignatureAuth 生产环境的身份校验：验签之后再比对公钥推导地址。
// 实现 vault.AuthChecker。
type SignatureAuth struct{}

func (SignatureAuth) Authorize(identity string, payload []byte, pubKeyHex, sigHex string) error {
	if identity == "" {
		return errors.New("empty identity")
	}
	pubKey, err := VerifyPayload(pubKeyHex, payload, sigHex)
	if err != nil {
		return err
	}
	derived := DeriveAddressFromPub(pubKey)
	if !strings.EqualFold(derived, identity) {
		return fmt.Errorf("signer address %s does not match claimed identity %s", derived, identity)
	}
	return nil
}
