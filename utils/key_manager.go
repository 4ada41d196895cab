package utils

import (
	"encoding/hex"
	"errors"
	"sync"

	"timevault/logs"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// KeyManager 用于保存单个节点的私钥和地址
type KeyManager struct {
	mu         sync.RWMutex
	privateKey *secp256k1.PrivateKey
	address    string // 由私钥推导出的地址
}

// 单例相关
var (
	keyManagerInstance *KeyManager
	keyManagerOnce     sync.Once
)

// GetKeyManager 获取全局唯一的 KeyManager 实例
func GetKeyManager() *KeyManager {
	keyManagerOnce.Do(func() {
		keyManagerInstance = &KeyManager{}
	})
	return keyManagerInstance
}

// InitKey 用 32 字节 hex 私钥初始化；传空串时生成新私钥
func (km *KeyManager) InitKey(priKeyHex string) error {
	km.mu.Lock()
	defer km.mu.Unlock()

	var priv *secp256k1.PrivateKey
	var err error
	if priKeyHex == "" {
		priv, err = GeneratePrivateKey()
		if err != nil {
			return err
		}
		logs.Warn("[KeyManager] no key supplied, generated ephemeral node key")
	} else {
		priv, err = ParseSecp256k1PrivateKey(priKeyHex)
		if err != nil {
			return err
		}
	}

	km.privateKey = priv
	km.address = DeriveEthereumAddress(priv)

	logs.Debug("[KeyManager] InitKey success. Address=%s", km.address)
	return nil
}

// GetAddress 返回当前节点的推导地址
func (km *KeyManager) GetAddress() string {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return km.address
}

// GetPublicKeyHex 返回压缩公钥的十六进制串
func (km *KeyManager) GetPublicKeyHex() string {
	km.mu.RLock()
	defer km.mu.RUnlock()
	if km.privateKey == nil {
		return ""
	}
	return hex.EncodeToString(km.privateKey.PubKey().SerializeCompressed())
}

// Sign 用节点私钥对 payload 签名
func (km *KeyManager) Sign(payload []byte) (string, error) {
	km.mu.RLock()
	defer km.mu.RUnlock()
	if km.privateKey == nil {
		return "", errors.New("key manager not initialized")
	}
	return SignPayload(km.privateKey, payload), nil
}
