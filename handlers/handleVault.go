package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"timevault/vault"
)

// HandleGetLockedAmount 查询当前锁定余额。
// 默认返回基础单位整数；?human=1 时按配置的精度换算成十进制。
func (hm *HandlerManager) HandleGetLockedAmount(w http.ResponseWriter, r *http.Request) {
	locked, err := hm.engine.GetLockedAmount()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, &ValueResponse{Error: err.Error()})
		return
	}

	if r.URL.Query().Get("human") == "1" {
		human, err := vault.FromBaseUnits(locked, hm.cfg.Vault.TokenDecimals)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, &ValueResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, &ValueResponse{Value: human})
		return
	}
	writeJSON(w, http.StatusOK, &ValueResponse{Value: locked})
}

// HandleGetUnlockTime 查询解锁时间戳
func (hm *HandlerManager) HandleGetUnlockTime(w http.ResponseWriter, r *http.Request) {
	unlockTime, err := hm.engine.GetUnlockTime()
	if err != nil {
		hm.writeVaultError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &ValueResponse{Value: strconv.FormatUint(unlockTime, 10)})
}

// HandleGetOwner 查询金库 owner
func (hm *HandlerManager) HandleGetOwner(w http.ResponseWriter, r *http.Request) {
	owner, err := hm.engine.GetOwner()
	if err != nil {
		hm.writeVaultError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &ValueResponse{Value: owner})
}

// HandleGetTokenID 查询托管资产标识
func (hm *HandlerManager) HandleGetTokenID(w http.ResponseWriter, r *http.Request) {
	tokenID, err := hm.engine.GetTokenID()
	if err != nil {
		hm.writeVaultError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &ValueResponse{Value: tokenID})
}

func (hm *HandlerManager) writeVaultError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, vault.ErrNotInitialized) {
		status = http.StatusNotFound
	}
	writeJSON(w, status, &ValueResponse{Error: err.Error()})
}
