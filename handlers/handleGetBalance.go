package handlers

import (
	"net/http"
)

// HandleGetBalance 查询账本余额 ?address=&token=
func (hm *HandlerManager) HandleGetBalance(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		writeJSON(w, http.StatusBadRequest, &ValueResponse{Error: "address is required"})
		return
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		// 未指定 token 时默认查托管资产
		tokenID, err := hm.engine.GetTokenID()
		if err != nil {
			hm.writeVaultError(w, err)
			return
		}
		token = tokenID
	}

	balance, err := hm.store.GetTokenBalance(address, token)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, &ValueResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, &ValueResponse{Value: balance})
}
