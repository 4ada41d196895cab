package handlers

import (
	"net/http"
)

// HandleGetHistory 查询一笔交易留下的流水 ?tx_id=
// 入金和出金各有一条记录，按 tx id 只会命中其一。
func (hm *HandlerManager) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	txID := r.URL.Query().Get("tx_id")
	if txID == "" {
		writeJSON(w, http.StatusBadRequest, &HistoryResponse{Error: "tx_id is required"})
		return
	}

	deposit, found, err := hm.store.GetDepositRecord(txID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, &HistoryResponse{Error: err.Error()})
		return
	}
	if found {
		writeJSON(w, http.StatusOK, &HistoryResponse{Type: "deposit", Deposit: deposit})
		return
	}

	withdraw, found, err := hm.store.GetWithdrawRecord(txID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, &HistoryResponse{Error: err.Error()})
		return
	}
	if found {
		writeJSON(w, http.StatusOK, &HistoryResponse{Type: "withdraw", Withdraw: withdraw})
		return
	}

	writeJSON(w, http.StatusNotFound, &HistoryResponse{Error: "no history for tx: " + txID})
}
