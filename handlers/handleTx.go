package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"timevault/vault"
)

// HandleTx 处理交易提交（initialize / deposit / withdraw）
func (hm *HandlerManager) HandleTx(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body := http.MaxBytesReader(w, r.Body, hm.cfg.Server.MaxRequestBodySize)
	bodyBytes, err := io.ReadAll(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, &TxResponse{Error: "failed to read request body"})
		return
	}

	var env TxEnvelope
	if err := json.Unmarshal(bodyBytes, &env); err != nil {
		writeJSON(w, http.StatusBadRequest, &TxResponse{Error: "invalid request json"})
		return
	}
	if env.Tx.Kind == "" {
		writeJSON(w, http.StatusBadRequest, &TxResponse{Error: "tx kind is required"})
		return
	}
	if env.Tx.ID == "" {
		writeJSON(w, http.StatusBadRequest, &TxResponse{Error: "tx id is required"})
		return
	}

	rc, err := hm.engine.Execute(&env.Tx, env.PubKey, env.Signature)
	if rc == nil {
		// 没有回执的失败属于请求本身不合法（nil tx、未知类型）
		writeJSON(w, http.StatusBadRequest, &TxResponse{Error: err.Error()})
		return
	}
	if err != nil {
		hm.Logger.Debug("tx %s rejected: %v", env.Tx.ID, err)
	}
	hm.receiptCache.Add(rc.TxID, rc)

	// 业务失败也返回 200，结果以回执为准
	writeJSON(w, http.StatusOK, &TxResponse{Receipt: rc})
}

// HandleGetReceipt 查询交易回执 ?tx_id=
func (hm *HandlerManager) HandleGetReceipt(w http.ResponseWriter, r *http.Request) {
	txID := r.URL.Query().Get("tx_id")
	if txID == "" {
		writeJSON(w, http.StatusBadRequest, &TxResponse{Error: "tx_id is required"})
		return
	}

	if cached, ok := hm.receiptCache.Get(txID); ok {
		if rc, ok := cached.(*vault.Receipt); ok {
			writeJSON(w, http.StatusOK, &TxResponse{Receipt: rc})
			return
		}
	}

	rc, found, err := hm.store.GetReceipt(txID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, &TxResponse{Error: err.Error()})
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, &TxResponse{Error: "receipt not found: " + txID})
		return
	}
	hm.receiptCache.Add(txID, rc)
	writeJSON(w, http.StatusOK, &TxResponse{Receipt: rc})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	data, _ := json.Marshal(v)
	w.Write(data)
}
