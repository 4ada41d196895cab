package handlers

import (
	"net/http"
	"time"
)

// HandleStatus 返回节点状态概览
func (hm *HandlerManager) HandleStatus(w http.ResponseWriter, r *http.Request) {
	resp := &StatusResponse{
		Address:       hm.address,
		Port:          hm.port,
		LockedAmount:  "0",
		UptimeSeconds: int64(time.Since(hm.startTime).Seconds()),
	}

	st, ok, err := hm.engine.State()
	if err != nil {
		hm.Logger.Error("status: read vault state: %v", err)
		writeJSON(w, http.StatusInternalServerError, &ValueResponse{Error: err.Error()})
		return
	}
	if ok {
		resp.Initialized = true
		resp.Owner = st.Owner
		resp.TokenID = st.TokenID
		resp.UnlockTime = st.UnlockTime
		resp.LockedAmount = st.LockedAmount
	}

	writeJSON(w, http.StatusOK, resp)
}
