package handlers

import "net/http"

// Root answers the liveness banner.
func Root(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]string{"message": "Clip extraction API is running"}, http.StatusOK)
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]string{"status": "ok"}, http.StatusOK)
}
