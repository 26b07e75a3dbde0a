package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/video-stream/clipper/internal/pipeline"
)

func jsonResponse(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	jsonResponse(w, map[string]string{"error": msg}, status)
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusFor maps a pipeline error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrInputMissing),
		errors.Is(err, pipeline.ErrArtifactNotFound),
		errors.Is(err, pipeline.ErrSubtitleNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, pipeline.ErrFetchFailed),
		errors.Is(err, pipeline.ErrClipExtractionFailed),
		errors.Is(err, pipeline.ErrEmbedFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func stageErrorResponse(w http.ResponseWriter, err error) {
	jsonResponse(w, errorBody{Error: pipeline.Detail(err), Code: pipeline.Code(err)}, statusFor(err))
}

// decodeJSON reads a JSON body into dst. Bodies over the size limit report 413.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonResponse(w, errorBody{Error: "request body too large", Code: "invalid_request"}, http.StatusRequestEntityTooLarge)
			return false
		}
		jsonResponse(w, errorBody{Error: "invalid request body: " + err.Error(), Code: "invalid_request"}, http.StatusBadRequest)
		return false
	}
	return true
}
