// Package response writes the JSON envelope every endpoint answers with.
package response

import (
	"encoding/json"
	"net/http"

	"ytbatch/internal/entity"
)

type Response struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Data    any    `json:"data"`
}

// BatchStatus is the progress snapshot of the current or last batch.
type BatchStatus struct {
	Batch   entity.Batch        `json:"batch"`
	Results []entity.ItemResult `json:"results"`
}

// Logs is a page of journal events. Last is the cursor for the next request.
type Logs struct {
	Events []entity.LogEvent `json:"events"`
	Last   uint64            `json:"last"`
}

// Version carries the downloader version string.
type Version struct {
	Version string `json:"version"`
}

func WriteJSON(w http.ResponseWriter, status int, message string, data any, err error) {
	var errorMsg string
	if err != nil {
		errorMsg = err.Error()
	}

	r := Response{
		Message: message,
		Data:    data,
		Error:   errorMsg,
	}

	bytes, err := json.Marshal(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(bytes)
}

func OK(w http.ResponseWriter, message string, res any, err error) {
	WriteJSON(w, http.StatusOK, message, res, err)
}

// NoContent writes a bare 204; the status does not allow a body.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func Accepted(w http.ResponseWriter, message string, res any, err error) {
	WriteJSON(w, http.StatusAccepted, message, res, err)
}

func BadRequest(w http.ResponseWriter, message string, err error) {
	WriteJSON(w, http.StatusBadRequest, message, nil, err)
}

func Conflict(w http.ResponseWriter, message string, res any, err error) {
	WriteJSON(w, http.StatusConflict, message, res, err)
}

func UnprocessableEntity(w http.ResponseWriter, message string, err error) {
	WriteJSON(w, http.StatusUnprocessableEntity, message, nil, err)
}

func InternalServerError(w http.ResponseWriter, message string, res any, err error) {
	WriteJSON(w, http.StatusInternalServerError, message, res, err)
}
