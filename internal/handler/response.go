package handler

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/memberbeat/admin/internal/domain"
)

const msgServerError = "Server Error"

// Envelope is the body of every API response.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("failed to encode JSON response: %v", err)
		}
	}
}

// OK writes a successful envelope.
func OK(w http.ResponseWriter, status int, message string, data interface{}) {
	JSON(w, status, Envelope{Success: true, Message: message, Data: data})
}

// Fail writes a failed envelope.
func Fail(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Envelope{Success: false, Message: message})
}

// Error writes an error envelope, using AppError status codes when available.
// Server-side failures never leak their cause to the client.
func Error(w http.ResponseWriter, err error) {
	appErr, ok := domain.AsAppError(err)
	if !ok {
		log.Printf("[ERROR] unhandled error: %v", err)
		Fail(w, http.StatusInternalServerError, msgServerError)
		return
	}
	if appErr.Code >= http.StatusInternalServerError {
		log.Printf("[ERROR] %v", appErr)
		if appErr.Code == http.StatusInternalServerError {
			Fail(w, appErr.Code, msgServerError)
			return
		}
	}
	Fail(w, appErr.Code, appErr.Message)
}

// DecodeJSON decodes a JSON request body into the given struct.
func DecodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.ErrBadRequest("invalid JSON body")
	}
	return nil
}
