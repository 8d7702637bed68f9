package response

import (
	"encoding/json"
	"net/http"
)

// Response is the envelope every endpoint returns.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Details string      `json:"details,omitempty"`
}

// JSON sends a success response with the given status
func JSON(w http.ResponseWriter, status int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	json.NewEncoder(w).Encode(Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// OK sends a 200 OK response
func OK(w http.ResponseWriter, message string, data interface{}) {
	JSON(w, http.StatusOK, message, data)
}

// Created sends a 201 Created response
func Created(w http.ResponseWriter, message string, data interface{}) {
	JSON(w, http.StatusCreated, message, data)
}

// Error sends an error response
func Error(w http.ResponseWriter, status int, errMsg string) {
	ErrorWithDetails(w, status, errMsg, "")
}

// ErrorWithDetails sends an error response carrying an extra detail string
func ErrorWithDetails(w http.ResponseWriter, status int, errMsg, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	json.NewEncoder(w).Encode(Response{
		Success: false,
		Error:   errMsg,
		Details: details,
	})
}

// BadRequest sends a 400 Bad Request response
func BadRequest(w http.ResponseWriter, errMsg string) {
	Error(w, http.StatusBadRequest, errMsg)
}

// ValidationError sends a 400 response with field details
func ValidationError(w http.ResponseWriter, details string) {
	ErrorWithDetails(w, http.StatusBadRequest, "Validation error", details)
}

// NotFound sends a 404 Not Found response
func NotFound(w http.ResponseWriter, errMsg string) {
	Error(w, http.StatusNotFound, errMsg)
}

// InternalError sends a 500 Internal Server Error response
func InternalError(w http.ResponseWriter, errMsg string, err error) {
	details := ""
	if err != nil {
		details = err.Error()
	}
	ErrorWithDetails(w, http.StatusInternalServerError, errMsg, details)
}
