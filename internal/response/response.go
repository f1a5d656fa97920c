// Package response implements the agent's public JSON envelope. Every body
// leaving the server, whether produced by a route handler or by an admission
// middleware, uses one of the two shapes defined here.
package response

import (
	"encoding/json"
	"net/http"
	"time"
)

// SuccessEnvelope is the body returned for successful requests.
type SuccessEnvelope struct {
	Status    string      `json:"status"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

// ErrorEnvelope is the body returned for rejected or failed requests.
type ErrorEnvelope struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Clock is overridable for tests; production code uses the real time.
var Clock func() time.Time = time.Now

func timestamp() string {
	return Clock().UTC().Format(time.RFC3339)
}

// Success writes a 200 response with the success envelope. A nil data value
// is rendered as an empty object rather than JSON null.
func Success(w http.ResponseWriter, data interface{}) {
	if data == nil {
		data = map[string]interface{}{}
	}
	write(w, http.StatusOK, SuccessEnvelope{
		Status:    "Success",
		Data:      data,
		Timestamp: timestamp(),
	})
}

// Error writes an error envelope with the given status code and message.
func Error(w http.ResponseWriter, status int, message string) {
	write(w, status, ErrorEnvelope{
		Status:    "Error",
		Message:   message,
		Timestamp: timestamp(),
	})
}

func write(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Canned rejections shared by the admission middleware stages.

func NotFound(w http.ResponseWriter)     { Error(w, http.StatusNotFound, "Resource not found") }
func Forbidden(w http.ResponseWriter)    { Error(w, http.StatusForbidden, "Access denied") }
func Unauthorized(w http.ResponseWriter) { Error(w, http.StatusUnauthorized, "Unauthorized access") }
func BadRequest(w http.ResponseWriter)   { Error(w, http.StatusBadRequest, "Bad request") }
func InternalError(w http.ResponseWriter) {
	Error(w, http.StatusInternalServerError, "Internal server error")
}
func ImATeapot(w http.ResponseWriter) { Error(w, http.StatusTeapot, "I'm a teapot") }
func ServiceUnavailable(w http.ResponseWriter) {
	Error(w, http.StatusServiceUnavailable, "Service unavailable")
}
func TooManyRequests(w http.ResponseWriter) {
	Error(w, http.StatusTooManyRequests, "Rate limit exceeded.")
}
