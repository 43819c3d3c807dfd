package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// User-facing messages.
const (
	MsgNetwork            = "Network error. Please check your connection."
	MsgUnauthorized       = "Unauthorized access. Please login again."
	MsgForbidden          = "You do not have permission to access this resource."
	MsgNotFound           = "Resource not found."
	MsgServer             = "Server error. Please try again later."
	MsgInvalidCredentials = "Invalid username or password."
	MsgSessionExpired     = "Your session has expired. Please login again."
)

// ErrUnauthorized is wrapped by every APIError produced from a 401.  By the
// time a caller sees it the browser's token and user record are gone.
var ErrUnauthorized = errors.New("backend: unauthorized")

// ErrRejected is wrapped when a 2xx response carries success:false.
var ErrRejected = errors.New("backend: request rejected")

// APIError is the normalised failure of one backend call.
type APIError struct {
	Status      int    // 0 when no response arrived
	Code        string // body code, ERROR_<status>, or NETWORK_ERROR
	Message     string // display message after status mapping
	BodyMessage string // raw message from the response body, if any
	Err         error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("backend: %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("backend: %d %s: %s", e.Status, e.Code, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// errorBody is the subset of a failure body we look at.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

// newStatusError maps a non-2xx response to an APIError.
func newStatusError(status int, body []byte) *APIError {
	var eb errorBody
	_ = json.Unmarshal(body, &eb) // non-JSON bodies fall through to defaults

	e := &APIError{
		Status:      status,
		Code:        eb.Code,
		BodyMessage: eb.Message,
	}
	if e.Code == "" {
		e.Code = fmt.Sprintf("ERROR_%d", status)
	}

	switch status {
	case http.StatusBadRequest:
		e.Message = orDefault(eb.Message, "Invalid request")
	case http.StatusUnauthorized:
		e.Message = MsgUnauthorized
		e.Err = ErrUnauthorized
	case http.StatusForbidden:
		e.Message = MsgForbidden
	case http.StatusNotFound:
		e.Message = MsgNotFound
	case http.StatusConflict:
		e.Message = orDefault(eb.Message, "Resource conflict")
	case http.StatusInternalServerError:
		e.Message = MsgServer
	default:
		e.Message = orDefault(eb.Message, orDefault(eb.Error, MsgServer))
	}
	return e
}

func newNetworkError(err error) *APIError {
	return &APIError{Code: "NETWORK_ERROR", Message: MsgNetwork, Err: err}
}

func orDefault(s, def string) string {
	if s != "" {
		return s
	}
	return def
}

// Message returns the display text for any error a backend call returned.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Message
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return MsgNetwork
	}
	return MsgServer
}

// Status returns the HTTP status carried by err, or 0.
func Status(err error) int {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}
