package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/josh-kwaku/estate-checkout/internal/apiclient"
)

const (
	msgNetwork = "Network error. Please check your connection."
	msgServer  = "Server error. Please try again later."
)

// RequestError carries the message shown to the user for a failed auth call.
type RequestError struct {
	Message    string
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

func mapError(err error, fallback string) error {
	if apiclient.IsCancelled(err) {
		return err
	}

	var apiErr *apiclient.APIError
	if !errors.As(err, &apiErr) {
		return &RequestError{Message: msgNetwork, Err: err}
	}

	msg := apiErr.Message
	switch {
	case apiErr.StatusCode >= http.StatusInternalServerError:
		msg = msgServer
	case apiErr.StatusCode == http.StatusBadRequest:
		if fields := fieldErrors(apiErr.Body); fields != "" {
			msg = fields
		}
	}
	if msg == "" {
		msg = fallback
	}
	return &RequestError{Message: msg, StatusCode: apiErr.StatusCode, Err: err}
}

func fieldErrors(body []byte) string {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return ""
	}
	delete(obj, "detail")
	delete(obj, "message")
	return apiclient.FieldMessages(obj)
}
