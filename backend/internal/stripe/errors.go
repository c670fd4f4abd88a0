package stripe

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// APIError is the error object Stripe returns alongside a 4xx/5xx status.
type APIError struct {
	StatusCode  int    `json:"-"`
	Type        string `json:"type"`
	Code        string `json:"code,omitempty"`
	DeclineCode string `json:"decline_code,omitempty"`
	Message     string `json:"message"`
	Param       string `json:"param,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("stripe API error (%d): %s", e.StatusCode, e.Message)
}

// HTTPStatus is the status a relay should answer with: the provider's own,
// or 500 when none was reported.
func (e *APIError) HTTPStatus() int {
	if e.StatusCode == 0 {
		return http.StatusInternalServerError
	}
	return e.StatusCode
}

func parseAPIError(status int, body []byte) *APIError {
	var envelope struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error == nil {
		return &APIError{StatusCode: status, Type: "api_error", Message: "unknown error"}
	}
	envelope.Error.StatusCode = status
	if envelope.Error.Message == "" {
		envelope.Error.Message = "unknown error"
	}
	return envelope.Error
}
