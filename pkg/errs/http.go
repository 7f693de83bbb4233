package errs

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FromResponse maps a non-200 status from a provider endpoint onto an error
// kind. Client rejections (4xx) become AuthErrors carrying whatever detail
// the provider returned; everything else is a transport failure.
func FromResponse(op string, status int, body []byte) error {
	if status >= 400 && status < 500 {
		return Auth(op, status, providerMessage(body))
	}
	return Transportf(op, "unexpected status %d", status)
}

// providerMessage pulls the human-readable part out of an OAuth2-style
// error payload, falling back to the raw body.
func providerMessage(body []byte) string {
	var payload struct {
		Error       string `json:"error"`
		Description string `json:"error_description"`
		Message     string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Error != "" && payload.Description != "":
			return fmt.Sprintf("%s: %s", payload.Error, payload.Description)
		case payload.Description != "":
			return payload.Description
		case payload.Error != "":
			return payload.Error
		case payload.Message != "":
			return payload.Message
		}
	}
	message := strings.TrimSpace(string(body))
	if message == "" {
		return "no detail in response"
	}
	return message
}
