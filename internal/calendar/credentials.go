package calendar

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNoCredentials is returned when no service-account credentials are configured.
var ErrNoCredentials = errors.New("no calendar credentials configured")

// LoadCredentialsJSON accepts either a path to a service-account key file or
// the key JSON itself, and returns the JSON.
func LoadCredentialsJSON(value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, ErrNoCredentials
	}

	var data []byte
	if strings.HasPrefix(value, "{") {
		data = []byte(value)
	} else {
		var err error
		data, err = os.ReadFile(value)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
	}

	var key struct {
		Type        string `json:"type"`
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(data, &key); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	if key.Type != "service_account" {
		return nil, fmt.Errorf("credentials must be a service account key, got type %q", key.Type)
	}
	return data, nil
}
