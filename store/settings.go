package store

import (
	"encoding/json"
	"fmt"
	"os"
)

// Settings are the connection parameters in the server's database configuration file.
// The file is shared with the server, so it keeps the server's key names. Driver is an
// addition the server ignores; when it is empty the driver is chosen by the harness.
type Settings struct {
	Host     string `json:"host"`
	Port     int    `json:"port,omitempty"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	Driver   string `json:"driver,omitempty"`
}

// LoadSettings reads a database configuration file.
func LoadSettings(path string) (Settings, error) {
	var s Settings
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("reading database settings: %w", err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("database settings in %s are not valid JSON: %w", path, err)
	}
	return s, nil
}
