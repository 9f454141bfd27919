package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	settingsDirName  = "archivesearch"
	settingsFileName = "config.json"
)

// Settings is what `archivesearch config set-url` persists
type Settings struct {
	APIURL  string    `json:"api_url"`
	SavedAt time.Time `json:"saved_at"`
}

// settingsPath is swapped out in tests
var settingsPath = func() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(dir, settingsDirName, settingsFileName), nil
}

// SettingsPath returns where settings are stored on this machine
func SettingsPath() (string, error) {
	return settingsPath()
}

// LoadSettings returns nil without error when nothing has been saved
func LoadSettings() (*Settings, error) {
	path, err := settingsPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &s, nil
}

// SaveSettings validates rawURL and writes it, replacing any previous file
func SaveSettings(rawURL string) (*Settings, error) {
	apiURL, err := validateAPIURL(rawURL)
	if err != nil {
		return nil, err
	}

	path, err := settingsPath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	s := &Settings{APIURL: apiURL, SavedAt: time.Now().UTC()}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), settingsFileName+".*")
	if err != nil {
		return nil, fmt.Errorf("failed to write config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return nil, fmt.Errorf("failed to write config: %w", err)
	}
	return s, nil
}

// ClearSettings removes the saved file and reports whether one existed
func ClearSettings() (bool, error) {
	path, err := settingsPath()
	if err != nil {
		return false, err
	}
	err = os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return true, nil
}

// URLSource records where the API URL came from
type URLSource string

const (
	SourceFlag     URLSource = "flag"
	SourceEnv      URLSource = "env"
	SourceSettings URLSource = "settings"
	SourceDefault  URLSource = "default"
	SourceNone     URLSource = "none"
)

// ResolveAPIURL picks the server URL: flag, then env, then saved settings,
// then the local default.
func ResolveAPIURL(flagURL string) (string, URLSource, error) {
	if flagURL != "" {
		return normalizeAPIURL(flagURL), SourceFlag, nil
	}
	if envURL := os.Getenv(envAPIURL); envURL != "" {
		return normalizeAPIURL(envURL), SourceEnv, nil
	}

	s, err := LoadSettings()
	if err != nil {
		return "", SourceNone, err
	}
	if s != nil && s.APIURL != "" {
		return s.APIURL, SourceSettings, nil
	}
	return defaultAPIURL, SourceDefault, nil
}

func validateAPIURL(raw string) (string, error) {
	apiURL := normalizeAPIURL(raw)
	if apiURL == "" {
		return "", fmt.Errorf("url cannot be empty")
	}
	u, err := url.Parse(apiURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("invalid url %q: expected http(s)://host[:port]", raw)
	}
	return apiURL, nil
}

func normalizeAPIURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}
