package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Flow names the authentication flow a credential record is written for.
type Flow string

const (
	FlowPassword Flow = "password"
	FlowDevice   Flow = "device"
)

// Credential holds the secrets for a single Orange subscriber account.
// Records carry either a password or the device/offline-token set.
type Credential struct {
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	Device       string `yaml:"device"`
	DeviceName   string `yaml:"deviceName"`
	DeviceToken  string `yaml:"deviceToken"`
	OfflineToken string `yaml:"offlineToken"`
	CustomerID   string `yaml:"customerId"`
}

// Flow reports which authentication flow the record supports. The offline
// token wins when both sets of secrets are present.
func (c Credential) Flow() Flow {
	if c.OfflineToken != "" {
		return FlowDevice
	}
	return FlowPassword
}

func (c Credential) validate() error {
	if c.Username == "" {
		return errors.New("username is required")
	}
	switch c.Flow() {
	case FlowDevice:
		if c.Device == "" || c.DeviceToken == "" || c.CustomerID == "" {
			return errors.New("device flow needs device, deviceToken, offlineToken and customerId")
		}
	default:
		if c.Password == "" {
			return errors.New("either password or offlineToken is required")
		}
	}
	return nil
}

// ConfigError reports an unreadable or invalid account file. Nothing can be
// scraped without it, so it fails the whole cycle.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("accounts file %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// LoadAccounts reads the credential file at path. The file is a sequence of
// records; JSON is accepted as well since it is valid YAML.
func LoadAccounts(path string) ([]Credential, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	defer f.Close()

	var creds []Credential
	if err := yaml.NewDecoder(f).Decode(&creds); err != nil && !errors.Is(err, io.EOF) {
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("decode: %w", err)}
	}
	for i, c := range creds {
		if err := c.validate(); err != nil {
			return nil, &ConfigError{Path: path, Err: fmt.Errorf("record %d: %w", i, err)}
		}
	}
	return creds, nil
}
