package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every setting read from the environment,
// e.g. ORANGEPL_API_KEY for api.key.
const EnvPrefix = "ORANGEPL"

// Settings is the exporter's process configuration.
type Settings struct {
	ListenAddress string      `mapstructure:"listen_address"`
	AccountsFile  string      `mapstructure:"accounts_file"`
	Debug         bool        `mapstructure:"debug"`
	API           API         `mapstructure:"api"`
	Scrape        Scrape      `mapstructure:"scrape"`
	Generations   Generations `mapstructure:"generations"`
}

// API describes how to reach the provider.
type API struct {
	BaseURL       string        `mapstructure:"base_url"`
	Key           string        `mapstructure:"key"`
	Platform      string        `mapstructure:"platform"`
	RequestSource string        `mapstructure:"request_source"`
	UserAgent     string        `mapstructure:"user_agent"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type Scrape struct {
	// Concurrency bounds how many accounts are processed at once.
	Concurrency int `mapstructure:"concurrency"`
	// Timeout bounds a whole scrape cycle.
	Timeout time.Duration `mapstructure:"timeout"`
	// Timezone is the location provider timestamps are written in. They
	// carry no offset of their own.
	Timezone string `mapstructure:"timezone"`
}

// Location resolves Timezone.
func (s Scrape) Location() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}

// Generations holds one endpoint set per authentication flow.
type Generations struct {
	Password Generation `mapstructure:"password"`
	Device   Generation `mapstructure:"device"`
}

// Generation is one provider API generation: the endpoint paths and the
// response field names that differ between them. Paths may contain the
// {username}, {customerId} and {code} placeholders.
type Generation struct {
	AuthorizePath       string `mapstructure:"authorize_path"`
	TokenPath           string `mapstructure:"token_path"`
	CustomerPath        string `mapstructure:"customer_path"`
	CustomerIDField     string `mapstructure:"customer_id_field"`
	BillingAccountsPath string `mapstructure:"billing_accounts_path"`
	AccountTypeField    string `mapstructure:"account_type_field"`
	AccountCodeField    string `mapstructure:"account_code_field"`
	AccountNameField    string `mapstructure:"account_name_field"`
	StatusPath          string `mapstructure:"status_path"`
}

// For returns the generation serving flow.
func (g Generations) For(flow Flow) Generation {
	if flow == FlowDevice {
		return g.Device
	}
	return g.Password
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_address", ":5000")
	v.SetDefault("accounts_file", "accounts.json")
	v.SetDefault("debug", false)

	v.SetDefault("api.base_url", "https://apiint.orange.pl")
	v.SetDefault("api.key", "")
	v.SetDefault("api.platform", "iOS")
	v.SetDefault("api.request_source", "mobiapp")
	v.SetDefault("api.user_agent", "orangepl-exporter/1.0")
	v.SetDefault("api.timeout", 15*time.Second)

	v.SetDefault("scrape.concurrency", 4)
	v.SetDefault("scrape.timeout", 60*time.Second)
	v.SetDefault("scrape.timezone", "Europe/Warsaw")

	v.SetDefault("generations.password.token_path", "/app/oauth/v2/token")
	v.SetDefault("generations.password.customer_path", "/app/oauth/v2/authInfo")
	v.SetDefault("generations.password.customer_id_field", "customerId")
	v.SetDefault("generations.password.billing_accounts_path", "/billingManagement/v2/billingAccounts/briefs?customerId={customerId}")
	v.SetDefault("generations.password.account_type_field", "billingAccountType")
	v.SetDefault("generations.password.account_code_field", "billingAccountCode")
	v.SetDefault("generations.password.account_name_field", "billingAccountName")
	v.SetDefault("generations.password.status_path", "/prepaid/v1/status/{code}")

	v.SetDefault("generations.device.authorize_path", "/app/oauth/v3/authorize")
	v.SetDefault("generations.device.token_path", "/app/oauth/v3/token")
	v.SetDefault("generations.device.customer_path", "/customerManagement/v1/customers/{customerId}/full")
	v.SetDefault("generations.device.customer_id_field", "id")
	v.SetDefault("generations.device.billing_accounts_path", "/billingManagement/v3/customers/{customerId}/billingAccounts")
	v.SetDefault("generations.device.account_type_field", "type")
	v.SetDefault("generations.device.account_code_field", "code")
	v.SetDefault("generations.device.account_name_field", "name")
	v.SetDefault("generations.device.status_path", "/prepaid/v2/accounts/{code}/status")
}

// Load builds Settings from v. When configFile is not empty it is read as
// the settings file; environment variables override both it and defaults.
func Load(v *viper.Viper, configFile string) (*Settings, error) {
	if v == nil {
		v = viper.New()
	}
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read settings file: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Settings) validate() error {
	if s.API.Key == "" {
		return errors.New("api key is required (set " + EnvPrefix + "_API_KEY)")
	}
	if s.API.BaseURL == "" {
		return errors.New("api base url is required")
	}
	if s.Scrape.Concurrency < 1 {
		return fmt.Errorf("scrape concurrency must be positive, got %d", s.Scrape.Concurrency)
	}
	if _, err := s.Scrape.Location(); err != nil {
		return fmt.Errorf("scrape timezone: %w", err)
	}
	return nil
}
