package entity

import (
	"net"
	"net/url"
	"regexp"
	"strings"
)

// Environment selects the Google Pay environment.
type Environment string

const (
	EnvironmentTest       Environment = "TEST"
	EnvironmentProduction Environment = "PRODUCTION"
)

const DefaultCurrencyCode = "EUR"

var (
	DefaultCardNetworks = []string{"AMEX", "DISCOVER", "MASTERCARD", "VISA"}
	DefaultAuthMethods  = []string{"PAN_ONLY", "CRYPTOGRAM_3DS"}

	countryCodePattern  = regexp.MustCompile(`^[A-Z]{2}$`)
	currencyCodePattern = regexp.MustCompile(`^[A-Z]{3}$`)
)

// Credentials allow the engine to call the gateway directly. All five values are needed;
// a partial set leaves the configuration in backend mode.
type Credentials struct {
	ApiUsername string
	ApiSecret   string
	ApiBaseUrl  string
	AccountName string
	CustomerUrl string
}

func (c *Credentials) complete() bool {
	if c == nil {
		return false
	}
	for _, value := range []string{c.ApiUsername, c.ApiSecret, c.ApiBaseUrl, c.AccountName, c.CustomerUrl} {
		if strings.TrimSpace(value) == "" {
			return false
		}
	}
	return true
}

// GooglePayParams is the input of NewGooglePayConfig. Empty currency, networks and auth methods
// take the package defaults.
type GooglePayParams struct {
	Environment  Environment
	CountryCode  string
	CurrencyCode string
	CardNetworks []string
	AuthMethods  []string
	Credentials  *Credentials
}

// GooglePayConfig is immutable once built; accessors return copies.
type GooglePayConfig struct {
	environment  Environment
	countryCode  string
	currencyCode string
	cardNetworks []string
	authMethods  []string
	credentials  *Credentials
}

// NewGooglePayConfig validates params and returns a configuration, or a *ConfigError naming the
// first violated invariant.
func NewGooglePayConfig(params GooglePayParams) (*GooglePayConfig, error) {
	conf := &GooglePayConfig{
		environment:  params.Environment,
		countryCode:  params.CountryCode,
		currencyCode: params.CurrencyCode,
		cardNetworks: copyStrings(params.CardNetworks),
		authMethods:  copyStrings(params.AuthMethods),
	}
	if conf.environment == "" {
		conf.environment = EnvironmentTest
	}
	if conf.currencyCode == "" {
		conf.currencyCode = DefaultCurrencyCode
	}
	if len(conf.cardNetworks) == 0 {
		conf.cardNetworks = copyStrings(DefaultCardNetworks)
	}
	if len(conf.authMethods) == 0 {
		conf.authMethods = copyStrings(DefaultAuthMethods)
	}

	if conf.environment != EnvironmentTest && conf.environment != EnvironmentProduction {
		return nil, &ConfigError{Field: "environment", Reason: "must be TEST or PRODUCTION"}
	}
	if !countryCodePattern.MatchString(conf.countryCode) {
		return nil, &ConfigError{Field: "country code", Reason: "must be a 2-letter upper-case ISO code"}
	}
	if !currencyCodePattern.MatchString(conf.currencyCode) {
		return nil, &ConfigError{Field: "currency code", Reason: "must be a 3-letter upper-case ISO code"}
	}
	if err := checkList("card networks", conf.cardNetworks); err != nil {
		return nil, err
	}
	if err := checkList("auth methods", conf.authMethods); err != nil {
		return nil, err
	}

	if params.Credentials != nil {
		credentials := *params.Credentials
		conf.credentials = &credentials
	}
	if conf.credentials.complete() {
		if err := checkBaseUrl(conf.credentials.ApiBaseUrl); err != nil {
			return nil, err
		}
		if err := checkCustomerUrl(conf.credentials.CustomerUrl); err != nil {
			return nil, err
		}
	}
	return conf, nil
}

// IsSdkMode reports whether the engine may call the gateway itself.
func (c *GooglePayConfig) IsSdkMode() bool {
	return c.credentials.complete()
}

func (c *GooglePayConfig) IsBackendMode() bool {
	return !c.IsSdkMode()
}

func (c *GooglePayConfig) Environment() Environment {
	return c.environment
}

func (c *GooglePayConfig) CountryCode() string {
	return c.countryCode
}

func (c *GooglePayConfig) CurrencyCode() string {
	return c.currencyCode
}

func (c *GooglePayConfig) CardNetworks() []string {
	return copyStrings(c.cardNetworks)
}

func (c *GooglePayConfig) AuthMethods() []string {
	return copyStrings(c.authMethods)
}

// Credentials returns nil in backend mode.
func (c *GooglePayConfig) Credentials() *Credentials {
	if !c.IsSdkMode() {
		return nil
	}
	credentials := *c.credentials
	return &credentials
}

func checkList(field string, values []string) error {
	if len(values) == 0 {
		return &ConfigError{Field: field, Reason: "must not be empty"}
	}
	for _, value := range values {
		if strings.TrimSpace(value) == "" {
			return &ConfigError{Field: field, Reason: "must not contain blank values"}
		}
	}
	return nil
}

func checkBaseUrl(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ConfigError{Field: "api base url", Reason: "must be an absolute http(s) url"}
	}
	return nil
}

func checkCustomerUrl(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ConfigError{Field: "customer url", Reason: "must be an absolute http(s) url"}
	}
	host := u.Hostname()
	if strings.EqualFold(host, "localhost") {
		return &ConfigError{Field: "customer url", Reason: "must not point to localhost"}
	}
	if net.ParseIP(host) != nil {
		return &ConfigError{Field: "customer url", Reason: "must not be an ip address"}
	}
	return nil
}

func copyStrings(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
