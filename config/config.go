// Package config provides configuration management for the Google Pay bridge service.
// Configuration can be loaded from YAML files and overridden by environment variables.
package config

import (
	"fmt"
	"github.com/ilyakaznacheev/cleanenv"
	"gpaylink/entity"
	"strings"
	"sync"
)

// Config holds all configuration for the bridge service.
// Environment variables take precedence over YAML values.
type Config struct {
	IsDebug  bool   `yaml:"is_debug" env:"DEBUG" env-default:"false"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:""`
	Listen   struct {
		BindIP   string `yaml:"bind_ip" env:"BIND_IP" env-default:"127.0.0.1"`
		Port     string `yaml:"port" env:"PORT" env-default:"5100"`
		TLS      bool   `yaml:"tls_enabled" env:"TLS_ENABLED" env-default:"false"`
		CertFile string `yaml:"cert_file" env:"TLS_CERT_FILE" env-default:""`
		KeyFile  string `yaml:"key_file" env:"TLS_KEY_FILE" env-default:""`
	} `yaml:"listen"`
	Mongo struct {
		Enabled  bool   `yaml:"enabled" env:"MONGO_ENABLED" env-default:"false"`
		Host     string `yaml:"host" env:"MONGO_HOST" env-default:"127.0.0.1"`
		Port     string `yaml:"port" env:"MONGO_PORT" env-default:"27017"`
		User     string `yaml:"user" env:"MONGO_USER" env-default:""`
		Password string `yaml:"password" env:"MONGO_PASSWORD" env-default:""`
		Database string `yaml:"database" env:"MONGO_DATABASE" env-default:"gpaylink"`
	} `yaml:"mongo"`
	// Gateway credentials; leave any of the first five empty to run in backend mode
	Gateway struct {
		ApiUsername    string `yaml:"api_username" env:"GATEWAY_API_USERNAME" env-default:""`
		ApiSecret      string `yaml:"api_secret" env:"GATEWAY_API_SECRET" env-default:""`
		ApiBaseUrl     string `yaml:"api_base_url" env:"GATEWAY_API_BASE_URL" env-default:""`
		AccountName    string `yaml:"account_name" env:"GATEWAY_ACCOUNT_NAME" env-default:""`
		CustomerUrl    string `yaml:"customer_url" env:"GATEWAY_CUSTOMER_URL" env-default:""`
		TimeoutSeconds int    `yaml:"timeout_seconds" env:"GATEWAY_TIMEOUT_SECONDS" env-default:"30"`
	} `yaml:"gateway"`
	GooglePay struct {
		Environment  string   `yaml:"environment" env:"GOOGLE_PAY_ENVIRONMENT" env-default:"TEST"`
		CountryCode  string   `yaml:"country_code" env:"GOOGLE_PAY_COUNTRY_CODE" env-default:""`
		CurrencyCode string   `yaml:"currency_code" env:"GOOGLE_PAY_CURRENCY_CODE" env-default:"EUR"`
		CardNetworks []string `yaml:"card_networks" env:"GOOGLE_PAY_CARD_NETWORKS" env-separator:","`
		AuthMethods  []string `yaml:"auth_methods" env:"GOOGLE_PAY_AUTH_METHODS" env-separator:","`
		RequestCode  int      `yaml:"request_code" env:"GOOGLE_PAY_REQUEST_CODE" env-default:"991"`
	} `yaml:"google_pay"`
	// WalletHost is the application presenting the payment sheet
	WalletHost struct {
		Url            string `yaml:"url" env:"WALLET_HOST_URL" env-default:"http://127.0.0.1:5200"`
		Secret         string `yaml:"secret" env:"WALLET_HOST_SECRET" env-default:""`
		TimeoutSeconds int    `yaml:"timeout_seconds" env:"WALLET_HOST_TIMEOUT_SECONDS" env-default:"10"`
	} `yaml:"wallet_host"`
}

var instance *Config
var once sync.Once

// GetConfig loads configuration from the specified YAML file path.
// Configuration values can be overridden by environment variables.
// This function uses a singleton pattern and only loads the config once.
//
// Example:
//
//	cfg, err := config.GetConfig("config.yml")
//	if err != nil {
//	    log.Fatal(err)
//	}
func GetConfig(path string) (*Config, error) {
	var err error
	once.Do(func() {
		instance, err = ReadConfig(path)
	})
	return instance, err
}

// ReadConfig loads a fresh configuration without touching the singleton.
func ReadConfig(path string) (*Config, error) {
	conf := &Config{}
	if err := cleanenv.ReadConfig(path, conf); err != nil {
		desc, _ := cleanenv.GetDescription(conf, nil)
		return nil, fmt.Errorf("load config: %w; %s", err, desc)
	}
	return conf, nil
}

// WalletConfig builds the validated wallet configuration. The credentials block is passed as is;
// an incomplete set selects backend mode.
func (c *Config) WalletConfig() (*entity.GooglePayConfig, error) {
	return entity.NewGooglePayConfig(entity.GooglePayParams{
		Environment:  entity.Environment(strings.ToUpper(strings.TrimSpace(c.GooglePay.Environment))),
		CountryCode:  c.GooglePay.CountryCode,
		CurrencyCode: c.GooglePay.CurrencyCode,
		CardNetworks: c.GooglePay.CardNetworks,
		AuthMethods:  c.GooglePay.AuthMethods,
		Credentials: &entity.Credentials{
			ApiUsername: c.Gateway.ApiUsername,
			ApiSecret:   c.Gateway.ApiSecret,
			ApiBaseUrl:  c.Gateway.ApiBaseUrl,
			AccountName: c.Gateway.AccountName,
			CustomerUrl: c.Gateway.CustomerUrl,
		},
	})
}
