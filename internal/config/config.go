package config

import (
	"strings"

	"github.com/spf13/viper"
)

const ENV_PREFIX = "FEE_TRACKER"

// Flag names, shared between cmd wiring and viper lookups.
const (
	Debug                = "debug"
	DataDir              = "data-dir"
	EthereumRpcUrl       = "ethereum.rpc-url"
	DataDogStatsdEnabled = "datadog.statsd.enabled"
	DataDogStatsdUrl     = "datadog.statsd.url"
	PrometheusEnabled    = "prometheus.enabled"
	PrometheusPort       = "prometheus.port"

	EndDate       = "end-date"
	StartDate     = "start-date"
	ReportOutFile = "out"
)

// KebabToSnakeCase normalizes a flag name into the form viper binds
// environment variables under.
func KebabToSnakeCase(str string) string {
	return strings.ReplaceAll(str, "-", "_")
}

type Config struct {
	Debug             bool
	Chain             Chain
	DataDir           string
	EthereumRpcConfig EthereumRpcConfig
	DataDogConfig     DataDogConfig
	PrometheusConfig  PrometheusConfig
}

type EthereumRpcConfig struct {
	BaseUrl string
}

type DataDogConfig struct {
	Enabled   bool
	StatsdUrl string
}

type PrometheusConfig struct {
	Enabled bool
	Port    int
}

// NewConfig reads the resolved flag/env values out of viper. Flags are
// bound in cmd; FEE_TRACKER_* environment variables override defaults.
func NewConfig() *Config {
	return &Config{
		Debug:   viper.GetBool(KebabToSnakeCase(Debug)),
		Chain:   ParseChain(viper.GetString("chain")),
		DataDir: viper.GetString(KebabToSnakeCase(DataDir)),

		EthereumRpcConfig: EthereumRpcConfig{
			BaseUrl: viper.GetString(KebabToSnakeCase(EthereumRpcUrl)),
		},

		DataDogConfig: DataDogConfig{
			Enabled:   viper.GetBool(KebabToSnakeCase(DataDogStatsdEnabled)),
			StatsdUrl: viper.GetString(KebabToSnakeCase(DataDogStatsdUrl)),
		},

		PrometheusConfig: PrometheusConfig{
			Enabled: viper.GetBool(KebabToSnakeCase(PrometheusEnabled)),
			Port:    viper.GetInt(KebabToSnakeCase(PrometheusPort)),
		},
	}
}
