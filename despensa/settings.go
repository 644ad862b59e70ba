package despensa

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go"
	"github.com/spf13/viper"
)

type CORSSettings struct {
	Origins []string `mapstructure:"origins" validate:"min=1,dive,url"`
	Methods []string `mapstructure:"methods" validate:"min=1,dive,oneof=GET POST PUT DELETE OPTIONS PATCH HEAD"`
	Headers []string `mapstructure:"headers" validate:"min=1,dive,baseheader"`
}

type HTTPSettings struct {
	Port   string       `mapstructure:"port" validate:"required,numeric"`
	Prefix string       `mapstructure:"prefix" validate:"required"`
	IP     string       `mapstructure:"ip" validate:"required,ip"`
	CORS   CORSSettings `mapstructure:"cors" validate:"required"`
}

type AppSettings struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
	Env     string `mapstructure:"env"`
}

// BackendSettings points a service at the remote order backend.
type BackendSettings struct {
	BaseURL          string `mapstructure:"baseurl" validate:"required,url"`
	TimeoutInSec     int    `mapstructure:"timeout" validate:"required,min=1"`
	Retries          uint   `mapstructure:"retries" validate:"min=1"`
	BackoffBaseInMs  int    `mapstructure:"backoffbase" validate:"required,min=1"`
	BackoffCeilInSec int    `mapstructure:"backoffceil" validate:"required,min=1"`
}

type GeocoderSettings struct {
	BaseURL      string `mapstructure:"baseurl" validate:"required,url"`
	TimeoutInSec int    `mapstructure:"timeout" validate:"required,min=1"`
}

// IdentitySettings points a service at the hosted identity provider.
type IdentitySettings struct {
	BaseURL      string `mapstructure:"baseurl" validate:"required,url"`
	APIKey       string `mapstructure:"apikey"`
	TimeoutInSec int    `mapstructure:"timeout" validate:"required,min=1"`
}

type PollSettings struct {
	IntervalInSec    int `mapstructure:"interval" validate:"required,min=1"`
	BackoffCeilInSec int `mapstructure:"backoffceil" validate:"required,min=1"`
}

type NatsSettings struct {
	Enabled        bool `mapstructure:"enabled"`
	UseCredentials bool `mapstructure:"usecredentials"`
	// Only used if UseCredentials is true
	Username string `mapstructure:"username" validate:"required_if=UseCredentials true"`
	Password string `mapstructure:"password" validate:"required_if=UseCredentials true"`
	Host     string `mapstructure:"host" validate:"required_if=Enabled true"`
	Port     int    `mapstructure:"port" validate:"required_if=Enabled true"`
}

func (n *NatsSettings) GetNatsClient() (*nats.Conn, error) {
	portStr := strconv.Itoa(n.Port)
	opts := []nats.Option{}
	if n.UseCredentials {
		opts = append(opts, nats.UserInfo(n.Username, n.Password))
	}
	return nats.Connect(n.Host+":"+portStr, opts...)
}

type OpenTelemetryLogSettings struct {
	TimeoutInSec  int64 `mapstructure:"timeout"`
	IntervalInSec int64 `mapstructure:"interval"`
	MaxQueueSize  int   `mapstructure:"maxqueuesize"`
	BatchSize     int   `mapstructure:"batchsize"`
}

type OpenTelemetryTraceSettings struct {
	TimeoutInSec int64 `mapstructure:"timeout"`
	MaxQueueSize int   `mapstructure:"maxqueuesize"`
	BatchSize    int   `mapstructure:"batchsize"`
	SampleRate   int   `mapstructure:"samplerate"`
}

type OpenTelemetryMetricSettings struct {
	IntervalInSec int64 `mapstructure:"interval"`
	TimeoutInSec  int64 `mapstructure:"timeout"`
}

type OpenTelemetrySettings struct {
	Enabled  bool                        `mapstructure:"enabled"`
	Endpoint string                      `mapstructure:"endpoint"`
	Metrics  OpenTelemetryMetricSettings `mapstructure:"metrics"`
	Traces   OpenTelemetryTraceSettings  `mapstructure:"traces"`
	Logs     OpenTelemetryLogSettings    `mapstructure:"logs"`
}

// NewValidator returns the validator used for settings structs, with the
// custom validations the settings tags rely on already registered.
func NewValidator() *validator.Validate {
	validate := validator.New()
	allowedHeaders := map[string]struct{}{
		"Accept": {}, "Authorization": {}, "Content-Type": {}, "X-CSRF-Token": {},
	}
	_ = validate.RegisterValidation("baseheader", func(fl validator.FieldLevel) bool {
		header := fl.Field().String()
		_, ok := allowedHeaders[header]
		return ok
	})
	return validate
}

// LoadConfig reads the embedded base yaml, overlays environment variables
// prefixed with envPrefix and validates the result.
func LoadConfig[T any](envPrefix string, baseConfig []byte) (*T, error) {
	var cfg *T

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(baseConfig)); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", ""))
	v.AutomaticEnv()

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := NewValidator().Struct(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
