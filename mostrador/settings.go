package main

import (
	_ "embed"

	"github.com/pomodoroso/pizzanova/despensa"
)

//go:embed base.yaml
var baseConfig []byte

type SessionSettings struct {
	TTLInMin int `mapstructure:"ttl" validate:"required,min=1"`
}

type Settings struct {
	App           despensa.AppSettings           `mapstructure:"app" validate:"required"`
	HTTP          despensa.HTTPSettings          `mapstructure:"http" validate:"required"`
	OpenTelemetry despensa.OpenTelemetrySettings `mapstructure:"opentelemetry" validate:"required"`
	Backend       despensa.BackendSettings       `mapstructure:"backend" validate:"required"`
	Geocoder      despensa.GeocoderSettings      `mapstructure:"geocoder" validate:"required"`
	Tracking      despensa.PollSettings          `mapstructure:"tracking" validate:"required"`
	Sessions      SessionSettings                `mapstructure:"sessions" validate:"required"`
}

func LoadConfig() (*Settings, error) {
	return despensa.LoadConfig[Settings]("MOSTRADOR", baseConfig)
}
