package main

import (
	_ "embed"

	"github.com/pomodoroso/pizzanova/despensa"
)

//go:embed base.yaml
var baseConfig []byte

type Settings struct {
	App           despensa.AppSettings           `mapstructure:"app" validate:"required"`
	HTTP          despensa.HTTPSettings          `mapstructure:"http" validate:"required"`
	OpenTelemetry despensa.OpenTelemetrySettings `mapstructure:"opentelemetry" validate:"required"`
	Backend       despensa.BackendSettings       `mapstructure:"backend" validate:"required"`
	Identity      despensa.IdentitySettings      `mapstructure:"identity" validate:"required"`
	Polling       despensa.PollSettings          `mapstructure:"polling" validate:"required"`
	Nats          despensa.NatsSettings          `mapstructure:"nats"`
}

func LoadConfig() (*Settings, error) {
	return despensa.LoadConfig[Settings]("TRASTIENDA", baseConfig)
}
