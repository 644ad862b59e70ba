package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "net/http/pprof"

	healthgo "github.com/hellofresh/health-go/v5"
	"github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/pomodoroso/pizzanova/carta"
	"github.com/pomodoroso/pizzanova/despensa/telemetry"
	"github.com/pomodoroso/pizzanova/geoloc"
	_ "github.com/pomodoroso/pizzanova/mostrador/docs"
	"github.com/pomodoroso/pizzanova/pedidos"
)

// @title		Pizzanova Mostrador
// @version		1.0
// @host		localhost:8080
// @BasePath	/
func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()
	retcode := 0
	defer func() {
		os.Exit(retcode)
	}()

	slog.InfoContext(ctx, "Launching mostrador")

	slog.InfoContext(ctx, "Loading config")
	settings, err := LoadConfig()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", slog.Any("err", err))
		retcode = 1
		return
	}

	slog.InfoContext(ctx, "Setting up opentelemetry")
	otelShutdown, err := telemetry.SetupOTelSDK(ctx, settings.App, settings.OpenTelemetry)
	if err != nil {
		slog.Error("failed to setup telemetry", slog.Any("err", err))
		retcode = 1
		return
	}

	defer func() {
		err = errors.Join(err, otelShutdown(context.Background()))
		if err != nil {
			slog.ErrorContext(
				ctx,
				"failed to shutdown opentelemetry providers",
				slog.Any("err", err),
			)
			retcode = 1
		}
	}()

	slog.InfoContext(ctx, "Loading catalog")
	catalog, err := carta.LoadCatalog()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load catalog", slog.Any("err", err))
		retcode = 1
		return
	}

	orders := pedidos.NewClient(settings.Backend)
	geocoder := geoloc.NewGeocoder(settings.Geocoder)
	sessions := NewSessionStore(time.Duration(settings.Sessions.TTLInMin) * time.Minute)
	go sessions.Sweep(ctx)

	slog.InfoContext(ctx, "Setting up health checker")
	health, err := healthgo.New(
		healthgo.WithComponent(healthgo.Component{
			Name:    settings.App.Name,
			Version: settings.App.Version,
		}),
		healthgo.WithChecks(healthgo.Config{
			Name: "backend",
			Check: func(ctx context.Context) error {
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, settings.Backend.BaseURL, nil)
				if err != nil {
					return err
				}
				resp, err := http.DefaultClient.Do(req)
				if err != nil {
					return fmt.Errorf("backend unreachable: %w", err)
				}
				resp.Body.Close()
				return nil
			},
		}),
	)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create health checker", slog.Any("err", err))
		retcode = 1
		return
	}

	errChan := make(chan error)
	server := echo.New()

	NewMainHandler(server, settings, catalog, sessions, orders, geocoder, health)
	server.GET("/swagger/*", echoSwagger.WrapHandler)
	pprof.Register(server)

	go func() {
		slog.InfoContext(ctx, "listening for requests", slog.String("ip", settings.HTTP.IP), slog.String("port", settings.HTTP.Port))
		errChan <- server.Start(fmt.Sprintf("%s:%s", settings.HTTP.IP, settings.HTTP.Port))
	}()

	select {
	case err = <-errChan:
		slog.ErrorContext(ctx, "error when running server", slog.Any("err", err))
		retcode = 1
		return
	case <-ctx.Done():
		// Wait for first Signal arrives
	}

	err = server.Shutdown(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to shutdown gracefully the server", slog.Any("err", err))
	}
}
