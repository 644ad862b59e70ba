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

	_ "net/http/pprof"

	healthgo "github.com/hellofresh/health-go/v5"
	"github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/pomodoroso/pizzanova/cuentas"
	"github.com/pomodoroso/pizzanova/despensa/telemetry"
	"github.com/pomodoroso/pizzanova/pedidos"
	_ "github.com/pomodoroso/pizzanova/trastienda/docs"
)

// @title						Pizzanova Trastienda
// @version						1.0
// @host						localhost:8081
// @BasePath  					/
// @securityDefinitions.apikey	Bearer
// @in							header
// @name						Authorization
// @description					Type "Bearer" followed by a space and JWT token.
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

	slog.InfoContext(ctx, "Launching trastienda")

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

	orders := pedidos.NewClient(settings.Backend)
	accounts := cuentas.NewHostedProvider(settings.Identity)

	// Snapshots fan out in process by default; NATS links replicas when more
	// than one back-office instance runs.
	var pubsub pedidos.SnapshotPubSubber
	healthChecks := []healthgo.Config{{
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
	}}
	if settings.Nats.Enabled {
		slog.InfoContext(ctx, "Connecting to NATS server")
		nc, err := settings.Nats.GetNatsClient()
		if err != nil {
			slog.ErrorContext(ctx, "failed to connect to NATS server", slog.Any("err", err))
			retcode = 1
			return
		}
		pubsub = pedidos.NewNATSSnapshotPubSubber(nc, "pedidos.board")
		healthChecks = append(healthChecks, healthgo.Config{
			Name: "nats",
			Check: func(ctx context.Context) error {
				if !nc.IsConnected() {
					return errors.New("NATS connection is not active")
				}
				return nil
			},
		})
	} else {
		pubsub = pedidos.NewGoChannelSnapshotPubSubber()
	}

	board := pedidos.NewBoard(orders, settings.Polling, pubsub)
	go board.Run(ctx)

	slog.InfoContext(ctx, "Setting up health checker")
	health, err := healthgo.New(
		healthgo.WithComponent(healthgo.Component{
			Name:    settings.App.Name,
			Version: settings.App.Version,
		}),
		healthgo.WithChecks(healthChecks...),
	)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create health checker", slog.Any("err", err))
		retcode = 1
		return
	}

	errChan := make(chan error)
	server := echo.New()

	NewMainHandler(server, settings, board, accounts, pubsub, health)
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
