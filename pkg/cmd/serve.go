package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eztransfer/signaling/pkg/api"
	"github.com/eztransfer/signaling/pkg/auth"
	"github.com/eztransfer/signaling/pkg/history"
	"github.com/eztransfer/signaling/pkg/metrics"
	"github.com/eztransfer/signaling/pkg/relay"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
)

const shutdownTimeout = 5 * time.Second

var serveCommand *cli.Command = &cli.Command{
	Name:  "serve",
	Usage: "Starts the signaling server",
	Flags: []cli.Flag{
		hostFlag,
		portFlag,
		secretKeyFlag,
		secretKeyFileFlag,
		corsAllowOriginsFlag,
		historyDBFlag,
		historySizeFlag,
		wsPingIntervalFlag,
		adminUsernameFlag,
		adminPasswordFlag,
	},
	Action: func(c *cli.Context) error {
		startPrometheusServer(c)
		secret, secretErr := auth.LoadSecret(
			afero.NewOsFs(), c.String(secretKeyFlag.Name), c.String(secretKeyFileFlag.Name),
		)
		if secretErr != nil {
			return secretErr
		}
		settings, settingsErr := serverSettings(
			c.String(corsAllowOriginsFlag.Name),
			c.String(adminUsernameFlag.Name),
			c.String(adminPasswordFlag.Name),
		)
		if settingsErr != nil {
			return settingsErr
		}
		storage, storageErr := openHistory(c.String(historyDBFlag.Name), c.Int(historySizeFlag.Name))
		if storageErr != nil {
			return storageErr
		}
		collector, collectorErr := metrics.NewCollector(prometheus.DefaultRegisterer)
		if collectorErr != nil {
			return multierr.Combine(collectorErr, storage.Close())
		}

		signer := auth.NewSigner(secret)
		hub := relay.NewHub(relay.WithMetrics(collector))
		manager := relay.NewManager(hub, relay.WithHistory(storage), relay.WithManagerMetrics(collector))
		engine, apiErr := api.NewAPI([]api.Controller{
			api.NewRootController(),
			api.NewTokenController(signer),
			api.NewSignalingController(signer, manager, c.Duration(wsPingIntervalFlag.Name), collector),
			api.NewStatsController(hub, storage),
		}, settings)
		if apiErr != nil {
			return multierr.Combine(apiErr, storage.Close())
		}

		server := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", c.String(hostFlag.Name), c.Int(portFlag.Name)),
			Handler:           engine,
			ReadHeaderTimeout: 3 * time.Second,
		}
		ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serveUntilDone(ctx, server, manager, storage)
	},
}

func serveUntilDone(ctx context.Context, server *http.Server, manager *relay.Manager, storage history.Storage) error {
	listenErrs := make(chan error, 1)
	go func() {
		logrus.Infof("Starting signaling server on %s", server.Addr)
		listenErrs <- server.ListenAndServe()
	}()

	var runErr error
	select {
	case listenErr := <-listenErrs:
		if !errors.Is(listenErr, http.ErrServerClosed) {
			runErr = fmt.Errorf("signaling server failed: %w", listenErr)
		}
	case <-ctx.Done():
		logrus.Info("Shutting down signaling server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return multierr.Combine(
		runErr,
		server.Shutdown(shutdownCtx),
		manager.CloseAll(),
		storage.Close(),
	)
}

func serverSettings(origins, username, password string) (api.ServerSettings, error) {
	if (username == "") != (password == "") {
		return api.ServerSettings{}, fmt.Errorf(
			"both --%s and --%s need to be set to enable basic auth", adminUsernameFlag.Name, adminPasswordFlag.Name,
		)
	}
	if username == "" {
		logrus.Warn("Basic auth is disabled, the pairing history is publicly available")
	}
	return api.ServerSettings{
		BasicAuthEnabled:  username != "",
		BasicAuthUsername: username,
		BasicAuthPassword: password,
		AllowedOrigins:    splitOrigins(origins),
	}, nil
}

func openHistory(path string, size int) (history.Storage, error) {
	if path == "" {
		logrus.Infof("Keeping up to %d pairings in memory", size)
		return history.NewInMemoryStorage(size), nil
	}
	logrus.Infof("Keeping pairing history in %s", path)
	return history.NewBoltStorage(path)
}
