package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gray-logic-entity-manager/internal/api"
	"github.com/nerrad567/gray-logic-entity-manager/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-entity-manager/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-entity-manager/internal/overrides"
)

func newServeCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and override reload listeners",
		Long: `Serve the REST and WebSocket API until interrupted.

Naming overrides are reloaded when the override file changes (file backend
with watch enabled) and when a reload_overrides command arrives over MQTT.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), g)
		},
	}
}

func runServe(ctx context.Context, g *globalOptions) error {
	a, err := openApp(ctx, g, appOptions{publish: true, serve: true})
	if err != nil {
		return err
	}
	defer a.Close()

	a.log.Info("entity manager starting",
		"version", version,
		"commit", commit,
		"locale", a.cfg.Naming.Locale,
		"overrides_backend", a.cfg.Overrides.Backend,
		"offline", a.cfg.HomeAssistant.Offline(),
	)

	srv, err := api.New(api.Deps{
		Config:     a.cfg.API,
		Logger:     a.log,
		Manager:    a.svc,
		History:    a.history,
		Metrics:    promhttp.HandlerFor(a.promReg, promhttp.HandlerOpts{}),
		Components: a.components(),
		Hub:        a.hub,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	eg, gctx := errgroup.WithContext(ctx)

	if err := srv.Start(gctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	eg.Go(func() error {
		<-gctx.Done()
		return srv.Close()
	})

	if a.cfg.Overrides.Backend == config.OverridesBackendFile && a.cfg.Overrides.Watch {
		watcher := overrides.NewWatcher(a.store, a.cfg.Overrides.Path)
		watcher.SetLogger(a.log)
		watcher.SetOnReload(a.collector.OverridesLoaded)
		eg.Go(func() error {
			return watcher.Run(gctx)
		})
	}

	if a.mqtt != nil {
		topic := a.mqtt.Topics().Command(mqtt.CommandReloadOverrides)
		err := a.mqtt.Subscribe(topic, a.mqtt.QoS(), func(_ string, _ []byte) error {
			status := a.svc.ReloadOverrides(gctx)
			a.collector.OverridesLoaded(status)
			if status == overrides.LoadFailed {
				return errors.New("naming overrides reload failed")
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("subscribing to %s: %w", topic, err)
		}
		a.log.Info("listening for override reload commands", "topic", topic)
	}

	a.log.Info("entity manager started")
	err = eg.Wait()
	a.log.Info("entity manager stopped")
	return err
}
