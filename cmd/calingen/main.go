package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"calingen/internal/config"
	"calingen/internal/generation"
	appLog "calingen/internal/log"
	"calingen/internal/model"
	"calingen/internal/plugin"
	"calingen/internal/resolution"
	"calingen/internal/session"
	"calingen/internal/storage"
	"calingen/internal/web"
	"calingen/plugins/icsfeed"

	// Compiled-in plugins register themselves on import.
	_ "calingen/plugins/compilers/copypaste"
	_ "calingen/plugins/compilers/download"
	_ "calingen/plugins/compilers/htmlordownload"
	_ "calingen/plugins/compilers/pdf"
	_ "calingen/plugins/germanholidays"
	_ "calingen/plugins/layouts/icalendar"
	_ "calingen/plugins/layouts/lineatur"
	_ "calingen/plugins/layouts/simpleeventlist"
	_ "calingen/plugins/layouts/yearbyweek"
)

type flagConfig struct {
	configPath string
	listen     string
	check      bool
}

func main() {
	appLog.Info("calingen starting", "version", "0.1.0-dev")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	appLog.SetLevel(appLog.Level(conf.LogLevel))

	// The checks run before feed registration so a broken feed list
	// (duplicate or empty ids) surfaces as a diagnostic, not as a
	// registration panic. Compiled-in plugins are already registered at
	// this point, so the compiler mapping can be validated too.
	if problems := conf.Check(); len(problems) > 0 {
		for _, p := range problems {
			appLog.Error("configuration problem", p)
		}
		os.Exit(1)
	}

	if err := registerFeeds(plugin.Events, conf); err != nil {
		appLog.Error("failed to register ics feed", err)
		os.Exit(1)
	}
	plugin.Events.SetDisabled(conf.DisabledProviders)
	plugin.SealAll()
	if flags.check {
		appLog.Info("configuration OK",
			"event_providers", plugin.Events.Len(),
			"layouts", plugin.Layouts.Len(),
			"compilers", plugin.Compilers.Len(),
		)
		return
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"database", conf.DatabasePath,
		"session_backend", conf.Session.Backend,
		"ics_feeds", len(conf.ICSFeeds),
		"disabled_providers", len(conf.DisabledProviders),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	store, err := storage.Open(conf.DatabasePath)
	if err != nil {
		appLog.Error("failed to open database", err, "path", conf.DatabasePath)
		os.Exit(1)
	}
	defer store.Close()

	sessions, sessionCleanup, err := buildSessionStore(ctx, conf)
	if err != nil {
		appLog.Error("failed to set up session store", err)
		os.Exit(1)
	}
	defer sessionCleanup()

	resolver, err := resolution.NewResolver(store, conf.ProviderCacheSize)
	if err != nil {
		appLog.Error("failed to set up resolver", err)
		os.Exit(1)
	}

	flow := generation.NewFlow(sessions, resolver, conf.Compiler)
	server := web.NewServer(conf, store, flow)

	httpServer := &http.Server{
		Addr:    conf.Listen,
		Handler: server.Handler(),
	}

	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("HTTP server failed", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLog.Error("HTTP server shutdown failed", err)
	}
	appLog.Info("calingen exiting")
}

// registerFeeds turns the configured ICS feeds into ordinary event
// providers, registered alongside the compiled-in ones before the
// registries are sealed. A registration failure is returned so startup can
// report it like any other configuration problem.
func registerFeeds(reg *plugin.Registry[plugin.EventProvider], conf *config.Config) error {
	for _, feed := range conf.ICSFeeds {
		p := icsfeed.New(feed.ID, feed.Name, feed.URL,
			model.EventCategory(feed.Category), conf.CacheDir)
		if err := reg.Register(p); err != nil {
			return fmt.Errorf("ics feed %q: %w", feed.ID, err)
		}
	}
	return nil
}

// buildSessionStore selects the session backend from the configuration.
// The returned cleanup stops background sweepers and closes connections.
func buildSessionStore(ctx context.Context, conf *config.Config) (session.Store, func(), error) {
	ttl := time.Duration(conf.Session.TTLMinutes) * time.Minute

	if conf.Session.Backend == "redis" {
		rs, err := session.NewRedisStore(conf.Session.RedisURL, ttl)
		if err != nil {
			return nil, nil, err
		}
		if err := rs.Ping(ctx); err != nil {
			rs.Close()
			return nil, nil, err
		}
		appLog.Info("session store ready", "backend", "redis")
		return rs, func() { rs.Close() }, nil
	}

	ms := session.NewMemoryStore(ttl)
	sweeper := cron.New()
	if _, err := sweeper.AddFunc(conf.Session.SweepCron, func() {
		if n := ms.Sweep(); n > 0 {
			appLog.Debug("swept expired sessions", "count", n)
		}
	}); err != nil {
		return nil, nil, err
	}
	sweeper.Start()
	appLog.Info("session store ready", "backend", "memory", "sweep", conf.Session.SweepCron)
	return ms, func() { sweeper.Stop() }, nil
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.check, "check", false, "Validate the configuration and exit")

	flag.Parse()

	return cfg
}
