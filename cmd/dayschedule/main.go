package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/robfig/cron/v3"

	"dayschedule/internal/capture"
	"dayschedule/internal/civil"
	"dayschedule/internal/clock"
	"dayschedule/internal/config"
	"dayschedule/internal/events"
	appLog "dayschedule/internal/log"
	"dayschedule/internal/schedule"
	"dayschedule/internal/view"
	"dayschedule/internal/web"
)

type flagConfig struct {
	configPath  string
	listen      string
	capturePath string
	once        bool
	print       bool
	debug       bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.capturePath != "" {
		conf.Capture.OutputPath = flags.capturePath
	}
	if flags.debug {
		conf.LogLevel = "debug"
		conf.CacheDir = "./cache/ics-cache"
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("dayschedule starting",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"clock_refresh", conf.ClockRefresh,
		"refresh", conf.RefreshCron,
		"events_files", len(conf.EventsFiles),
		"ics_count", len(conf.ICS),
		"once", flags.once,
		"print", flags.print,
	)

	zone, err := civil.LoadZone(conf.Timezone)
	if err != nil {
		appLog.Error("invalid timezone", err, "timezone", conf.Timezone)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.System{}
	loader := events.NewLoader(conf, zone)
	store := events.NewStore(nil, time.Time{})
	if err := store.Reload(ctx, loader, clk.Now()); err != nil {
		appLog.Error("initial event load incomplete", err)
	}

	switch {
	case flags.print:
		err = writeAgenda(os.Stdout, store, zone, clk, !color.NoColor)
	case flags.once:
		err = runOnce(ctx, conf, zone, store, clk)
	default:
		err = serve(ctx, conf, zone, loader, store, clk)
	}
	if err != nil {
		appLog.Error("dayschedule failed", err)
		os.Exit(1)
	}
	appLog.Info("dayschedule exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/dayschedule/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.capturePath, "capture", "", "Write a PNG snapshot of the schedule page to this path")
	flag.BoolVar(&cfg.once, "once", false, "Load events, capture one snapshot and exit")
	flag.BoolVar(&cfg.print, "print", false, "Print the schedule as a text agenda and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Debug logging and a local cache directory")

	flag.Parse()

	return cfg
}

// writeAgenda writes the text agenda of the stored events as seen at clk.Now().
func writeAgenda(w io.Writer, store *events.Store, zone civil.Zone, clk clock.Clock, colorize bool) error {
	evs, _ := store.Events()
	groups, err := schedule.Build(evs, zone)
	if err != nil {
		return err
	}
	page, err := view.Compose(groups, clk.Now(), zone, nil)
	if err != nil {
		return err
	}
	return view.WriteAgenda(w, page, colorize)
}

// runOnce serves the page just long enough to capture it.
func runOnce(ctx context.Context, conf *config.Config, zone civil.Zone, store *events.Store, clk clock.Clock) error {
	if conf.Capture.OutputPath == "" {
		return errors.New("-once needs capture.output in the config or -capture")
	}

	srvCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := web.NewServer(conf, zone, store, clk)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(srvCtx) }()

	if err := waitHealthy(ctx, "http://"+conf.Listen+"/health"); err != nil {
		cancel()
		<-errCh
		return err
	}
	err := capture.CapturePagePNG(ctx, captureOptions(conf, zone, clk.Now()))
	cancel()
	if srvErr := <-errCh; srvErr != nil && err == nil {
		err = srvErr
	}
	if err == nil {
		appLog.Info("snapshot written", "path", conf.Capture.OutputPath)
	}
	return err
}

// captureOptions scrolls the snapshot to the section of now's day.
func captureOptions(conf *config.Config, zone civil.Zone, now time.Time) capture.Options {
	opts := capture.OptionsFromConfig(conf)
	opts.Anchor = schedule.Anchor(zone.DateKey(now))
	return opts
}

// serve runs the HTTP server, the clock ticker and the reload schedule
// until ctx is canceled.
func serve(ctx context.Context, conf *config.Config, zone civil.Zone, loader *events.Loader, store *events.Store, clk clock.Clock) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lastDay := zone.DateKey(clk.Now())
	ticker, err := clock.NewTicker(conf.ClockRefresh, clk, func(now time.Time) {
		if day := zone.DateKey(now); day != lastDay {
			appLog.Info("day changed", "today", day)
			lastDay = day
		}
	})
	if err != nil {
		return err
	}
	defer ticker.Stop()

	reloads := cron.New()
	if _, err := reloads.AddFunc(conf.RefreshCron, func() {
		now := clk.Now()
		if err := store.Reload(ctx, loader, now); err != nil {
			appLog.Error("scheduled reload incomplete", err)
		}
		if conf.Capture.OutputPath != "" {
			if err := capture.CapturePagePNG(ctx, captureOptions(conf, zone, now)); err != nil {
				appLog.Error("scheduled capture failed", err)
			}
		}
	}); err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker.Run(ctx)
	}()
	reloads.Start()
	defer func() {
		cancel()
		<-reloads.Stop().Done()
		wg.Wait()
	}()

	return web.NewServer(conf, zone, store, ticker).Run(ctx)
}

// waitHealthy polls the health endpoint until it answers or five seconds pass.
func waitHealthy(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		if resp, err := http.DefaultClient.Do(req); err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return errors.New("server did not become healthy")
		case <-time.After(100 * time.Millisecond):
		}
	}
}
