package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/gdamore/tcell/v2"

	"github.com/ringmast4r/traffic-globe/pkg/config"
	"github.com/ringmast4r/traffic-globe/pkg/dashboard"
	"github.com/ringmast4r/traffic-globe/pkg/geo"
	"github.com/ringmast4r/traffic-globe/pkg/globe"
	"github.com/ringmast4r/traffic-globe/pkg/traffic"
)

const description = `Terminal dashboard that plots live network traffic on a rotating globe.

Events are polled from GET <base-url>/data?time=<watermark>. Markers stay on
the globe for 60 seconds of event time; green is normal, red is suspicious.

Controls:
  q, Esc, Ctrl+C   quit
  s                toggle suspicious-only list
  arrows           orbit the camera
  + / -            zoom
  space            toggle auto-rotate
  j / k, Enter     move the list selection, select
  r                poll now
  p                export both charts as PNG
  l                toggle lighting
  ?                show or hide this help on screen`

type CLI struct {
	Config kong.ConfigFlag `help:"TOML configuration file." placeholder:"FILE"`

	BaseURL        string        `short:"u" default:"http://localhost:5000" help:"Base URL of the traffic feed."`
	PollInterval   time.Duration `short:"p" default:"1s" help:"Feed polling interval (1s-300s)."`
	Timeout        time.Duration `default:"10s" help:"HTTP timeout for one poll."`
	RefreshRate    time.Duration `short:"r" default:"50ms" help:"Display refresh interval (20ms-1s)."`
	RotationPeriod time.Duration `short:"s" default:"30s" help:"Auto-rotation period (10s-300s), 0 to start still."`
	AspectRatio    float64       `short:"a" default:"2.0" help:"Character aspect ratio, height/width (1.0-4.0)."`
	Charset        string        `default:"ascii" enum:"ascii,blocks,braille" help:"Globe glyphs: ascii, blocks or braille."`
	Monochrome     bool          `short:"m" help:"Monochrome mode, all colours white."`
	GeoIP          string        `name:"geoip" type:"path" placeholder:"FILE" help:"GeoLite2/GeoIP2 City database for list enrichment."`
	ExportDir      string        `default:"." type:"path" help:"Directory chart PNGs are exported to."`
	DebugFile      string        `short:"d" type:"path" placeholder:"FILE" help:"Write debug logs to this file."`
}

func (c *CLI) Validate() error {
	if c.PollInterval < time.Second || c.PollInterval > 300*time.Second {
		return fmt.Errorf("poll interval must be between 1s and 300s")
	}
	if c.RefreshRate < 20*time.Millisecond || c.RefreshRate > time.Second {
		return fmt.Errorf("refresh rate must be between 20ms and 1s")
	}
	if c.RotationPeriod != 0 && (c.RotationPeriod < 10*time.Second || c.RotationPeriod > 300*time.Second) {
		return fmt.Errorf("rotation period must be 0 or between 10s and 300s")
	}
	if c.AspectRatio < 1.0 || c.AspectRatio > 4.0 {
		return fmt.Errorf("aspect ratio must be between 1.0 and 4.0")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("traffic-globe"),
		kong.Description(description),
		kong.UsageOnError(),
		kong.Configuration(config.TOML),
	)

	logger, closeLog, err := config.OpenDebugLog(cli.DebugFile)
	kctx.FatalIfErrorf(err)
	defer closeLog()

	kctx.FatalIfErrorf(run(cli, logger))
}

func run(cli CLI, logger *slog.Logger) error {
	logger.Info("traffic-globe starting",
		"base_url", cli.BaseURL,
		"poll_interval", cli.PollInterval,
		"refresh_rate", cli.RefreshRate,
		"charset", cli.Charset)

	charset, err := globe.ParseCharset(cli.Charset)
	if err != nil {
		return err
	}

	var locator *geo.Locator
	if cli.GeoIP != "" {
		locator, err = geo.Open(cli.GeoIP, geo.DefaultCacheSize, logger)
		if err != nil {
			return err
		}
		defer locator.Close()
		logger.Info("geoip enabled", "database", cli.GeoIP)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	model := dashboard.NewModel(locator, logger)
	client := traffic.NewAPIClient(traffic.APIConfig{
		BaseURL:      cli.BaseURL,
		PollInterval: cli.PollInterval,
		Timeout:      cli.Timeout,
	}, logger)
	poller := traffic.NewPoller(client, model, cli.PollInterval, logger)

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer screen.Fini()

	tui := dashboard.NewTUI(screen, model, dashboard.Options{
		AspectRatio:    cli.AspectRatio,
		RefreshRate:    cli.RefreshRate,
		RotationPeriod: cli.RotationPeriod,
		Charset:        charset,
		Monochrome:     cli.Monochrome,
		ExportDir:      cli.ExportDir,
		Refresh:        func() { poller.TryPoll(ctx) },
		Status:         poller.Status,
	}, logger)

	go poller.Run(ctx)
	tui.Run(ctx)
	stop()

	status := poller.Status()
	logger.Info("traffic-globe stopped",
		"events", model.Store().Len(),
		"watermark", model.Watermark(),
		"polls_ok", status.OK,
		"polls_failed", status.Failed,
		"refreshes_skipped", status.Skipped,
		"dropped", client.Dropped())
	return nil
}
