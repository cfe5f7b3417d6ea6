package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/ringmast4r/traffic-globe/pkg/config"
	"github.com/ringmast4r/traffic-globe/pkg/feed"
)

type CLI struct {
	Config kong.ConfigFlag `help:"TOML configuration file." placeholder:"FILE"`

	Listen    string        `default:":5000" help:"Address the feed server listens on."`
	CSV       string        `name:"csv" type:"existingfile" placeholder:"FILE" help:"CSV of events to replay (ip,latitude,longitude,timestamp,suspicious)."`
	Speed     float64       `default:"1" help:"Replay speed multiplier, 0 sends everything at once."`
	Batch     time.Duration `default:"500ms" help:"How often replayed events are flushed."`
	Rebase    bool          `help:"Shift replayed timestamps so the first event happens now."`
	DemoRate  int           `placeholder:"N" help:"Generate N random demo events per second."`
	DemoShare float64       `default:"0.2" help:"Share of demo events flagged suspicious (0-1)."`
	PostURL   string        `placeholder:"URL" help:"Send replayed and demo events to a remote feed's /api instead of serving locally."`
	AccessLog bool          `default:"true" negatable:"" help:"Log every HTTP request to stderr."`
	LogLevel  string        `default:"info" enum:"debug,info,warn,error" help:"Log level."`
}

func (c *CLI) Validate() error {
	if c.PostURL != "" && c.CSV == "" && c.DemoRate == 0 {
		return errors.New("--post-url needs --csv or --demo-rate")
	}
	if c.Speed < 0 {
		return errors.New("speed must not be negative")
	}
	if c.DemoRate < 0 || c.DemoShare < 0 || c.DemoShare > 1 {
		return errors.New("demo rate must be positive and demo share between 0 and 1")
	}
	return nil
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("traffic-feed"),
		kong.Description("Serves traffic events for the globe dashboard and replays recorded captures."),
		kong.UsageOnError(),
		kong.Configuration(config.TOML),
	)

	level, err := config.ParseLevel(cli.LogLevel)
	kctx.FatalIfErrorf(err)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kctx.FatalIfErrorf(run(ctx, cli, logger))
}

func run(ctx context.Context, cli CLI, logger *slog.Logger) error {
	var replayer func(feed.Sink) *feed.Replayer
	if cli.CSV != "" {
		file, err := os.Open(cli.CSV)
		if err != nil {
			return fmt.Errorf("open csv: %w", err)
		}
		events, skipped, err := feed.LoadCSV(file)
		file.Close()
		if err != nil {
			return err
		}
		logger.Info("capture loaded", "file", cli.CSV, "events", len(events), "skipped", skipped)

		options := feed.ReplayOptions{Speed: cli.Speed, BatchInterval: cli.Batch, Rebase: cli.Rebase}
		replayer = func(sink feed.Sink) *feed.Replayer {
			return feed.NewReplayer(events, sink, options, logger)
		}
	}

	if cli.PostURL != "" {
		url := strings.TrimSuffix(cli.PostURL, "/")
		if !strings.HasSuffix(url, "/api") {
			url += "/api"
		}
		sink := feed.HTTPSink{URL: url, Client: &http.Client{Timeout: 10 * time.Second}}
		if cli.DemoRate > 0 {
			go startDemo(ctx, cli, sink, logger)
		}
		if replayer == nil {
			<-ctx.Done()
			return nil
		}
		return ignoreCancel(replayer(sink).Run(ctx))
	}

	var accessLog io.Writer
	if cli.AccessLog {
		accessLog = os.Stderr
	}
	server := feed.NewServer(feed.NewHistory(), feed.NewMetrics(), logger, accessLog)

	httpServer := &http.Server{
		Addr:              cli.Listen,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("feed server listening", "addr", cli.Listen)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	if cli.DemoRate > 0 {
		go startDemo(ctx, cli, feed.HistorySink{Server: server}, logger)
	}
	if replayer != nil {
		go func() {
			if err := replayer(feed.HistorySink{Server: server}).Run(ctx); ignoreCancel(err) != nil {
				logger.Error("replay failed", "error", err)
			}
		}()
	}

	select {
	case err, ok := <-errc:
		if ok {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func startDemo(ctx context.Context, cli CLI, sink feed.Sink, logger *slog.Logger) {
	storm := feed.NewStorm(cli.DemoRate, cli.DemoShare, sink, uint64(time.Now().UnixNano()), logger)
	if err := ignoreCancel(storm.Run(ctx)); err != nil {
		logger.Error("demo storm failed", "error", err)
	}
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
