package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/TobiSchelling/creditintel/internal/api"
	"github.com/TobiSchelling/creditintel/internal/config"
	"github.com/TobiSchelling/creditintel/internal/dashboard"
	"github.com/TobiSchelling/creditintel/internal/display"
	"github.com/TobiSchelling/creditintel/internal/logging"
	"github.com/TobiSchelling/creditintel/internal/metrics"
	"github.com/TobiSchelling/creditintel/internal/preview"
	"github.com/TobiSchelling/creditintel/internal/refresh"
	"github.com/TobiSchelling/creditintel/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "creditintel",
	Short:   "Credit intelligence dashboard",
	Long:    "creditintel polls a Credit Intelligence API and serves a live dashboard of issuers, scores, news events and alerts.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		level := cfg.Logging.Level
		if verbose {
			level = "DEBUG"
		}
		if err := logging.Setup(os.Stderr, level, cfg.Logging.Format); err != nil {
			return fmt.Errorf("configuring logging: %w", err)
		}
		if path != "" {
			slog.Debug("config loaded", "path", path)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(issuerCmd)
	rootCmd.AddCommand(alertsCmd)
}

func newClient(opts ...api.Option) *api.Client {
	return api.NewClient(cfg.API.BaseURL, cfg.API.Timeout, opts...)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("creditintel", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/creditintel/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to point api.base_url at your Credit Intelligence API.")
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if servePort > 0 {
			cfg.Server.Port = servePort
		}
		logger := slog.Default()

		schedule, err := refresh.ParseSchedule(cfg.Refresh.Schedule)
		if err != nil {
			return err
		}

		m := metrics.New()
		client := newClient(api.WithObserver(m.ObserveRequest))
		dash := dashboard.New(client, dashboard.Options{Recorder: m, Logger: logger})

		opts := server.Options{Upstream: client, Metrics: m.Handler(), Logger: logger}
		if cfg.Preview.Enabled {
			p, err := preview.New(cfg.Preview.Timeout, cfg.Preview.CacheSize, logger)
			if err != nil {
				return err
			}
			opts.Preview = p
		}
		srv, err := server.New(dash, opts)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		addr := cfg.Server.Addr()
		httpSrv := &http.Server{
			Addr:              addr,
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			loop := refresh.NewLoop(schedule, cfg.Refresh.MaxBackoff, logger)
			if err := dash.Run(gctx, loop); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			logger.Info("dashboard listening", "url", "http://"+addr, "api", client.BaseURL(), "schedule", cfg.Refresh.Schedule)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serving %s: %w", addr, err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			logger.Info("shutting down")
			return httpSrv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (overrides config)")
}

// --- status command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Run one refresh cycle and print a summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client := newClient()
		dash := dashboard.New(client, dashboard.Options{})
		defer dash.Detail().Close()

		fmt.Printf("API: %s\n", client.BaseURL())
		if h, err := client.Health(ctx); err != nil {
			fmt.Printf("Health: unreachable (%v)\n\n", err)
		} else {
			fmt.Printf("Health: %s\n\n", h.Status)
		}

		refreshErr := dash.Refresh(ctx)
		v := dash.View()

		for _, card := range v.StatCards() {
			fmt.Printf("%s %-15s %s\n", card.Icon, card.Title, card.Value)
		}
		fmt.Println()
		printPanel("Issuers", v.Issuers.State, v.Issuers.Err)
		printPanel("Scores", v.Scores.State, v.Scores.Err)
		printPanel("Events", v.Events.State, v.Events.Err)
		printPanel("Alerts", v.Alerts.State, v.Alerts.Err)

		if refreshErr != nil {
			return fmt.Errorf("refresh incomplete: %w", refreshErr)
		}
		return nil
	},
}

func printPanel(name string, state dashboard.State, errMsg string) {
	if errMsg != "" {
		fmt.Printf("  %-8s %s: %s\n", name, state, errMsg)
		return
	}
	fmt.Printf("  %-8s %s\n", name, state)
}

// --- issuer command ---

var trendLimit int

var issuerCmd = &cobra.Command{
	Use:   "issuer <id|ticker>",
	Short: "Show the latest score, contributions and trend of one issuer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client := newClient()

		issuers, err := client.ListIssuers(ctx)
		if err != nil {
			return fmt.Errorf("listing issuers: %w", err)
		}
		issuer, ok := lookupIssuer(issuers, args[0])
		if !ok {
			return fmt.Errorf("%w: %s", dashboard.ErrUnknownIssuer, args[0])
		}

		g, gctx := errgroup.WithContext(ctx)
		var (
			latest *api.Score
			trend  *api.Trend
		)
		g.Go(func() error {
			var err error
			latest, err = client.LatestScore(gctx, issuer.ID)
			return err
		})
		g.Go(func() error {
			var err error
			trend, err = client.ScoreTrend(gctx, issuer.ID, trendLimit)
			return err
		})
		if err := g.Wait(); err != nil {
			return fmt.Errorf("loading %s: %w", issuer.Ticker, err)
		}

		fmt.Printf("%s  %s\n\n", issuer.Ticker, issuer.Name)
		if latest == nil {
			fmt.Println("No scores recorded yet.")
		} else {
			fmt.Printf("Latest score: %s (%s)\n", display.FormatScore(latest.Score), display.ScoreTier(latest.Score))
			fmt.Printf("Updated: %s\n", display.FormatTime(latest.AsOf.Time))
			if len(latest.Contributions) > 0 {
				fmt.Println("\nFeature contributions:")
				for _, c := range latest.Contributions {
					fmt.Printf("  %-24s %10s\n", display.FeatureLabel(c.Feature), display.FormatWeight(c.Weight))
				}
			}
		}

		if trend != nil && len(trend.Scores) > 0 {
			fmt.Printf("\nTrend: %s\n", sparkline(trend.Scores))
			fmt.Printf("Last %d data points\n", len(trend.Timestamps))
		}
		return nil
	},
}

func init() {
	issuerCmd.Flags().IntVarP(&trendLimit, "limit", "n", dashboard.DefaultTrendLimit, "Number of trend points")
}

func lookupIssuer(issuers []api.Issuer, key string) (api.Issuer, bool) {
	id, idErr := strconv.ParseInt(key, 10, 64)
	for _, i := range issuers {
		if (idErr == nil && i.ID == id) || strings.EqualFold(i.Ticker, key) {
			return i, true
		}
	}
	return api.Issuer{}, false
}

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// sparkline renders trend values with the same clamping as the web bars.
func sparkline(values []float64) string {
	var b strings.Builder
	span := float64(display.BarMaxHeight - display.BarMinHeight)
	for _, v := range values {
		frac := (display.BarHeight(v) - display.BarMinHeight) / span
		b.WriteRune(sparkRunes[int(frac*float64(len(sparkRunes)-1)+0.5)])
	}
	return b.String()
}

// --- alerts command ---

var alertsLimit int

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List recent alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		alerts, err := newClient().ListAlerts(cmd.Context(), alertsLimit)
		if err != nil {
			return fmt.Errorf("listing alerts: %w", err)
		}
		if len(alerts) == 0 {
			fmt.Println("No alerts.")
			return nil
		}
		for _, a := range alerts {
			fmt.Printf("[%s] issuer %d  %s\n", a.Kind, a.IssuerID, display.FormatTime(a.CreatedAt.Time))
			fmt.Printf("  %s\n", strings.ReplaceAll(strings.TrimSpace(a.Message), "\n", "\n  "))
		}
		return nil
	},
}

func init() {
	alertsCmd.Flags().IntVarP(&alertsLimit, "limit", "n", dashboard.DefaultAlertsLimit, "Number of alerts")
}
