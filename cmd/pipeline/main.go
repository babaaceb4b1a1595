// Command pipeline runs the restaurant transaction pipeline once: it stages
// the three source files, validates them, derives the daily revenue and
// top-item results, and materializes them in the configured store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/darknuma/restaurant-etl/internal/config"
	"github.com/darknuma/restaurant-etl/internal/logging"
	"github.com/darknuma/restaurant-etl/internal/metrics"
	"github.com/darknuma/restaurant-etl/internal/metrics/datadog"
	"github.com/darknuma/restaurant-etl/internal/metrics/prompush"
	"github.com/darknuma/restaurant-etl/internal/pipeline"
	"github.com/darknuma/restaurant-etl/internal/storage"
	"github.com/darknuma/restaurant-etl/internal/validate"
	golog "github.com/op/go-logging"
)

var log = golog.MustGetLogger("main")

func main() {
	var (
		envFile        string
		metricsBackend string
		pushgatewayURL string
		dogstatsdAddr  string
		lintOnly       bool
		verbose        bool
	)
	flag.StringVar(&envFile, "env-file", ".env", "path to an optional .env file")
	flag.StringVar(&metricsBackend, "metrics-backend", "none", "metrics backend: none, pushgateway, or datadog")
	flag.StringVar(&pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.StringVar(&dogstatsdAddr, "dogstatsd-addr", "", "DogStatsD address (overrides env DOGSTATSD_ADDR)")
	flag.BoolVar(&lintOnly, "validate", false, "validate the configuration and exit")
	flag.BoolVar(&verbose, "v", false, "enable debug logs")
	flag.Parse()

	if err := run(envFile, metricsBackend, pushgatewayURL, dogstatsdAddr, lintOnly, verbose); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(envFile, metricsBackend, pushgatewayURL, dogstatsdAddr string, lintOnly, verbose bool) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}

	issues := config.Validate(cfg)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasError(issues) {
		return fmt.Errorf("configuration is invalid")
	}
	if lintOnly {
		fmt.Println("configuration is valid")
		return nil
	}

	level := cfg.LogLevel
	if verbose {
		level = "DEBUG"
	}
	closer, err := logging.Init(level, cfg.LogFile)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	if err := initMetrics(metricsBackend, pushgatewayURL, dogstatsdAddr); err != nil {
		return err
	}
	defer func() {
		if err := metrics.Flush(); err != nil {
			log.Warningf("metrics: flush: %v", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RunTimeout)
	defer cancel()

	store, closeStore, err := storage.Open(ctx, cfg.DB.Driver, cfg.DB.ConnString())
	if err != nil {
		return err
	}
	defer closeStore()

	summary, err := pipeline.New(store, cfg).Run(ctx)
	if err != nil {
		var report *validate.Report
		if errors.As(err, &report) {
			for _, v := range report.Violations {
				fmt.Fprintf(os.Stderr, "%s\n", v)
			}
		}
		return err
	}

	printResults(summary)
	return nil
}

// initMetrics installs the requested backend: flag value first, environment
// second. An unknown backend name is an error rather than a silent nop.
func initMetrics(backendName, pushgatewayURL, dogstatsdAddr string) error {
	switch backendName {
	case "", "none":
		return nil
	case "pushgateway":
		url := pushgatewayURL
		if url == "" {
			url = os.Getenv("PUSHGATEWAY_URL")
		}
		if url == "" {
			url = "http://localhost:9091"
		}
		b, err := prompush.NewBackend("restaurant-etl", url)
		if err != nil {
			return err
		}
		metrics.SetBackend(b)
		return nil
	case "datadog":
		addr := dogstatsdAddr
		if addr == "" {
			addr = os.Getenv("DOGSTATSD_ADDR")
		}
		if addr == "" {
			addr = "127.0.0.1:8125"
		}
		b, err := datadog.NewBackend(datadog.Config{Addr: addr, Namespace: "restaurant_etl."})
		if err != nil {
			return err
		}
		metrics.SetBackend(b)
		return nil
	}
	return fmt.Errorf("unknown metrics backend %q", backendName)
}

// printResults renders the derived result sets the way an operator would read
// them after a run.
func printResults(s *pipeline.Summary) {
	fmt.Println(s)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\nDAILY REVENUE BY CATEGORY")
	fmt.Fprintln(w, "date\tcategory\trevenue")
	for _, r := range s.DailyRevenue {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Date, r.Category, r.Revenue.StringFixed(2))
	}

	fmt.Fprintln(w, "\nTOP SELLING ITEMS")
	fmt.Fprintln(w, "item_id\titem_name\ttotal_quantity")
	for _, r := range s.TopItems {
		fmt.Fprintf(w, "%s\t%s\t%d\n", r.ItemID, r.ItemName, r.TotalQuantity)
	}
	w.Flush()
}
