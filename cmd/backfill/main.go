// Command backfill imports historical call recordings listed in a spreadsheet
// through the same pipeline the webhook uses.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"evaluagent-relay-go/internal/config"
	"evaluagent-relay-go/internal/dataset"
	"evaluagent-relay-go/internal/evaluagent"
	"evaluagent-relay-go/internal/logger"
	"evaluagent-relay-go/internal/recording"
	"evaluagent-relay-go/internal/relay"
)

func main() {
	_ = godotenv.Load()

	file := flag.String("file", "", "path to the .xlsx file listing the calls")
	sheet := flag.String("sheet", "", "sheet name (defaults to the first sheet)")
	retries := flag.Uint64("retries", 2, "extra attempts for the download and contact creation")
	dryRun := flag.Bool("dry-run", false, "validate rows without calling any API")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Options{}).WithError(err).Fatal("invalid configuration")
	}
	log := logger.New(logger.Options{Environment: cfg.Environment, Level: cfg.LogLevel})

	if *file == "" {
		log.Fatal("-file is required")
	}

	rows, err := dataset.Load(*file, *sheet)
	if err != nil {
		log.WithError(err).WithField("file", *file).Fatal("failed to load spreadsheet")
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	rl := relay.New(
		recording.NewFetcher(httpClient, *retries),
		evaluagent.NewClient(evaluagent.Options{
			BaseURL:     cfg.APIURL,
			AccessKeyID: cfg.AccessKeyID,
			SecretKey:   cfg.SecretKey,
			HTTPClient:  httpClient,
			Retries:     *retries,
		}),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runLog := log.WithFields(logrus.Fields{
		"run_id":  uuid.New().String(),
		"file":    *file,
		"rows":    len(rows),
		"dry_run": *dryRun,
	})
	runLog.Info("backfill started")

	counts := run(ctx, runLog, rl, rows, *dryRun, cfg.ProcessTimeout)
	runLog.WithFields(logrus.Fields{
		"processed": counts[relay.Processed],
		"skipped":   counts[relay.Skipped],
		"rejected":  counts[relay.Rejected],
		"failed":    counts[relay.Failed],
	}).Info("backfill finished")

	if counts[relay.Failed] > 0 {
		os.Exit(1)
	}
}

// run imports rows one at a time and tallies the outcomes.
func run(ctx context.Context, log *logrus.Entry, rl *relay.Relay, rows []dataset.Row, dryRun bool, timeout time.Duration) map[relay.Kind]int {
	counts := map[relay.Kind]int{}
	for _, row := range rows {
		if ctx.Err() != nil {
			log.Warn("interrupted, stopping before remaining rows")
			break
		}
		rowLog := log.WithFields(logrus.Fields{"line": row.Line, "reference": row.Record.Reference})

		rec := row.Record
		if out, ok := relay.Check(rec); !ok {
			rowLog.WithField("reason", out.Reason).Warn("row not imported")
			counts[out.Kind]++
			continue
		}
		if rec.FileName == "" {
			rec.FileName = relay.FileNameFromURL(rec.RecordingURL)
		}
		if dryRun {
			rowLog.Info("row valid")
			counts[relay.Processed]++
			continue
		}

		rowCtx, cancel := context.WithTimeout(ctx, timeout)
		out := rl.Run(rowCtx, rowLog, rec)
		cancel()
		counts[out.Kind]++
	}
	return counts
}
