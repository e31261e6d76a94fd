package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"cloud.google.com/go/civil"
	"github.com/spacesedan/instalens/config"
	"github.com/spacesedan/instalens/internal/clients"
	"github.com/spacesedan/instalens/internal/db"
	"github.com/spacesedan/instalens/internal/export"
	"github.com/spacesedan/instalens/internal/filter"
	"github.com/spacesedan/instalens/internal/logging"
	"github.com/spacesedan/instalens/internal/models"
	"github.com/spacesedan/instalens/internal/pipeline"
	"github.com/spacesedan/instalens/internal/sentiment"
	"github.com/spf13/cobra"
)

type reportOptions struct {
	capturePath string
	datasetPath string
	fetch       bool
	handle      string
	from        string
	to          string
	start       string
	end         string
	csvPath     string
	output      string
	useCache    bool
	store       bool
	fromStore   bool
}

func newRootCmd() *cobra.Command {
	v := config.NewViper()
	opts := &reportOptions{}

	cmd := &cobra.Command{
		Use:           "report",
		Short:         "Build an engagement and sentiment report for one account",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromViper(v)
			logging.InitLogger(cfg.LogLevel)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			err := runReport(ctx, cmd, cfg, opts)
			if err != nil {
				slog.Error("[Report] Failed to build report", slog.String("error", err.Error()))
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.capturePath, "capture", "", "read the raw capture from this JSON file")
	f.StringVar(&opts.datasetPath, "dataset", "", "report on a previously exported dataset CSV instead of a capture")
	f.BoolVar(&opts.fetch, "fetch", false, "fetch the capture from the capture service")
	f.StringVar(&opts.handle, "handle", "", "account handle to report on")
	f.StringVar(&opts.from, "from", "", "first date of the report, YYYY-MM-DD")
	f.StringVar(&opts.to, "to", "", "last date of the report, YYYY-MM-DD")
	f.StringVar(&opts.start, "start", "00:00", "earliest time of day, HH:MM[:SS]")
	f.StringVar(&opts.end, "end", "23:59:59", "latest time of day, HH:MM[:SS]")
	f.StringVar(&opts.csvPath, "csv", "", "write the canonical dataset to this CSV file")
	f.StringVarP(&opts.output, "output", "o", "text", "output format: text or json")
	f.BoolVar(&opts.useCache, "cache", false, "use valkey for classification and dataset caching")
	f.BoolVar(&opts.store, "store", false, "persist the dataset to DynamoDB")
	f.BoolVar(&opts.fromStore, "from-store", false, "report on the dataset last stored in DynamoDB for --handle")

	f.String("classifier", "", "classifier backend: vader, hugot, remote or openai")
	f.Int("concurrency", 0, "maximum classifications in flight")
	f.String("timezone", "", "IANA zone report dates and times are read in")
	f.String("log-level", "", "debug, info, warn or error")
	_ = v.BindPFlag("classifier_backend", f.Lookup("classifier"))
	_ = v.BindPFlag("classifier_concurrency", f.Lookup("concurrency"))
	_ = v.BindPFlag("report_timezone", f.Lookup("timezone"))
	_ = v.BindPFlag("log_level", f.Lookup("log-level"))

	return cmd
}

func runReport(ctx context.Context, cmd *cobra.Command, cfg config.AppConfig, opts *reportOptions) error {
	q, err := buildQuery(opts)
	if err != nil {
		return err
	}
	if err := filter.Validate(q); err != nil {
		return err
	}

	var cache *clients.ValkeyClient
	if opts.useCache {
		cache, err = clients.NewValkeyClient(ctx, cfg.Valkey, cfg.Classifier.CacheTTL)
		if err != nil {
			return err
		}
		defer cache.Close()
	}

	var ds pipeline.Dataset
	var svc *pipeline.Service

	switch {
	case opts.fromStore:
		if q.Handle == "" {
			return errors.New("--from-store needs --handle")
		}
		store, err := newRecordStore(ctx, cfg)
		if err != nil {
			return err
		}
		records, err := store.LoadRecords(ctx, q.Handle)
		if err != nil {
			return err
		}
		ds = pipeline.Dataset{Handle: q.Handle, Records: records}
		svc = pipeline.NewService(nil)
	case opts.datasetPath != "":
		ds, err = loadDataset(opts.datasetPath, q.Handle)
		if err != nil {
			return err
		}
		svc = pipeline.NewService(nil)
	default:
		capture, err := loadCapture(ctx, cfg, opts, q)
		if err != nil {
			return err
		}

		var classificationCache sentiment.ClassificationCache
		serviceOpts := []pipeline.Option{pipeline.WithLocation(cfg.Location())}
		if cache != nil {
			classificationCache = cache
			cfg.Classifier.CacheEnabled = true
			serviceOpts = append(serviceOpts, pipeline.WithDatasetCache(cache))
		}

		classifier, closeClassifier, err := sentiment.NewClassifier(cfg.Classifier, classificationCache)
		if err != nil {
			return err
		}
		defer closeClassifier()

		annotator := sentiment.NewAnnotator(classifier,
			sentiment.WithConcurrency(cfg.Classifier.Concurrency),
			sentiment.WithAbortOnError(cfg.Classifier.AbortOnError))
		svc = pipeline.NewService(annotator, serviceOpts...)

		ds, err = svc.Build(ctx, capture)
		if err != nil {
			return err
		}
	}

	report, err := svc.Report(ds, q)
	if err != nil {
		return err
	}

	if opts.csvPath != "" {
		if err := writeDataset(opts.csvPath, ds.Records); err != nil {
			return err
		}
	}

	if opts.store && !opts.fromStore {
		store, err := newRecordStore(ctx, cfg)
		if err != nil {
			return err
		}
		if err := store.StoreRecords(ctx, ds.Handle, ds.Records); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if opts.output == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return renderReport(out, report)
}

func buildQuery(opts *reportOptions) (models.Query, error) {
	q := models.Query{
		Handle: opts.handle,
		From:   civil.Date{Year: 1, Month: 1, Day: 1},
		To:     civil.Date{Year: 9999, Month: 12, Day: 31},
	}

	var err error
	if opts.from != "" {
		if q.From, err = civil.ParseDate(opts.from); err != nil {
			return q, fmt.Errorf("invalid --from: %w", err)
		}
	}
	if opts.to != "" {
		if q.To, err = civil.ParseDate(opts.to); err != nil {
			return q, fmt.Errorf("invalid --to: %w", err)
		}
	}
	if q.Start, err = parseTimeOfDay(opts.start); err != nil {
		return q, fmt.Errorf("invalid --start: %w", err)
	}
	if q.End, err = parseTimeOfDay(opts.end); err != nil {
		return q, fmt.Errorf("invalid --end: %w", err)
	}
	return q, nil
}

// parseTimeOfDay accepts HH:MM or HH:MM:SS.
func parseTimeOfDay(s string) (civil.Time, error) {
	s = strings.TrimSpace(s)
	if strings.Count(s, ":") == 1 {
		s += ":00"
	}
	return civil.ParseTime(s)
}

func loadCapture(ctx context.Context, cfg config.AppConfig, opts *reportOptions, q models.Query) (models.RawCapture, error) {
	var capture models.RawCapture

	switch {
	case opts.fetch:
		if opts.handle == "" || opts.from == "" || opts.to == "" {
			return capture, errors.New("--fetch needs --handle, --from and --to")
		}
		return clients.NewCaptureClient(cfg.Capture).FetchCapture(ctx, opts.handle, q.From, q.To)
	case opts.capturePath != "":
		data, err := os.ReadFile(opts.capturePath)
		if err != nil {
			return capture, fmt.Errorf("failed to read capture: %w", err)
		}
		if err := json.Unmarshal(data, &capture); err != nil {
			return capture, fmt.Errorf("failed to decode capture %s: %w", opts.capturePath, err)
		}
		if capture.Handle == "" {
			capture.Handle = opts.handle
		}
		return capture, nil
	default:
		return capture, errors.New("one of --capture, --dataset or --fetch is required")
	}
}

func loadDataset(path, handle string) (pipeline.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return pipeline.Dataset{}, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	records, err := export.ReadCSV(f)
	if err != nil {
		return pipeline.Dataset{}, fmt.Errorf("failed to read dataset %s: %w", path, err)
	}
	if handle == "" && len(records) > 0 {
		handle = records[0].Handle
	}
	return pipeline.Dataset{Handle: handle, Records: records}, nil
}

func writeDataset(path string, records []models.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := export.WriteCSV(f, records); err != nil {
		f.Close()
		return err
	}
	slog.Info("[Report] Dataset exported", slog.String("path", path), slog.Int("rows", len(records)))
	return f.Close()
}

func newRecordStore(ctx context.Context, cfg config.AppConfig) (*db.RecordStore, error) {
	awsCfg, err := clients.NewAWSConfig(ctx, cfg.AWS)
	if err != nil {
		return nil, err
	}
	return db.NewRecordStore(clients.NewDynamoDBClient(awsCfg, cfg.AWS), cfg.AWS.RecordTable), nil
}
