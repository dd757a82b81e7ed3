package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"mashup-go/internal/aggregator"
	"mashup-go/internal/config"
	"mashup-go/internal/dataset"
	"mashup-go/internal/logger"
	"mashup-go/internal/pipeline"
	"mashup-go/internal/types"
)

func main() {
	_ = godotenv.Load()

	var (
		singer   = flag.String("singer", "", "artist to search for")
		count    = flag.Int("n", 0, "number of source clips")
		duration = flag.Int("duration", 0, "seconds kept from each clip")
		email    = flag.String("email", "", "address the mashup is mailed to")
		batch    = flag.String("batch", "", "xlsx workbook of requests to run one after another")
		report   = flag.String("report", "mashup_report.xlsx", "where batch results are written")
	)
	flag.Parse()

	log := logger.New()
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	svc := pipeline.New(cfg, pipeline.DefaultDeps(cfg, log))

	if *batch != "" {
		if err := runBatch(ctx, svc, log, *batch, *report); err != nil {
			log.WithError(err).Fatal("batch failed")
		}
		return
	}

	if err := svc.RunMashup(ctx, *singer, *count, *duration, *email); err != nil {
		fmt.Fprintf(os.Stderr, "Mashup processing failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Mashup sent to", *email)
}

func runBatch(ctx context.Context, svc *pipeline.Service, log *logger.Logger, path, reportPath string) error {
	entries, err := dataset.LoadRequests(path)
	if err != nil {
		return err
	}
	log.WithField("path", path).WithField("requests", len(entries)).Info("batch loaded")

	outcomes := make([]types.Outcome, 0, len(entries))
	for _, e := range entries {
		if ctx.Err() != nil {
			break
		}
		rep, err := svc.Run(ctx, e.Request)
		o := types.Outcome{
			Row:           e.Row,
			Request:       e.Request,
			RunID:         rep.RunID,
			Delivered:     err == nil,
			OutputSeconds: rep.Output.Seconds(),
		}
		if err != nil {
			o.Stage, o.Index = aggregator.Classify(err)
			o.Error = err.Error()
		}
		log.WithField("row", e.Row).WithField("delivered", o.Delivered).Info("batch row finished")
		outcomes = append(outcomes, o)
	}

	sum := aggregator.Aggregate(outcomes)
	log.WithField("delivered", sum.Delivered).WithField("failed", sum.Failed).Info("batch complete")
	return dataset.WriteReport(reportPath, outcomes, sum)
}
