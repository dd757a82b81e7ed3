package pipeline

import (
	"math/rand"
	"net/http"
	"time"

	"mashup-go/internal/config"
	"mashup-go/internal/delivery"
	"mashup-go/internal/fetcher"
	"mashup-go/internal/ffmpeg"
	"mashup-go/internal/locator"
	"mashup-go/internal/logger"
	"mashup-go/internal/probe"
	"mashup-go/internal/transcoder"
)

// DefaultDeps wires the production components described by cfg.
func DefaultDeps(cfg config.Config, log *logger.Logger) Deps {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	loc := locator.New(&http.Client{Timeout: cfg.SearchTimeout}, locator.Options{
		SearchURL: cfg.SearchURL,
		Suffix:    cfg.SearchSuffix,
		Timeout:   cfg.SearchTimeout,
		RetryMax:  cfg.SearchRetryMax,
	}, rng, log)

	fetch := fetcher.New(fetcher.Options{
		Bin:              cfg.YTDLPBin,
		WatchURL:         cfg.WatchURL,
		MaxSourceSeconds: cfg.MaxSourceSeconds,
		Timeout:          cfg.FetchTimeout,
	}, probe.NewProber(cfg.FFprobeBin), log)

	builder := ffmpeg.NewCommandBuilder(ffmpeg.Format{SampleRate: cfg.SampleRate, Channels: cfg.Channels})
	tc := transcoder.New(builder, transcoder.Options{
		Bin:     cfg.FFmpegBin,
		Timeout: cfg.TranscodeTimeout,
	}, log)

	mailer := delivery.New(delivery.Options{
		Host:        cfg.SMTPHost,
		Port:        cfg.SMTPPort,
		Username:    cfg.SMTPUsername,
		Password:    cfg.SMTPPassword,
		From:        cfg.SMTPFrom,
		Subject:     cfg.Subject,
		ArchiveName: cfg.ArchiveName,
		Timeout:     cfg.SMTPTimeout,
	}, log)

	return Deps{
		Locator:    loc,
		Fetcher:    fetch,
		Transcoder: tc,
		Deliverer:  mailer,
		Log:        log,
	}
}
