// Package pipeline runs one mashup request end to end: locate sources, fetch
// and normalize each of them, trim, merge in index order, zip and mail the
// result. A run owns a private workspace that is removed however it ends.
package pipeline

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"mashup-go/internal/archive"
	"mashup-go/internal/audio"
	"mashup-go/internal/config"
	"mashup-go/internal/fetcher"
	"mashup-go/internal/ffmpeg"
	"mashup-go/internal/logger"
	"mashup-go/internal/types"
	"mashup-go/internal/workspace"
)

type Locator interface {
	Locate(ctx context.Context, query string, count int) ([]string, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, id string, index int, ws *workspace.Workspace) (fetcher.Download, error)
}

// Transcoder reports ok=false when it skipped an item with no download.
type Transcoder interface {
	Transcode(ctx context.Context, index int, ws *workspace.Workspace) (path string, ok bool, err error)
}

type Deliverer interface {
	Deliver(ctx context.Context, archive []byte, to string) error
}

type Deps struct {
	Locator    Locator
	Fetcher    Fetcher
	Transcoder Transcoder
	Deliverer  Deliverer
	Log        *logger.Logger
}

// Report describes how a run ended.
type Report struct {
	RunID        string        `json:"run_id"`
	State        State         `json:"state"`
	Items        []types.Item  `json:"items"`
	Output       time.Duration `json:"output_ns"`
	ArchiveBytes int           `json:"archive_bytes"`
}

type Service struct {
	cfg  config.Config
	deps Deps
	log  *logger.Logger
}

func New(cfg config.Config, deps Deps) *Service {
	log := deps.Log
	if log == nil {
		log = logger.Discard()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Service{cfg: cfg, deps: deps, log: log.Module("pipeline")}
}

// RunMashup is Run without the report.
func (s *Service) RunMashup(ctx context.Context, query string, count, trimSeconds int, destination string) error {
	_, err := s.Run(ctx, types.Request{
		Query:       query,
		Count:       count,
		TrimSeconds: trimSeconds,
		Destination: destination,
	})
	return err
}

// Run executes req. The first stage error ends the run in FAILED unless
// Config.MinItems lets per-item failures be dropped. The workspace is
// removed before Run returns in every case.
func (s *Service) Run(ctx context.Context, req types.Request) (Report, error) {
	r := &run{
		svc:   s,
		req:   req,
		id:    uuid.New().String(),
		state: StateInit,
	}
	r.log = s.log.WithFields(logrus.Fields{
		"run_id": r.id,
		"query":  req.Query,
		"count":  req.Count,
		"trim_s": req.TrimSeconds,
		"to":     req.Destination,
	})

	err := r.execute(ctx)
	if err != nil {
		r.to(StateFailed)
		r.log.WithField("error", err.Error()).Warn("mashup failed")
	}
	r.cleanup()
	return r.report(), err
}

type run struct {
	svc   *Service
	req   types.Request
	id    string
	state State
	ws    *workspace.Workspace
	items *tracker
	log   *logrus.Entry

	output       time.Duration
	archiveBytes int
}

func (r *run) execute(ctx context.Context) error {
	if err := r.req.Validate(); err != nil {
		return err
	}
	ws, err := workspace.New(r.svc.cfg.WorkDir)
	if err != nil {
		return err
	}
	r.ws = ws
	r.log = r.log.WithField("workspace", ws.Root)

	r.to(StateLocating)
	ids, err := r.svc.deps.Locator.Locate(ctx, r.req.Query, r.req.Count)
	if err != nil {
		return asStage(err, types.LocateError)
	}
	if len(ids) != r.req.Count {
		return types.LocateError(fmt.Errorf("%w: wanted %d, got %d", types.ErrInsufficientCandidates, r.req.Count, len(ids)))
	}
	r.items = newTracker(ids)

	r.to(StateFetching)
	if err := r.each(ctx, types.ItemPending, r.fetch); err != nil {
		return err
	}
	r.to(StateTranscoding)
	if err := r.each(ctx, types.ItemFetched, r.transcode); err != nil {
		return err
	}
	r.to(StateTrimming)
	if err := r.each(ctx, types.ItemTranscoded, r.trim); err != nil {
		return err
	}

	r.to(StateMerging)
	out, err := r.merge()
	if err != nil {
		return err
	}

	r.to(StatePackaging)
	payload, err := archive.Package(out)
	if err != nil {
		return types.PackageError(err)
	}
	r.archiveBytes = len(payload)

	r.to(StateDelivering)
	if err := r.svc.deps.Deliverer.Deliver(ctx, payload, r.req.Destination); err != nil {
		return asStage(err, types.DeliveryError)
	}

	r.to(StateDone)
	r.log.WithFields(logrus.Fields{
		"output_s":      r.output.Seconds(),
		"archive_bytes": r.archiveBytes,
	}).Info("mashup delivered")
	return nil
}

func (r *run) to(next State) {
	if r.state.Terminal() {
		return
	}
	if next != StateFailed && next != r.state.next() {
		panic(fmt.Sprintf("pipeline: illegal transition %s -> %s", r.state, next))
	}
	r.log.WithField("from", r.state.String()).WithField("state", next.String()).Debug("state change")
	r.state = next
}

// required is how many items must reach the merge for the run to go on.
func (r *run) required() int {
	n := r.req.Count
	if m := r.svc.cfg.MinItems; m > 0 && m < n {
		return m
	}
	return n
}

func (r *run) strict() bool { return r.required() == r.req.Count }

// each runs step for every item currently in state from on the bounded pool.
// In strict mode the first failure cancels the rest and is returned.
// Otherwise failed items are dropped and the stage only fails when fewer
// than required items are left.
func (r *run) each(ctx context.Context, from types.ItemState, step func(context.Context, types.Item) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.svc.cfg.Workers)

	for _, it := range r.items.inState(from) {
		it := it
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			err := step(gctx, it)
			if err == nil {
				return nil
			}
			r.items.fail(it.Index, err)
			if r.strict() {
				return err
			}
			r.log.WithField("index", it.Index).WithField("error", err.Error()).Warn("item dropped")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return asStage(err, r.stageError)
	}
	if err := ctx.Err(); err != nil {
		return r.stageError(err)
	}

	if alive := r.req.Count - len(r.items.inState(types.ItemFailed)); alive < r.required() {
		if ferr := r.items.firstFailure(); ferr != nil {
			return ferr
		}
		return r.stageError(fmt.Errorf("%d of %d items left, %d required", alive, r.req.Count, r.required()))
	}
	return nil
}

// stageError attributes a run-level err to the per-item stage in progress.
func (r *run) stageError(err error) error {
	switch r.state {
	case StateFetching:
		return types.FetchError(0, err)
	case StateTranscoding:
		return types.TranscodeError(0, err)
	default:
		return types.TrimError(0, err)
	}
}

func (r *run) fetch(ctx context.Context, it types.Item) error {
	dl, err := r.svc.deps.Fetcher.Fetch(ctx, it.SourceID, it.Index, r.ws)
	if err != nil {
		return asStage(err, func(err error) error { return types.FetchError(it.Index, err) })
	}
	r.items.advance(it.Index, types.ItemFetched, dl.Path)
	r.items.setTitle(it.Index, dl.Title)
	return nil
}

func (r *run) transcode(ctx context.Context, it types.Item) error {
	path, ok, err := r.svc.deps.Transcoder.Transcode(ctx, it.Index, r.ws)
	if err != nil {
		return asStage(err, func(err error) error { return types.TranscodeError(it.Index, err) })
	}
	if !ok {
		// Left at Fetched; the merge reports the gap.
		r.log.WithField("index", it.Index).Warn("transcode skipped")
		return nil
	}
	r.items.advance(it.Index, types.ItemTranscoded, path)
	return nil
}

func (r *run) trim(ctx context.Context, it types.Item) error {
	dst := r.ws.TrimmedPath(it.Index)
	kept, err := audio.Trim(it.Path, dst, trimBound(r.req.TrimSeconds))
	if err != nil {
		return types.TrimError(it.Index, err)
	}
	r.items.advance(it.Index, types.ItemTrimmed, dst)
	r.log.WithField("index", it.Index).WithField("kept_s", kept.Seconds()).Debug("trimmed")
	return nil
}

// merge concatenates trimmed items in index order. In strict mode every
// index 1..N is expected on disk.
func (r *run) merge() (string, error) {
	var srcs []string
	if r.strict() {
		for i := 1; i <= r.req.Count; i++ {
			srcs = append(srcs, r.ws.TrimmedPath(i))
		}
	} else {
		trimmed := r.items.inState(types.ItemTrimmed)
		if len(trimmed) < r.required() {
			return "", types.MergeError(fmt.Errorf("%w: %d of %d required segments trimmed",
				types.ErrMissingSegment, len(trimmed), r.required()))
		}
		for _, it := range trimmed {
			srcs = append(srcs, it.Path)
		}
	}

	cfg := r.svc.cfg
	format := audio.Format{SampleRate: cfg.SampleRate, Channels: cfg.Channels, BitDepth: ffmpeg.BitDepth}
	out := r.ws.OutputPath(cfg.OutputName)
	d, err := audio.Merge(out, format, srcs)
	if err != nil {
		return "", types.MergeError(err)
	}
	r.output = d
	return out, nil
}

func (r *run) cleanup() {
	if err := r.ws.Remove(); err != nil {
		r.log.WithField("error", err.Error()).Warn("workspace cleanup failed")
	}
}

func (r *run) report() Report {
	rep := Report{
		RunID:        r.id,
		State:        r.state,
		Output:       r.output,
		ArchiveBytes: r.archiveBytes,
	}
	if r.items != nil {
		rep.Items = r.items.snapshot()
	}
	return rep
}

// trimBound converts whole seconds to a Duration, saturating instead of
// overflowing.
func trimBound(secs int) time.Duration {
	if int64(secs) > int64(math.MaxInt64/time.Second) {
		return math.MaxInt64
	}
	return time.Duration(secs) * time.Second
}

func isStageError(err error) bool {
	_, _, ok := types.Stage(err)
	return ok
}

// asStage keeps an error that already names its stage and wraps anything
// else with wrap.
func asStage(err error, wrap func(error) error) error {
	if isStageError(err) {
		return err
	}
	return wrap(err)
}
