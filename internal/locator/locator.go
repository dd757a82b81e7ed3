// Package locator discovers candidate source ids for an artist and picks a
// random distinct subset of them.
package locator

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"mashup-go/internal/logger"
	"mashup-go/internal/types"
)

var watchIDPattern = regexp.MustCompile(`watch\?v=([A-Za-z0-9_-]{11})`)

type Options struct {
	SearchURL string
	Suffix    string
	Timeout   time.Duration
	// RetryMax bounds retries of transient search failures. Zero means a
	// single attempt.
	RetryMax int
}

type Locator struct {
	client *http.Client
	opts   Options
	log    *logger.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a Locator. rng drives candidate sampling; pass a seeded source
// for reproducible selection.
func New(client *http.Client, opts Options, rng *rand.Rand, log *logger.Logger) *Locator {
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Locator{client: client, opts: opts, rng: rng, log: log.Module("locator")}
}

// Locate returns count distinct ids for query, in sampled order.
func (l *Locator) Locate(ctx context.Context, query string, count int) ([]string, error) {
	if count < 1 {
		return nil, types.LocateError(fmt.Errorf("count must be positive, got %d", count))
	}

	page, err := l.search(ctx, query)
	if err != nil {
		return nil, types.LocateError(err)
	}

	ids := ExtractIDs(page)
	log := l.log.WithField("query", query).WithField("found", len(ids)).WithField("wanted", count)
	if len(ids) < count {
		log.Warn("not enough distinct candidates")
		return nil, types.LocateError(fmt.Errorf("%w: %d distinct results for %q, need %d",
			types.ErrInsufficientCandidates, len(ids), query, count))
	}

	picked := l.sample(ids, count)
	log.WithField("picked", picked).Info("candidates selected")
	return picked, nil
}

// ExtractIDs pulls watch ids out of a search results page, deduplicated in
// first-seen order.
func ExtractIDs(page string) []string {
	matches := watchIDPattern.FindAllStringSubmatch(page, -1)
	seen := make(map[string]bool, len(matches))
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		id := m[1]
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

func (l *Locator) sample(ids []string, count int) []string {
	pool := make([]string, len(ids))
	copy(pool, ids)

	l.mu.Lock()
	l.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	l.mu.Unlock()

	return pool[:count]
}

func (l *Locator) searchURL(query string) (string, error) {
	u, err := url.Parse(l.opts.SearchURL)
	if err != nil {
		return "", fmt.Errorf("parse search url: %w", err)
	}
	term := strings.TrimSpace(query)
	if l.opts.Suffix != "" {
		term += " " + l.opts.Suffix
	}
	q := u.Query()
	q.Set("search_query", term)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (l *Locator) search(ctx context.Context, query string) (string, error) {
	endpoint, err := l.searchURL(query)
	if err != nil {
		return "", err
	}

	var body []byte
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept-Language", "en-US,en;q=0.8")

		resp, err := l.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("search server error: %s", resp.Status)
		}
		if resp.StatusCode >= 300 {
			return backoff.Permanent(fmt.Errorf("search failed: %s", resp.Status))
		}
		body = b
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = l.opts.Timeout
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(l.opts.RetryMax)), ctx)

	notify := func(err error, wait time.Duration) {
		l.log.WithError(err).WithField("retry_in", wait.String()).Warn("search attempt failed")
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return "", fmt.Errorf("search %q: %w", query, err)
	}
	return string(body), nil
}
