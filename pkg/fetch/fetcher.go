// Package fetch downloads content-addressed blobs from the game CDN into the
// local content store.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"

	"umatools/pkg/log"
	"umatools/pkg/models"
	"umatools/pkg/pool"
	"umatools/pkg/progress"
	"umatools/pkg/store"
)

// Task is one pending download.
type Task struct {
	Entry       models.ResolvedEntry
	Destination string
}

// Result lists what a batch fetched.
type Result struct {
	BatchID    string
	Requested  int
	Downloaded []models.ResolvedEntry
	Bytes      int64
}

// Fetcher pulls blobs over HTTP into a Store.
type Fetcher struct {
	cfg    Config
	store  store.Store
	client *retryablehttp.Client
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the transport-level client under the retry layer.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client.HTTPClient = client
	}
}

// New creates a fetcher writing into blobs.
func New(cfg Config, blobs store.Store, opts ...Option) (*Fetcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	f := &Fetcher{
		cfg:    cfg,
		store:  blobs,
		client: NewRetryableClient(cfg.RetryCount, cfg.RetryWaitMin, cfg.RetryWaitMax, cfg.Timeout),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Tasks selects the entries that need fetching: absent ones, or all of them
// when force is set.
func (f *Fetcher) Tasks(entries []models.ResolvedEntry, force bool) []Task {
	var tasks []Task
	for _, entry := range entries {
		if entry.IsFileExists && !force {
			continue
		}
		tasks = append(tasks, Task{Entry: entry, Destination: f.store.PathFor(entry.Hash)})
	}
	return tasks
}

// DownloadMissing fetches every absent entry, or every entry when force is
// set, with at most cfg.Concurrency transfers in flight. Under the collect
// policy every failure is returned joined while completed downloads are kept
// and listed in the result.
func (f *Fetcher) DownloadMissing(ctx context.Context, entries []models.ResolvedEntry, force bool) (*Result, error) {
	tasks := f.Tasks(entries, force)
	result := &Result{BatchID: uuid.NewString(), Requested: len(tasks)}

	if len(tasks) == 0 {
		log.Info().Str("batch", result.BatchID).Msg("No assets need downloading")
		return result, nil
	}

	batch := progress.NewBatch("Downloading missing assets", result.BatchID, len(tasks), f.cfg.Quiet)

	var mu sync.Mutex
	err := pool.Run(ctx, f.cfg.Concurrency, f.cfg.Policy, tasks, func(ctx context.Context, task Task) error {
		item := batch.NewItem(task.Entry.Name, task.Entry.Length)
		if err := f.download(ctx, task.Entry.Entry, item); err != nil {
			log.Error().Err(err).Str("batch", result.BatchID).Str("name", task.Entry.Name).
				Str("hash", task.Entry.Hash).Msg("Failed to download asset")
			batch.Complete(task.Entry.Name)
			return err
		}

		done := task.Entry
		done.IsFileExists = true
		mu.Lock()
		result.Downloaded = append(result.Downloaded, done)
		mu.Unlock()

		batch.Complete(task.Entry.Name + " " + item.String())
		return nil
	})

	result.Bytes = batch.Bytes()
	batch.Finish()

	return result, err
}

// download streams one blob into the store. Body errors after the headers
// arrived are retried here, since the retry layer only covers the request.
func (f *Fetcher) download(ctx context.Context, entry models.Entry, item *progress.Item) error {
	target, err := f.cfg.URLFor(entry)
	if err != nil {
		return &DownloadFailedError{Hash: entry.Hash, Name: entry.Name, Cause: err}
	}

	var lastErr error
	for attempt := 0; attempt <= f.cfg.RetryCount; attempt++ {
		if attempt > 0 {
			log.Warn().Err(lastErr).Str("hash", entry.Hash).Int("attempt", attempt).Msg("Retrying interrupted transfer")
			item.Reset()
		}

		var retryable bool
		retryable, lastErr = f.transfer(ctx, target, entry, item)
		if lastErr == nil {
			return nil
		}
		if !retryable || ctx.Err() != nil {
			break
		}
	}

	return &DownloadFailedError{Hash: entry.Hash, Name: entry.Name, Cause: lastErr}
}

func (f *Fetcher) transfer(ctx context.Context, target string, entry models.Entry, item *progress.Item) (bool, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := f.client.Do(req)
	if err != nil {
		return false, err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Debug().Err(closeErr).Str("url", target).Msg("Failed to close response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%w: %s from %s", ErrUnexpectedStatus, resp.Status, target)
	}

	written, err := f.store.Write(entry.Hash, io.TeeReader(resp.Body, item))
	if err != nil {
		var invalid store.InvalidHashError
		return !errors.As(err, &invalid), err
	}

	if entry.Length > 0 && written != entry.Length {
		log.Warn().Str("hash", entry.Hash).Int64("declared", entry.Length).Int64("received", written).
			Msg("Downloaded size differs from catalog")
	}
	log.Trace().Str("hash", entry.Hash).Str("url", target).Int64("size", written).Msg("Asset downloaded")
	return false, nil
}
