// Package progress counts completions and bytes for a running batch and
// reports them through the logger.
package progress

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"umatools/pkg/log"
)

// Batch tracks completions of a fixed number of items. Completions may
// arrive in any order from any goroutine.
type Batch struct {
	label   string
	id      string
	total   int64
	quiet   bool
	started time.Time

	done  atomic.Int64
	bytes atomic.Int64
}

// NewBatch starts tracking total items. In quiet mode per-item lines are
// logged at debug level.
func NewBatch(label, id string, total int, quiet bool) *Batch {
	b := &Batch{
		label:   label,
		id:      id,
		total:   int64(total),
		quiet:   quiet,
		started: time.Now(),
	}
	log.Info().Str("batch", id).Int("total", total).Msg(label)
	return b
}

// Complete records one finished item and reports whether it was the last.
func (b *Batch) Complete(name string) bool {
	done := b.done.Add(1)

	b.itemEvent().
		Str("batch", b.id).
		Str("name", name).
		Str("progress", fmt.Sprintf("%d/%d", done, b.total)).
		Msg(b.label)

	return done == b.total
}

// AddBytes adds n to the transferred byte count.
func (b *Batch) AddBytes(n int64) {
	b.bytes.Add(n)
}

// Done returns how many items have completed.
func (b *Batch) Done() int {
	return int(b.done.Load())
}

// Bytes returns the transferred byte count.
func (b *Batch) Bytes() int64 {
	return b.bytes.Load()
}

// Finish logs the batch summary.
func (b *Batch) Finish() {
	event := log.Info().
		Str("batch", b.id).
		Str("progress", fmt.Sprintf("%d/%d", b.done.Load(), b.total)).
		Str("elapsed", time.Since(b.started).Round(time.Millisecond).String())
	if n := b.bytes.Load(); n > 0 {
		event = event.Str("transferred", humanize.Bytes(uint64(n)))
	}
	event.Msg(b.label + " finished")
}

// NewItem returns a byte counter for one item with its declared size.
func (b *Batch) NewItem(name string, declared int64) *Item {
	return &Item{batch: b, name: name, declared: declared}
}

// NewItem returns a byte counter that belongs to no batch.
func NewItem(name string, declared int64) *Item {
	return &Item{name: name, declared: declared}
}

func (b *Batch) itemEvent() *zerolog.Event {
	if b.quiet {
		return log.Debug()
	}
	return log.Info()
}

// Item counts bytes written for one item. It is an io.Writer meant to sit
// behind an io.TeeReader or io.MultiWriter.
type Item struct {
	batch    *Batch
	name     string
	declared int64
	written  atomic.Int64
}

// Write counts p and never fails.
func (i *Item) Write(p []byte) (int, error) {
	n := len(p)
	i.written.Add(int64(n))
	if i.batch != nil {
		i.batch.AddBytes(int64(n))
	}
	return n, nil
}

// Reset drops the bytes counted so far, backing them out of the batch too.
// It is called before a transfer restarts from the beginning.
func (i *Item) Reset() {
	n := i.written.Swap(0)
	if i.batch != nil && n != 0 {
		i.batch.AddBytes(-n)
	}
}

// Written returns the bytes seen so far.
func (i *Item) Written() int64 {
	return i.written.Load()
}

// String renders "1.2 MB / 3.4 MB".
func (i *Item) String() string {
	return Ratio(i.written.Load(), i.declared)
}

// Ratio renders a humanized "done / total" byte pair.
func Ratio(done, total int64) string {
	if done < 0 {
		done = 0
	}
	if total < 0 {
		total = 0
	}
	return humanize.Bytes(uint64(done)) + " / " + humanize.Bytes(uint64(total))
}
