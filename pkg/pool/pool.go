// Package pool runs a batch of items with a fixed ceiling on in-flight work.
package pool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Policy decides what a batch does after one item fails.
type Policy int

const (
	// AbortOnFirstError stops admitting items after the first failure. Items
	// already running keep the caller's context and finish.
	AbortOnFirstError Policy = iota
	// CollectErrors runs every item and reports all failures joined.
	CollectErrors
)

// ErrUnknownPolicy is returned by ParsePolicy for unrecognized names.
var ErrUnknownPolicy = errors.New("unknown error policy")

// ParsePolicy maps "abort" or "collect" to a Policy.
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "abort":
		return AbortOnFirstError, nil
	case "collect", "":
		return CollectErrors, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}

func (p Policy) String() string {
	switch p {
	case AbortOnFirstError:
		return "abort"
	case CollectErrors:
		return "collect"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// Run calls fn for each item with at most limit calls in flight. A new item
// starts only when a slot frees up. limit below 1 is treated as 1.
// Completion order is not submission order.
func Run[T any](ctx context.Context, limit int, policy Policy, items []T, fn func(context.Context, T) error) error {
	if limit < 1 {
		limit = 1
	}

	if policy == AbortOnFirstError {
		return runAbort(ctx, limit, items, fn)
	}
	return runCollect(ctx, limit, items, fn)
}

func runAbort[T any](ctx context.Context, limit int, items []T, fn func(context.Context, T) error) error {
	// groupCtx only gates admission; fn always gets ctx.
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(limit)

	for _, item := range items {
		if groupCtx.Err() != nil {
			break
		}
		group.Go(func() error {
			// Go may have waited for a slot while a sibling failed.
			if groupCtx.Err() != nil {
				return nil
			}
			return fn(ctx, item)
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func runCollect[T any](ctx context.Context, limit int, items []T, fn func(context.Context, T) error) error {
	var (
		group errgroup.Group
		mu    sync.Mutex
		errs  []error
	)
	group.SetLimit(limit)

	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		group.Go(func() error {
			if err := fn(ctx, item); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}

	_ = group.Wait()
	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
