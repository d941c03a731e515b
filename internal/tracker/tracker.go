// Package tracker implements the habit lifecycle: registering users and habits,
// recording completions, and aggregating completion statistics.
package tracker

import (
	"context"
	"time"

	"github.com/julianstephens/habitbot/internal/constants"
	apperrors "github.com/julianstephens/habitbot/internal/errors"
	"github.com/julianstephens/habitbot/internal/logger"
	"github.com/julianstephens/habitbot/internal/metrics"
	"github.com/julianstephens/habitbot/internal/storage"
)

// Options configures the tracker services
type Options struct {
	// OpTimeout bounds every storage round trip
	OpTimeout time.Duration
	Policy    constants.CompletionPolicy
	// Location decides which calendar day "today" is
	Location *time.Location
	// Clock overrides time.Now, for tests
	Clock func() time.Time
}

func (o Options) withDefaults() Options {
	if o.OpTimeout <= 0 {
		o.OpTimeout = constants.DefaultOpTimeout
	}
	if o.Policy == "" {
		o.Policy = constants.PolicyAppend
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

// Tracker bundles the registry, ledger and aggregator over one store
type Tracker struct {
	*Registry
	*Ledger
	*Aggregator
}

func New(store storage.Provider, opts Options) *Tracker {
	opts = opts.withDefaults()
	b := base{store: store, timeout: opts.OpTimeout}
	return &Tracker{
		Registry:   &Registry{base: b},
		Ledger:     &Ledger{base: b, policy: opts.Policy, loc: opts.Location, clock: opts.Clock},
		Aggregator: &Aggregator{base: b},
	}
}

type base struct {
	store   storage.Provider
	timeout time.Duration
}

// run executes fn under the operation timeout and records its outcome
func (b base) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	err := fn(ctx)
	metrics.ObserveOperation(op, start, err)
	if apperrors.KindOf(err) == apperrors.KindStorage {
		logger.Error("Tracker operation failed", "op", op, "error", err)
	}
	return err
}
