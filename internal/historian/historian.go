// internal/historian/historian.go
package historian

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/jason-s-yu/fourcolor/internal/cache"
	"github.com/jason-s-yu/fourcolor/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Sink writes a batch of action records in one go.
type Sink func(ctx context.Context, recs []models.ActionRecord) error

// AbandonFunc closes the games idle since cutoff and returns their table ids.
type AbandonFunc func(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)

// Config tunes batching and abandonment.
type Config struct {
	QueueName  string
	BatchSize  int
	FlushDelay time.Duration
	// Inactivity marks a table's game abandoned when no action arrives for this long. Zero disables it.
	Inactivity time.Duration
}

// Historian drains the action queue into the action log in batches, and tracks per-table activity.
type Historian struct {
	cfg    Config
	rdb    *redis.Client
	sink   Sink
	clock  quartz.Clock
	logger *logrus.Logger

	// abandon is called with the cutoff time once per sweep.
	abandon   AbandonFunc
	abandoned func(ctx context.Context, tableIDs []uuid.UUID)

	batchMu sync.Mutex
	batch   []models.ActionRecord

	activityMu   sync.Mutex
	lastActivity map[uuid.UUID]time.Time
}

// New returns a historian. rdb may be nil when records are fed through Add directly.
func New(cfg Config, rdb *redis.Client, sink Sink, logger *logrus.Logger, clock quartz.Clock) *Historian {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.FlushDelay <= 0 {
		cfg.FlushDelay = 500 * time.Millisecond
	}
	if cfg.QueueName == "" {
		cfg.QueueName = cache.QueueName()
	}
	if clock == nil {
		clock = quartz.NewReal()
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Historian{
		cfg:          cfg,
		rdb:          rdb,
		sink:         sink,
		clock:        clock,
		logger:       logger,
		batch:        make([]models.ActionRecord, 0, cfg.BatchSize),
		lastActivity: make(map[uuid.UUID]time.Time),
	}
}

// OnAbandon installs the sweep callback used by Sweep.
func (h *Historian) OnAbandon(fn AbandonFunc) {
	h.abandon = fn
}

// OnAbandoned installs a callback told about every table a sweep closed, so running servers can
// stop the game too.
func (h *Historian) OnAbandoned(fn func(ctx context.Context, tableIDs []uuid.UUID)) {
	h.abandoned = fn
}

// Run pops records until ctx is cancelled, flushing on size and on every FlushDelay tick. The
// final partial batch is flushed before returning.
func (h *Historian) Run(ctx context.Context) {
	flush := h.clock.NewTicker(h.cfg.FlushDelay, "historian", "flush")
	defer flush.Stop()

	var sweepC <-chan time.Time
	if h.cfg.Inactivity > 0 {
		sweep := h.clock.NewTicker(time.Minute, "historian", "sweep")
		defer sweep.Stop()
		sweepC = sweep.C
	}

	h.logger.WithField("queue", h.cfg.QueueName).Info("historian started")
	defer func() {
		h.Flush(context.Background())
		h.logger.Info("historian stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-flush.C:
			h.Flush(ctx)
		case <-sweepC:
			h.Sweep(ctx)
		default:
			h.pop(ctx)
		}
	}
}

// pop waits up to three seconds for one record so cancellation is still noticed.
func (h *Historian) pop(ctx context.Context) {
	res, err := h.rdb.BLPop(ctx, 3*time.Second, h.cfg.QueueName).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			h.logger.Errorf("BLPop: %v", err)
		}
		return
	}
	// res[0] is the queue name and res[1] the payload.
	if len(res) < 2 {
		return
	}
	rec, err := cache.DecodeAction(res[1])
	if err != nil {
		h.logger.Warn(err)
		return
	}
	h.Add(ctx, rec)
}

// Add buffers one record and flushes when the batch is full.
func (h *Historian) Add(ctx context.Context, rec models.ActionRecord) {
	h.activityMu.Lock()
	h.lastActivity[rec.TableID] = h.clock.Now()
	h.activityMu.Unlock()

	h.batchMu.Lock()
	h.batch = append(h.batch, rec)
	full := len(h.batch) >= h.cfg.BatchSize
	h.batchMu.Unlock()

	if full {
		h.Flush(ctx)
	}
}

// Pending is the number of buffered records.
func (h *Historian) Pending() int {
	h.batchMu.Lock()
	defer h.batchMu.Unlock()
	return len(h.batch)
}

// Flush writes the buffered records. On failure they are put back in front of anything buffered
// since, so the next flush retries them.
func (h *Historian) Flush(ctx context.Context) {
	h.batchMu.Lock()
	if len(h.batch) == 0 {
		h.batchMu.Unlock()
		return
	}
	out := make([]models.ActionRecord, len(h.batch))
	copy(out, h.batch)
	h.batch = h.batch[:0]
	h.batchMu.Unlock()

	if err := h.sink(ctx, out); err != nil {
		h.logger.Errorf("flush of %d actions failed: %v", len(out), err)
		h.batchMu.Lock()
		h.batch = append(out, h.batch...)
		h.batchMu.Unlock()
		return
	}
	h.logger.Debugf("flushed %d actions", len(out))
}

// Sweep forgets tables idle longer than Inactivity and asks the abandon callback to close their
// games.
func (h *Historian) Sweep(ctx context.Context) {
	if h.cfg.Inactivity <= 0 {
		return
	}
	cutoff := h.clock.Now().Add(-h.cfg.Inactivity)

	h.activityMu.Lock()
	stale := 0
	for id, last := range h.lastActivity {
		if last.Before(cutoff) {
			delete(h.lastActivity, id)
			stale++
		}
	}
	h.activityMu.Unlock()

	if stale == 0 || h.abandon == nil {
		return
	}
	ids, err := h.abandon(ctx, cutoff)
	if err != nil {
		h.logger.Errorf("failed to mark abandoned tables: %v", err)
		return
	}
	if len(ids) == 0 {
		return
	}
	h.logger.WithField("tables", len(ids)).Info("marked idle tables finished")
	if h.abandoned != nil {
		h.abandoned(ctx, ids)
	}
}

// Tracked is the number of tables with recent activity.
func (h *Historian) Tracked() int {
	h.activityMu.Lock()
	defer h.activityMu.Unlock()
	return len(h.lastActivity)
}
