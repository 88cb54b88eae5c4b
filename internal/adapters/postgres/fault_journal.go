package postgres

import (
	"FrameBus/internal/core/domain"
	"FrameBus/internal/core/ports"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// execer is the part of the pool the journal writes through.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// FaultRecord is one persisted subscriber fault.
type FaultRecord struct {
	ID         uuid.UUID
	Fault      domain.SubscriberFault
	OccurredAt time.Time
}

// FaultJournal is a FaultSink that persists subscriber faults.
// ReportFault only enqueues; a single worker does the inserts, so a slow
// database never stalls a publish. When the queue is full the fault is
// dropped and counted.
type FaultJournal struct {
	exec    execer
	log     zerolog.Logger
	dropLog zerolog.Logger
	queue   chan FaultRecord
	done    chan struct{}

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

var _ ports.FaultSink = (*FaultJournal)(nil)

const insertFault = `
	INSERT INTO subscriber_faults (
		id, channel_id, channel_name, subscriber_id, subscriber_label, error, panicked, occurred_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

// writeTimeout bounds a single insert.
const writeTimeout = 5 * time.Second

// dropLogPeriod limits queue-full warnings to one per period.
const dropLogPeriod = 10 * time.Second

// NewFaultJournal starts a journal writing to db.
func NewFaultJournal(db *DB, queueSize int, baseLogger *zerolog.Logger) *FaultJournal {
	return newFaultJournal(db.pool, queueSize, baseLogger)
}

func newFaultJournal(exec execer, queueSize int, baseLogger *zerolog.Logger) *FaultJournal {
	if queueSize <= 0 {
		queueSize = 1
	}
	log := baseLogger.With().Str("component", "fault_journal").Logger()
	j := &FaultJournal{
		exec:    exec,
		log:     log,
		dropLog: log.Sample(&zerolog.BurstSampler{Burst: 1, Period: dropLogPeriod}),
		queue:   make(chan FaultRecord, queueSize),
		done:    make(chan struct{}),
	}
	go j.run()
	return j
}

// ReportFault implements ports.FaultSink.
func (j *FaultJournal) ReportFault(ctx context.Context, fault domain.SubscriberFault) {
	rec := FaultRecord{
		ID:         uuid.New(),
		Fault:      fault,
		OccurredAt: time.Now().UTC(),
	}

	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		j.dropped.Add(1)
		return
	}

	select {
	case j.queue <- rec:
	default:
		dropped := j.dropped.Add(1)
		j.dropLog.Warn().
			Str("channel", fault.ChannelName).
			Int64("dropped", dropped).
			Msg("Fault journal queue full, dropping records")
	}
}

// Dropped returns how many faults were not journaled.
func (j *FaultJournal) Dropped() int64 {
	return j.dropped.Load()
}

func (j *FaultJournal) run() {
	defer close(j.done)
	for rec := range j.queue {
		if err := j.write(rec); err != nil {
			j.log.Error().Err(err).Str("fault_id", rec.ID.String()).Msg("Failed to journal subscriber fault")
		}
	}
}

func (j *FaultJournal) write(rec FaultRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	errText := ""
	if rec.Fault.Err != nil {
		errText = rec.Fault.Err.Error()
	}

	_, err := j.exec.Exec(ctx, insertFault,
		rec.ID,
		int64(rec.Fault.ChannelID),
		rec.Fault.ChannelName,
		rec.Fault.SubscriberID,
		rec.Fault.SubscriberLabel,
		errText,
		rec.Fault.Panicked,
		rec.OccurredAt,
	)
	return err
}

// Close stops accepting faults and waits for queued ones to be written,
// or for ctx to end.
func (j *FaultJournal) Close(ctx context.Context) error {
	j.mu.Lock()
	if !j.closed {
		j.closed = true
		close(j.queue)
	}
	j.mu.Unlock()

	select {
	case <-j.done:
		j.log.Info().Int64("dropped", j.dropped.Load()).Msg("Fault journal closed")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("fault journal did not drain: %w", ctx.Err())
	}
}

// RecentFaults returns the latest journaled faults, newest first.
func (db *DB) RecentFaults(ctx context.Context, limit int) ([]FaultRecord, error) {
	query := `
		SELECT id, channel_id, channel_name, subscriber_id, subscriber_label, error, panicked, occurred_at
		FROM subscriber_faults
		ORDER BY occurred_at DESC
		LIMIT $1
	`
	rows, err := db.pool.Query(ctx, query, limit)
	if err != nil {
		db.log.Error().Err(err).Msg("Failed to query subscriber faults")
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (FaultRecord, error) {
		var rec FaultRecord
		var channelID int64
		var errText string
		if err := row.Scan(
			&rec.ID,
			&channelID,
			&rec.Fault.ChannelName,
			&rec.Fault.SubscriberID,
			&rec.Fault.SubscriberLabel,
			&errText,
			&rec.Fault.Panicked,
			&rec.OccurredAt,
		); err != nil {
			return rec, err
		}
		rec.Fault.ChannelID = domain.ChannelID(channelID)
		rec.Fault.Err = errors.New(errText)
		return rec, nil
	})
}
