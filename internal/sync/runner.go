package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Metana-Inc/sessions-analytics-to-supabase/internal/db"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Fetcher retrieves the session count for one calendar day
type Fetcher interface {
	SessionsForDate(ctx context.Context, day time.Time) (int64, error)
}

// Store defines the database operations the runner needs
type Store interface {
	LastSessionEndEpoch(ctx context.Context) (int64, error)
	InsertSessionRecord(ctx context.Context, rec *db.SessionRecord) error
}

// Summary describes the outcome of one sync run
type Summary struct {
	RunID      string
	Window     Window
	DaysSynced int // Days fetched and stored successfully
	DaysFailed int // Days fetched but not stored
}

// Runner performs one sequential sync run: resolve the window, then
// fetch and store each day in order. Days are never processed
// concurrently, so two overlapping runs are the only way to produce
// duplicate rows.
type Runner struct {
	store   Store
	fetcher Fetcher
	limiter *rate.Limiter
	runID   string
	now     func() time.Time
}

// NewRunner creates a runner with a fresh run ID and a modest rate
// limit on report requests to stay inside the Data API quota.
func NewRunner(store Store, fetcher Fetcher) *Runner {
	return &Runner{
		store:   store,
		fetcher: fetcher,
		limiter: rate.NewLimiter(rate.Limit(5), 1),
		runID:   uuid.NewString(),
		now:     time.Now,
	}
}

// Run syncs every missing day through yesterday. A window-resolution or
// fetch failure aborts the run with the days synced so far recorded in
// the summary. A storage failure is logged and the loop continues to
// the next day.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	logger := log.With().Str("run_id", r.runID).Logger()
	summary := Summary{RunID: r.runID}

	lastEndEpoch, err := r.store.LastSessionEndEpoch(ctx)
	hasPrior := true
	if err != nil {
		if !errors.Is(err, db.ErrNoSessions) {
			// A failed read must not restart the sync from the default
			// start date: that would duplicate every stored day.
			return summary, fmt.Errorf("failed to resolve sync window: %w", err)
		}
		hasPrior = false
	}

	window := ResolveWindow(lastEndEpoch, hasPrior, r.now())
	summary.Window = window

	if window.Empty() {
		logger.Info().Msg("Already synced through yesterday, nothing to do")
		return summary, nil
	}

	logger.Info().
		Str("start_date", window.Start.Format("2006-01-02")).
		Str("end_date", window.End.Format("2006-01-02")).
		Int("days", window.Days()).
		Msg("Resolved sync window")

	for day := window.Start; !day.After(window.End); day = day.AddDate(0, 0, 1) {
		if err := r.limiter.Wait(ctx); err != nil {
			return summary, fmt.Errorf("sync cancelled: %w", err)
		}

		sessions, err := r.fetcher.SessionsForDate(ctx, day)
		if err != nil {
			// A fetch failure ends the run; the next run resumes from
			// the last stored day.
			sentry.CaptureException(err)
			return summary, fmt.Errorf("failed to fetch sessions for %s: %w", day.Format("2006-01-02"), err)
		}

		startEpoch, endEpoch := DayEpochs(day)
		rec := &db.SessionRecord{
			Sessions:   sessions,
			StartEpoch: startEpoch,
			EndEpoch:   endEpoch,
		}

		if err := r.store.InsertSessionRecord(ctx, rec); err != nil {
			// Storage failures skip the day and carry on, which can leave
			// a permanent gap in the timeline. Kept deliberately: the next
			// run resumes after this day regardless.
			sentry.CaptureException(err)
			logger.Error().
				Err(err).
				Str("date", day.Format("2006-01-02")).
				Int64("start_epoch", startEpoch).
				Msg("Failed to store session record, continuing with next day")
			summary.DaysFailed++
			continue
		}

		logger.Info().
			Str("date", day.Format("2006-01-02")).
			Int64("sessions", sessions).
			Int64("start_epoch", startEpoch).
			Msg("Stored session record")
		summary.DaysSynced++
	}

	logger.Info().
		Int("days_synced", summary.DaysSynced).
		Int("days_failed", summary.DaysFailed).
		Msg("Sync run complete")

	return summary, nil
}
