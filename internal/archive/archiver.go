package archive

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashakarcz/passify/internal/events"
	"github.com/sashakarcz/passify/internal/history"
	"github.com/sashakarcz/passify/internal/logger"
	"github.com/sashakarcz/passify/internal/metrics"
)

// Trigger identifies what started an archive run
type Trigger string

const (
	TriggerStartup  Trigger = "startup"
	TriggerInterval Trigger = "interval"
	TriggerManual   Trigger = "manual"
)

// Archive run outcomes, used as the metrics status label
const (
	StatusCommitted = "committed"
	StatusUnchanged = "unchanged"
	StatusFailed    = "failed"
)

// Result describes one archive run
type Result struct {
	Status      string        `json:"status"`
	Committed   bool          `json:"committed"`
	Entries     int           `json:"entries"`
	Pushed      bool          `json:"pushed"`
	Commit      *CommitInfo   `json:"commit,omitempty"`
	Trigger     Trigger       `json:"trigger"`
	TriggeredBy string        `json:"triggered_by,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// Archiver periodically commits the history export to the repository
type Archiver struct {
	repo     *Repository
	source   history.Store
	interval time.Duration
	metrics  *metrics.Metrics
	events   *events.Broadcaster
	log      zerolog.Logger

	mu       sync.Mutex
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewArchiver creates an archiver. m and b may be nil.
func NewArchiver(repo *Repository, source history.Store, interval time.Duration, m *metrics.Metrics, b *events.Broadcaster) *Archiver {
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	return &Archiver{
		repo:     repo,
		source:   source,
		interval: interval,
		metrics:  m,
		events:   b,
		log:      logger.Component("archive"),
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start runs an initial archive and then archives on every interval
func (a *Archiver) Start(ctx context.Context) error {
	a.log.Info().
		Dur("interval", a.interval).
		Msg("Starting history archiver")

	if _, err := a.run(ctx, TriggerStartup, ""); err != nil {
		a.log.Error().Err(err).Msg("Initial archive failed")
	}

	go a.archiveLoop(ctx)

	return nil
}

// Stop stops the archive loop
func (a *Archiver) Stop(ctx context.Context) error {
	a.log.Info().Msg("Stopping history archiver")

	close(a.stopChan)

	select {
	case <-a.doneChan:
		a.log.Info().Msg("History archiver stopped")
		return nil
	case <-ctx.Done():
		a.log.Warn().Msg("History archiver stop timed out")
		return ctx.Err()
	}
}

func (a *Archiver) archiveLoop(ctx context.Context) {
	defer close(a.doneChan)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopChan:
			return

		case <-ctx.Done():
			return

		case <-ticker.C:
			if _, err := a.run(ctx, TriggerInterval, ""); err != nil {
				a.log.Error().Err(err).Msg("Scheduled archive failed")
			}
		}
	}
}

// TriggerArchive runs an archive immediately on behalf of a user
func (a *Archiver) TriggerArchive(ctx context.Context, triggeredBy string) (*Result, error) {
	a.log.Info().
		Str("user", triggeredBy).
		Msg("Manual archive triggered")

	return a.run(ctx, TriggerManual, triggeredBy)
}

// History returns the most recent archive commits
func (a *Archiver) History(limit int) ([]*CommitInfo, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.repo.GetCommitLog(limit)
}

// run exports the history, commits it and pushes. Runs are serialized.
func (a *Archiver) run(ctx context.Context, trigger Trigger, triggeredBy string) (*Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := time.Now()
	result := &Result{Trigger: trigger, TriggeredBy: triggeredBy}

	err := a.archive(ctx, result)
	result.Duration = time.Since(start)

	switch {
	case err != nil:
		result.Status = StatusFailed
	case result.Committed:
		result.Status = StatusCommitted
	default:
		result.Status = StatusUnchanged
	}

	if a.metrics != nil {
		a.metrics.RecordArchive(result.Status, result.Duration.Seconds())
	}

	if err != nil {
		return result, err
	}

	if result.Committed {
		a.log.Info().
			Str("commit", result.Commit.Hash).
			Int("entries", result.Entries).
			Str("trigger", string(trigger)).
			Msg("Archived password history")

		if a.events != nil {
			a.events.Publish(events.EventTypeHistoryArchived,
				fmt.Sprintf("Archived %d history entries", result.Entries),
				map[string]interface{}{
					"commit":  result.Commit.Hash,
					"entries": result.Entries,
					"trigger": string(trigger),
				})
		}
	} else {
		a.log.Debug().
			Str("trigger", string(trigger)).
			Msg("History unchanged since last archive")
	}

	return result, nil
}

func (a *Archiver) archive(ctx context.Context, result *Result) error {
	content, err := a.source.Export(ctx)
	if err != nil {
		return fmt.Errorf("failed to export history: %w", err)
	}
	result.Entries = strings.Count(content, "\n")

	message := fmt.Sprintf("Archive %d history entries (%s)", result.Entries, result.Trigger)
	commit, committed, err := a.repo.Commit(content, message)
	if err != nil {
		return err
	}
	result.Commit = commit
	result.Committed = committed

	// Every run pushes so commits left behind by a failed push catch up
	if a.repo.HasRemote() {
		if err := a.repo.Push(ctx); err != nil {
			return err
		}
		result.Pushed = true
	}

	return nil
}
