// Package validate implements the submission validation and regrade
// orchestration engine: it classifies a batch of submissions by autograder
// status, dispatches concurrent checks and regrades across a bounded worker
// pool, and repeats with a fixed pause until every submission converges to a
// terminal state.
package validate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/elowenm/gradescope-regrader/gradescope"
)

// Client is the slice of the remote grading service the engine consumes.
// *gradescope.Client satisfies it; tests substitute fakes.
type Client interface {
	FetchGrades(courseID, assignmentID int) ([]gradescope.GradeRow, error)
	FetchSubmissionStatus(courseID, assignmentID, submissionID int) (gradescope.SubmissionStatus, error)
	Regrade(courseID, assignmentID, submissionID int, csrfToken string) error
}

const (
	DefaultWorkers      = 8
	DefaultWaitInterval = 60 * time.Second
)

// ErrRoundLimitReached reports that MaxRounds elapsed with submissions still
// pending.
var ErrRoundLimitReached = errors.New("round limit reached with submissions still pending")

type Options struct {
	CourseID     int
	AssignmentID int

	// Workers bounds how many submissions are checked concurrently.
	Workers int
	// OnlyZeroScores restricts selection to rows with a score of exactly zero.
	OnlyZeroScores bool
	// DryRun limits the engine to a single report-only round with no regrades.
	DryRun bool
	// WaitInterval is the fixed pause between rounds, giving the autograder
	// time to finish the regrades the previous round triggered.
	WaitInterval time.Duration
	// MaxRounds bounds the convergence loop; zero retries until convergence.
	MaxRounds int
}

// Validator drives batches of submissions to a terminal autograder state.
type Validator struct {
	client   Client
	logger   *zap.Logger
	reporter Reporter
	opts     Options
}

func New(client Client, logger *zap.Logger, reporter Reporter, opts Options) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reporter == nil {
		reporter = NopReporter{}
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.WaitInterval <= 0 {
		opts.WaitInterval = DefaultWaitInterval
	}
	return &Validator{
		client:   client,
		logger:   logger,
		reporter: reporter,
		opts:     opts,
	}
}

// Run fetches the grade table, selects the submissions to validate and drives
// them to convergence.
func (v *Validator) Run(ctx context.Context) error {
	rows, err := v.client.FetchGrades(v.opts.CourseID, v.opts.AssignmentID)
	if err != nil {
		return fmt.Errorf("fetching grade table: %w", err)
	}

	pending, err := SelectRecords(rows, v.opts.OnlyZeroScores)
	if err != nil {
		return err
	}
	v.logger.Info(
		"selected submissions for validation",
		zap.Int("count", len(pending)),
		zap.Bool("only_zero_scores", v.opts.OnlyZeroScores),
	)

	return v.Converge(ctx, pending)
}

// Converge runs validation rounds over pending until every submission is
// resolved. Between rounds it waits WaitInterval; in dry-run mode it performs
// exactly one round. The loop retries indefinitely unless MaxRounds bounds it
// or ctx is cancelled.
func (v *Validator) Converge(ctx context.Context, pending []SubmissionRecord) error {
	if v.opts.DryRun {
		v.reporter.DryRun()
	}

	for round := 1; len(pending) > 0; round++ {
		v.reporter.RoundStarted(round, len(pending))

		resolved, still, err := v.runRound(pending)
		if err != nil {
			return err
		}

		v.reporter.RoundSummary(round, len(resolved), len(still))
		v.logger.Info(
			"round complete",
			zap.Int("round", round),
			zap.Int("resolved", len(resolved)),
			zap.Int("pending", len(still)),
		)

		pending = still

		if v.opts.DryRun || len(pending) == 0 {
			break
		}
		if v.opts.MaxRounds > 0 && round >= v.opts.MaxRounds {
			return fmt.Errorf("%w: %d submissions left after round %d", ErrRoundLimitReached, len(pending), round)
		}

		v.reporter.Waiting(v.opts.WaitInterval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(v.opts.WaitInterval):
		}
	}
	return nil
}
