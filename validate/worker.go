package validate

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/elowenm/gradescope-regrader/gradescope"
)

// validateSubmission checks one submission's autograder status and, unless it
// is terminal, triggers a regrade. It returns true when the submission is
// resolved and needs no further action. Anything other than the success
// terminal is conservatively treated as needing a regrade, including statuses
// that may just mean "still running": workers only run after the expected
// grading window has elapsed.
func (v *Validator) validateSubmission(rec SubmissionRecord) (bool, error) {
	sub, err := v.client.FetchSubmissionStatus(v.opts.CourseID, v.opts.AssignmentID, rec.SubmissionID)
	if err != nil {
		return false, fmt.Errorf("fetching status for submission %d: %w", rec.SubmissionID, err)
	}

	if gradescope.Classify(sub.Status) == gradescope.StatusTerminal {
		v.logger.Info(
			"submission processed",
			zap.Int("submission_id", rec.SubmissionID),
			zap.String("email", rec.Email),
		)
		v.reporter.SubmissionResolved(rec, sub.Status)
		return true, nil
	}

	v.logger.Warn(
		"submission not processed",
		zap.Int("submission_id", rec.SubmissionID),
		zap.String("email", rec.Email),
		zap.String("status", sub.Status),
	)
	v.reporter.SubmissionRequeued(rec, sub.Status)

	if v.opts.DryRun {
		return false, nil
	}

	if err := v.client.Regrade(v.opts.CourseID, v.opts.AssignmentID, rec.SubmissionID, sub.CSRF.Token); err != nil {
		return false, fmt.Errorf("regrading submission %d: %w", rec.SubmissionID, err)
	}
	return false, nil
}
