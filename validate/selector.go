package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/elowenm/gradescope-regrader/gradescope"
)

// ErrMalformedSubmissionURL indicates a submission link that does not match
// the expected URL shape. The remote service's URL format is assumed stable,
// so a mismatch is a configuration error and aborts the run.
var ErrMalformedSubmissionURL = errors.New("submission URL is not of the expected format")

var submissionURLPattern = regexp.MustCompile(`courses/\d+/assignments/\d+/submissions/(\d+)`)

// SelectRecords turns the grade table into the initial set of submissions to
// validate. Rows without a score are skipped; when onlyZeroScores is set,
// only rows with a score of exactly zero are selected. Rows without a
// submission link are skipped, since a student who never submitted cannot be
// validated.
func SelectRecords(rows []gradescope.GradeRow, onlyZeroScores bool) ([]SubmissionRecord, error) {
	records := make([]SubmissionRecord, 0, len(rows))
	for _, row := range rows {
		if row.Score == nil {
			continue
		}
		if onlyZeroScores && *row.Score != 0 {
			continue
		}
		if row.SubmissionURL == nil {
			continue
		}

		m := submissionURLPattern.FindStringSubmatch(*row.SubmissionURL)
		if m == nil {
			return nil, fmt.Errorf("%w: %q", ErrMalformedSubmissionURL, *row.SubmissionURL)
		}
		id, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrMalformedSubmissionURL, *row.SubmissionURL)
		}

		records = append(records, SubmissionRecord{
			SubmissionID: id,
			Name:         row.Name,
			Email:        row.Email,
		})
	}
	return records, nil
}
