package gradescope

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// SubmissionStatus carries a submission's autograder status together with the
// anti-forgery token scoped to its page, which a subsequent regrade request
// must present.
type SubmissionStatus struct {
	Status string
	CSRF   CSRF
}

type submissionViewerProps struct {
	AssignmentSubmission struct {
		Status string `json:"status"`
	} `json:"assignment_submission"`
}

// FetchSubmissionStatus scrapes a submission page for its autograder status
// and csrf token pair.
func (c *Client) FetchSubmissionStatus(courseID, assignmentID, submissionID int) (SubmissionStatus, error) {
	doc, err := c.getDocument(c.endpoint("/courses/%d/assignments/%d/submissions/%d", courseID, assignmentID, submissionID))
	if err != nil {
		return SubmissionStatus{}, err
	}

	csrf, err := pageCSRF(doc)
	if err != nil {
		return SubmissionStatus{}, err
	}

	props, ok := doc.Find(`div[data-react-class="AssignmentSubmissionViewer"]`).First().Attr("data-react-props")
	if !ok {
		return SubmissionStatus{}, errors.New("submission viewer props not found")
	}
	var viewer submissionViewerProps
	if err := json.Unmarshal([]byte(props), &viewer); err != nil {
		return SubmissionStatus{}, fmt.Errorf("parsing submission viewer props: %w", err)
	}

	return SubmissionStatus{Status: viewer.AssignmentSubmission.Status, CSRF: csrf}, nil
}

// Regrade re-triggers the autograder for one submission, authenticating the
// action with the csrf token fetched from that submission's page.
func (c *Client) Regrade(courseID, assignmentID, submissionID int, csrfToken string) error {
	regradeURL := c.endpoint("/courses/%d/assignments/%d/submissions/%d/regrade", courseID, assignmentID, submissionID)
	req, err := http.NewRequest(http.MethodPost, regradeURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set(csrfTokenHeader, csrfToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("regrading submission %d: unexpected status %s", submissionID, resp.Status)
	}
	return nil
}
