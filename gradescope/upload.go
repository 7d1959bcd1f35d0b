package gradescope

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"regexp"
	"strconv"

	"github.com/PuerkitoBio/goquery"
)

// RosterEntry is one student on the assignment submissions page roster.
type RosterEntry struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

var rosterPattern = regexp.MustCompile(`gon\.roster=(.*?);`)

// FetchSubmissionPage scrapes the assignment submissions page for the student
// roster and the page-level csrf token pair used by uploads.
func (c *Client) FetchSubmissionPage(courseID, assignmentID int) ([]RosterEntry, CSRF, error) {
	doc, err := c.getDocument(c.endpoint("/courses/%d/assignments/%d/submissions", courseID, assignmentID))
	if err != nil {
		return nil, CSRF{}, err
	}

	csrf, err := pageCSRF(doc)
	if err != nil {
		return nil, CSRF{}, err
	}

	var rosterJSON string
	doc.Find("script").EachWithBreak(func(_ int, script *goquery.Selection) bool {
		if m := rosterPattern.FindStringSubmatch(script.Text()); m != nil {
			rosterJSON = m[1]
			return false
		}
		return true
	})
	if rosterJSON == "" {
		return nil, CSRF{}, errors.New("roster data not found on submissions page")
	}

	var roster []RosterEntry
	if err := json.Unmarshal([]byte(rosterJSON), &roster); err != nil {
		return nil, CSRF{}, fmt.Errorf("parsing roster data: %w", err)
	}
	return roster, csrf, nil
}

// Upload submits a file on behalf of one student.
func (c *Client) Upload(courseID, assignmentID int, ownerID int64, filename string, content []byte, csrf CSRF) error {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := form.CreateFormFile("submission[files][]", filename)
	if err != nil {
		return err
	}
	if _, err := part.Write(content); err != nil {
		return err
	}
	fields := map[string]string{
		csrf.Field:             csrf.Token,
		"submission[owner_id]": strconv.FormatInt(ownerID, 10),
		"submission[method]":   "upload",
	}
	for name, value := range fields {
		if err := form.WriteField(name, value); err != nil {
			return err
		}
	}
	if err := form.Close(); err != nil {
		return err
	}

	submitURL := c.endpoint("/courses/%d/assignments/%d/submissions", courseID, assignmentID)
	req, err := http.NewRequest(http.MethodPost, submitURL, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("uploading file for user %d: unexpected status %s", ownerID, resp.Status)
	}
	return nil
}
