package gradescope

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// GradeRow is one student row of the assignment grade table. Score and
// SubmissionURL are nil for students who never submitted.
type GradeRow struct {
	Name          string
	Email         string
	Score         *float64
	SubmissionURL *string
}

// FetchGrades scrapes the assignment's "review grades" table. The column
// layout is discovered from the table header; a missing name, email or score
// column means the page no longer matches expectations and is an error.
func (c *Client) FetchGrades(courseID, assignmentID int) ([]GradeRow, error) {
	doc, err := c.getDocument(c.endpoint("/courses/%d/assignments/%d/review_grades", courseID, assignmentID))
	if err != nil {
		return nil, err
	}

	table := doc.Find("table.js-reviewGradesTable").First()
	if table.Length() == 0 {
		return nil, errors.New("grade table not found")
	}

	nameIdx, emailIdx, scoreIdx := -1, -1, -1
	table.Find("thead th").Each(func(i int, th *goquery.Selection) {
		switch text := strings.ToLower(th.Text()); {
		case strings.Contains(text, "name"):
			nameIdx = i
		case strings.Contains(text, "email"):
			emailIdx = i
		case strings.Contains(text, "score"):
			scoreIdx = i
		}
	})
	if nameIdx < 0 || emailIdx < 0 || scoreIdx < 0 {
		return nil, errors.New("grade table is missing one of the name, email or score columns")
	}

	var (
		rows   []GradeRow
		rowErr error
	)
	table.Find("tbody tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		cells := tr.Find("td")
		row := GradeRow{
			Name:  strings.TrimSpace(cells.Eq(nameIdx).Text()),
			Email: strings.TrimSpace(cells.Eq(emailIdx).Text()),
		}

		// The submission link lives in the name cell; its absence means the
		// student has no submission.
		if link, ok := cells.Eq(nameIdx).Find("a").First().Attr("href"); ok {
			score, err := strconv.ParseFloat(strings.TrimSpace(cells.Eq(scoreIdx).Text()), 64)
			if err != nil {
				rowErr = fmt.Errorf("parsing score for %s: %w", row.Email, err)
				return false
			}
			row.Score = &score
			row.SubmissionURL = &link
		}
		rows = append(rows, row)
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}
	return rows, nil
}
