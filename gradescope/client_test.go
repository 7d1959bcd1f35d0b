package gradescope

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

// newTestClient wires a client directly to an httptest server, skipping login.
func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	base, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &Client{
		baseURL:    base,
		httpClient: &http.Client{Jar: jar},
		logger:     zap.NewNop(),
	}
}

const gradesPage = `<html><body>
<table class="js-reviewGradesTable">
<thead><tr><th>Name</th><th>Email</th><th>Total Score</th></tr></thead>
<tbody>
<tr><td><a href="/courses/1/assignments/2/submissions/77">Ada Lovelace</a></td><td>ada@example.edu</td><td>0.0</td></tr>
<tr><td>Charles Babbage</td><td>charles@example.edu</td><td></td></tr>
<tr><td><a href="/courses/1/assignments/2/submissions/78">Grace Hopper</a></td><td>grace@example.edu</td><td>95.5</td></tr>
</tbody>
</table>
</body></html>`

func TestFetchGrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/courses/1/assignments/2/review_grades" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, gradesPage)
	}))
	defer srv.Close()

	rows, err := newTestClient(t, srv).FetchGrades(1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	if rows[0].Name != "Ada Lovelace" || rows[0].Email != "ada@example.edu" {
		t.Errorf("unexpected first row: %+v", rows[0])
	}
	if rows[0].Score == nil || *rows[0].Score != 0 {
		t.Errorf("expected a zero score, got %v", rows[0].Score)
	}
	if rows[0].SubmissionURL == nil || !strings.HasSuffix(*rows[0].SubmissionURL, "/submissions/77") {
		t.Errorf("unexpected submission URL: %v", rows[0].SubmissionURL)
	}

	// No submission link means no score and no URL.
	if rows[1].Score != nil || rows[1].SubmissionURL != nil {
		t.Errorf("expected a blank row for the non-submitter, got %+v", rows[1])
	}

	if rows[2].Score == nil || *rows[2].Score != 95.5 {
		t.Errorf("expected score 95.5, got %v", rows[2].Score)
	}
}

func TestFetchGradesMissingColumn(t *testing.T) {
	page := `<html><body><table class="js-reviewGradesTable">
<thead><tr><th>Name</th><th>Total Score</th></tr></thead>
<tbody></tbody></table></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).FetchGrades(1, 2)
	if err == nil || !strings.Contains(err.Error(), "missing") {
		t.Fatalf("expected a missing-column error, got %v", err)
	}
}

const submissionPage = `<html><head>
<meta name="csrf-param" content="authenticity_token"/>
<meta name="csrf-token" content="tok123"/>
</head><body>
<div data-react-class="AssignmentSubmissionViewer" data-react-props='{"assignment_submission":{"status":"failed"},"autograder_results":{}}'></div>
</body></html>`

func TestFetchSubmissionStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/courses/1/assignments/2/submissions/77" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, submissionPage)
	}))
	defer srv.Close()

	status, err := newTestClient(t, srv).FetchSubmissionStatus(1, 2, 77)
	if err != nil {
		t.Fatal(err)
	}
	if status.Status != "failed" {
		t.Errorf("expected status failed, got %q", status.Status)
	}
	want := CSRF{Field: "authenticity_token", Token: "tok123"}
	if status.CSRF != want {
		t.Errorf("got csrf %+v, want %+v", status.CSRF, want)
	}
}

func TestRegrade(t *testing.T) {
	var gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/courses/1/assignments/2/submissions/77/regrade" {
			http.NotFound(w, r)
			return
		}
		gotToken = r.Header.Get("X-Csrf-Token")
	}))
	defer srv.Close()

	if err := newTestClient(t, srv).Regrade(1, 2, 77, "tok123"); err != nil {
		t.Fatal(err)
	}
	if gotToken != "tok123" {
		t.Errorf("regrade sent csrf token %q, want tok123", gotToken)
	}
}

func TestRegradeBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if err := newTestClient(t, srv).Regrade(1, 2, 77, "tok123"); err == nil {
		t.Fatal("expected an error on a non-2xx regrade response")
	}
}

const loginForm = `<html><body><form action="/login">
<input type="hidden" name="authenticity_token" value="login-tok"/>
<input type="submit" value="Log In"/>
</form></body></html>`

func TestLoginFormFlow(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			fmt.Fprint(w, loginForm)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.PostFormValue("authenticity_token") != "login-tok" ||
			r.PostFormValue("session[email]") != "user@example.edu" ||
			r.PostFormValue("session[password]") != "hunter2" {
			http.Error(w, "bad credentials", http.StatusForbidden)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "signed_token", Value: "abc", Path: "/"})
		fmt.Fprint(w, `<html><body>Dashboard</body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cookieFile := filepath.Join(t.TempDir(), "cookies.json")
	_, err := New(Config{
		BaseURL:    srv.URL,
		Email:      "user@example.edu",
		Password:   "hunter2",
		CookieFile: cookieFile,
	}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(cookieFile)
	if err != nil {
		t.Fatal(err)
	}
	var cookies map[string]string
	if err := json.Unmarshal(data, &cookies); err != nil {
		t.Fatal(err)
	}
	if cookies["signed_token"] != "abc" {
		t.Errorf("cookie cache missing session cookie: %v", cookies)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			fmt.Fprint(w, loginForm)
			return
		}
		fmt.Fprint(w, `<html><body><div class="alert-error"><span>Invalid email/password combination.</span></div></body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := New(Config{BaseURL: srv.URL, Email: "user@example.edu", Password: "wrong"}, zap.NewNop())
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginRestoresCachedSession(t *testing.T) {
	sawCookie := false
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie("signed_token"); err == nil && cookie.Value == "abc" {
			sawCookie = true
			fmt.Fprint(w, `{"warning":"You must be logged out to access this page."}`)
			return
		}
		fmt.Fprint(w, loginForm)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cookieFile := filepath.Join(t.TempDir(), "cookies.json")
	if err := os.WriteFile(cookieFile, []byte(`{"signed_token":"abc"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	// No credentials: the cached session must be enough.
	_, err := New(Config{BaseURL: srv.URL, CookieFile: cookieFile}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if !sawCookie {
		t.Error("cached session cookie was not sent")
	}
}

const submissionsPage = `<html><head>
<meta name="csrf-param" content="authenticity_token"/>
<meta name="csrf-token" content="page-tok"/>
</head><body><script>//<![CDATA[
gon.roster=[{"id":5,"name":"Ada Lovelace","email":"ada@example.edu"}];gon.other=1;
//]]></script></body></html>`

func TestFetchSubmissionPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/courses/1/assignments/2/submissions" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, submissionsPage)
	}))
	defer srv.Close()

	roster, csrf, err := newTestClient(t, srv).FetchSubmissionPage(1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(roster) != 1 {
		t.Fatalf("expected 1 roster entry, got %v", roster)
	}
	want := RosterEntry{ID: 5, Name: "Ada Lovelace", Email: "ada@example.edu"}
	if roster[0] != want {
		t.Errorf("got roster entry %+v, want %+v", roster[0], want)
	}
	if csrf.Token != "page-tok" || csrf.Field != "authenticity_token" {
		t.Errorf("unexpected csrf pair: %+v", csrf)
	}
}

func TestUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/courses/1/assignments/2/submissions" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.FormValue("submission[owner_id]") != "5" ||
			r.FormValue("submission[method]") != "upload" ||
			r.FormValue("authenticity_token") != "page-tok" {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		file, header, err := r.FormFile("submission[files][]")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		if header.Filename != "solution.py" {
			http.Error(w, "bad filename", http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	csrf := CSRF{Field: "authenticity_token", Token: "page-tok"}
	err := newTestClient(t, srv).Upload(1, 2, 5, "solution.py", []byte("print('hi')\n"), csrf)
	if err != nil {
		t.Fatal(err)
	}
}
