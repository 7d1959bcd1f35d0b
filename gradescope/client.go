// Package gradescope implements an authenticated client for the Gradescope
// web interface: grade table scraping, per-submission autograder status,
// regrade requests and submission uploads.
package gradescope

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://www.gradescope.com"

	csrfTokenHeader = "X-Csrf-Token"
	requestTimeout  = 20 * time.Second
)

var ErrInvalidCredentials = errors.New("invalid email/password combination")

type Config struct {
	BaseURL    string
	Email      string
	Password   string
	CookieFile string
}

// CSRF is the anti-forgery token pair embedded in a page.
type CSRF struct {
	Field string
	Token string
}

// Client is an authenticated Gradescope session. Its transport is safe for
// concurrent use; no method mutates session state after login.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *zap.Logger
	cookieFile string
}

// New builds a client and logs it in, restoring the session from the cookie
// cache when a valid one exists.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		baseURL:    base,
		httpClient: &http.Client{Jar: jar, Timeout: requestTimeout},
		logger:     logger,
		cookieFile: cfg.CookieFile,
	}
	if err := c.login(cfg.Email, cfg.Password); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) endpoint(format string, args ...any) string {
	ref := &url.URL{Path: fmt.Sprintf(format, args...)}
	return c.baseURL.ResolveReference(ref).String()
}

func (c *Client) login(email, password string) error {
	loginURL := c.endpoint("/login")

	if c.cookieFile != "" {
		restored, err := c.restoreSession(loginURL)
		if err != nil {
			return err
		}
		if restored {
			c.logger.Info("session restored from cookie cache", zap.String("cookie_file", c.cookieFile))
			return nil
		}
	}
	if email == "" || password == "" {
		return errors.New("gradescope credentials are not set and no cached session is available")
	}

	doc, err := c.getDocument(loginURL)
	if err != nil {
		return fmt.Errorf("fetching login page: %w", err)
	}
	token, ok := doc.Find(`form input[name="authenticity_token"]`).First().Attr("value")
	if !ok {
		return errors.New("authenticity token not found on login page")
	}

	form := url.Values{
		"utf8":                     {"✓"},
		"authenticity_token":       {token},
		"session[email]":           {email},
		"session[password]":        {password},
		"session[remember_me]":     {"1"},
		"commit":                   {"Log In"},
		"session[remember_me_sso]": {"0"},
	}
	req, err := http.NewRequest(http.MethodPost, loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", c.baseURL.String())
	req.Header.Set("Referer", loginURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("logging in: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		resp.Body.Close()
		return fmt.Errorf("login request failed with status %s", resp.Status)
	}
	doc, err = document(resp)
	if err != nil {
		return err
	}

	invalid := false
	doc.Find(".alert-error span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.Contains(s.Text(), "Invalid email/password combination") {
			invalid = true
			return false
		}
		return true
	})
	if invalid {
		return ErrInvalidCredentials
	}

	if c.cookieFile != "" {
		if err := c.saveCookies(); err != nil {
			return fmt.Errorf("saving cookie cache: %w", err)
		}
	}
	c.logger.Info("logged in", zap.String("email", email))
	return nil
}

// restoreSession loads the cookie cache and verifies that the session it
// carries is still logged in.
func (c *Client) restoreSession(loginURL string) (bool, error) {
	if _, err := os.Stat(c.cookieFile); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if err := c.loadCookies(); err != nil {
		return false, fmt.Errorf("loading cookie cache: %w", err)
	}

	resp, err := c.httpClient.Get(loginURL)
	if err != nil {
		return false, fmt.Errorf("verifying cached session: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return false, err
	}

	// A logged-in session gets a JSON warning instead of the login page.
	var warning struct {
		Warning string `json:"warning"`
	}
	if err := json.Unmarshal(body, &warning); err == nil {
		return warning.Warning == "You must be logged out to access this page.", nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	// No login form means the cached session is still valid.
	return doc.Find(`input[type="submit"][value="Log In"]`).Length() == 0, nil
}

func (c *Client) getDocument(rawURL string) (*goquery.Document, error) {
	resp, err := c.httpClient.Get(rawURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: unexpected status %s", rawURL, resp.Status)
	}
	return document(resp)
}

func document(resp *http.Response) (*goquery.Document, error) {
	defer resp.Body.Close()
	return goquery.NewDocumentFromReader(resp.Body)
}

func pageCSRF(doc *goquery.Document) (CSRF, error) {
	token, ok := doc.Find(`meta[name="csrf-token"]`).Attr("content")
	if !ok {
		return CSRF{}, errors.New("csrf token <meta> tag not found")
	}
	field, ok := doc.Find(`meta[name="csrf-param"]`).Attr("content")
	if !ok {
		return CSRF{}, errors.New("csrf parameter <meta> tag not found")
	}
	return CSRF{Field: field, Token: token}, nil
}
