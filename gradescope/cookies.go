package gradescope

import (
	"encoding/json"
	"net/http"
	"os"
)

// The cookie cache is a flat name-to-value JSON object, the same format the
// remote session tooling has always used, so caches stay interchangeable.

func (c *Client) saveCookies() error {
	cookies := map[string]string{}
	for _, cookie := range c.httpClient.Jar.Cookies(c.baseURL) {
		cookies[cookie.Name] = cookie.Value
	}
	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.cookieFile, data, 0o600)
}

func (c *Client) loadCookies() error {
	data, err := os.ReadFile(c.cookieFile)
	if err != nil {
		return err
	}
	var cookies map[string]string
	if err := json.Unmarshal(data, &cookies); err != nil {
		return err
	}

	restored := make([]*http.Cookie, 0, len(cookies))
	for name, value := range cookies {
		restored = append(restored, &http.Cookie{Name: name, Value: value, Path: "/"})
	}
	c.httpClient.Jar.SetCookies(c.baseURL, restored)
	return nil
}
