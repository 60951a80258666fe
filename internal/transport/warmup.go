package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// HTTPBase maps a ws:// or wss:// endpoint to the server's http(s) root.
func HTTPBase(wsURL string) (string, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	case "http", "https":
	default:
		return "", fmt.Errorf("transport: unsupported scheme %q", u.Scheme)
	}
	u.Path, u.RawQuery, u.Fragment = "/", "", ""
	return u.String(), nil
}

// Warmup issues a plain GET against the server root so a sleeping host is
// already starting by the time the WebSocket dial goes out.
func (a *Adapter) Warmup(ctx context.Context) error {
	base, err := HTTPBase(a.opts.URL)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base, nil)
	if err != nil {
		return err
	}
	client := a.opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("transport: warmup: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("transport: warmup: %s", resp.Status)
	}
	return nil
}
