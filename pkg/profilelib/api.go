package profilelib

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const maxAPIBody = 2 << 20

type apiResponse struct {
	Data struct {
		User *upstreamUser `json:"user"`
	} `json:"data"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// fetchAPI calls the structured profile endpoint. decided is true when the
// outcome is final for this attempt; otherwise the caller falls back to the
// profile page and err says why.
func (f *Fetcher) fetchAPI(ctx context.Context, username string) (out Outcome, decided bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Upstream.Timeout)
	defer cancel()

	base := strings.TrimRight(f.cfg.Upstream.BaseURL, "/")
	endpoint := base + "/api/v1/users/web_profile_info/?username=" + url.QueryEscape(username)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Outcome{}, false, fmt.Errorf("building api request: %w", err)
	}
	f.setAPIHeaders(req, base, username)

	if f.cfg.LogURLs {
		f.logger.Info("upstream request", "url", endpoint)
	}
	upstreamAPICalls.Add(1)

	resp, err := f.client.Do(req)
	if err != nil {
		return Outcome{}, false, fmt.Errorf("api request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return notFound(CodeUserNotFound), true, nil
	case http.StatusTooManyRequests:
		return Outcome{}, false, ErrRateLimited
	default:
		return Outcome{}, false, &StatusError{StatusCode: resp.StatusCode}
	}

	var body apiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxAPIBody)).Decode(&body); err != nil {
		return Outcome{}, false, fmt.Errorf("decoding api response: %w", err)
	}

	if body.Data.User != nil {
		rec := normalizeUser(body.Data.User)
		if rec.Username == "" {
			rec.Username = username
		}
		return found(rec, MethodAPI), true, nil
	}
	if code, ok := classifyAPIMessage(body.Message); ok {
		return notFound(code), true, nil
	}
	return Outcome{}, false, errors.New("api response carried no user")
}

func (f *Fetcher) setAPIHeaders(req *http.Request, base, username string) {
	req.Header.Set("User-Agent", pick(f.rand, f.cfg.UserAgents))
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("X-IG-App-ID", f.cfg.Upstream.AppID)
	req.Header.Set("X-ASBD-ID", f.cfg.Upstream.ASBDID)
	req.Header.Set("X-IG-WWW-Claim", "0")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Sec-Fetch-Dest", "empty")
	req.Header.Set("Sec-Fetch-Mode", "cors")
	req.Header.Set("Sec-Fetch-Site", "same-origin")
	req.Header.Set("Referer", base+"/"+username+"/")
	req.Header.Set("Cookie", fmt.Sprintf("ig_did=%s; mid=%s; csrftoken=%s",
		randomToken(f.rand), randomToken(f.rand), randomToken(f.rand)))
}

// classifyAPIMessage maps the error message the endpoint sometimes returns
// with a 200 status.
func classifyAPIMessage(msg string) (Code, bool) {
	if msg == "" {
		return "", false
	}
	m := strings.ToLower(msg)
	switch {
	case strings.Contains(m, "user not found"), strings.Contains(m, "doesn't exist"):
		return CodeUserNotFound, true
	case strings.Contains(m, "suspended"), strings.Contains(m, "banned"):
		return CodeAccountSuspended, true
	}
	return "", false
}
