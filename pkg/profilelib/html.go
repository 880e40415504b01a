package profilelib

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxPageBody = 8 << 20

// pageRule maps literal page fragments to a terminal code. Order matters:
// the first matching rule wins.
type pageRule struct {
	code     Code
	patterns []string
}

var pageRules = []pageRule{
	{CodeAccountNotAvailable, []string{
		"page isn't available",
		"page isn’t available",
		"The link you followed may be broken",
		"broken link",
		"Page Not Found",
	}},
	{CodeAccountDeactivated, []string{"User not found", "accountNotFound"}},
	{CodeAccountSuspended, []string{"suspended", "violated", "community guidelines"}},
	{CodeTemporarilyUnavailable, []string{"temporarily unavailable", "try again later"}},
}

var sharedDataPattern = regexp.MustCompile(`window\._sharedData = ({.+?});</script>`)

// ClassifyPage scans a profile page for account status markers.
func ClassifyPage(html string) (Code, bool) {
	for _, rule := range pageRules {
		for _, p := range rule.patterns {
			if strings.Contains(html, p) {
				return rule.code, true
			}
		}
	}
	return "", false
}

// scrapeHTML fetches the public profile page. The body is read before the
// status is looked at since banned accounts come back non-200 with a
// diagnostic page.
func (f *Fetcher) scrapeHTML(ctx context.Context, username string) (Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Upstream.Timeout)
	defer cancel()

	base := strings.TrimRight(f.cfg.Upstream.BaseURL, "/")
	pageURL := base + "/" + url.PathEscape(username) + "/"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return Outcome{}, fmt.Errorf("building profile page request: %w", err)
	}
	f.setPageHeaders(req)

	if f.cfg.LogURLs {
		f.logger.Info("upstream request", "url", pageURL)
	}
	upstreamHTMLCalls.Add(1)

	resp, err := f.client.Do(req)
	if err != nil {
		return Outcome{}, fmt.Errorf("profile page request: %w", err)
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxPageBody))
	if readErr != nil {
		f.logger.Debug("could not read profile page, using status only", "username", username, "error", readErr)
		if out, decided, err := statusOutcome(resp.StatusCode); decided || err != nil {
			return out, err
		}
		return Outcome{}, fmt.Errorf("reading profile page: %w", readErr)
	}
	page := string(raw)

	if code, ok := ClassifyPage(page); ok {
		return notFound(code), nil
	}
	if out, decided, err := statusOutcome(resp.StatusCode); decided || err != nil {
		return out, err
	}

	if rec := extractLDJSON(page, username); rec != nil {
		return found(rec, MethodHTML), nil
	}
	if rec := extractSharedData(page, username); rec != nil {
		return found(rec, MethodHTML), nil
	}
	return Outcome{}, ErrDataParseFailed
}

// statusOutcome handles every status except 200, which it leaves undecided.
func statusOutcome(status int) (Outcome, bool, error) {
	switch status {
	case http.StatusOK:
		return Outcome{}, false, nil
	case http.StatusNotFound:
		return notFound(CodeUserNotFound), true, nil
	case http.StatusTooManyRequests:
		return Outcome{}, false, ErrRateLimited
	default:
		return Outcome{}, false, &StatusError{StatusCode: status}
	}
}

func (f *Fetcher) setPageHeaders(req *http.Request) {
	req.Header.Set("User-Agent", pick(f.rand, f.cfg.UserAgents))
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	// Accept-Encoding is left to the transport so gzip stays transparent.
	req.Header.Set("DNT", "1")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "none")
	req.Header.Set("Sec-Fetch-User", "?1")
	req.Header.Set("Cache-Control", "max-age=0")
}

// ldProfile is the subset of the schema.org block the page embeds. Counts
// and flags are not published there.
type ldProfile struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	URL         string          `json:"url"`
	Image       json.RawMessage `json:"image"`
}

func extractLDJSON(page, username string) *ProfileRecord {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil
	}

	var rec *ProfileRecord
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, ld := range decodeLD([]byte(s.Text())) {
			if ld.Name == "" {
				continue
			}
			rec = &ProfileRecord{
				Name:          optString(ld.Name),
				Username:      username,
				Bio:           optString(ld.Description),
				ExternalURL:   optString(ld.URL),
				ProfilePicURL: optString(ldImage(ld.Image)),
			}
			return false
		}
		return true
	})
	return rec
}

func decodeLD(b []byte) []ldProfile {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}
	if b[0] == '[' {
		var many []ldProfile
		if json.Unmarshal(b, &many) != nil {
			return nil
		}
		return many
	}
	var one ldProfile
	if json.Unmarshal(b, &one) != nil {
		return nil
	}
	return []ldProfile{one}
}

// ldImage accepts "image" as a URL string or an ImageObject.
func ldImage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj struct {
		URL string `json:"url"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		return obj.URL
	}
	return ""
}

type sharedData struct {
	EntryData struct {
		ProfilePage []struct {
			GraphQL struct {
				User *upstreamUser `json:"user"`
			} `json:"graphql"`
		} `json:"ProfilePage"`
	} `json:"entry_data"`
}

func extractSharedData(page, username string) *ProfileRecord {
	m := sharedDataPattern.FindStringSubmatch(page)
	if m == nil {
		return nil
	}
	var data sharedData
	if err := json.Unmarshal([]byte(m[1]), &data); err != nil {
		return nil
	}
	if len(data.EntryData.ProfilePage) == 0 || data.EntryData.ProfilePage[0].GraphQL.User == nil {
		return nil
	}
	rec := normalizeUser(data.EntryData.ProfilePage[0].GraphQL.User)
	if rec.Username == "" {
		rec.Username = username
	}
	return rec
}
