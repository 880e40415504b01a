// Package upstreamtest provides a fake upstream site for tests: one handler
// for the structured profile endpoint and one for profile pages.
package upstreamtest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
)

const apiPath = "/api/v1/users/web_profile_info/"

// Server counts calls per endpoint and remembers the last request headers.
type Server struct {
	*httptest.Server

	APICalls  atomic.Int64
	PageCalls atomic.Int64

	mu          sync.Mutex
	lastAPIReq  *http.Request
	lastPageReq *http.Request
}

// NewServer starts a fake upstream. A nil handler answers 500.
func NewServer(api, page http.HandlerFunc) *Server {
	if api == nil {
		api = Status(http.StatusInternalServerError, "")
	}
	if page == nil {
		page = Status(http.StatusInternalServerError, "")
	}
	s := &Server{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == apiPath {
			s.record(&s.lastAPIReq, r)
			s.APICalls.Add(1)
			api(w, r)
			return
		}
		s.record(&s.lastPageReq, r)
		s.PageCalls.Add(1)
		page(w, r)
	}))
	return s
}

func (s *Server) record(dst **http.Request, r *http.Request) {
	s.mu.Lock()
	*dst = r.Clone(r.Context())
	s.mu.Unlock()
}

// LastAPIRequest returns the most recent request to the structured endpoint.
func (s *Server) LastAPIRequest() *http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAPIReq
}

// LastPageRequest returns the most recent profile page request.
func (s *Server) LastPageRequest() *http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPageReq
}

// Status answers with a fixed status and body.
func Status(code int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
		fmt.Fprint(w, body)
	}
}

// JSON answers 200 with a JSON body.
func JSON(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}
}

// HTML answers with the given status and an HTML body.
func HTML(code int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(code)
		fmt.Fprint(w, body)
	}
}

// Drop closes the connection without answering, which clients see as a
// network error.
func Drop() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		if !ok {
			panic("upstreamtest: response writer does not support hijacking")
		}
		conn, _, err := hj.Hijack()
		if err != nil {
			panic(err)
		}
		conn.Close()
	}
}

// UserJSON is a structured endpoint body for a typical public profile.
func UserJSON(username string) string {
	return fmt.Sprintf(`{"data":{"user":{
		"full_name":"Test %[1]s",
		"username":%[2]q,
		"id":"314216",
		"biography":"hello",
		"is_verified":true,
		"is_private":false,
		"is_business_account":false,
		"category_name":"",
		"external_url":"https://example.com/%[1]s",
		"profile_pic_url":"https://cdn.example.com/%[1]s.jpg",
		"profile_pic_url_hd":"https://cdn.example.com/%[1]s_hd.jpg",
		"edge_owner_to_timeline_media":{"count":42},
		"edge_followed_by":{"count":1000},
		"edge_follow":{"count":7}
	}},"status":"ok"}`, strings.ToUpper(username), username)
}

// LDJSONPage is a profile page exposing only the schema.org block.
func LDJSONPage(name string) string {
	return `<!DOCTYPE html><html><head><title>profile</title>
<script type="application/ld+json">{"@context":"https://schema.org","@type":"ProfilePage","name":"` + name +
		`","description":"bio text","url":"https://example.com","image":"https://cdn.example.com/pic.jpg"}</script>
</head><body></body></html>`
}

// SharedDataPage is a profile page embedding the legacy window._sharedData blob.
func SharedDataPage(username string) string {
	return `<html><head></head><body><script type="text/javascript">window._sharedData = {"entry_data":{"ProfilePage":[{"graphql":{"user":{"full_name":"Shared","username":"` +
		username + `","pk":99,"media_count":3,"follower_count":5,"following_count":6,"is_private":true}}}]}};</script></body></html>`
}
