package profilelib

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// upstreamUser models the user object shared by the web_profile_info
// endpoint and the embedded _sharedData blob. Both shapes (graphql edges
// and flat counters) show up depending on the upstream revision.
type upstreamUser struct {
	FullName          string    `json:"full_name"`
	Username          string    `json:"username"`
	ID                flexInt64 `json:"id"`
	PK                flexInt64 `json:"pk"`
	Biography         string    `json:"biography"`
	IsVerified        bool      `json:"is_verified"`
	IsPrivate         bool      `json:"is_private"`
	IsBusinessAccount bool      `json:"is_business_account"`
	CategoryName      string    `json:"category_name"`
	ExternalURL       string    `json:"external_url"`
	ProfilePicURL     string    `json:"profile_pic_url"`
	ProfilePicURLHD   string    `json:"profile_pic_url_hd"`

	EdgeOwnerToTimelineMedia edgeCount `json:"edge_owner_to_timeline_media"`
	EdgeFollowedBy           edgeCount `json:"edge_followed_by"`
	EdgeFollow               edgeCount `json:"edge_follow"`
	MediaCount               int64     `json:"media_count"`
	FollowerCount            int64     `json:"follower_count"`
	FollowingCount           int64     `json:"following_count"`
}

type edgeCount struct {
	Count int64 `json:"count"`
}

// flexInt64 accepts ids sent either as JSON numbers or numeric strings.
// Anything else decodes to "absent" rather than failing the whole object.
type flexInt64 struct {
	Value int64
	Valid bool
}

func (f *flexInt64) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	f.Value, f.Valid = n, true
	return nil
}

func normalizeUser(u *upstreamUser) *ProfileRecord {
	rec := &ProfileRecord{
		Name:          optString(u.FullName),
		Username:      u.Username,
		Bio:           optString(u.Biography),
		Verified:      u.IsVerified,
		Private:       u.IsPrivate,
		Posts:         firstPositive(u.EdgeOwnerToTimelineMedia.Count, u.MediaCount),
		Followers:     firstPositive(u.EdgeFollowedBy.Count, u.FollowerCount),
		Following:     firstPositive(u.EdgeFollow.Count, u.FollowingCount),
		Business:      u.IsBusinessAccount,
		Category:      optString(u.CategoryName),
		ExternalURL:   optString(u.ExternalURL),
		ProfilePicURL: optString(firstNonEmpty(u.ProfilePicURLHD, u.ProfilePicURL)),
	}
	for _, id := range []flexInt64{u.ID, u.PK} {
		if id.Valid && id.Value != 0 {
			v := id.Value
			rec.UserID = &v
			break
		}
	}
	return rec
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(vals ...int64) int64 {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
