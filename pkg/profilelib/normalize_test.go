package profilelib

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeUser(t *testing.T, raw string) *ProfileRecord {
	t.Helper()
	var u upstreamUser
	require.NoError(t, json.Unmarshal([]byte(raw), &u))
	return normalizeUser(&u)
}

func TestNormalizeUserEdgeCounts(t *testing.T) {
	rec := decodeUser(t, `{
		"username":"a","id":"17",
		"edge_owner_to_timeline_media":{"count":3},
		"edge_followed_by":{"count":4},
		"edge_follow":{"count":5},
		"media_count":30,"follower_count":40,"following_count":50
	}`)
	assert.Equal(t, int64(3), rec.Posts)
	assert.Equal(t, int64(4), rec.Followers)
	assert.Equal(t, int64(5), rec.Following)
	require.NotNil(t, rec.UserID)
	assert.Equal(t, int64(17), *rec.UserID)
}

func TestNormalizeUserFlatCounts(t *testing.T) {
	rec := decodeUser(t, `{"username":"a","pk":21,"media_count":30,"follower_count":40,"following_count":50}`)
	assert.Equal(t, int64(30), rec.Posts)
	assert.Equal(t, int64(40), rec.Followers)
	assert.Equal(t, int64(50), rec.Following)
	require.NotNil(t, rec.UserID)
	assert.Equal(t, int64(21), *rec.UserID)
}

func TestNormalizeUserOptionalFields(t *testing.T) {
	rec := decodeUser(t, `{"username":"a","full_name":"","biography":"","category_name":"","external_url":"","profile_pic_url":"p.jpg","id":"not-a-number"}`)
	assert.Nil(t, rec.Name)
	assert.Nil(t, rec.Bio)
	assert.Nil(t, rec.Category)
	assert.Nil(t, rec.ExternalURL)
	assert.Nil(t, rec.UserID)
	require.NotNil(t, rec.ProfilePicURL)
	assert.Equal(t, "p.jpg", *rec.ProfilePicURL)
	assert.Zero(t, rec.Posts)
}

func TestProfileRecordSerializesAbsentAsNull(t *testing.T) {
	raw, err := json.Marshal(&ProfileRecord{Username: "a"})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"name":null,"username":"a","user_id":null,"bio":null,
		"verified":false,"private":false,"posts":0,"followers":0,"following":0,
		"business":false,"category":null,"external_url":null,"profile_pic_url":null
	}`, string(raw))
}
