package profilelib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyPage(t *testing.T) {
	tests := []struct {
		name string
		page string
		want Code
		ok   bool
	}{
		{"unavailable", "Sorry, this page isn't available.", CodeAccountNotAvailable, true},
		{"unavailable curly quote", "Sorry, this page isn’t available.", CodeAccountNotAvailable, true},
		{"broken link", "The link you followed may be broken, or the page may have been removed.", CodeAccountNotAvailable, true},
		{"deactivated", `{"error":"User not found"}`, CodeAccountDeactivated, true},
		{"deactivated marker", `<div class="accountNotFound">`, CodeAccountDeactivated, true},
		{"suspended", "Your account has been suspended", CodeAccountSuspended, true},
		{"guidelines", "This account violated our community guidelines", CodeAccountSuspended, true},
		{"temporary", "This account is temporarily unavailable", CodeTemporarilyUnavailable, true},
		{"first rule wins", "page isn't available. User not found. suspended", CodeAccountNotAvailable, true},
		{"deactivated before suspended", "User not found; suspended", CodeAccountDeactivated, true},
		{"normal page", "<html><title>zuck</title></html>", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ClassifyPage(tt.page)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractLDJSON(t *testing.T) {
	t.Run("array with image object", func(t *testing.T) {
		page := `<html><head>
<script type="application/ld+json">[{"@type":"BreadcrumbList"},{"@type":"Person","name":"Mark","description":"bio","image":{"url":"https://cdn/x.jpg"}}]</script>
</head></html>`
		rec := extractLDJSON(page, "zuck")
		require.NotNil(t, rec)
		assert.Equal(t, "zuck", rec.Username)
		assert.Equal(t, "Mark", *rec.Name)
		assert.Equal(t, "bio", *rec.Bio)
		assert.Equal(t, "https://cdn/x.jpg", *rec.ProfilePicURL)
		assert.Nil(t, rec.ExternalURL)
	})

	t.Run("skips broken blocks", func(t *testing.T) {
		page := `<script type="application/ld+json">{not json</script>
<script type="application/ld+json">{"name":"Second"}</script>`
		rec := extractLDJSON(page, "x")
		require.NotNil(t, rec)
		assert.Equal(t, "Second", *rec.Name)
	})

	t.Run("none", func(t *testing.T) {
		assert.Nil(t, extractLDJSON(`<script type="application/ld+json">{"@type":"WebSite"}</script>`, "x"))
		assert.Nil(t, extractLDJSON(`<html></html>`, "x"))
	})
}

func TestExtractSharedData(t *testing.T) {
	page := `<script>window._sharedData = {"entry_data":{"ProfilePage":[{"graphql":{"user":{"full_name":"Legacy","id":"5","edge_followed_by":{"count":12}}}}]}};</script>`
	rec := extractSharedData(page, "legacy")
	require.NotNil(t, rec)
	assert.Equal(t, "legacy", rec.Username)
	assert.Equal(t, "Legacy", *rec.Name)
	assert.Equal(t, int64(12), rec.Followers)
	assert.Equal(t, int64(5), *rec.UserID)

	assert.Nil(t, extractSharedData(`<script>window._sharedData = {"entry_data":{}};</script>`, "x"))
	assert.Nil(t, extractSharedData(`<html></html>`, "x"))
}
