package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestFetchStatusFromHTTP(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{200, FetchStatusSuccess},
		{204, FetchStatusSuccess},
		{404, FetchStatusNotFound},
		{410, FetchStatusNotFound},
		{403, FetchStatusBlocked},
		{429, FetchStatusBlocked},
		{500, FetchStatusError},
		{0, FetchStatusError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FetchStatusFromHTTP(tt.status), "status %d", tt.status)
	}
}

func TestIsPermanentHTTPStatus(t *testing.T) {
	assert.True(t, IsPermanentHTTPStatus(404))
	assert.True(t, IsPermanentHTTPStatus(451))
	assert.False(t, IsPermanentHTTPStatus(503))
	assert.False(t, IsPermanentHTTPStatus(0))
}

func TestHashContent(t *testing.T) {
	assert.Equal(t, HashContent("sega"), HashContent("sega"))
	assert.NotEqual(t, HashContent("sega"), HashContent("capcom"))
	assert.Len(t, HashContent(""), 64)
}

func TestReferencePage_IsUsable(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)
	earlier := now.Add(-time.Hour)

	tests := []struct {
		name string
		page ReferencePage
		want bool
	}{
		{"fresh success", ReferencePage{FetchStatus: FetchStatusSuccess, ParsedText: strPtr("x"), ExpiresAt: &later}, true},
		{"no expiry", ReferencePage{FetchStatus: FetchStatusSuccess, ParsedText: strPtr("x")}, true},
		{"expired", ReferencePage{FetchStatus: FetchStatusSuccess, ParsedText: strPtr("x"), ExpiresAt: &earlier}, false},
		{"failed fetch", ReferencePage{FetchStatus: FetchStatusError, ExpiresAt: &later}, false},
		{"no text", ReferencePage{FetchStatus: FetchStatusSuccess, ExpiresAt: &later}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.page.IsUsable(now))
		})
	}
}

func TestReferencePage_SkipReason(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	later := now.Add(time.Minute)
	earlier := now.Add(-time.Minute)

	skip, reason := (&ReferencePage{IsPermanentFailure: true, ErrorMessage: strPtr("HTTP status 404")}).SkipReason(now)
	assert.True(t, skip)
	assert.Equal(t, "HTTP status 404", reason)

	skip, reason = (&ReferencePage{IsPermanentFailure: true}).SkipReason(now)
	assert.True(t, skip)
	assert.Equal(t, "permanent failure", reason)

	skip, reason = (&ReferencePage{RetryAfter: &later}).SkipReason(now)
	assert.True(t, skip)
	assert.Equal(t, "retry backoff", reason)

	skip, _ = (&ReferencePage{RetryAfter: &earlier}).SkipReason(now)
	assert.False(t, skip)
}
