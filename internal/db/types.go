package db

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// ReferencePage is a cached, already extracted reference page.
type ReferencePage struct {
	ID          uuid.UUID `json:"id"`
	URL         string    `json:"url"`
	ParsedText  *string   `json:"parsed_text,omitempty"`
	ContentHash *string   `json:"content_hash,omitempty"`
	HTTPStatus  *int      `json:"http_status,omitempty"`
	// Error tracking
	FetchStatus        string     `json:"fetch_status"`
	ErrorMessage       *string    `json:"error_message,omitempty"`
	IsPermanentFailure bool       `json:"is_permanent_failure"`
	RetryCount         int        `json:"retry_count"`
	RetryAfter         *time.Time `json:"retry_after,omitempty"`
	// Timestamps
	FetchedAt      time.Time  `json:"fetched_at"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	LastAccessedAt time.Time  `json:"last_accessed_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// FetchStatus constants for reference pages
const (
	FetchStatusSuccess  = "success"   // Page fetched successfully
	FetchStatusError    = "error"     // Generic error (may retry)
	FetchStatusNotFound = "not_found" // 404/410 - permanent failure
	FetchStatusBlocked  = "blocked"   // 403/429 - blocked by server
)

// DefaultPageCacheTTL is the default time-to-live for cached pages (7 days)
const DefaultPageCacheTTL = 7 * 24 * time.Hour

// IsPermanentHTTPStatus returns true for status codes that indicate permanent failure
func IsPermanentHTTPStatus(status int) bool {
	switch status {
	case 404, 410, 451: // Not Found, Gone, Unavailable for Legal Reasons
		return true
	default:
		return false
	}
}

// FetchStatusFromHTTP determines fetch status from HTTP status code
func FetchStatusFromHTTP(status int) string {
	switch {
	case status >= 200 && status < 300:
		return FetchStatusSuccess
	case status == 404 || status == 410:
		return FetchStatusNotFound
	case status == 403 || status == 429:
		return FetchStatusBlocked
	default:
		return FetchStatusError
	}
}

// HashContent computes SHA-256 hash of content for change detection
func HashContent(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}

// IsExpired reports whether the entry is past its expiry at now.
func (p *ReferencePage) IsExpired(now time.Time) bool {
	if p.ExpiresAt == nil {
		return false
	}
	return now.After(*p.ExpiresAt)
}

// IsUsable reports whether the entry can be served from cache at now.
func (p *ReferencePage) IsUsable(now time.Time) bool {
	return p.FetchStatus == FetchStatusSuccess && p.ParsedText != nil && !p.IsExpired(now)
}

// SkipReason reports whether fetching the page should be skipped at now.
func (p *ReferencePage) SkipReason(now time.Time) (bool, string) {
	if p.IsPermanentFailure {
		if p.ErrorMessage != nil {
			return true, *p.ErrorMessage
		}
		return true, "permanent failure"
	}
	if p.RetryAfter != nil && now.Before(*p.RetryAfter) {
		return true, "retry backoff"
	}
	return false, ""
}
