package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// GetPageByURL retrieves a cached page by URL. A missing row is (nil, nil).
func (db *DB) GetPageByURL(ctx context.Context, pageURL string) (*ReferencePage, error) {
	var p ReferencePage
	err := db.pool.QueryRow(ctx,
		`SELECT id, url, parsed_text, content_hash, http_status, fetch_status, error_message,
		        is_permanent_failure, retry_count, retry_after,
		        fetched_at, expires_at, last_accessed_at, created_at, updated_at
		 FROM reference_pages WHERE url = $1`,
		pageURL,
	).Scan(&p.ID, &p.URL, &p.ParsedText, &p.ContentHash, &p.HTTPStatus, &p.FetchStatus, &p.ErrorMessage,
		&p.IsPermanentFailure, &p.RetryCount, &p.RetryAfter,
		&p.FetchedAt, &p.ExpiresAt, &p.LastAccessedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get reference page: %w", err)
	}
	return &p, nil
}

// UpsertPage stores extracted text for a successfully fetched page and
// clears any failure state.
func (db *DB) UpsertPage(ctx context.Context, pageURL, text string, ttl time.Duration) (uuid.UUID, error) {
	if ttl <= 0 {
		ttl = DefaultPageCacheTTL
	}
	expiresAt := time.Now().Add(ttl)

	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO reference_pages (id, url, parsed_text, content_hash, http_status, fetch_status,
		                              is_permanent_failure, retry_count, fetched_at, expires_at)
		 VALUES ($1, $2, $3, $4, 200, $5, FALSE, 0, NOW(), $6)
		 ON CONFLICT (url) DO UPDATE SET
		     parsed_text = $3,
		     content_hash = $4,
		     http_status = 200,
		     fetch_status = $5,
		     error_message = NULL,
		     is_permanent_failure = FALSE,
		     retry_count = 0,
		     retry_after = NULL,
		     fetched_at = NOW(),
		     expires_at = $6,
		     updated_at = NOW()
		 RETURNING id`,
		uuid.New(), pageURL, text, HashContent(text), FetchStatusSuccess, expiresAt,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to upsert reference page: %w", err)
	}
	return id, nil
}

// RecordFailedFetch records a failed fetch attempt with exponential backoff.
// Schedule: 1 min, 5 min, 25 min, then 2 hours. Permanent failures never retry.
func (db *DB) RecordFailedFetch(ctx context.Context, pageURL string, httpStatus int, errorMsg string) error {
	fetchStatus := FetchStatusFromHTTP(httpStatus)
	if fetchStatus == FetchStatusSuccess {
		fetchStatus = FetchStatusError
	}
	isPermanent := IsPermanentHTTPStatus(httpStatus)

	_, err := db.pool.Exec(ctx,
		`INSERT INTO reference_pages (id, url, http_status, fetch_status, error_message, is_permanent_failure,
		                              retry_count, retry_after, fetched_at)
		 VALUES ($1, $2, $3, $4, $5, $6, 1,
		         CASE WHEN $6 THEN NULL ELSE NOW() + INTERVAL '1 minute' END,
		         NOW())
		 ON CONFLICT (url) DO UPDATE SET
		     http_status = $3,
		     fetch_status = $4,
		     error_message = $5,
		     is_permanent_failure = $6 OR reference_pages.is_permanent_failure,
		     retry_count = reference_pages.retry_count + 1,
		     retry_after = CASE
		         WHEN $6 OR reference_pages.is_permanent_failure THEN NULL
		         ELSE NOW() + LEAST(
		             INTERVAL '1 minute' * POWER(5, LEAST(reference_pages.retry_count, 3)),
		             INTERVAL '2 hours'
		         )
		     END,
		     fetched_at = NOW(),
		     updated_at = NOW()`,
		uuid.New(), pageURL, httpStatus, fetchStatus, errorMsg, isPermanent,
	)
	if err != nil {
		return fmt.Errorf("failed to record failed fetch: %w", err)
	}
	return nil
}

// TouchPage updates the last_accessed_at timestamp
func (db *DB) TouchPage(ctx context.Context, id uuid.UUID) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE reference_pages SET last_accessed_at = NOW() WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to touch reference page: %w", err)
	}
	return nil
}

// DeleteExpiredPages removes pages that have passed their expires_at
func (db *DB) DeleteExpiredPages(ctx context.Context) (int64, error) {
	result, err := db.pool.Exec(ctx,
		`DELETE FROM reference_pages WHERE expires_at < NOW()`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired pages: %w", err)
	}
	return result.RowsAffected(), nil
}

// PageCache adapts DB to the fetcher's cache and failure tracking interfaces.
type PageCache struct {
	db  *DB
	now func() time.Time
}

// NewPageCache wraps a connected database as a page cache.
func NewPageCache(database *DB) *PageCache {
	return &PageCache{db: database, now: time.Now}
}

// Get returns fresh cached text for url.
func (c *PageCache) Get(ctx context.Context, url string) (string, bool, error) {
	page, err := c.db.GetPageByURL(ctx, url)
	if err != nil || page == nil {
		return "", false, err
	}
	if !page.IsUsable(c.now()) {
		return "", false, nil
	}
	_ = c.db.TouchPage(ctx, page.ID)
	return *page.ParsedText, true, nil
}

// Put stores text for url.
func (c *PageCache) Put(ctx context.Context, url, text string, ttl time.Duration) error {
	_, err := c.db.UpsertPage(ctx, url, text, ttl)
	return err
}

// ShouldSkip reports whether url previously failed permanently or is backing off.
func (c *PageCache) ShouldSkip(ctx context.Context, url string) (bool, string, error) {
	page, err := c.db.GetPageByURL(ctx, url)
	if err != nil || page == nil {
		return false, "", err
	}
	skip, reason := page.SkipReason(c.now())
	return skip, reason, nil
}

// RecordFailure records a failed fetch of url.
func (c *PageCache) RecordFailure(ctx context.Context, url string, status int, message string) error {
	return c.db.RecordFailedFetch(ctx, url, status, message)
}
