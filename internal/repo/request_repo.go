// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Request
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a request is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// State transitions are expressed as atomic conditional updates: MarkCompleted
// and MarkRejected only touch rows whose current status is pending, so two
// racing operators cannot both complete the same record. The service layer
// (services.RequestService) is the sole caller of the mutating functions.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-request-bot/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for consistency across the service
// layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// Filter narrows request listings. Zero-value fields are ignored; Title is an
// exact match on the stored (verbatim) title string.
type Filter struct {
	RequesterID string
	Status      string
	Title       string
}

func (f Filter) apply(q *gorm.DB) *gorm.DB {
	if f.RequesterID != "" {
		q = q.Where("requester_id = ?", f.RequesterID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Title != "" {
		q = q.Where("title = ?", f.Title)
	}
	return q
}

// CreateRequest inserts a new pending Request owned by requesterID. The
// record ID is a randomly generated UUID and CreatedAt is set to UTC.
func CreateRequest(ctx context.Context, db *gorm.DB, requesterID string, chatID int64, title string, catalogID *int64) (*domain.Request, error) {
	r := &domain.Request{
		ID:          uuid.NewString(),
		RequesterID: requesterID,
		ChatID:      chatID,
		Title:       title,
		CatalogID:   catalogID,
		Status:      domain.StatusPending,
		Available:   false,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// GetRequest fetches a single request by its primary key, or ErrNotFound.
func GetRequest(ctx context.Context, db *gorm.DB, id string) (*domain.Request, error) {
	var r domain.Request
	if err := db.WithContext(ctx).Where("id = ?", id).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// GetByRequesterTitle returns the newest request matching (requesterID, title)
// regardless of status, or ErrNotFound. Title match is exact.
func GetByRequesterTitle(ctx context.Context, db *gorm.DB, requesterID, title string) (*domain.Request, error) {
	var r domain.Request
	err := db.WithContext(ctx).
		Where("requester_id = ? AND title = ?", requesterID, title).
		Order("created_at desc").
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetNewestPendingByTitle returns the most recent pending request for an
// exact title, or ErrNotFound. Title-based resolution is a convenience index
// only; callers that hold a record id should use GetRequest instead.
func GetNewestPendingByTitle(ctx context.Context, db *gorm.DB, title string) (*domain.Request, error) {
	var r domain.Request
	err := db.WithContext(ctx).
		Where("title = ? AND status = ?", title, domain.StatusPending).
		Order("created_at desc").
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRequests returns all requests matching the filter, ordered by creation
// time descending (newest first). An empty filter lists everything.
func ListRequests(ctx context.Context, db *gorm.DB, f Filter) ([]domain.Request, error) {
	var out []domain.Request
	err := f.apply(db.WithContext(ctx)).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// CountRequests returns the total number of requests matching the filter.
func CountRequests(ctx context.Context, db *gorm.DB, f Filter) (int64, error) {
	var total int64
	err := f.apply(db.WithContext(ctx).Model(&domain.Request{})).
		Count(&total).Error
	return total, err
}

// ListRequestsPage returns a paginated slice of requests matching the filter,
// ordered by creation time descending. Use CountRequests for the total.
func ListRequestsPage(ctx context.Context, db *gorm.DB, f Filter, offset, limit int) ([]domain.Request, error) {
	var out []domain.Request
	err := f.apply(db.WithContext(ctx)).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// MarkCompleted transitions a pending request to completed, recording the
// fulfillment link and flipping Available. The update is conditional on the
// current status still being pending; if the row is missing or already
// terminal, ErrNotFound is returned and nothing is written.
func MarkCompleted(ctx context.Context, db *gorm.DB, id, link string) error {
	res := db.WithContext(ctx).
		Model(&domain.Request{}).
		Where("id = ? AND status = ?", id, domain.StatusPending).
		Updates(map[string]any{
			"status":    domain.StatusCompleted,
			"link":      link,
			"available": true,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkRejected transitions a pending request to rejected. Conditional like
// MarkCompleted; rejecting an already-terminal row affects zero rows and
// returns ErrNotFound, which the service layer maps to idempotent success
// when the row is already rejected.
func MarkRejected(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Model(&domain.Request{}).
		Where("id = ? AND status = ?", id, domain.StatusPending).
		Updates(map[string]any{
			"status":    domain.StatusRejected,
			"link":      nil,
			"available": false,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
