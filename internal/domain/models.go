// Package domain defines the persistence models for media requests. These
// types are mapped with GORM and form the core data layer of the request bot.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Request status values. A request starts as pending and ends in exactly one
// of the two terminal states; no transition ever leaves completed or rejected.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusRejected  = "rejected"
)

// Request represents one user's ask for one title. The title is stored
// verbatim as the requester typed it; CatalogID is only set when the
// requester disambiguated against the external catalog.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - RequesterID: Telegram user id of the requester; indexed for /mylist.
//   - ChatID: chat to notify when the request is fulfilled.
//   - Title: free-text title as supplied (not normalized).
//   - CatalogID: optional external catalog id from disambiguation.
//   - Status: pending | completed | rejected (enforced by DB constraint).
//   - Link: fulfillment URL; non-NULL iff Status == completed.
//   - Available: denormalized mirror of Status == completed, kept for
//     fast filtering; must always agree with Status.
//   - CreatedAt: set once at creation, never mutated; the descending sort
//     key for every listing.
//   - DeletedAt: soft deletion marker (retains row for audit/history).
type Request struct {
	ID          string         `json:"id"           gorm:"type:char(36);primaryKey"`
	RequesterID string         `json:"requester_id" gorm:"type:varchar(64);not null;index:idx_requester"`
	ChatID      int64          `json:"chat_id"      gorm:"not null"`
	Title       string         `json:"title"        gorm:"type:text;not null;index:idx_title"`
	CatalogID   *int64         `json:"catalog_id,omitempty"`
	Status      string         `json:"status"       gorm:"type:varchar(16);not null;default:'pending';check:status IN ('pending','completed','rejected')"`
	Link        *string        `json:"link,omitempty" gorm:"type:text"`
	Available   bool           `json:"available"    gorm:"not null;default:false"`
	CreatedAt   time.Time      `json:"created_at"   gorm:"index:idx_created"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-"            gorm:"index"`
}

// TableName returns the database table name for Request.
func (Request) TableName() string { return "requests" }

// Terminal reports whether the request has reached a final state.
func (r *Request) Terminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusRejected
}
