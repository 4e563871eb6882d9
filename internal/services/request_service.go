// Package services – RequestService
//
// This file implements the RequestService, the one authority allowed to
// mutate request status. It validates titles, enforces the duplicate policy,
// drives the pending → completed/rejected state machine through conditional
// repository updates, and notifies the original requester when their request
// is fulfilled.
//
// Service-level errors (e.g., ErrDuplicateRequest) are returned for
// predictable cases so the bot flows can map them to chat replies
// consistently.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// request/requester identifiers.
package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-request-bot/internal/domain"
	"github.com/tbourn/go-request-bot/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RequestRepo defines the repository contract required by RequestService.
// Implementations are responsible for persistence of request records.
type RequestRepo interface {
	// CreateRequest inserts a new pending request row.
	CreateRequest(ctx context.Context, db *gorm.DB, requesterID string, chatID int64, title string, catalogID *int64) (*domain.Request, error)

	// GetRequest fetches a request by primary key.
	GetRequest(ctx context.Context, db *gorm.DB, id string) (*domain.Request, error)

	// GetByRequesterTitle returns the newest record for (requester, title).
	GetByRequesterTitle(ctx context.Context, db *gorm.DB, requesterID, title string) (*domain.Request, error)

	// GetNewestPendingByTitle resolves a title to its newest pending record.
	GetNewestPendingByTitle(ctx context.Context, db *gorm.DB, title string) (*domain.Request, error)

	// ListRequests returns filtered records, newest first.
	ListRequests(ctx context.Context, db *gorm.DB, f repo.Filter) ([]domain.Request, error)

	// CountRequests and ListRequestsPage support paginated listings.
	CountRequests(ctx context.Context, db *gorm.DB, f repo.Filter) (int64, error)
	ListRequestsPage(ctx context.Context, db *gorm.DB, f repo.Filter, offset, limit int) ([]domain.Request, error)

	// MarkCompleted / MarkRejected perform the conditional status updates.
	MarkCompleted(ctx context.Context, db *gorm.DB, id, link string) error
	MarkRejected(ctx context.Context, db *gorm.DB, id string) error
}

// Notifier delivers a fulfillment notice to the requester's chat. The bot's
// messaging channel satisfies this; tests substitute a fake.
type Notifier interface {
	NotifyAvailable(ctx context.Context, chatID int64, title, link string) error
}

// RequestService owns the request lifecycle. All status mutations in the
// process go through this type so the terminal-state invariant is enforced
// in one place.
type RequestService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the request repository used by this service.
	Repo RequestRepo
	// Notifier receives completion notices; may be nil in tests.
	Notifier Notifier

	// TitleMaxRunes caps accepted titles by rune length.
	TitleMaxRunes int
}

// NewRequestService constructs a RequestService with sane defaults.
func NewRequestService(db *gorm.DB, r RequestRepo, n Notifier) *RequestService {
	return &RequestService{
		DB:            db,
		Repo:          r,
		Notifier:      n,
		TitleMaxRunes: 200,
	}
}

// Create records a new pending request for (requesterID, title).
//
// Duplicate policy:
//   - an existing pending record for the same requester and exact title
//     yields ErrDuplicateRequest and nothing is inserted;
//   - an existing completed record yields the prior record together with
//     ErrAlreadyAvailable so the caller can show the stored link (the user
//     may still not re-request; they already have the outcome);
//   - a prior rejected record does not block a fresh request.
func (s *RequestService) Create(ctx context.Context, requesterID string, chatID int64, title string, catalogID *int64) (*domain.Request, error) {
	tr := otel.Tracer("services/RequestService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.String("requester.id", requesterID)),
	)
	defer span.End()

	title, err := s.validTitle(title)
	if err != nil {
		return nil, err
	}

	prior, err := s.Repo.GetByRequesterTitle(ctx, s.DB, requesterID, title)
	switch {
	case err == nil:
		switch prior.Status {
		case domain.StatusPending:
			return nil, ErrDuplicateRequest
		case domain.StatusCompleted:
			return prior, ErrAlreadyAvailable
		}
		// rejected: fall through and create a fresh record
	case errors.Is(err, repo.ErrNotFound):
		// no prior record
	default:
		return nil, err
	}

	return s.Repo.CreateRequest(ctx, s.DB, requesterID, chatID, title, catalogID)
}

// Complete transitions the request identified by id from pending to
// completed, storing the fulfillment link, and notifies the requester.
// Returns ErrRequestNotFound when the record is missing or already terminal.
func (s *RequestService) Complete(ctx context.Context, id, link string) (*domain.Request, error) {
	tr := otel.Tracer("services/RequestService")
	ctx, span := tr.Start(ctx, "Complete",
		trace.WithAttributes(attribute.String("request.id", id)),
	)
	defer span.End()

	link = strings.TrimSpace(link)
	if link == "" {
		return nil, ErrInvalidLink
	}

	if err := s.Repo.MarkCompleted(ctx, s.DB, id, link); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	r, err := s.Repo.GetRequest(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, r)
	return r, nil
}

// CompleteByTitle resolves title to its newest pending record and completes
// it. Title-based identification is weak (two requesters can share a title)
// and is kept for the operator command surface; buttons carry record ids and
// go through Complete directly.
func (s *RequestService) CompleteByTitle(ctx context.Context, title, link string) (*domain.Request, error) {
	r, err := s.Repo.GetNewestPendingByTitle(ctx, s.DB, strings.TrimSpace(title))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return s.Complete(ctx, r.ID, link)
}

// Reject transitions the request identified by id to rejected. Rejecting an
// already-rejected record is an idempotent success; a completed record is
// terminal and yields ErrRequestNotFound.
func (s *RequestService) Reject(ctx context.Context, id string) (*domain.Request, error) {
	tr := otel.Tracer("services/RequestService")
	ctx, span := tr.Start(ctx, "Reject",
		trace.WithAttributes(attribute.String("request.id", id)),
	)
	defer span.End()

	err := s.Repo.MarkRejected(ctx, s.DB, id)
	if err == nil {
		return s.Repo.GetRequest(ctx, s.DB, id)
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	// Zero rows touched: either missing, already rejected (idempotent), or
	// completed (terminal).
	r, gerr := s.Repo.GetRequest(ctx, s.DB, id)
	if gerr != nil {
		return nil, ErrRequestNotFound
	}
	if r.Status == domain.StatusRejected {
		return r, nil
	}
	return nil, ErrRequestNotFound
}

// RejectByTitle resolves title to its newest pending record and rejects it.
func (s *RequestService) RejectByTitle(ctx context.Context, title string) (*domain.Request, error) {
	r, err := s.Repo.GetNewestPendingByTitle(ctx, s.DB, strings.TrimSpace(title))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return s.Reject(ctx, r.ID)
}

// StatusOf returns the newest record for (requesterID, title), or
// ErrRequestNotFound. Pure read; no side effects.
func (s *RequestService) StatusOf(ctx context.Context, requesterID, title string) (*domain.Request, error) {
	r, err := s.Repo.GetByRequesterTitle(ctx, s.DB, requesterID, strings.TrimSpace(title))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return r, nil
}

// Get fetches a single request by id.
func (s *RequestService) Get(ctx context.Context, id string) (*domain.Request, error) {
	r, err := s.Repo.GetRequest(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return r, nil
}

// List returns the requests matching f, newest first.
func (s *RequestService) List(ctx context.Context, f repo.Filter) ([]domain.Request, error) {
	tr := otel.Tracer("services/RequestService")
	ctx, span := tr.Start(ctx, "List")
	defer span.End()
	return s.Repo.ListRequests(ctx, s.DB, f)
}

// ListPage returns a page of requests matching f and the total count.
// It applies defaults for invalid page/pageSize.
func (s *RequestService) ListPage(ctx context.Context, f repo.Filter, page, pageSize int) ([]domain.Request, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := s.Repo.CountRequests(ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Request{}, 0, nil
	}

	items, err := s.Repo.ListRequestsPage(ctx, s.DB, f, offset, pageSize)
	return items, total, err
}

// notify tells the requester their title is available. Delivery failure is
// logged and swallowed: the data mutation already happened and must not be
// rolled back over a chat hiccup.
func (s *RequestService) notify(ctx context.Context, r *domain.Request) {
	if s.Notifier == nil || r.Link == nil {
		return
	}
	if err := s.Notifier.NotifyAvailable(ctx, r.ChatID, r.Title, *r.Link); err != nil {
		log.Warn().
			Err(err).
			Str("request_id", r.ID).
			Int64("chat_id", r.ChatID).
			Msg("completion notice failed")
	}
}

// validTitle trims and bounds a title.
func (s *RequestService) validTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrInvalidTitle
	}
	if s.TitleMaxRunes > 0 && utf8.RuneCountInString(title) > s.TitleMaxRunes {
		return "", ErrInvalidTitle
	}
	return title, nil
}
