// Request read endpoints.
//
// This file exposes the operational REST surface over the request ledger:
//   - GET /requests       (paginated listing with status/requester/title filters)
//   - GET /requests/{id}  (single record)
//
// Handlers are transport-thin: they validate and normalize inputs, delegate
// to the request service, and translate sentinel errors to HTTP responses.
// All writes stay on the conversational surface; this API is read-only.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-request-bot/internal/domain"
	"github.com/tbourn/go-request-bot/internal/repo"
	"github.com/tbourn/go-request-bot/internal/services"
	"github.com/tbourn/go-request-bot/internal/utils"
)

// RequestReader is the slice of the request service the ops API consumes.
type RequestReader interface {
	Get(ctx context.Context, id string) (*domain.Request, error)
	ListPage(ctx context.Context, f repo.Filter, page, pageSize int) ([]domain.Request, int64, error)
}

// Pagination carries paging metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListRequestsResponse wraps a page of requests and pagination information.
type ListRequestsResponse struct {
	Requests   []domain.Request `json:"requests"`
	Pagination Pagination       `json:"pagination"`
}

// Handlers groups the ops API endpoints. It depends on an abstract service
// interface to keep transport concerns separate from business logic.
type Handlers struct {
	reqSvc RequestReader
}

// New constructs a Handlers instance bound to the given service.
func New(reqSvc RequestReader) *Handlers {
	return &Handlers{reqSvc: reqSvc}
}

// clampPagination parses page/page_size from query parameters, applies sane
// defaults and caps, and returns the validated (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	page = utils.NormalizePage(utils.AtoiDefault(c.Query("page"), 1))
	pageSize = utils.NormalizePageSize(utils.AtoiDefault(c.Query("page_size"), utils.DefaultPageSize))
	return
}

// ListRequests returns a paginated list of tracked requests, newest first.
// Optional query filters: status (pending|completed|rejected), requester_id,
// title (exact match).
func (h *Handlers) ListRequests(c *gin.Context) {
	ctx := c.Request.Context()

	f := repo.Filter{
		RequesterID: c.Query("requester_id"),
		Title:       c.Query("title"),
	}
	switch status := c.Query("status"); status {
	case "", domain.StatusPending, domain.StatusCompleted, domain.StatusRejected:
		f.Status = status
	default:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status must be one of: pending, completed, rejected")
		return
	}

	page, pageSize := clampPagination(c)

	items, total, err := h.reqSvc.ListPage(ctx, f, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := utils.TotalPages(total, pageSize)
	ok(c, http.StatusOK, ListRequestsResponse{
		Requests: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetRequest returns a single tracked request by id.
func (h *Handlers) GetRequest(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request id must be a UUID")
		return
	}

	r, err := h.reqSvc.Get(ctx, id)
	if err != nil {
		switch err {
		case services.ErrRequestNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "request not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, r)
}
