package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-request-bot/internal/domain"
	"github.com/tbourn/go-request-bot/internal/repo"
	"github.com/tbourn/go-request-bot/internal/services"
)

// fakeReader captures call arguments and returns canned results.
type fakeReader struct {
	getID    string
	getOut   *domain.Request
	getErr   error
	lastF    repo.Filter
	lastPage int
	lastSize int
	listOut  []domain.Request
	listN    int64
	listErr  error
}

func (f *fakeReader) Get(ctx context.Context, id string) (*domain.Request, error) {
	f.getID = id
	return f.getOut, f.getErr
}

func (f *fakeReader) ListPage(ctx context.Context, fl repo.Filter, page, pageSize int) ([]domain.Request, int64, error) {
	f.lastF, f.lastPage, f.lastSize = fl, page, pageSize
	return f.listOut, f.listN, f.listErr
}

func newTestRouter(f *fakeReader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := New(f)
	r.GET("/requests", h.ListRequests)
	r.GET("/requests/:id", h.GetRequest)
	return r
}

func sampleRequest() domain.Request {
	return domain.Request{
		ID:          uuid.NewString(),
		RequesterID: "42",
		ChatID:      -100,
		Title:       "Arrival",
		Status:      domain.StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestListRequests_FiltersAndPagination(t *testing.T) {
	f := &fakeReader{listOut: []domain.Request{sampleRequest()}, listN: 41}
	r := newTestRouter(f)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/requests?status=pending&requester_id=42&title=Arrival&page=2&page_size=20", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200, body=%s", w.Code, w.Body.String())
	}
	if f.lastF.Status != domain.StatusPending || f.lastF.RequesterID != "42" || f.lastF.Title != "Arrival" {
		t.Fatalf("filter not forwarded: %+v", f.lastF)
	}
	if f.lastPage != 2 || f.lastSize != 20 {
		t.Fatalf("pagination not forwarded: page=%d size=%d", f.lastPage, f.lastSize)
	}

	var resp ListRequestsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Requests) != 1 || resp.Pagination.Total != 41 {
		t.Fatalf("unexpected body: %+v", resp)
	}
	// 41 rows / 20 per page = 3 pages, page 2 has a next
	if resp.Pagination.TotalPages != 3 || !resp.Pagination.HasNext {
		t.Fatalf("unexpected pagination: %+v", resp.Pagination)
	}
}

func TestListRequests_ClampsBadPaging(t *testing.T) {
	f := &fakeReader{}
	r := newTestRouter(f)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/requests?page=-1&page_size=9999", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", w.Code)
	}
	if f.lastPage != 1 || f.lastSize != 100 {
		t.Fatalf("expected clamped paging, got page=%d size=%d", f.lastPage, f.lastSize)
	}
}

func TestListRequests_RejectsUnknownStatus(t *testing.T) {
	r := newTestRouter(&fakeReader{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/requests?status=archived", nil))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d; want 400", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Code != ErrCodeBadRequest {
		t.Fatalf("code = %q; want %q", resp.Code, ErrCodeBadRequest)
	}
}

func TestListRequests_ServiceError(t *testing.T) {
	f := &fakeReader{listErr: errors.New("db down")}
	r := newTestRouter(f)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/requests", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d; want 500", w.Code)
	}
	var resp ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Code != ErrCodeListFailed {
		t.Fatalf("code = %q; want %q", resp.Code, ErrCodeListFailed)
	}
}

func TestGetRequest_Found(t *testing.T) {
	rec := sampleRequest()
	f := &fakeReader{getOut: &rec}
	r := newTestRouter(f)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/requests/"+rec.ID, nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", w.Code)
	}
	if f.getID != rec.ID {
		t.Fatalf("id not forwarded: %q", f.getID)
	}
	var got domain.Request
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if got.Title != rec.Title {
		t.Fatalf("title = %q; want %q", got.Title, rec.Title)
	}
}

func TestGetRequest_BadIDAndNotFound(t *testing.T) {
	f := &fakeReader{getErr: services.ErrRequestNotFound}
	r := newTestRouter(f)

	// Non-UUID id fails fast without touching the service.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/requests/not-a-uuid", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d; want 400", w.Code)
	}
	if f.getID != "" {
		t.Fatalf("service should not have been called for invalid id")
	}

	// Valid UUID that does not exist.
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/requests/"+uuid.NewString(), nil))
	if w2.Code != http.StatusNotFound {
		t.Fatalf("status = %d; want 404", w2.Code)
	}
	var resp ErrorResponse
	_ = json.Unmarshal(w2.Body.Bytes(), &resp)
	if resp.Code != ErrCodeNotFound {
		t.Fatalf("code = %q; want %q", resp.Code, ErrCodeNotFound)
	}
}
