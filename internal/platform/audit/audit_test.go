package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicops/clinicops/internal/platform/auth"
)

type stubLister struct {
	gotFilter Filter
	gotLimit  int
	gotOffset int
	items     []*Entry
	total     int
	err       error
}

func (s *stubLister) List(_ context.Context, f Filter, limit, offset int) ([]*Entry, int, error) {
	s.gotFilter = f
	s.gotLimit = limit
	s.gotOffset = offset
	return s.items, s.total, s.err
}

func adminContext(e *echo.Echo, target string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	actor := auth.Actor{ID: uuid.New(), Email: "admin@clinic.local", Role: auth.RoleAdmin}
	req = req.WithContext(auth.WithActor(req.Context(), actor))
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestListEntriesFilters(t *testing.T) {
	e := echo.New()
	lister := &stubLister{
		items: []*Entry{{ID: uuid.New(), Action: ActionCreate, ObjectType: "appointments"}},
		total: 1,
	}
	h := NewHandler(lister)

	c, rec := adminContext(e, "/api/v1/audit-log?action=CREATE&object_type=appointments&limit=5")
	if err := h.ListEntries(c); err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if lister.gotFilter.Action == nil || *lister.gotFilter.Action != ActionCreate {
		t.Errorf("action filter not forwarded: %+v", lister.gotFilter)
	}
	if lister.gotFilter.ObjectType == nil || *lister.gotFilter.ObjectType != "appointments" {
		t.Errorf("object_type filter not forwarded: %+v", lister.gotFilter)
	}
	if lister.gotLimit != 5 {
		t.Errorf("limit = %d, want 5", lister.gotLimit)
	}

	var body struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Total != 1 {
		t.Errorf("total = %d, want 1", body.Total)
	}
}

func TestListEntriesRejectsUnknownAction(t *testing.T) {
	e := echo.New()
	h := NewHandler(&stubLister{})

	c, _ := adminContext(e, "/api/v1/audit-log?action=TRUNCATE")
	err := h.ListEntries(c)
	if err == nil {
		t.Fatal("expected error for unknown action")
	}
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("err = %v, want 400 HTTPError", err)
	}
}

func TestOriginContextRoundTrip(t *testing.T) {
	o := Origin{IP: "203.0.113.9", UserAgent: "clinic-app/2.1"}
	ctx := WithOrigin(context.Background(), o)
	if got := OriginFromContext(ctx); got != o {
		t.Errorf("origin = %+v, want %+v", got, o)
	}
	if got := OriginFromContext(context.Background()); got != (Origin{}) {
		t.Errorf("bare context yielded %+v, want zero origin", got)
	}
}

func TestNormalizeBackfillsOrigin(t *testing.T) {
	ctx := WithOrigin(context.Background(), Origin{IP: "203.0.113.9", UserAgent: "clinic-app/2.1"})

	e := Entry{Action: ActionRead, ObjectType: "visit_note"}
	e.normalize(ctx)
	if e.ID == uuid.Nil {
		t.Error("id not generated")
	}
	if e.CreatedAt.IsZero() {
		t.Error("created_at not stamped")
	}
	if e.IP != "203.0.113.9" || e.UserAgent != "clinic-app/2.1" {
		t.Errorf("origin not backfilled: ip=%q ua=%q", e.IP, e.UserAgent)
	}

	// Explicit fields win over the context.
	e = Entry{IP: "10.0.0.1", UserAgent: "curl/8.0"}
	e.normalize(ctx)
	if e.IP != "10.0.0.1" || e.UserAgent != "curl/8.0" {
		t.Errorf("explicit origin overwritten: ip=%q ua=%q", e.IP, e.UserAgent)
	}
}

func TestRecorderFunc(t *testing.T) {
	var got Entry
	rec := RecorderFunc(func(_ context.Context, e Entry) { got = e })
	rec.Record(context.Background(), Entry{Action: ActionDelete, ObjectType: "rooms"})
	if got.Action != ActionDelete || got.ObjectType != "rooms" {
		t.Errorf("entry not forwarded: %+v", got)
	}
}
