package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"lootbot/pkg/logx"
)

type fakeRegistry struct {
	added []int64
	count int
}

func (r *fakeRegistry) Add(_ context.Context, chatID int64) error {
	r.added = append(r.added, chatID)
	return nil
}

func (r *fakeRegistry) Count(context.Context) (int, error) { return r.count, nil }

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()
	s := New(":0", &fakeRegistry{count: 5}, logx.Nop())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("content type = %q", ct)
	}
	var body struct {
		Status     string `json:"status"`
		Recipients int    `json:"recipients"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body.Status != "ok" || body.Recipients != 5 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestRegistrationForm(t *testing.T) {
	t.Parallel()
	reg := &fakeRegistry{}
	s := New(":0", reg, logx.Nop())

	form := url.Values{"chat_id": {"42"}}
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(reg.added) != 1 || reg.added[0] != 42 {
		t.Fatalf("expected chat 42 registered, got %v", reg.added)
	}
}

func TestRegistrationRejectsBadChatID(t *testing.T) {
	t.Parallel()
	reg := &fakeRegistry{}
	s := New(":0", reg, logx.Nop())

	form := url.Values{"chat_id": {"not-a-number"}}
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(reg.added) != 0 {
		t.Fatalf("nothing should be registered, got %v", reg.added)
	}
}

func TestIndexServesForm(t *testing.T) {
	t.Parallel()
	s := New(":0", &fakeRegistry{}, logx.Nop())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `name="chat_id"`) {
		t.Fatal("index page missing registration form")
	}
}
