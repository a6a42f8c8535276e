package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cardboard/internal/model"
	"cardboard/internal/persist"
	"cardboard/internal/store"
)

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	st := store.Store{Dir: t.TempDir()}
	s, err := NewServer(ServerConfig{Backend: st})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s, st
}

func linkCard(id, key string) model.Card {
	now := time.Now().UTC()
	return model.Card{ID: id, Type: model.CardTypeLink, SortKey: key, Content: model.LinkContent{URL: "https://example.com"}, CreatedAt: now, UpdatedAt: now}
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCards_PutGetDelete(t *testing.T) {
	s, st := newTestServer(t)

	rec := do(t, s, http.MethodPut, "/api/pages/page-1/cards", CardsBody{Cards: []model.Card{linkCard("card-a", "i"), linkCard("card-b", "r")}})
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, s, http.MethodGet, "/api/pages/page-1/cards", nil)
	var got CardsBody
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v (%s)", err, rec.Body.String())
	}
	if len(got.Cards) != 2 {
		t.Fatalf("expected 2 cards, got %+v", got.Cards)
	}

	rec = do(t, s, http.MethodDelete, "/api/pages/page-1/cards/card-a", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("DELETE: expected 204, got %d", rec.Code)
	}
	left, _ := st.LoadCards(context.Background(), "page-1")
	if len(left) != 1 || left[0].ID != "card-b" {
		t.Fatalf("expected card-b left, got %+v", left)
	}
}

func TestCards_PutBadBody(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPut, "/api/pages/page-1/cards", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestBeacon_AlwaysAccepted(t *testing.T) {
	s, st := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/pages/page-1/beacon", bytes.NewBufferString("garbage"))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202 for garbage, got %d", rec.Code)
	}

	rec = do(t, s, http.MethodPost, "/api/pages/page-1/beacon", persist.Payload{PageID: "page-1", Cards: []model.Card{linkCard("card-a", "i")}})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	got, _ := st.LoadCards(context.Background(), "page-1")
	if len(got) != 1 {
		t.Fatalf("expected beacon applied, got %+v", got)
	}
}

func TestBeacon_AppliedAfterSenderHangsUp(t *testing.T) {
	s, st := newTestServer(t)

	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(persist.Payload{PageID: "page-1", Cards: []model.Card{linkCard("card-a", "i")}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/pages/page-1/beacon", &buf).WithContext(ctx)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	got, _ := st.LoadCards(context.Background(), "page-1")
	if len(got) != 1 {
		t.Fatalf("accepted beacon should be applied even when the request is cancelled, got %+v", got)
	}
}
