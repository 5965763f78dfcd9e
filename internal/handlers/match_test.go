// internal/handlers/match_test.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/duelpit/duelpit/internal/gateway"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func TestMatchIDFromPath(t *testing.T) {
	id := uuid.New()
	cases := []struct {
		path string
		want uuid.UUID
		ok   bool
	}{
		{"/match/state/" + id.String(), id, true},
		{"/match/ws/" + id.String() + "/trailing", id, true},
		{"/match/state/not-a-uuid", uuid.Nil, false},
		{"/match/state/", uuid.Nil, false},
	}

	for _, tc := range cases {
		prefix := "/match/state/"
		if tc.path[:10] == "/match/ws/" {
			prefix = "/match/ws/"
		}
		req := httptest.NewRequest("GET", tc.path, nil)
		w := httptest.NewRecorder()
		got, ok := matchIDFromPath(w, req, prefix)
		if ok != tc.ok {
			t.Fatalf("%s: ok = %v, want %v", tc.path, ok, tc.ok)
		}
		if got != tc.want {
			t.Fatalf("%s: id = %v, want %v", tc.path, got, tc.want)
		}
		if !tc.ok && w.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", tc.path, w.Code)
		}
	}
}

func TestWriteActionErrorStatuses(t *testing.T) {
	logger := logrus.New()
	matchID := uuid.New()

	cases := []struct {
		kind gateway.Kind
		want int
	}{
		{gateway.KindUnauthorized, http.StatusForbidden},
		{gateway.KindInvalidRequest, http.StatusBadRequest},
		{gateway.KindCardNotFound, http.StatusUnprocessableEntity},
		{gateway.KindConflict, http.StatusConflict},
		{gateway.KindStoreUnavailable, http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		err := &gateway.ActionError{Kind: tc.kind, Err: errors.New("boom")}
		writeActionError(w, logger, matchID, err)

		if w.Code != tc.want {
			t.Fatalf("kind %s: status = %d, want %d", tc.kind, w.Code, tc.want)
		}
		var body map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("kind %s: bad body: %v", tc.kind, err)
		}
		if body["kind"] != string(tc.kind) {
			t.Fatalf("kind %s: body kind = %q", tc.kind, body["kind"])
		}
	}

	// Non-gateway errors are opaque 500s.
	w := httptest.NewRecorder()
	writeActionError(w, logger, matchID, errors.New("plain"))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("plain error: status = %d, want 500", w.Code)
	}
}
