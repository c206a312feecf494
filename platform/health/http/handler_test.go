package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandler(t *testing.T) {
	tests := []struct {
		name       string
		readiness  Readiness
		wantStatus int
		wantBody   string
	}{
		{name: "no readiness", readiness: nil, wantStatus: http.StatusOK, wantBody: `"ok"`},
		{
			name:       "ready",
			readiness:  func(ctx context.Context) error { return nil },
			wantStatus: http.StatusOK,
			wantBody:   `"ok"`,
		},
		{
			name:       "not ready",
			readiness:  func(ctx context.Context) error { return errors.New("postgres: connection refused") },
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Handler(tt.readiness)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			require.Equal(t, tt.wantStatus, rec.Code)
			require.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}
