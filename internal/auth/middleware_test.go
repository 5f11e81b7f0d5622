package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessions map[string]int64

func (f fakeSessions) Lookup(_ context.Context, token string) (int64, error) {
	if token == "boom" {
		return 0, errors.New("redis down")
	}
	id, ok := f[token]
	if !ok {
		return 0, ErrNoSession
	}
	return id, nil
}

type fakeEmployees map[int64]Principal

func (f fakeEmployees) FindByUser(_ context.Context, userID int64) (Principal, error) {
	p, ok := f[userID]
	if !ok {
		return Principal{}, ErrNoEmployee
	}
	return p, nil
}

func newTestHandler() http.Handler {
	res := &SessionResolver{
		Sessions:  fakeSessions{"good": 7, "orphan": 8},
		Employees: fakeEmployees{7: {UserID: 7, Username: "cajero", CompanyID: 3}},
	}
	return Middleware(res, zerolog.New(io.Discard))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := FromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		w.Header().Set("X-Company", strconv.FormatInt(p.CompanyID, 10))
		w.WriteHeader(http.StatusOK)
	}))
}

func TestMiddleware(t *testing.T) {
	h := newTestHandler()
	cases := []struct {
		name   string
		header string
		code   int
	}{
		{"no header", "", http.StatusForbidden},
		{"bad scheme", "Basic abc", http.StatusForbidden},
		{"unknown token", "Bearer nope", http.StatusForbidden},
		{"no employee", "Bearer orphan", http.StatusForbidden},
		{"store failure", "Bearer boom", http.StatusInternalServerError},
		{"bearer", "Bearer good", http.StatusOK},
		{"drf token scheme", "Token good", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/orders/api/add-order/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, tc.code, rec.Code)
			if tc.code == http.StatusOK {
				assert.Equal(t, "3", rec.Header().Get("X-Company"))
			}
			if tc.code == http.StatusForbidden {
				assert.JSONEq(t, `{"detail":"Authentication credentials were not provided."}`, rec.Body.String())
			}
		})
	}
}

func TestPrincipalContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithPrincipal(context.Background(), Principal{UserID: 1, CompanyID: 2})
	p, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(2), p.CompanyID)
}
