package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

const msgNotAuthenticated = "Authentication credentials were not provided."

type Resolver interface {
	Resolve(ctx context.Context, token string) (Principal, error)
}

type sessionLookup interface {
	Lookup(ctx context.Context, token string) (int64, error)
}

type employeeFinder interface {
	FindByUser(ctx context.Context, userID int64) (Principal, error)
}

// SessionResolver maps a token to a user and the user to its company.
type SessionResolver struct {
	Sessions  sessionLookup
	Employees employeeFinder
}

func (r *SessionResolver) Resolve(ctx context.Context, token string) (Principal, error) {
	userID, err := r.Sessions.Lookup(ctx, token)
	if err != nil {
		return Principal{}, err
	}
	return r.Employees.FindByUser(ctx, userID)
}

// Middleware rejects requests without a valid token and an employee record with 403.
func Middleware(res Resolver, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				forbidden(w, msgNotAuthenticated)
				return
			}
			p, err := res.Resolve(r.Context(), token)
			switch {
			case errors.Is(err, ErrNoSession), errors.Is(err, ErrNoEmployee):
				forbidden(w, msgNotAuthenticated)
				return
			case err != nil:
				log.Error().Err(err).Msg("resolve principal")
				writeDetail(w, http.StatusInternalServerError, "Internal Server Error")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func bearerToken(h string) string {
	fields := strings.Fields(h)
	if len(fields) != 2 {
		return ""
	}
	switch strings.ToLower(fields[0]) {
	case "bearer", "token":
		return fields[1]
	}
	return ""
}

func forbidden(w http.ResponseWriter, msg string) {
	writeDetail(w, http.StatusForbidden, msg)
}

func writeDetail(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": msg})
}
