package user

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/podsync-labs/podsync-storage/internal/api"
)

type contextKey struct{}

func FromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(contextKey{}).(*User)

	return u, ok
}

// Authenticate resolves the Authorization header to a user and stores
// it in the request context. Requests without a valid session are
// rejected with 401 before the handler runs.
func (s *Service) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := uuid.Parse(bearerToken(r))
		if err != nil {
			api.Unauthorized(w)

			return
		}

		u, err := s.GetBySessionToken(token)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			api.Unauthorized(w)

			return
		}

		if err != nil {
			log.Error().Err(err).Msg("resolve session")
			api.Internal(w)

			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, u)))
	})
}

func bearerToken(r *http.Request) string {
	raw := r.Header.Get("Authorization")

	return strings.TrimSpace(strings.TrimPrefix(raw, "Bearer"))
}
