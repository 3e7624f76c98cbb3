package user

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/podsync-labs/podsync-storage/internal/api"
	"github.com/podsync-labs/podsync-storage/internal/metrics"
)

type Server struct {
	sp *Service
}

func NewServer(s *Service) *Server {
	return &Server{
		sp: s,
	}
}

func (s *Server) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/v1/auth/login", s.login).Methods(http.MethodPost)
	r.HandleFunc("/v1/auth/logout", s.logout).Methods(http.MethodPost)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token   uuid.UUID `json:"token"`
	Expires time.Time `json:"expires"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var err error
	start := time.Now()
	defer func() {
		metrics.CollectRequestsMetric("auth_login", r.Method, err, start)
	}()

	var req loginRequest
	if err = json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Validation(w)

		return
	}

	if req.Username == "" || req.Password == "" {
		api.Validation(w)

		return
	}

	session, err := s.sp.Login(req.Username, req.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		api.Unauthorized(w)

		return
	}

	if err != nil {
		log.Error().Err(err).Str("username", req.Username).Msg("login")
		api.Internal(w)

		return
	}

	api.WriteJSON(w, http.StatusOK, loginResponse{
		Token:   session.Token,
		Expires: session.Expires,
	})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	var err error
	start := time.Now()
	defer func() {
		metrics.CollectRequestsMetric("auth_logout", r.Method, err, start)
	}()

	token, err := uuid.Parse(bearerToken(r))
	if err != nil {
		api.Unauthorized(w)

		return
	}

	if err = s.sp.Logout(token); err != nil {
		log.Error().Err(err).Msg("logout")
		api.Internal(w)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}
