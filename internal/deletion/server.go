package deletion

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/podsync-labs/podsync-storage/internal/api"
	"github.com/podsync-labs/podsync-storage/internal/metrics"
	"github.com/podsync-labs/podsync-storage/internal/user"
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
	r.HandleFunc("/v1/subscriptions/{guid}", s.create).Methods(http.MethodDelete)
	r.HandleFunc("/v1/deletions/{deletion_id}", s.status).Methods(http.MethodGet)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var err error
	start := time.Now()
	defer func() {
		metrics.CollectRequestsMetric("deletions_create", r.Method, err, start)
	}()

	u, ok := user.FromContext(r.Context())
	if !ok {
		api.Unauthorized(w)

		return
	}

	guid, err := uuid.Parse(mux.Vars(r)["guid"])
	if err != nil {
		api.Validation(w)

		return
	}

	id, err := s.sp.Create(u.ID, guid)
	if errors.Is(err, ErrNotFound) {
		api.NotFound(w)

		return
	}

	if err != nil {
		log.Error().Err(err).Str("guid", guid.String()).Msg("create deletion task")
		api.Internal(w)

		return
	}

	api.WriteJSON(w, http.StatusCreated, NewReceived(id))
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	var err error
	start := time.Now()
	defer func() {
		metrics.CollectRequestsMetric("deletions_status", r.Method, err, start)
	}()

	u, ok := user.FromContext(r.Context())
	if !ok {
		api.Unauthorized(w)

		return
	}

	id, err := strconv.ParseInt(mux.Vars(r)["deletion_id"], 10, 64)
	if err != nil {
		api.Validation(w)

		return
	}

	view, err := s.sp.GetStatus(u.ID, id)
	if errors.Is(err, ErrNotFound) {
		api.NotFound(w)

		return
	}

	if err != nil {
		log.Error().Err(err).Int64("deletion_id", id).Msg("get deletion status")
		api.Internal(w)

		return
	}

	api.WriteJSON(w, http.StatusOK, view)
}
