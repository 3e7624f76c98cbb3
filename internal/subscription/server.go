package subscription

import (
	"encoding/json"
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
	r.HandleFunc("/v1/subscriptions", s.list).Methods(http.MethodGet)
	r.HandleFunc("/v1/subscriptions", s.add).Methods(http.MethodPost)
	r.HandleFunc("/v1/subscriptions/{guid}", s.get).Methods(http.MethodGet)
	r.HandleFunc("/v1/subscriptions/{guid}", s.update).Methods(http.MethodPatch)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	var err error
	start := time.Now()
	defer func() {
		metrics.CollectRequestsMetric("subscriptions_list", r.Method, err, start)
	}()

	u, ok := user.FromContext(r.Context())
	if !ok {
		api.Unauthorized(w)

		return
	}

	page := parseInt(r.URL.Query().Get("page"))
	perPage := parseInt(r.URL.Query().Get("per_page"))
	since, ok := parseSince(r.URL.Query().Get("since"))
	if !ok {
		api.Validation(w)

		return
	}

	result, err := s.sp.List(u.ID, page, perPage, since)
	if err != nil {
		// a broken listing degrades to an empty one, the sync
		// protocol treats that as "nothing to do"
		log.Error().Err(err).Int64("user_id", u.ID).Msg("list subscriptions")
		api.WriteJSON(w, http.StatusOK, EmptyPage())

		return
	}

	api.WriteJSON(w, http.StatusOK, result)
}

type addRequest struct {
	Subscriptions []FeedRequest `json:"subscriptions"`
}

func (s *Server) add(w http.ResponseWriter, r *http.Request) {
	var err error
	start := time.Now()
	defer func() {
		metrics.CollectRequestsMetric("subscriptions_add", r.Method, err, start)
	}()

	u, ok := user.FromContext(r.Context())
	if !ok {
		api.Unauthorized(w)

		return
	}

	var req addRequest
	if err = json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Validation(w)

		return
	}

	api.WriteJSON(w, http.StatusOK, s.sp.Add(u.ID, req.Subscriptions))
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	var err error
	start := time.Now()
	defer func() {
		metrics.CollectRequestsMetric("subscriptions_get", r.Method, err, start)
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

	rec, err := s.sp.GetByGUID(u.ID, guid)
	if errors.Is(err, ErrNotFound) {
		api.NotFound(w)

		return
	}

	if err != nil {
		log.Error().Err(err).Str("guid", guid.String()).Msg("get subscription")
		api.Internal(w)

		return
	}

	if rec.Deleted != nil {
		api.Gone(w)

		return
	}

	api.WriteJSON(w, http.StatusOK, rec)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	var err error
	start := time.Now()
	defer func() {
		metrics.CollectRequestsMetric("subscriptions_update", r.Method, err, start)
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

	var req UpdateRequest
	if err = json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Validation(w)

		return
	}

	updated, err := s.sp.Update(u.ID, guid, req)
	if errors.Is(err, ErrValidation) {
		api.Validation(w)

		return
	}

	if errors.Is(err, ErrNotFound) {
		api.NotFound(w)

		return
	}

	if err != nil {
		log.Error().Err(err).Str("guid", guid.String()).Msg("update subscription")
		api.Internal(w)

		return
	}

	api.WriteJSON(w, http.StatusOK, updated)
}

func parseInt(raw string) int64 {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}

	return v
}

// parseSince accepts RFC3339 timestamps and unix epoch seconds.
func parseSince(raw string) (*time.Time, bool) {
	if raw == "" {
		return nil, true
	}

	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return &ts, true
	}

	if epoch, err := strconv.ParseInt(raw, 10, 64); err == nil {
		ts := time.Unix(epoch, 0).UTC()

		return &ts, true
	}

	return nil, false
}
