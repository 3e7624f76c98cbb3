package devicelog

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/podsync-labs/podsync-storage/internal/api"
	"github.com/podsync-labs/podsync-storage/internal/metrics"
	"github.com/podsync-labs/podsync-storage/internal/user"
)

// Server exposes the legacy gpodder device endpoints. Paths carry the
// username; it must match the authenticated user.
type Server struct {
	sp *Service
}

func NewServer(s *Service) *Server {
	return &Server{
		sp: s,
	}
}

func (s *Server) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/2/devices/{username}", s.listDevices).Methods(http.MethodGet)
	r.HandleFunc("/api/2/devices/{username}/{device}", s.updateDevice).Methods(http.MethodPost)
	r.HandleFunc("/api/2/subscriptions/{username}/{device}", s.getChanges).Methods(http.MethodGet)
	r.HandleFunc("/api/2/subscriptions/{username}/{device}", s.uploadChanges).Methods(http.MethodPost)
}

func requestUser(w http.ResponseWriter, r *http.Request) (*user.User, bool) {
	u, ok := user.FromContext(r.Context())
	if !ok {
		api.Unauthorized(w)

		return nil, false
	}

	if u.Username != mux.Vars(r)["username"] {
		api.Unauthorized(w)

		return nil, false
	}

	return u, true
}

func (s *Server) listDevices(w http.ResponseWriter, r *http.Request) {
	var err error
	start := time.Now()
	defer func() {
		metrics.CollectRequestsMetric("devices_list", r.Method, err, start)
	}()

	u, ok := requestUser(w, r)
	if !ok {
		return
	}

	devices, err := s.sp.ListDevices(u.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", u.ID).Msg("list devices")
		api.Internal(w)

		return
	}

	api.WriteJSON(w, http.StatusOK, devices)
}

type deviceUpdateRequest struct {
	Caption string     `json:"caption"`
	Type    DeviceType `json:"type"`
}

func (s *Server) updateDevice(w http.ResponseWriter, r *http.Request) {
	var err error
	start := time.Now()
	defer func() {
		metrics.CollectRequestsMetric("devices_update", r.Method, err, start)
	}()

	u, ok := requestUser(w, r)
	if !ok {
		return
	}

	var req deviceUpdateRequest
	if err = json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Validation(w)

		return
	}

	err = s.sp.UpdateDevice(u.ID, mux.Vars(r)["device"], req.Caption, req.Type)
	if errors.Is(err, ErrValidation) {
		api.Validation(w)

		return
	}

	if err != nil {
		log.Error().Err(err).Int64("user_id", u.ID).Msg("update device")
		api.Internal(w)

		return
	}

	w.WriteHeader(http.StatusOK)
}

func (s *Server) getChanges(w http.ResponseWriter, r *http.Request) {
	var err error
	start := time.Now()
	defer func() {
		metrics.CollectRequestsMetric("changes_get", r.Method, err, start)
	}()

	u, ok := requestUser(w, r)
	if !ok {
		return
	}

	since := int64(0)
	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			api.Validation(w)

			return
		}
	}

	changes, err := s.sp.ChangesSince(u.ID, mux.Vars(r)["device"], since)
	if errors.Is(err, ErrDeviceNotFound) {
		api.NotFound(w)

		return
	}

	if err != nil {
		log.Error().Err(err).Int64("user_id", u.ID).Msg("get changes")
		api.Internal(w)

		return
	}

	api.WriteJSON(w, http.StatusOK, changes)
}

type uploadRequest struct {
	Add    []string `json:"add"`
	Remove []string `json:"remove"`
}

type uploadResponse struct {
	Timestamp int64 `json:"timestamp"`
}

func (s *Server) uploadChanges(w http.ResponseWriter, r *http.Request) {
	var err error
	start := time.Now()
	defer func() {
		metrics.CollectRequestsMetric("changes_upload", r.Method, err, start)
	}()

	u, ok := requestUser(w, r)
	if !ok {
		return
	}

	var req uploadRequest
	if err = json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Validation(w)

		return
	}

	ts, err := s.sp.UploadChanges(u.ID, mux.Vars(r)["device"], req.Add, req.Remove)
	if errors.Is(err, ErrDeviceNotFound) {
		api.NotFound(w)

		return
	}

	if errors.Is(err, ErrValidation) {
		api.Validation(w)

		return
	}

	if err != nil {
		log.Error().Err(err).Int64("user_id", u.ID).Msg("upload changes")
		api.Internal(w)

		return
	}

	api.WriteJSON(w, http.StatusOK, uploadResponse{Timestamp: ts})
}
