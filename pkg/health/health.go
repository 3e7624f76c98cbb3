package health

import (
	"net/http"

	process "github.com/s-larionov/process-manager"
)

func NewHealthCheckServer(listen, path string, handler http.HandlerFunc) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc(path, handler)

	return &http.Server{
		Addr:    listen,
		Handler: mux,
	}
}

// DefaultHandler reports 200 while every registered worker is running.
func DefaultHandler(manager *process.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if manager.AliveWorkersCount() != manager.WorkersCount() {
			w.WriteHeader(http.StatusServiceUnavailable)

			return
		}

		w.WriteHeader(http.StatusOK)
	}
}
