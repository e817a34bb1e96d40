package classificarouter

import (
	"net/http"
	"net/http/httptest"
	"testing"

	classificahandlers "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/infrastructure/handlers"
	"github.com/Black-And-White-Club/pinfall-import/config"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

// routeRecorder answers every route with the name of the handler it hit.
type routeRecorder struct {
	classificahandlers.Handlers
}

func named(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Handler", name)
		w.WriteHeader(http.StatusOK)
	}
}

func (routeRecorder) HandlePreview(w http.ResponseWriter, r *http.Request) { named("preview")(w, r) }
func (routeRecorder) HandleCommit(w http.ResponseWriter, r *http.Request)  { named("commit")(w, r) }
func (routeRecorder) HandleEnqueueCommit(w http.ResponseWriter, r *http.Request) {
	named("enqueue")(w, r)
}
func (routeRecorder) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	named("job:"+chi.URLParam(r, "jobID"))(w, r)
}
func (routeRecorder) HandleCreateTournament(w http.ResponseWriter, r *http.Request) {
	named("create")(w, r)
}
func (routeRecorder) HandleGetResults(w http.ResponseWriter, r *http.Request) {
	named("results:"+chi.URLParam(r, "tournamentID"))(w, r)
}
func (routeRecorder) HandleHealth(w http.ResponseWriter, r *http.Request) { named("health")(w, r) }

func TestRegisterHTTPRoutes(t *testing.T) {
	mux := chi.NewRouter()
	RegisterHTTPRoutes(mux, routeRecorder{}, config.HTTPConfig{RatePerSecond: 100, RateBurst: 100})

	tests := []struct {
		method      string
		path        string
		wantHandler string
		wantStatus  int
	}{
		{method: http.MethodGet, path: "/healthz", wantHandler: "health", wantStatus: http.StatusOK},
		{method: http.MethodPost, path: "/api/classifica/preview", wantHandler: "preview", wantStatus: http.StatusOK},
		{method: http.MethodPost, path: "/api/classifica/commit", wantHandler: "commit", wantStatus: http.StatusOK},
		{method: http.MethodPost, path: "/api/classifica/jobs", wantHandler: "enqueue", wantStatus: http.StatusOK},
		{method: http.MethodGet, path: "/api/classifica/jobs/12", wantHandler: "job:12", wantStatus: http.StatusOK},
		{method: http.MethodPost, path: "/api/classifica/tournaments", wantHandler: "create", wantStatus: http.StatusOK},
		{method: http.MethodGet, path: "/api/classifica/tournaments/abc/results", wantHandler: "results:abc", wantStatus: http.StatusOK},
		{method: http.MethodGet, path: "/api/classifica/preview", wantStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantHandler, rr.Header().Get("X-Handler"))
		})
	}
}
