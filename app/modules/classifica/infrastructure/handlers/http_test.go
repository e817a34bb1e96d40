package classificahandlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	classificaservice "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/application"
	classificadomain "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/domain"
	classificaqueue "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/infrastructure/queue"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

const tournamentID = "6f1c2d4e-0000-4000-8000-000000000001"

func newTestHandlers(svc *FakeService, queue JobQueue) *ClassificaHandlers {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tracer := noop.NewTracerProvider().Tracer("test")
	return NewClassificaHandlers(svc, queue, logger, tracer, 1<<20)
}

func multipartBody(t *testing.T, fields map[string]string, fileName string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile(uploadField, fileName)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestClassificaHandlers_HandlePreview(t *testing.T) {
	tests := []struct {
		name        string
		request     func(t *testing.T) *http.Request
		setup       func(*FakeService)
		wantStatus  int
		wantTrace   []string
		checkSource func(t *testing.T, src classificadomain.Source)
	}{
		{
			name: "json text source",
			request: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/api/classifica/preview", strings.NewReader(`{"source":{"text":"1\tROSSI MARIO\t200"}}`))
			},
			wantStatus: http.StatusOK,
			wantTrace:  []string{"Preview"},
			checkSource: func(t *testing.T, src classificadomain.Source) {
				assert.Equal(t, "1\tROSSI MARIO\t200", src.Text)
			},
		},
		{
			name: "multipart upload",
			request: func(t *testing.T) *http.Request {
				body, contentType := multipartBody(t, nil, "classifica.csv", []byte("Pos;Atleta;G1\n1;ROSSI MARIO;200\n"))
				req := httptest.NewRequest(http.MethodPost, "/api/classifica/preview", body)
				req.Header.Set("Content-Type", contentType)
				return req
			},
			wantStatus: http.StatusOK,
			wantTrace:  []string{"Preview"},
			checkSource: func(t *testing.T, src classificadomain.Source) {
				assert.Equal(t, "classifica.csv", src.FileName)
				assert.Equal(t, "Pos;Atleta;G1\n1;ROSSI MARIO;200\n", string(src.Content))
			},
		},
		{
			name: "multipart url field",
			request: func(t *testing.T) *http.Request {
				body, contentType := multipartBody(t, map[string]string{"url": "https://example.org/classifica.php"}, "", nil)
				req := httptest.NewRequest(http.MethodPost, "/api/classifica/preview", body)
				req.Header.Set("Content-Type", contentType)
				return req
			},
			wantStatus: http.StatusOK,
			wantTrace:  []string{"Preview"},
			checkSource: func(t *testing.T, src classificadomain.Source) {
				assert.Equal(t, "https://example.org/classifica.php", src.URL)
				assert.Empty(t, src.Content)
			},
		},
		{
			name: "malformed json",
			request: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/api/classifica/preview", strings.NewReader(`{"source":`))
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "unknown field",
			request: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/api/classifica/preview", strings.NewReader(`{"src":{}}`))
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "fetch failure",
			request: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/api/classifica/preview", strings.NewReader(`{"source":{"url":"https://example.org/x"}}`))
			},
			setup: func(s *FakeService) {
				s.PreviewFunc = func(ctx context.Context, req classificaservice.PreviewRequest) (*classificadomain.PreviewResult, error) {
					return nil, &classificaservice.ImportError{Code: classificaservice.ErrFetchFailed, Source: req.Source.URL}
				}
			},
			wantStatus: http.StatusBadGateway,
			wantTrace:  []string{"Preview"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &FakeService{}
			var got classificadomain.Source
			svc.PreviewFunc = func(ctx context.Context, req classificaservice.PreviewRequest) (*classificadomain.PreviewResult, error) {
				got = req.Source
				return &classificadomain.PreviewResult{
					TournamentName: "Torneo",
					Candidates:     []classificadomain.MatchCandidate{},
					Unmatched:      []string{},
					NeedsReview:    []string{},
				}, nil
			}
			if tt.setup != nil {
				tt.setup(svc)
			}

			rr := httptest.NewRecorder()
			newTestHandlers(svc, nil).HandlePreview(rr, tt.request(t))

			assert.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			assert.Equal(t, tt.wantTrace, svc.Trace())
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			if tt.checkSource != nil {
				tt.checkSource(t, got)
			}
		})
	}
}

func TestClassificaHandlers_HandleCommit(t *testing.T) {
	t.Run("json request", func(t *testing.T) {
		svc := &FakeService{}
		var got classificaservice.CommitRequest
		svc.CommitFunc = func(ctx context.Context, req classificaservice.CommitRequest) (*classificadomain.CommitResult, error) {
			got = req
			return &classificadomain.CommitResult{TournamentID: req.TournamentID, Saved: 3, Unmatched: []string{}}, nil
		}

		body := fmt.Sprintf(`{"source":{"text":"x"},"tournament_id":%q,"overrides":{"ROSSI M.":""}}`, tournamentID)
		rr := httptest.NewRecorder()
		newTestHandlers(svc, nil).HandleCommit(rr, httptest.NewRequest(http.MethodPost, "/api/classifica/commit", strings.NewReader(body)))

		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Equal(t, tournamentID, got.TournamentID)
		assert.Equal(t, map[string]string{"ROSSI M.": ""}, got.Overrides)

		var result classificadomain.CommitResult
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&result))
		assert.Equal(t, 3, result.Saved)
	})

	t.Run("multipart request with overrides", func(t *testing.T) {
		svc := &FakeService{}
		var got classificaservice.CommitRequest
		svc.CommitFunc = func(ctx context.Context, req classificaservice.CommitRequest) (*classificadomain.CommitResult, error) {
			got = req
			return &classificadomain.CommitResult{TournamentID: req.TournamentID}, nil
		}

		body, contentType := multipartBody(t, map[string]string{
			"tournament_id": tournamentID,
			"overrides":     `{"BIANCHI LUCA":"p-1"}`,
		}, "risultati.xlsx", []byte("PK"))
		req := httptest.NewRequest(http.MethodPost, "/api/classifica/commit", body)
		req.Header.Set("Content-Type", contentType)

		rr := httptest.NewRecorder()
		newTestHandlers(svc, nil).HandleCommit(rr, req)

		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Equal(t, tournamentID, got.TournamentID)
		assert.Equal(t, "risultati.xlsx", got.Source.FileName)
		assert.Equal(t, map[string]string{"BIANCHI LUCA": "p-1"}, got.Overrides)
	})

	t.Run("malformed overrides", func(t *testing.T) {
		svc := &FakeService{}
		body, contentType := multipartBody(t, map[string]string{
			"tournament_id": tournamentID,
			"overrides":     `not json`,
		}, "risultati.csv", []byte("1;ROSSI"))
		req := httptest.NewRequest(http.MethodPost, "/api/classifica/commit", body)
		req.Header.Set("Content-Type", contentType)

		rr := httptest.NewRecorder()
		newTestHandlers(svc, nil).HandleCommit(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Empty(t, svc.Trace())
	})

	t.Run("conflict", func(t *testing.T) {
		svc := &FakeService{
			CommitFunc: func(ctx context.Context, req classificaservice.CommitRequest) (*classificadomain.CommitResult, error) {
				return nil, &classificaservice.ImportError{Code: classificaservice.ErrCommitConflict, Source: req.TournamentID}
			},
		}
		rr := httptest.NewRecorder()
		newTestHandlers(svc, nil).HandleCommit(rr, httptest.NewRequest(http.MethodPost, "/api/classifica/commit", strings.NewReader(`{"source":{"text":"x"},"tournament_id":"t"}`)))
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("internal errors are not leaked", func(t *testing.T) {
		svc := &FakeService{
			CommitFunc: func(ctx context.Context, req classificaservice.CommitRequest) (*classificadomain.CommitResult, error) {
				return nil, errors.New("Commit: pq: connection refused")
			},
		}
		rr := httptest.NewRecorder()
		newTestHandlers(svc, nil).HandleCommit(rr, httptest.NewRequest(http.MethodPost, "/api/classifica/commit", strings.NewReader(`{"source":{"text":"x"},"tournament_id":"t"}`)))

		require.Equal(t, http.StatusInternalServerError, rr.Code)
		var body errorResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		assert.Equal(t, http.StatusText(http.StatusInternalServerError), body.Error)
	})
}

func TestClassificaHandlers_HandleEnqueueCommit(t *testing.T) {
	t.Run("queue disabled", func(t *testing.T) {
		rr := httptest.NewRecorder()
		newTestHandlers(&FakeService{}, nil).HandleEnqueueCommit(rr, httptest.NewRequest(http.MethodPost, "/api/classifica/jobs", strings.NewReader(`{}`)))
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})

	t.Run("missing tournament", func(t *testing.T) {
		queue := &FakeJobQueue{}
		rr := httptest.NewRecorder()
		newTestHandlers(&FakeService{}, queue).HandleEnqueueCommit(rr, httptest.NewRequest(http.MethodPost, "/api/classifica/jobs", strings.NewReader(`{"source":{"text":"x"}}`)))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Empty(t, queue.enqueued)
	})

	t.Run("accepted", func(t *testing.T) {
		queue := &FakeJobQueue{
			EnqueueCommitFunc: func(ctx context.Context, job classificaqueue.CommitJob) (int64, error) {
				return 42, nil
			},
		}
		svc := &FakeService{}
		body := fmt.Sprintf(`{"source":{"url":"https://example.org/c"},"tournament_id":%q}`, tournamentID)

		rr := httptest.NewRecorder()
		newTestHandlers(svc, queue).HandleEnqueueCommit(rr, httptest.NewRequest(http.MethodPost, "/api/classifica/jobs", strings.NewReader(body)))

		require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
		assert.Equal(t, "/api/classifica/jobs/42", rr.Header().Get("Location"))
		require.Len(t, queue.enqueued, 1)
		assert.Equal(t, "https://example.org/c", queue.enqueued[0].Source.URL)
		assert.Equal(t, tournamentID, queue.enqueued[0].TournamentID)
		assert.Empty(t, svc.Trace(), "enqueue must not commit inline")

		var resp enqueueResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, int64(42), resp.JobID)
	})
}

func TestClassificaHandlers_HandleGetJob(t *testing.T) {
	queue := &FakeJobQueue{
		GetJobFunc: func(ctx context.Context, id int64) (*classificaqueue.JobInfo, error) {
			if id == 7 {
				return &classificaqueue.JobInfo{ID: 7, Kind: "classifica_commit", State: "completed"}, nil
			}
			return nil, classificaqueue.ErrJobNotFound
		},
	}

	tests := []struct {
		name       string
		id         string
		wantStatus int
	}{
		{name: "found", id: "7", wantStatus: http.StatusOK},
		{name: "missing", id: "8", wantStatus: http.StatusNotFound},
		{name: "not a number", id: "abc", wantStatus: http.StatusBadRequest},
		{name: "negative", id: "-1", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/classifica/jobs/"+tt.id, nil), "jobID", tt.id)
			rr := httptest.NewRecorder()
			newTestHandlers(&FakeService{}, queue).HandleGetJob(rr, req)
			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}

func TestClassificaHandlers_HandleCreateTournament(t *testing.T) {
	svc := &FakeService{
		CreateTournamentFunc: func(ctx context.Context, req classificaservice.CreateTournamentRequest) (*classificaservice.TournamentInfo, error) {
			if req.Name == "" {
				return nil, fmt.Errorf("%w: tournament name is required", classificaservice.ErrInvalidRequest)
			}
			return &classificaservice.TournamentInfo{ID: tournamentID, Name: req.Name}, nil
		},
	}
	h := newTestHandlers(svc, nil)

	rr := httptest.NewRecorder()
	h.HandleCreateTournament(rr, httptest.NewRequest(http.MethodPost, "/api/classifica/tournaments", strings.NewReader(`{"name":"Open di Roma"}`)))
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "/api/classifica/tournaments/"+tournamentID, rr.Header().Get("Location"))

	rr = httptest.NewRecorder()
	h.HandleCreateTournament(rr, httptest.NewRequest(http.MethodPost, "/api/classifica/tournaments", strings.NewReader(`{"name":""}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestClassificaHandlers_HandleGetResults(t *testing.T) {
	t.Run("empty results encode as a list", func(t *testing.T) {
		req := withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "tournamentID", tournamentID)
		rr := httptest.NewRecorder()
		newTestHandlers(&FakeService{}, nil).HandleGetResults(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `[]`, rr.Body.String())
	})

	t.Run("unknown tournament", func(t *testing.T) {
		svc := &FakeService{
			GetResultsFunc: func(ctx context.Context, id string) ([]classificadomain.ResultRecord, error) {
				return nil, fmt.Errorf("%w: %s", classificaservice.ErrTournamentNotFound, id)
			},
		}
		req := withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "tournamentID", "nope")
		rr := httptest.NewRecorder()
		newTestHandlers(svc, nil).HandleGetResults(rr, req)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: classificaservice.ErrInvalidSource, want: http.StatusBadRequest},
		{err: fmt.Errorf("%w: name", classificaservice.ErrInvalidRequest), want: http.StatusBadRequest},
		{err: classificaservice.ErrTournamentNotFound, want: http.StatusNotFound},
		{err: classificaqueue.ErrJobNotFound, want: http.StatusNotFound},
		{err: &classificaservice.ImportError{Code: classificaservice.ErrCommitConflict}, want: http.StatusConflict},
		{err: &classificaservice.ImportError{Code: classificaservice.ErrNoTabularDataFound}, want: http.StatusUnprocessableEntity},
		{err: &classificaservice.ImportError{Code: classificaservice.ErrFetchFailed}, want: http.StatusBadGateway},
		{err: context.DeadlineExceeded, want: http.StatusGatewayTimeout},
		{err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
