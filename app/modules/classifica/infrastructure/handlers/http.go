package classificahandlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	classificaservice "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/application"
	classificadomain "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/domain"
	classificaqueue "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/infrastructure/queue"
	"github.com/Black-And-White-Club/pinfall-import/internal/observability"
	"github.com/go-chi/chi/v5"
)

// uploadField is the multipart field carrying a classifica file.
const uploadField = "file"

// HandlePreview parses a classifica and returns the proposed matches.
// It accepts a JSON PreviewRequest or a multipart upload.
func (h *ClassificaHandlers) HandlePreview(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ClassificaHandlers.HandlePreview")
	defer span.End()
	r = r.WithContext(ctx)

	var req classificaservice.PreviewRequest
	if isMultipart(r) {
		src, _, err := h.readUpload(w, r)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		req.Source = src
	} else if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	preview, err := h.service.Preview(ctx, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

// HandleCommit replaces a tournament's results synchronously.
func (h *ClassificaHandlers) HandleCommit(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ClassificaHandlers.HandleCommit")
	defer span.End()
	r = r.WithContext(ctx)

	req, err := h.readCommitRequest(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.service.Commit(ctx, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "Classifica committed",
		observability.CorrelationAttr(ctx),
		"tournament_id", result.TournamentID,
		"saved", result.Saved,
		"unmatched", len(result.Unmatched),
	)
	writeJSON(w, http.StatusOK, result)
}

// enqueueResponse acknowledges a scheduled commit.
type enqueueResponse struct {
	JobID int64  `json:"job_id"`
	State string `json:"state"`
}

// HandleEnqueueCommit schedules a commit on the job queue.
func (h *ClassificaHandlers) HandleEnqueueCommit(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ClassificaHandlers.HandleEnqueueCommit")
	defer span.End()
	r = r.WithContext(ctx)

	if h.queue == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "background commits are disabled"})
		return
	}

	req, err := h.readCommitRequest(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.TournamentID) == "" {
		h.writeError(w, r, fmt.Errorf("%w: tournament_id is required", classificaservice.ErrInvalidRequest))
		return
	}

	jobID, err := h.queue.EnqueueCommit(ctx, classificaqueue.CommitJob{
		Source:       req.Source,
		TournamentID: req.TournamentID,
		Overrides:    req.Overrides,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "Commit enqueued",
		observability.CorrelationAttr(ctx),
		"tournament_id", req.TournamentID,
		"job_id", jobID,
	)
	w.Header().Set("Location", fmt.Sprintf("/api/classifica/jobs/%d", jobID))
	writeJSON(w, http.StatusAccepted, enqueueResponse{JobID: jobID, State: "available"})
}

// HandleGetJob reports the state of a background commit.
func (h *ClassificaHandlers) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.queue == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "background commits are disabled"})
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "jobID"), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, r, fmt.Errorf("%w: invalid job id", classificaservice.ErrInvalidRequest))
		return
	}

	job, err := h.queue.GetJob(ctx, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// HandleCreateTournament registers a tournament to import into.
func (h *ClassificaHandlers) HandleCreateTournament(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ClassificaHandlers.HandleCreateTournament")
	defer span.End()
	r = r.WithContext(ctx)

	var req classificaservice.CreateTournamentRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	info, err := h.service.CreateTournament(ctx, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/classifica/tournaments/"+info.ID)
	writeJSON(w, http.StatusCreated, info)
}

// HandleGetResults returns a tournament's committed results.
func (h *ClassificaHandlers) HandleGetResults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	records, err := h.service.GetResults(ctx, chi.URLParam(r, "tournamentID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if records == nil {
		records = []classificadomain.ResultRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// HandleHealth is the liveness probe.
func (h *ClassificaHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readCommitRequest reads a JSON CommitRequest or a multipart upload with
// tournament_id and an optional JSON "overrides" field.
func (h *ClassificaHandlers) readCommitRequest(w http.ResponseWriter, r *http.Request) (classificaservice.CommitRequest, error) {
	var req classificaservice.CommitRequest
	if !isMultipart(r) {
		err := h.decodeJSON(w, r, &req)
		return req, err
	}

	src, form, err := h.readUpload(w, r)
	if err != nil {
		return req, err
	}
	req.Source = src
	req.TournamentID = form.Get("tournament_id")
	if raw := form.Get("overrides"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Overrides); err != nil {
			return req, fmt.Errorf("%w: overrides: %v", classificaservice.ErrInvalidRequest, err)
		}
	}
	return req, nil
}

// readUpload extracts the uploaded file, or the "url"/"text" fields when no
// file was sent, from a multipart form.
func (h *ClassificaHandlers) readUpload(w http.ResponseWriter, r *http.Request) (classificadomain.Source, formValues, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		return classificadomain.Source{}, nil, fmt.Errorf("%w: %v", classificaservice.ErrInvalidRequest, err)
	}
	form := formValues(r.MultipartForm.Value)

	file, header, err := r.FormFile(uploadField)
	if errors.Is(err, http.ErrMissingFile) {
		return classificadomain.Source{URL: form.Get("url"), Text: form.Get("text")}, form, nil
	}
	if err != nil {
		return classificadomain.Source{}, nil, fmt.Errorf("%w: %v", classificaservice.ErrInvalidRequest, err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return classificadomain.Source{}, nil, fmt.Errorf("%w: %v", classificaservice.ErrInvalidRequest, err)
	}
	return classificadomain.Source{FileName: header.Filename, Content: content}, form, nil
}

func (h *ClassificaHandlers) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", classificaservice.ErrInvalidRequest, err)
	}
	return nil
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// formValues reads the first value of a multipart field.
type formValues map[string][]string

func (f formValues) Get(key string) string {
	if v := f[key]; len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}
