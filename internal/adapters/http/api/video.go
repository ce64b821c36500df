package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okian/apas/internal/domain/analysis"
	"github.com/okian/apas/internal/domain/model"
	"github.com/okian/apas/internal/domain/pipeline"
	"github.com/okian/apas/internal/domain/types"
)

const (
	msgNoFile     = "No file uploaded"
	msgFailed     = "Error processing video"
	msgTooLarge   = "File too large"
	msgQueued     = "Video queued for analysis"
	msgAnalyzed   = "Video analyzed successfully"
	msgInProgress = "Analysis still in progress"

	multipartMemory = 8 << 20
)

// VideoDependencies covers uploads and analysis jobs.
type VideoDependencies interface {
	UploadVideo(ctx context.Context, claims *pipeline.Claims, up types.Upload) (types.UploadResult, error)
	Job(ctx context.Context, claims *pipeline.Claims, id string) (model.AnalysisJob, error)
	WaitJob(ctx context.Context, claims *pipeline.Claims, id string, timeout time.Duration) (model.AnalysisJob, error)
	Journey(ctx context.Context, claims *pipeline.Claims) (types.Session, error)
}

// VideoHandler handles video analysis requests.
type VideoHandler struct {
	deps      VideoDependencies
	maxUpload int64
	wait      time.Duration
}

// NewVideoHandler creates a new video handler.
func NewVideoHandler(deps VideoDependencies, maxUpload int64, wait time.Duration) *VideoHandler {
	return &VideoHandler{deps: deps, maxUpload: maxUpload, wait: wait}
}

// analysisData is the data member of a finished analysis. The result fields
// sit at the top level next to the job id and rank.
type analysisData struct {
	*analysis.Result
	JobID   string         `json:"jobId"`
	Status  string         `json:"status"`
	Rank    int            `json:"rank,omitempty"`
	Session *types.Session `json:"session,omitempty"`
}

func envelope(w http.ResponseWriter, status int, success bool, msg string, data any) {
	writeJSON(w, status, types.VideoEnvelope{Success: success, Message: msg, Data: data})
}

// HandleUpload handles POST /api/v1/video-analysis. The multipart field is
// "video". With ?async=true the job is returned as soon as it is queued;
// otherwise the handler waits for the score.
func (h *VideoHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	const op = "api.video_upload"
	ctx := r.Context()
	claims := claimsFrom(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			envelope(w, http.StatusRequestEntityTooLarge, false, msgTooLarge, nil)
			return
		}
		envelope(w, http.StatusBadRequest, false, msgNoFile, nil)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("video")
	if err != nil {
		envelope(w, http.StatusBadRequest, false, msgNoFile, nil)
		return
	}
	defer file.Close()
	if header.Size > h.maxUpload {
		envelope(w, http.StatusRequestEntityTooLarge, false, msgTooLarge, nil)
		return
	}

	res, err := h.deps.UploadVideo(ctx, claims, types.Upload{
		Name:           header.Filename,
		Body:           file,
		Size:           header.Size,
		ContentType:    header.Header.Get("Content-Type"),
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		h.uploadFailed(ctx, w, op, err)
		return
	}

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		envelope(w, http.StatusAccepted, true, msgQueued, res)
		return
	}

	job, err := h.deps.WaitJob(ctx, claims, res.Job.ID, h.wait)
	if err != nil {
		h.uploadFailed(ctx, w, op, err)
		return
	}
	switch job.Status {
	case model.JobCompleted:
		data := analysisData{Result: job.Result, JobID: job.ID, Status: string(job.Status), Rank: job.Rank}
		if sess, err := h.deps.Journey(ctx, claims); err == nil {
			data.Session = &sess
		}
		envelope(w, http.StatusOK, true, msgAnalyzed, data)
	case model.JobFailed:
		envelope(w, http.StatusInternalServerError, false, msgFailed, job)
	default:
		envelope(w, http.StatusAccepted, true, msgInProgress, types.UploadResult{Job: job, Session: res.Session})
	}
}

func (h *VideoHandler) uploadFailed(ctx context.Context, w http.ResponseWriter, op string, err error) {
	f := classify(err)
	switch {
	case errors.Is(err, types.ErrNoFile):
		envelope(w, http.StatusBadRequest, false, msgNoFile, nil)
	case f.status >= http.StatusInternalServerError:
		logFailure(ctx, op, f.status, err)
		envelope(w, f.status, false, msgFailed, nil)
	default:
		envelope(w, f.status, false, err.Error(), types.ErrorBody{Code: f.code, Message: err.Error()})
	}
}

// HandleGetJob handles GET /api/v1/video-analysis/jobs/{id}.
func (h *VideoHandler) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_job"
	job, err := h.deps.Job(r.Context(), claimsFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}
