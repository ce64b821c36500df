package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/apas/internal/adapters/repository"
	"github.com/okian/apas/internal/domain/analysis"
	"github.com/okian/apas/internal/domain/model"
	"github.com/okian/apas/internal/domain/pipeline"
	"github.com/okian/apas/internal/domain/types"
	"github.com/okian/apas/pkg/logger"
	"github.com/okian/apas/pkg/metrics"
)

// UploadVideo stores the file and queues it for analysis. The upload stage
// change, the job record and the enqueue happen in one progress update, so
// a full queue leaves the athlete where they were. A repeated
// Idempotency-Key returns the job it started.
func (s *Service) UploadVideo(ctx context.Context, claims *pipeline.Claims, up types.Upload) (types.UploadResult, error) {
	if !s.running() {
		return types.UploadResult{}, types.ErrNotStarted
	}
	if up.Body == nil || up.Name == "" {
		return types.UploadResult{}, types.ErrNoFile
	}

	jobID := uuid.NewString()
	if up.IdempotencyKey != "" {
		if prev, seen := s.deduper.Claim(ctx, up.IdempotencyKey, jobID); seen {
			metrics.RecordUploadDuplicate()
			return s.duplicateUpload(ctx, claims, prev)
		}
	}
	release := func() {
		if up.IdempotencyKey != "" {
			s.deduper.Release(ctx, up.IdempotencyKey)
		}
	}

	p, err := s.current(ctx, claims)
	if err != nil {
		release()
		return types.UploadResult{}, err
	}
	if !p.Stage.Allows(pipeline.UploadVideo) {
		release()
		metrics.RecordRejectedSkip()
		return types.UploadResult{}, fmt.Errorf("%w: %s on %s", pipeline.ErrInvalidTransition, pipeline.UploadVideo, p.Stage)
	}

	video, err := s.videos.Save(ctx, up.Name, up.Body, up.Size, up.ContentType)
	if err != nil {
		release()
		metrics.RecordErrorByComponent("storage", "save")
		return types.UploadResult{}, err
	}
	metrics.RecordUploadBytes(video.Size)

	now := s.now().UTC()
	first := analysis.Steps[0]
	job := model.AnalysisJob{
		ID:        jobID,
		UserID:    claims.Subject,
		Video:     video,
		Status:    model.JobPending,
		Step:      first.Label,
		Progress:  first.Percent,
		CreatedAt: now,
		UpdatedAt: now,
	}
	p, err = s.advance(ctx, claims.Subject, claims, only(pipeline.UploadVideo), func(p *model.Progress) error {
		job.Sport = p.Sport
		if err := s.jobs.Put(ctx, job); err != nil {
			return err
		}
		return s.queue.Enqueue(ctx, job)
	})
	if err != nil {
		release()
		if derr := s.videos.Delete(ctx, video.Key); derr != nil {
			s.log().Warn(ctx, "orphan upload not removed", logger.String("key", video.Key), logger.Error(derr))
		}
		s.markFailed(ctx, job.ID, err)
		return types.UploadResult{}, err
	}

	s.log().Info(ctx, "video queued for analysis",
		logger.String("job_id", job.ID),
		logger.String("user_id", p.UserID),
		logger.String("key", video.Key),
		logger.Any("size", video.Size),
	)

	sess, err := s.refresh(ctx, p.UserID)
	if err != nil {
		return types.UploadResult{}, err
	}
	return types.UploadResult{Job: job, Session: sess}, nil
}

func (s *Service) duplicateUpload(ctx context.Context, claims *pipeline.Claims, jobID string) (types.UploadResult, error) {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return types.UploadResult{}, err
	}
	if job.UserID != claims.Subject {
		return types.UploadResult{}, types.ErrDuplicateUpload
	}
	sess, err := s.refresh(ctx, claims.Subject)
	if err != nil {
		return types.UploadResult{}, err
	}
	return types.UploadResult{Job: job, Duplicate: true, Session: sess}, nil
}

// markFailed closes a job whose upload was rolled back. Unknown jobs are ignored.
func (s *Service) markFailed(ctx context.Context, id string, cause error) {
	_, err := s.jobs.Update(ctx, id, func(j *model.AnalysisJob) {
		j.Status, j.Error = model.JobFailed, cause.Error()
		j.UpdatedAt = s.now().UTC()
	})
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.log().Warn(ctx, "job not marked failed", logger.String("job_id", id), logger.Error(err))
	}
}

// Job returns an analysis job owned by the caller.
func (s *Service) Job(ctx context.Context, claims *pipeline.Claims, id string) (model.AnalysisJob, error) {
	job, err := s.jobs.Get(ctx, id)
	if err != nil {
		return model.AnalysisJob{}, err
	}
	if job.UserID != claims.Subject {
		return model.AnalysisJob{}, fmt.Errorf("job %s: %w", id, repository.ErrNotFound)
	}
	return job, nil
}

// WaitJob blocks until the job finishes or timeout passes, then returns
// its latest state. A timeout is not an error.
func (s *Service) WaitJob(ctx context.Context, claims *pipeline.Claims, id string, timeout time.Duration) (model.AnalysisJob, error) {
	if _, err := s.Job(ctx, claims, id); err != nil {
		return model.AnalysisJob{}, err
	}
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	job, err := s.jobs.Wait(wctx, id)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return s.jobs.Get(ctx, id)
	}
	return job, err
}

// jobHandler applies analysis outcomes to the pipeline, roster and leaderboard.
type jobHandler struct {
	s *Service
}

// Scored moves the athlete to the leaderboard stage and submits the video
// score. The leaderboard write happens inside the progress update, so a
// failed write leaves the athlete at the uploaded stage.
func (h jobHandler) Scored(ctx context.Context, job model.AnalysisJob, res analysis.Result) (int, error) {
	s := h.s
	u, location := athleteLocation(ctx, s.users, job.UserID)
	entry := model.LeaderboardEntry{
		AthleteID: job.UserID,
		Name:      u.FullName(),
		Sport:     s.catalog.DisplayName(job.Sport),
		Score:     res.OverallScore,
		Tier:      res.Tier,
		Location:  location,
	}
	if sport, err := s.catalog.Sport(job.Sport); err == nil {
		entry.Sport = sport.Name
	}

	_, err := s.advance(ctx, job.UserID, nil, only(pipeline.ScoreVideo, pipeline.PlaceLeaderboard), func(*model.Progress) error {
		_, err := s.board.Submit(ctx, entry)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.updateAthlete(ctx, job.UserID, func(a *model.Athlete) {
		a.VideoAnalysisScore = res.OverallScore
		a.Tier = res.Tier
	})

	// The athlete is already placed; a failed lookup only loses the rank echo.
	row, err := s.board.Rank(ctx, job.UserID)
	if err != nil {
		s.log().Warn(ctx, "rank lookup after placement failed",
			logger.String("job_id", job.ID),
			logger.String("user_id", job.UserID),
			logger.Error(err),
		)
		return 0, nil
	}
	return row.Rank, nil
}

// Failed returns the athlete to the fitness-cleared stage so they can upload again.
func (h jobHandler) Failed(ctx context.Context, job model.AnalysisJob, cause error) {
	s := h.s
	if _, err := s.advance(ctx, job.UserID, nil, only(pipeline.AnalysisFailed), nil); err != nil {
		s.log().Warn(ctx, "failed analysis not rolled back",
			logger.String("job_id", job.ID),
			logger.String("user_id", job.UserID),
			logger.Error(err),
		)
		return
	}
	s.log().Warn(ctx, "analysis failed, upload reopened",
		logger.String("job_id", job.ID),
		logger.Error(cause),
	)
}
