package proof

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"drumtrack-service/internal/db"
	"drumtrack-service/internal/logging"
	"drumtrack-service/internal/mes"
	"drumtrack-service/internal/metrics"
	"drumtrack-service/internal/models"
	"drumtrack-service/internal/recorder"
	"drumtrack-service/internal/scheduler"
	"drumtrack-service/internal/uploader"
)

// Service drives the mandatory proof-of-action flow: the operator
// acknowledges an alert, the camera terminal records within the remaining
// window, and the video is uploaded and reported to the MES. Any failure
// along the way puts the group back to pending so the next tick re-alerts it.
type Service struct {
	rec    recorder.Recorder
	up     uploader.Uploader
	store  *db.DB
	sched  *scheduler.Scheduler
	client mes.Client
	logger *logging.Logger
	drumID string

	// maxSeconds supplies the server-configured recording ceiling; the
	// remaining window overrides it downward, never upward.
	maxSeconds func() int
}

// New wires the proof flow collaborators.
func New(rec recorder.Recorder, up uploader.Uploader, store *db.DB, sched *scheduler.Scheduler, client mes.Client, logger *logging.Logger, drumID string, maxSeconds func() int) *Service {
	return &Service{
		rec:        rec,
		up:         up,
		store:      store,
		sched:      sched,
		client:     client,
		logger:     logger,
		drumID:     drumID,
		maxSeconds: maxSeconds,
	}
}

// Capture acknowledges the alerted group, stops the alarm, and starts the
// recording. The ceiling is the smaller of the remaining window and the
// configured maximum; it is returned so the terminal can show the countdown.
// The recording itself runs in the background.
func (s *Service) Capture(confirmTime string) (int, error) {
	budget, err := s.sched.Acknowledge(confirmTime)
	if err != nil {
		return 0, err
	}
	if m := s.maxSeconds(); m > 0 && m < budget {
		budget = m
	}
	go s.record(confirmTime, budget)
	return budget, nil
}

// record runs detached from the API request: a half-completed recording or
// upload continues to completion and reports back through the upload record,
// even if the operator navigates away.
func (s *Service) record(confirmTime string, budget int) {
	ctx := context.Background()

	path, err := s.rec.Start(ctx, budget)
	if err != nil {
		s.logger.Errorf("Recording failed for group %s: %v", confirmTime, err)
		s.sched.Reopen(confirmTime)
		return
	}

	now := time.Now()
	rec := models.VideoUpload{
		ID:          uuid.New(),
		DrumID:      s.drumID,
		ConfirmTime: confirmTime,
		LocalPath:   path,
		Status:      "pending",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateVideoUpload(ctx, rec); err != nil {
		s.logger.Errorf("Failed to persist upload record: %v", err)
	}
	s.finish(ctx, rec)
}

func (s *Service) finish(ctx context.Context, rec models.VideoUpload) {
	ref, err := s.up.Upload(ctx, rec.LocalPath)
	if err == nil {
		// the video reference is only attached once the MES has accepted it
		if attachErr := s.client.AttachVideo(ctx, s.drumID, rec.ConfirmTime, ref); attachErr != nil {
			err = fmt.Errorf("upload stored but MES attach failed: %w", attachErr)
		}
	}

	if err != nil {
		metrics.Uploads.WithLabelValues("failed").Inc()
		s.logger.Errorf("Proof upload failed for group %s: %v", rec.ConfirmTime, err)
		if dbErr := s.store.UpdateVideoUploadStatus(ctx, rec.ID, "failed", "", err.Error()); dbErr != nil {
			s.logger.Errorf("Failed to mark upload failed: %v", dbErr)
		}
		// no video ref attached; the group stays unsatisfied and re-alerts
		s.sched.Reopen(rec.ConfirmTime)
		return
	}

	metrics.Uploads.WithLabelValues("uploaded").Inc()
	if dbErr := s.store.UpdateVideoUploadStatus(ctx, rec.ID, "uploaded", ref, ""); dbErr != nil {
		s.logger.Errorf("Failed to mark upload done: %v", dbErr)
	}
	s.sched.Resolve(rec.ConfirmTime, ref)
}

// Retry re-runs the upload of the newest failed attempt for a group. Manual
// path for the operator after a notified failure.
func (s *Service) Retry(ctx context.Context, confirmTime string) error {
	rec, err := s.store.GetLatestFailedUpload(ctx, s.drumID, confirmTime)
	if err != nil {
		return err
	}
	go s.finish(context.Background(), rec)
	return nil
}
