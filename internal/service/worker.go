package service

import (
	"context"
	"encoding/json"

	appErrors "github.com/unclebandit/emailace-backend/internal/errors"
	"github.com/unclebandit/emailace-backend/internal/logger"
	"github.com/unclebandit/emailace-backend/internal/queue"
)

// CampaignSender is the part of CampaignService the worker needs.
type CampaignSender interface {
	Send(ctx context.Context, id string, opts SendOptions) (*SendResult, error)
}

// Worker runs queued campaign sends
type Worker struct {
	Campaigns CampaignSender
	Log       *logger.Logger
}

// Constructor
func NewWorker(campaigns CampaignSender, log *logger.Logger) *Worker {
	if log == nil {
		log = logger.Nop()
	}
	return &Worker{Campaigns: campaigns, Log: log.WithComponent("worker")}
}

// Start subscribes the worker to the campaign send topic.
func (w *Worker) Start(q queue.Queue) error {
	return q.Subscribe(queue.CampaignSendTopic, w.Handle)
}

// Handle processes one SendJob. Errors a retry cannot fix are logged and
// acknowledged; anything else is returned so the queue retries.
func (w *Worker) Handle(ctx context.Context, body []byte) error {
	var job SendJob
	if err := json.Unmarshal(body, &job); err != nil || job.CampaignID == "" {
		w.Log.Error().Err(err).Bytes("body", body).Msg("invalid send job")
		return nil
	}

	log := w.Log.WithCampaign(job.CampaignID)
	log.Info().Bool("personalize", job.Personalize).Msg("processing queued campaign send")

	result, err := w.Campaigns.Send(ctx, job.CampaignID, SendOptions{Personalize: job.Personalize})
	if err != nil {
		switch appErrors.KindOf(err) {
		case appErrors.KindValidation, appErrors.KindNotFound, appErrors.KindConfiguration:
			log.Error().Err(err).Str("kind", string(appErrors.KindOf(err))).Msg("campaign send rejected")
			return nil
		}
		log.Warn().Err(err).Msg("campaign send failed")
		return err
	}

	log.Info().Int("delivered", result.Delivered).Int("failed", result.Failed).Msg("campaign send completed")
	return nil
}
