// internal/service/campaign_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/unclebandit/emailace-backend/internal/email"
	appErrors "github.com/unclebandit/emailace-backend/internal/errors"
	"github.com/unclebandit/emailace-backend/internal/logger"
	"github.com/unclebandit/emailace-backend/internal/model"
	"github.com/unclebandit/emailace-backend/internal/queue"
	"github.com/unclebandit/emailace-backend/internal/repository"
)

// CampaignService drives a campaign from draft through dispatch to reply tracking.
// Mailer, Drafts, Replies and Queue are optional; operations that need a
// missing collaborator fail with a configuration error before changing state.
type CampaignService struct {
	CampaignRepo  repository.CampaignRepositoryInterface
	CandidateRepo repository.CandidateRepositoryInterface
	ListRepo      repository.EmailListRepositoryInterface
	TemplateRepo  repository.TemplateRepositoryInterface

	Mailer  email.Sender
	Drafts  DraftGenerator
	Replies ReplyClassifier
	Queue   queue.Queue
	Log     *logger.Logger

	MailTimeout time.Duration
	Concurrency int
	Now         func() time.Time
}

type CreateCampaignInput struct {
	Name           string `json:"name"`
	CandidateID    string `json:"candidate_id"`
	EmailListID    string `json:"email_list_id"`
	TemplateID     string `json:"template_id"`
	JobDescription string `json:"job_description"`
}

type SendOptions struct {
	// Personalize replaces the rendered body with a generated draft per recipient.
	Personalize bool `json:"personalize"`
}

// SendJob is the queued form of a Send call.
type SendJob struct {
	CampaignID  string `json:"campaign_id"`
	Personalize bool   `json:"personalize"`
}

type SendResult struct {
	CampaignID string                `json:"campaign_id"`
	Status     model.CampaignStatus  `json:"status"`
	Delivered  int                   `json:"delivered"`
	Failed     int                   `json:"failed"`
	Logs       []*model.RecipientLog `json:"recipient_logs"`
}

type CampaignDetails struct {
	*model.Campaign
	Logs  []*model.RecipientLog `json:"recipient_logs"`
	Stats map[string]int        `json:"stats"`
}

type RenderedEmail struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// DispatchRequest sends already prepared content to one recipient of a campaign.
type DispatchRequest struct {
	CampaignID     string `json:"campaignId"`
	RecipientEmail string `json:"recipientEmail"`
	Subject        string `json:"subject"`
	Content        string `json:"content"`
}

func (s *CampaignService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *CampaignService) log() *logger.Logger {
	if s.Log == nil {
		return logger.Nop()
	}
	return s.Log
}

// ====================== Create / Update ======================

func (s *CampaignService) CreateCampaign(ctx context.Context, in CreateCampaignInput) (*model.Campaign, error) {
	c := &model.Campaign{Status: model.CampaignDraft}
	if err := s.applyInput(ctx, c, in); err != nil {
		return nil, err
	}
	if err := s.CampaignRepo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.log().Info().Str("campaign_id", c.ID).Str("name", c.Name).Msg("campaign created")
	return c, nil
}

// UpdateCampaign edits a campaign that has not been sent yet.
func (s *CampaignService) UpdateCampaign(ctx context.Context, id string, in CreateCampaignInput) (*model.Campaign, error) {
	c, err := s.CampaignRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != model.CampaignDraft {
		return nil, appErrors.NewValidation("campaign", "only draft campaigns can be edited, campaign is %s", c.Status)
	}
	if err := s.applyInput(ctx, c, in); err != nil {
		return nil, err
	}
	if err := s.CampaignRepo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// applyInput validates the selections and copies them onto c.
func (s *CampaignService) applyInput(ctx context.Context, c *model.Campaign, in CreateCampaignInput) error {
	const op = "campaign"
	in.Name = strings.TrimSpace(in.Name)
	switch {
	case in.Name == "":
		return appErrors.NewValidation(op, "name is required")
	case strings.TrimSpace(in.CandidateID) == "":
		return appErrors.NewValidation(op, "a candidate must be selected")
	case strings.TrimSpace(in.EmailListID) == "":
		return appErrors.NewValidation(op, "an email list must be selected")
	case strings.TrimSpace(in.TemplateID) == "":
		return appErrors.NewValidation(op, "a template must be selected")
	}

	if _, err := s.CandidateRepo.GetByID(ctx, in.CandidateID); err != nil {
		return asValidation(op, "candidate", in.CandidateID, err)
	}
	list, err := s.ListRepo.GetByID(ctx, in.EmailListID)
	if err != nil {
		return asValidation(op, "email list", in.EmailListID, err)
	}
	if len(distinctAddresses(list.Emails)) == 0 {
		return appErrors.NewValidation(op, "email list %q has no addresses", list.Name)
	}
	if _, err := s.TemplateRepo.GetByID(ctx, in.TemplateID); err != nil {
		return asValidation(op, "template", in.TemplateID, err)
	}

	c.Name = in.Name
	c.CandidateID = in.CandidateID
	c.EmailListID = in.EmailListID
	c.TemplateID = in.TemplateID
	c.JobDescription = strings.TrimSpace(in.JobDescription)
	return nil
}

// asValidation turns a missing reference into a validation failure of the enclosing call.
func asValidation(op, entity, id string, err error) error {
	if appErrors.IsKind(err, appErrors.KindNotFound) {
		return appErrors.NewValidation(op, "%s %q does not exist", entity, id)
	}
	return err
}

// ====================== Read ======================

// ListCampaigns fetches campaigns with pagination
func (s *CampaignService) ListCampaigns(ctx context.Context, page, pageSize int, status, candidateID string) ([]model.Campaign, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	ptrs, total, err := s.CampaignRepo.ListCampaigns(ctx, offset, pageSize, status, candidateID)
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		campaigns[i] = *c
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}

	return campaigns, pagination, nil
}

func (s *CampaignService) GetCampaignDetailsWithStats(ctx context.Context, id string) (*CampaignDetails, error) {
	campaign, err := s.CampaignRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	logs, err := s.CampaignRepo.ListRecipientLogs(ctx, id)
	if err != nil {
		return nil, err
	}
	stats, err := s.CampaignRepo.GetCampaignStats(ctx, id)
	if err != nil {
		return nil, err
	}
	return &CampaignDetails{Campaign: campaign, Logs: logs, Stats: stats}, nil
}

func (s *CampaignService) Dashboard(ctx context.Context) (*model.DashboardStats, error) {
	return s.CampaignRepo.Dashboard(ctx)
}

// RenderPreview renders the campaign template for one recipient without sending.
func (s *CampaignService) RenderPreview(ctx context.Context, campaignID, recipient string) (*RenderedEmail, error) {
	if !email.ValidAddress(recipient) {
		return nil, appErrors.NewValidation("preview", "recipient_email is not a valid address")
	}
	campaign, err := s.CampaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	candidate, tmpl, err := s.loadContent(ctx, campaign)
	if err != nil {
		return nil, err
	}
	subject, body := RenderEmail(tmpl.SubjectTemplate, tmpl.BodyTemplate,
		BuildFields(candidate, campaign.JobDescription, recipient, s.now()))
	return &RenderedEmail{Subject: subject, Body: body}, nil
}

func (s *CampaignService) loadContent(ctx context.Context, c *model.Campaign) (*model.Candidate, *model.EmailTemplate, error) {
	const op = "campaign"
	if c.CandidateID == "" || c.TemplateID == "" {
		return nil, nil, appErrors.NewValidation(op, "campaign no longer references a candidate and template")
	}
	candidate, err := s.CandidateRepo.GetByID(ctx, c.CandidateID)
	if err != nil {
		return nil, nil, asValidation(op, "candidate", c.CandidateID, err)
	}
	tmpl, err := s.TemplateRepo.GetByID(ctx, c.TemplateID)
	if err != nil {
		return nil, nil, asValidation(op, "template", c.TemplateID, err)
	}
	return candidate, tmpl, nil
}

// ====================== Send ======================

// checkSendConfig fails fast when a collaborator the send needs is missing.
func (s *CampaignService) checkSendConfig(opts SendOptions) error {
	if s.Mailer == nil {
		return appErrors.NewConfiguration("send", "mail sender is not configured (EMAIL_USER / EMAIL_APP_PASSWORD)", nil)
	}
	if opts.Personalize && s.Drafts == nil {
		return appErrors.NewConfiguration("send", "AI personalization requested but no generative model is configured (GEMINI_API_KEY)", nil)
	}
	return nil
}

// Send snapshots the campaign's email list into pending recipient logs and
// dispatches one email per recipient. Per-recipient failures are recorded on
// the log; a configuration failure reported by the mail service aborts the
// remaining recipients and marks the campaign failed.
func (s *CampaignService) Send(ctx context.Context, id string, opts SendOptions) (*SendResult, error) {
	const op = "send"
	campaign, err := s.CampaignRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if campaign.Status != model.CampaignDraft {
		return nil, appErrors.NewValidation(op, "campaign is %s, only draft campaigns can be sent", campaign.Status)
	}
	if err := s.checkSendConfig(opts); err != nil {
		return nil, err
	}

	candidate, tmpl, err := s.loadContent(ctx, campaign)
	if err != nil {
		return nil, err
	}
	if campaign.EmailListID == "" {
		return nil, appErrors.NewValidation(op, "campaign no longer references an email list")
	}
	list, err := s.ListRepo.GetByID(ctx, campaign.EmailListID)
	if err != nil {
		return nil, asValidation(op, "email list", campaign.EmailListID, err)
	}
	recipients := distinctAddresses(list.Emails)
	if len(recipients) == 0 {
		return nil, appErrors.NewValidation(op, "email list %q has no addresses", list.Name)
	}

	ok, err := s.CampaignRepo.TransitionStatus(ctx, id, model.CampaignDraft, model.CampaignSending)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, appErrors.NewValidation(op, "campaign is already being sent")
	}

	log := s.log().WithCampaign(id)
	// dispatch must finish even if the caller goes away
	ctx = context.WithoutCancel(ctx)

	logs, err := s.CampaignRepo.CreateRecipientLogs(ctx, id, recipients)
	if err != nil {
		s.finish(ctx, id, model.CampaignFailed, log)
		return nil, err
	}
	log.Info().Int("recipients", len(logs)).Bool("personalize", opts.Personalize).Msg("campaign sending")

	fatal := s.dispatchAll(ctx, campaign, candidate, tmpl, logs, opts, log)

	status := model.CampaignSent
	if fatal != nil {
		status = model.CampaignFailed
		s.abortPending(ctx, id, fatal, log)
	}
	s.finish(ctx, id, status, log)

	result, err := s.buildResult(ctx, id, status)
	if err != nil {
		return nil, err
	}
	log.Info().Str("status", string(status)).Int("delivered", result.Delivered).Int("failed", result.Failed).Msg("campaign dispatch finished")
	if fatal != nil {
		return result, fatal
	}
	return result, nil
}

// dispatchAll fans out one unit of work per recipient and returns the first
// configuration error, if any. Only the mail and draft calls observe the
// batch abort; recipient log writes run on ctx so an accepted message is
// always recorded.
func (s *CampaignService) dispatchAll(ctx context.Context, c *model.Campaign, candidate *model.Candidate, tmpl *model.EmailTemplate, logs []*model.RecipientLog, opts SendOptions, log *logger.Logger) error {
	limit := s.Concurrency
	if limit < 1 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	now := s.now()
	for _, rl := range logs {
		g.Go(func() error {
			if gctx.Err() != nil {
				// batch aborted, abortPending records it
				return nil
			}
			return s.dispatchOne(ctx, gctx, c, candidate, tmpl, rl, opts, now, log)
		})
	}
	return g.Wait()
}

func (s *CampaignService) dispatchOne(ctx, callCtx context.Context, c *model.Campaign, candidate *model.Candidate, tmpl *model.EmailTemplate, rl *model.RecipientLog, opts SendOptions, now time.Time, log *logger.Logger) error {
	subject, body := RenderEmail(tmpl.SubjectTemplate, tmpl.BodyTemplate,
		BuildFields(candidate, c.JobDescription, rl.RecipientEmail, now))

	if opts.Personalize {
		draft, err := s.Drafts.GenerateDraft(callCtx, DraftRequest{
			CandidateName:        candidate.Name,
			CandidateInformation: candidate.Information,
			JobDescription:       c.JobDescription,
			EmailTemplate:        body,
		})
		if err != nil {
			s.recordFailure(ctx, rl, err, log)
			return nil
		}
		body = draft
	}

	messageID, err := s.deliver(callCtx, email.Message{To: rl.RecipientEmail, Subject: subject, Body: body})
	if err != nil {
		s.recordFailure(ctx, rl, err, log)
		if appErrors.IsKind(err, appErrors.KindConfiguration) {
			return err
		}
		return nil
	}

	if err := s.CampaignRepo.MarkDelivered(ctx, rl.ID, messageID, s.now()); err != nil {
		log.Error().Err(err).Str("recipient", rl.RecipientEmail).Msg("failed to record delivery")
		return nil
	}
	log.Info().Str("recipient", rl.RecipientEmail).Str("status", string(model.RecipientDelivered)).Str("message_id", messageID).Msg("email dispatched")
	return nil
}

// deliver calls the mail sender under the mail timeout.
func (s *CampaignService) deliver(ctx context.Context, msg email.Message) (string, error) {
	if s.MailTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.MailTimeout)
		defer cancel()
	}
	id, err := s.Mailer.Send(ctx, msg)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !appErrors.IsKind(err, appErrors.KindConfiguration) {
			return "", appErrors.NewDelivery("send", fmt.Errorf("mail server did not respond within %s", s.MailTimeout))
		}
		return "", err
	}
	return id, nil
}

func (s *CampaignService) recordFailure(ctx context.Context, rl *model.RecipientLog, cause error, log *logger.Logger) {
	msg := cause.Error()
	if msg == "" {
		msg = "unknown error"
	}
	if err := s.CampaignRepo.MarkFailed(ctx, rl.ID, msg); err != nil {
		log.Error().Err(err).Str("recipient", rl.RecipientEmail).Msg("failed to record failure")
		return
	}
	log.Warn().Err(cause).Str("recipient", rl.RecipientEmail).Str("status", string(model.RecipientFailed)).Msg("email not dispatched")
}

// abortPending fails every log the aborted batch never reached.
func (s *CampaignService) abortPending(ctx context.Context, id string, cause error, log *logger.Logger) {
	logs, err := s.CampaignRepo.ListRecipientLogs(ctx, id)
	if err != nil {
		log.Error().Err(err).Msg("failed to list recipient logs after abort")
		return
	}
	for _, rl := range logs {
		if rl.Status == model.RecipientPending {
			s.recordFailure(ctx, rl, fmt.Errorf("not attempted: %s", appErrors.Message(cause)), log)
		}
	}
}

func (s *CampaignService) finish(ctx context.Context, id string, status model.CampaignStatus, log *logger.Logger) {
	if _, err := s.CampaignRepo.TransitionStatus(ctx, id, model.CampaignSending, status); err != nil {
		log.Error().Err(err).Str("status", string(status)).Msg("failed to update campaign status")
	}
}

func (s *CampaignService) buildResult(ctx context.Context, id string, status model.CampaignStatus) (*SendResult, error) {
	logs, err := s.CampaignRepo.ListRecipientLogs(ctx, id)
	if err != nil {
		return nil, err
	}
	result := &SendResult{CampaignID: id, Status: status, Logs: logs}
	for _, rl := range logs {
		switch rl.Status {
		case model.RecipientDelivered:
			result.Delivered++
		case model.RecipientFailed, model.RecipientBounced:
			result.Failed++
		}
	}
	return result, nil
}

// EnqueueSend validates like Send and leaves the dispatch to the queue worker.
func (s *CampaignService) EnqueueSend(ctx context.Context, id string, opts SendOptions) error {
	campaign, err := s.CampaignRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if campaign.Status != model.CampaignDraft {
		return appErrors.NewValidation("send", "campaign is %s, only draft campaigns can be sent", campaign.Status)
	}
	if err := s.checkSendConfig(opts); err != nil {
		return err
	}
	if s.Queue == nil {
		return appErrors.NewConfiguration("send", "no job queue is configured", nil)
	}
	if err := s.Queue.Publish(ctx, queue.CampaignSendTopic, SendJob{CampaignID: id, Personalize: opts.Personalize}); err != nil {
		return fmt.Errorf("failed to enqueue campaign %s: %w", id, err)
	}
	s.log().Info().Str("campaign_id", id).Msg("campaign send queued")
	return nil
}

// DispatchOne sends caller-supplied content to one recipient of a campaign and
// records the outcome on that recipient's log.
func (s *CampaignService) DispatchOne(ctx context.Context, req DispatchRequest) (string, error) {
	const op = "dispatch"
	switch {
	case strings.TrimSpace(req.CampaignID) == "":
		return "", appErrors.NewValidation(op, "campaignId is required")
	case !email.ValidAddress(req.RecipientEmail):
		return "", appErrors.NewValidation(op, "recipientEmail is not a valid address")
	case strings.TrimSpace(req.Subject) == "":
		return "", appErrors.NewValidation(op, "subject is required")
	case strings.TrimSpace(req.Content) == "":
		return "", appErrors.NewValidation(op, "content is required")
	}
	if s.Mailer == nil {
		return "", appErrors.NewConfiguration(op, "mail sender is not configured (EMAIL_USER / EMAIL_APP_PASSWORD)", nil)
	}

	if _, err := s.CampaignRepo.GetByID(ctx, req.CampaignID); err != nil {
		return "", err
	}
	rl, err := s.CampaignRepo.GetRecipientLog(ctx, req.CampaignID, req.RecipientEmail)
	if err != nil {
		return "", err
	}
	if rl.Status == model.RecipientDelivered || rl.Status == model.RecipientBounced {
		return "", appErrors.NewValidation(op, "recipient %s is already %s", rl.RecipientEmail, rl.Status)
	}

	log := s.log().WithCampaign(req.CampaignID)
	messageID, err := s.deliver(ctx, email.Message{To: rl.RecipientEmail, Subject: req.Subject, Body: req.Content})
	if err != nil {
		s.recordFailure(ctx, rl, err, log)
		if appErrors.KindOf(err) == appErrors.KindInternal {
			err = appErrors.NewDelivery(op, err)
		}
		return "", err
	}
	if err := s.CampaignRepo.MarkDelivered(ctx, rl.ID, messageID, s.now()); err != nil {
		return "", err
	}
	log.Info().Str("recipient", rl.RecipientEmail).Str("message_id", messageID).Msg("email dispatched")
	return messageID, nil
}

// ====================== Replies ======================

// RecordReply classifies a reply and stores it on the delivered recipient's
// log. Classifying again overwrites the previous result.
func (s *CampaignService) RecordReply(ctx context.Context, campaignID, recipient, replyText string) (*model.RecipientLog, error) {
	const op = "reply"
	if strings.TrimSpace(recipient) == "" {
		return nil, appErrors.NewValidation(op, "recipient_email is required")
	}
	if strings.TrimSpace(replyText) == "" {
		return nil, appErrors.NewValidation(op, "reply text is required")
	}
	if _, err := s.CampaignRepo.GetByID(ctx, campaignID); err != nil {
		return nil, err
	}
	rl, err := s.CampaignRepo.GetRecipientLog(ctx, campaignID, recipient)
	if err != nil {
		return nil, err
	}
	if rl.Status != model.RecipientDelivered {
		return nil, appErrors.NewValidation(op, "recipient %s is %s, replies can only be recorded after delivery", rl.RecipientEmail, rl.Status)
	}
	if s.Replies == nil {
		return nil, appErrors.NewConfiguration(op, "reply classification is not configured (GEMINI_API_KEY)", nil)
	}

	cls, err := s.Replies.ClassifyReply(ctx, replyText)
	if err != nil {
		if appErrors.KindOf(err) == appErrors.KindInternal {
			err = appErrors.NewClassification(op, "reply classification failed", err)
		}
		return nil, err
	}
	if !cls.Category.Valid() {
		return nil, appErrors.NewClassification(op, fmt.Sprintf("unsupported category %q", cls.Category), nil)
	}

	if err := s.CampaignRepo.SaveReply(ctx, rl.ID, cls.Category, cls.Summary, s.now()); err != nil {
		return nil, err
	}
	s.log().Info().Str("campaign_id", campaignID).Str("recipient", rl.RecipientEmail).Str("category", string(cls.Category)).Msg("reply recorded")
	return s.CampaignRepo.GetRecipientLog(ctx, campaignID, recipient)
}

// ====================== Delete ======================

// DeleteCampaign removes a campaign and its recipient logs in any status.
// An in-flight dispatch for it keeps running and its log writes are dropped.
func (s *CampaignService) DeleteCampaign(ctx context.Context, id string) error {
	if err := s.CampaignRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.log().Info().Str("campaign_id", id).Msg("campaign deleted")
	return nil
}

// distinctAddresses trims and drops case-insensitive duplicates, keeping order.
func distinctAddresses(addresses []string) []string {
	seen := make(map[string]bool, len(addresses))
	out := make([]string, 0, len(addresses))
	for _, a := range addresses {
		a = strings.TrimSpace(a)
		key := strings.ToLower(a)
		if a == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
	return out
}
