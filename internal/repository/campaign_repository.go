package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	appErrors "github.com/unclebandit/emailace-backend/internal/errors"
	"github.com/unclebandit/emailace-backend/internal/model"
)

type CampaignRepository struct {
	DB *sql.DB
}

// ====================== Campaign CRUD ======================

const campaignColumns = `id, name, candidate_id, email_list_id, template_id, job_description, status, created_at, updated_at`

func (r *CampaignRepository) Create(ctx context.Context, c *model.Campaign) error {
	if c.Status == "" {
		c.Status = model.CampaignDraft
	}
	query := `
        INSERT INTO campaigns (name, candidate_id, email_list_id, template_id, job_description, status)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at
    `
	err := r.DB.QueryRowContext(ctx, query,
		c.Name, nullString(c.CandidateID), nullString(c.EmailListID), nullString(c.TemplateID), c.JobDescription, c.Status,
	).Scan(&c.ID, &c.CreatedAt)
	return translate(err, "campaign", c.ID)
}

func (r *CampaignRepository) Update(ctx context.Context, c *model.Campaign) error {
	query := `
        UPDATE campaigns
        SET name=$1, candidate_id=$2, email_list_id=$3, template_id=$4, job_description=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING updated_at
    `
	var updated time.Time
	err := r.DB.QueryRowContext(ctx, query,
		c.Name, nullString(c.CandidateID), nullString(c.EmailListID), nullString(c.TemplateID), c.JobDescription, c.ID,
	).Scan(&updated)
	if err != nil {
		return translate(err, "campaign", c.ID)
	}
	c.UpdatedAt = &updated
	return nil
}

func (r *CampaignRepository) TransitionStatus(ctx context.Context, id string, from, to model.CampaignStatus) (bool, error) {
	query := `UPDATE campaigns SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3`
	res, err := r.DB.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return false, translate(err, "campaign", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *CampaignRepository) GetByID(ctx context.Context, id string) (*model.Campaign, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id=$1`, id)
	c, err := scanCampaign(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, translate(err, "campaign", id)
	}
	return c, nil
}

func (r *CampaignRepository) ListCampaigns(ctx context.Context, offset, limit int, status, candidateID string) ([]*model.Campaign, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if status != "" {
		where += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}
	if candidateID != "" {
		where += fmt.Sprintf(" AND candidate_id=$%d", argPos)
		args = append(args, candidateID)
		argPos++
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM campaigns`+where, args...).Scan(&total); err != nil {
		return nil, 0, translate(err, "campaign", candidateID)
	}

	query := `SELECT ` + campaignColumns + ` FROM campaigns` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	rows, err := r.DB.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, total, rows.Err()
}

// CountActiveByReference counts draft or sending campaigns that point at id.
func (r *CampaignRepository) CountActiveByReference(ctx context.Context, ref Reference, id string) (int, error) {
	switch ref {
	case RefCandidate, RefEmailList, RefTemplate:
	default:
		return 0, fmt.Errorf("unknown campaign reference %q", ref)
	}
	query := `SELECT COUNT(*) FROM campaigns WHERE ` + string(ref) + `=$1 AND status IN ('draft', 'sending')`
	var n int
	if err := r.DB.QueryRowContext(ctx, query, id).Scan(&n); err != nil {
		return 0, translate(err, string(ref), id)
	}
	return n, nil
}

// Delete removes the campaign; recipient_logs go with it through ON DELETE CASCADE.
func (r *CampaignRepository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM campaigns WHERE id=$1`, id)
	if err != nil {
		return translate(err, "campaign", id)
	}
	return requireAffected(res, "campaign", id)
}

func (r *CampaignRepository) Dashboard(ctx context.Context) (*model.DashboardStats, error) {
	query := `
        SELECT
            (SELECT COUNT(*) FROM campaigns),
            (SELECT COUNT(*) FROM candidates),
            COUNT(*) FILTER (WHERE status = 'delivered'),
            COUNT(*) FILTER (WHERE reply_received_at IS NOT NULL),
            COUNT(*) FILTER (WHERE reply_category = 'Yes')
        FROM recipient_logs
    `
	var s model.DashboardStats
	err := r.DB.QueryRowContext(ctx, query).Scan(&s.TotalCampaigns, &s.TotalCandidates, &s.EmailsDelivered, &s.RepliesReceived, &s.PositiveReplies)
	if err != nil {
		return nil, err
	}
	s.ResponseRate = ResponseRate(s.RepliesReceived, s.EmailsDelivered)
	return &s, nil
}

// ResponseRate is the percentage of delivered emails that got a reply, one decimal.
func ResponseRate(replies, delivered int) float64 {
	if delivered == 0 {
		return 0
	}
	return math.Round(float64(replies)/float64(delivered)*1000) / 10
}

func scanCampaign(row rowScanner) (*model.Campaign, error) {
	var c model.Campaign
	var candidateID, listID, templateID sql.NullString
	var status string
	err := row.Scan(&c.ID, &c.Name, &candidateID, &listID, &templateID, &c.JobDescription, &status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.CandidateID = candidateID.String
	c.EmailListID = listID.String
	c.TemplateID = templateID.String
	c.Status = model.CampaignStatus(status)
	return &c, nil
}

// ====================== Recipient Logs ======================

const recipientLogColumns = `id, campaign_id, recipient_email, position, status, message_id, sent_at, error_message,
        reply_received_at, reply_category, reply_summary, created_at, updated_at`

// CreateRecipientLogs inserts one pending log per address in a single transaction.
func (r *CampaignRepository) CreateRecipientLogs(ctx context.Context, campaignID string, addresses []string) ([]*model.RecipientLog, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO recipient_logs (campaign_id, recipient_email, position, status)
        VALUES ($1, $2, $3, 'pending')
        RETURNING `+recipientLogColumns)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	logs := make([]*model.RecipientLog, 0, len(addresses))
	for i, addr := range addresses {
		l, err := scanRecipientLog(stmt.QueryRowContext(ctx, campaignID, addr, i))
		if err != nil {
			return nil, translate(err, "recipient log", addr)
		}
		logs = append(logs, l)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *CampaignRepository) ListRecipientLogs(ctx context.Context, campaignID string) ([]*model.RecipientLog, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+recipientLogColumns+` FROM recipient_logs WHERE campaign_id=$1 ORDER BY position`, campaignID)
	if err != nil {
		return nil, translate(err, "campaign", campaignID)
	}
	defer rows.Close()

	logs := []*model.RecipientLog{}
	for rows.Next() {
		l, err := scanRecipientLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (r *CampaignRepository) GetRecipientLog(ctx context.Context, campaignID, address string) (*model.RecipientLog, error) {
	query := `SELECT ` + recipientLogColumns + ` FROM recipient_logs WHERE campaign_id=$1 AND lower(recipient_email)=lower($2)`
	l, err := scanRecipientLog(r.DB.QueryRowContext(ctx, query, campaignID, strings.TrimSpace(address)))
	if err != nil {
		return nil, translate(err, "recipient log", address)
	}
	return l, nil
}

// MarkDelivered records a successful dispatch. Only pending or failed logs qualify.
func (r *CampaignRepository) MarkDelivered(ctx context.Context, logID, messageID string, at time.Time) error {
	query := `
        UPDATE recipient_logs
        SET status='delivered', message_id=$1, sent_at=$2, error_message='', updated_at=NOW()
        WHERE id=$3 AND status IN ('pending', 'failed')
    `
	res, err := r.DB.ExecContext(ctx, query, messageID, at, logID)
	if err != nil {
		return err
	}
	return requireTransition(res, logID)
}

// MarkFailed leaves sent_at alone; it is only set by a successful dispatch.
func (r *CampaignRepository) MarkFailed(ctx context.Context, logID, errorMessage string) error {
	query := `
        UPDATE recipient_logs
        SET status='failed', error_message=$1, updated_at=NOW()
        WHERE id=$2 AND status IN ('pending', 'failed')
    `
	res, err := r.DB.ExecContext(ctx, query, errorMessage, logID)
	if err != nil {
		return err
	}
	return requireTransition(res, logID)
}

// SaveReply overwrites the reply fields; the status guard keeps replies off undelivered logs.
func (r *CampaignRepository) SaveReply(ctx context.Context, logID string, category model.ReplyCategory, summary string, at time.Time) error {
	query := `
        UPDATE recipient_logs
        SET reply_category=$1, reply_summary=$2, reply_received_at=$3, updated_at=NOW()
        WHERE id=$4 AND status='delivered'
    `
	res, err := r.DB.ExecContext(ctx, query, category, summary, at, logID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return appErrors.NewValidation("recipient log", "reply can only be recorded for a delivered recipient")
	}
	return nil
}

func (r *CampaignRepository) GetCampaignStats(ctx context.Context, campaignID string) (map[string]int, error) {
	query := `
        SELECT status, COUNT(*), COUNT(reply_received_at)
        FROM recipient_logs
        WHERE campaign_id=$1
        GROUP BY status
    `
	rows, err := r.DB.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, translate(err, "campaign", campaignID)
	}
	defer rows.Close()

	stats := NewStats()
	for rows.Next() {
		var status string
		var count, replied int
		if err := rows.Scan(&status, &count, &replied); err != nil {
			return nil, err
		}
		stats[status] = count
		stats["total"] += count
		stats["replied"] += replied
	}
	return stats, rows.Err()
}

func requireTransition(res sql.Result, logID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return appErrors.NewValidation("recipient log", "recipient log %s is not awaiting dispatch", logID)
	}
	return nil
}

func scanRecipientLog(row rowScanner) (*model.RecipientLog, error) {
	var l model.RecipientLog
	var status, category string
	err := row.Scan(
		&l.ID, &l.CampaignID, &l.RecipientEmail, &l.Position, &status, &l.MessageID, &l.SentAt, &l.ErrorMessage,
		&l.ReplyReceivedAt, &category, &l.ReplySummary, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.Status = model.RecipientStatus(status)
	l.ReplyCategory = model.ReplyCategory(category)
	return &l, nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
