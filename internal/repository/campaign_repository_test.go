package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/emailace-backend/internal/errors"
	"github.com/unclebandit/emailace-backend/internal/model"
)

var logColumns = []string{
	"id", "campaign_id", "recipient_email", "position", "status", "message_id", "sent_at", "error_message",
	"reply_received_at", "reply_category", "reply_summary", "created_at", "updated_at",
}

func newMockRepo(t *testing.T) (*CampaignRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return &CampaignRepository{DB: db}, mock
}

func TestSaveReplyRequiresDeliveredLog(t *testing.T) {
	repo, mock := newMockRepo(t)
	at := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	q := regexp.QuoteMeta(`WHERE id=$4 AND status='delivered'`)

	mock.ExpectExec(q).WithArgs("Yes", "Interested", at, "log-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("Yes", "Interested", at, "log-2").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.SaveReply(context.Background(), "log-1", model.ReplyYes, "Interested", at))
	err := repo.SaveReply(context.Background(), "log-2", model.ReplyYes, "Interested", at)
	assert.True(t, appErrors.IsKind(err, appErrors.KindValidation))
}

func TestMarkFailedLeavesSentAt(t *testing.T) {
	repo, mock := newMockRepo(t)
	q := regexp.QuoteMeta(`SET status='failed', error_message=$1, updated_at=NOW()`) +
		`\s+` + regexp.QuoteMeta(`WHERE id=$2 AND status IN ('pending', 'failed')`)

	mock.ExpectExec(q).WithArgs("550 mailbox unavailable", "log-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("late", "log-2").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.MarkFailed(context.Background(), "log-1", "550 mailbox unavailable"))
	err := repo.MarkFailed(context.Background(), "log-2", "late")
	assert.True(t, appErrors.IsKind(err, appErrors.KindValidation))
}

func TestListRecipientLogsInListOrder(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	sent := created.Add(time.Minute)

	rows := sqlmock.NewRows(logColumns).
		AddRow("l1", "c-1", "anna.schmidt@klinik.de", 0, "delivered", "<m1@test>", sent, "", nil, "", "", created, created).
		AddRow("l2", "c-1", "jobs@charite.de", 1, "failed", "", nil, "550", nil, "", "", created, created)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM recipient_logs WHERE campaign_id=$1 ORDER BY position`)).
		WithArgs("c-1").WillReturnRows(rows)

	logs, err := repo.ListRecipientLogs(context.Background(), "c-1")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, model.RecipientDelivered, logs[0].Status)
	require.NotNil(t, logs[0].SentAt)
	assert.True(t, sent.Equal(*logs[0].SentAt))
	assert.Equal(t, model.RecipientFailed, logs[1].Status)
	assert.Nil(t, logs[1].SentAt)
	assert.Equal(t, 1, logs[1].Position)
}

func TestGetRecipientLogIgnoresCase(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	q := regexp.QuoteMeta(`WHERE campaign_id=$1 AND lower(recipient_email)=lower($2)`)

	mock.ExpectQuery(q).WithArgs("c-1", "HR@Vivantes.de").WillReturnRows(sqlmock.NewRows(logColumns).
		AddRow("l3", "c-1", "hr@vivantes.de", 2, "pending", "", nil, "", nil, "", "", created, created))
	mock.ExpectQuery(q).WithArgs("c-1", "nobody@vivantes.de").WillReturnRows(sqlmock.NewRows(logColumns))

	l, err := repo.GetRecipientLog(context.Background(), "c-1", "  HR@Vivantes.de ")
	require.NoError(t, err)
	assert.Equal(t, "hr@vivantes.de", l.RecipientEmail)

	_, err = repo.GetRecipientLog(context.Background(), "c-1", "nobody@vivantes.de")
	assert.True(t, appErrors.IsKind(err, appErrors.KindNotFound))
}

func TestCreateCampaignTranslatesForeignKeyViolation(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO campaigns`)).
		WillReturnError(&pq.Error{Code: pgForeignKeyViolation})

	err := repo.Create(context.Background(), &model.Campaign{Name: "x", TemplateID: "gone"})
	assert.True(t, appErrors.IsKind(err, appErrors.KindValidation))
	assert.Contains(t, err.Error(), "referenced record does not exist")
}

func TestCreateRecipientLogsRollsBackOnDuplicate(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta(`INSERT INTO recipient_logs`))
	prep.ExpectQuery().WithArgs("c-1", "a@one.com", 0).WillReturnRows(sqlmock.NewRows(logColumns).
		AddRow("l1", "c-1", "a@one.com", 0, "pending", "", nil, "", nil, "", "", created, created))
	prep.ExpectQuery().WithArgs("c-1", "A@one.com", 1).WillReturnError(&pq.Error{Code: pgUniqueViolation})
	mock.ExpectRollback()

	_, err := repo.CreateRecipientLogs(context.Background(), "c-1", []string{"a@one.com", "A@one.com"})
	assert.True(t, appErrors.IsKind(err, appErrors.KindValidation))
}

func TestTransitionStatusIsCompareAndSet(t *testing.T) {
	repo, mock := newMockRepo(t)
	q := regexp.QuoteMeta(`UPDATE campaigns SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3`)

	mock.ExpectExec(q).WithArgs("sending", "c-1", "draft").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("sending", "c-1", "draft").WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.TransitionStatus(context.Background(), "c-1", model.CampaignDraft, model.CampaignSending)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.TransitionStatus(context.Background(), "c-1", model.CampaignDraft, model.CampaignSending)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResponseRate(t *testing.T) {
	assert.Equal(t, 0.0, ResponseRate(3, 0))
	assert.Equal(t, 50.0, ResponseRate(1, 2))
	assert.Equal(t, 33.3, ResponseRate(1, 3))
}
