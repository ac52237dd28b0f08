package mysql

import (
	"context"
	"database/sql"
	"regexp"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	driver "github.com/go-sql-driver/mysql"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/bryanwahyu/docimpact/internal/domain/analysis"
	"github.com/bryanwahyu/docimpact/internal/domain/chat"
)

var statusCols = []string{"document_id", "state", "attempts", "last_error", "started_at", "finished_at", "updated_at"}

var messageCols = []string{"id", "document_id", "role", "content", "reply_to", "failed", "created_at"}

func sqlLike(fragment string) string { return regexp.QuoteMeta(fragment) }

var _ = Describe("repositories", func() {
	var (
		ctx  context.Context
		db   *sql.DB
		mock sqlmock.Sqlmock
		now  time.Time
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, mock, err = sqlmock.New()
		Expect(err).NotTo(HaveOccurred())
		now = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	})

	AfterEach(func() {
		Expect(mock.ExpectationsWereMet()).To(Succeed())
		_ = db.Close()
	})

	Describe("AnalysisRepository", func() {
		var repo *AnalysisRepository

		BeforeEach(func() {
			repo = NewAnalysisRepository(db)
		})

		expectStart := func(claimedRows int64, state string) {
			mock.ExpectExec(sqlLike("INSERT IGNORE INTO analysis_status")).
				WithArgs(int64(7), now).
				WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectExec(sqlLike("WHERE document_id = ? AND state IN ('NOT_STARTED', 'FAILED')")).
				WithArgs(now, now, int64(7)).
				WillReturnResult(sqlmock.NewResult(0, claimedRows))
			mock.ExpectQuery(sqlLike("FROM analysis_status WHERE document_id = ?")).
				WithArgs(int64(7)).
				WillReturnRows(sqlmock.NewRows(statusCols).AddRow(int64(7), state, 1, "", now, nil, now))
		}

		It("lets exactly one of two starts claim the document", func() {
			expectStart(1, "IN_PROGRESS")
			expectStart(0, "IN_PROGRESS")

			_, first, err := repo.TryStart(ctx, 7, now)
			Expect(err).NotTo(HaveOccurred())
			_, second, err := repo.TryStart(ctx, 7, now)
			Expect(err).NotTo(HaveOccurred())

			Expect([]bool{first, second}).To(ConsistOf(true, false))
		})

		It("reports a completed document as not claimed", func() {
			expectStart(0, "COMPLETE")

			st, claimed, err := repo.TryStart(ctx, 7, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(claimed).To(BeFalse())
			Expect(st.State).To(Equal(analysis.StateComplete))
		})

		Describe("Complete", func() {
			var res *analysis.Result

			BeforeEach(func() {
				res = &analysis.Result{DocumentID: 7, ImpactLevel: analysis.ImpactMedium, CreatedAt: now}
			})

			It("stores the result and flips the status in one transaction", func() {
				mock.ExpectBegin()
				mock.ExpectExec(sqlLike("INSERT INTO analysis_results")).
					WillReturnResult(sqlmock.NewResult(11, 1))
				mock.ExpectExec(sqlLike("SET state = 'COMPLETE'")).
					WithArgs(now, now, int64(7)).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()

				Expect(repo.Complete(ctx, res, now)).To(Succeed())
				Expect(res.ID).To(Equal(int64(11)))
			})

			It("maps a duplicate entry to ErrAlreadyAnalyzed", func() {
				mock.ExpectBegin()
				mock.ExpectExec(sqlLike("INSERT INTO analysis_results")).
					WillReturnError(&driver.MySQLError{Number: 1062, Message: "Duplicate entry '7'"})
				mock.ExpectRollback()

				Expect(repo.Complete(ctx, res, now)).To(MatchError(analysis.ErrAlreadyAnalyzed))
			})

			It("rolls back when the status is no longer IN_PROGRESS", func() {
				mock.ExpectBegin()
				mock.ExpectExec(sqlLike("INSERT INTO analysis_results")).
					WillReturnResult(sqlmock.NewResult(11, 1))
				mock.ExpectExec(sqlLike("SET state = 'COMPLETE'")).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectRollback()

				Expect(repo.Complete(ctx, res, now)).To(MatchError(analysis.ErrNotInProgress))
			})
		})
	})

	Describe("MessageRepository", func() {
		var repo *MessageRepository

		BeforeEach(func() {
			repo = NewMessageRepository(db)
		})

		It("appends under the conversation lock and reads back the clamped timestamp", func() {
			doc := int64(5)
			clamped := now.Add(time.Second)
			mock.ExpectQuery(sqlLike("SELECT GET_LOCK(?, ?)")).
				WithArgs("docimpact:chat:5", 10).
				WillReturnRows(sqlmock.NewRows([]string{"lock"}).AddRow(int64(1)))
			mock.ExpectExec(sqlLike("INSERT INTO chat_messages")).
				WithArgs(int64(5), "user", "hi\r\n", nil, false, now, int64(5), now).
				WillReturnResult(sqlmock.NewResult(21, 1))
			mock.ExpectQuery(sqlLike("SELECT created_at FROM chat_messages WHERE id = ?")).
				WithArgs(int64(21)).
				WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(clamped))
			mock.ExpectExec(sqlLike("SELECT RELEASE_LOCK(?)")).
				WithArgs("docimpact:chat:5").
				WillReturnResult(sqlmock.NewResult(0, 0))

			m := &chat.Message{DocumentID: &doc, Role: chat.RoleUser, Content: "hi\r\n", CreatedAt: now}
			Expect(repo.Append(ctx, m)).To(Succeed())
			Expect(m.ID).To(Equal(int64(21)))
			Expect(m.CreatedAt).To(Equal(clamped))
		})

		It("gives up when the conversation lock times out", func() {
			mock.ExpectQuery(sqlLike("SELECT GET_LOCK(?, ?)")).
				WithArgs("docimpact:chat:none", 10).
				WillReturnRows(sqlmock.NewRows([]string{"lock"}).AddRow(int64(0)))

			err := repo.Append(ctx, &chat.Message{Role: chat.RoleUser, Content: "hello", CreatedAt: now})
			Expect(err).To(MatchError(ContainSubstring("timed out")))
		})

		It("ignores failed replies when looking one up", func() {
			mock.ExpectQuery(sqlLike("AND failed = FALSE")).
				WithArgs(int64(3)).
				WillReturnRows(sqlmock.NewRows(messageCols))

			m, err := repo.FindReply(ctx, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(m).To(BeNil())
		})

		It("returns the latest user message", func() {
			mock.ExpectQuery(sqlLike("WHERE document_id <=> ? AND role = 'user'")).
				WithArgs(int64(5)).
				WillReturnRows(sqlmock.NewRows(messageCols).AddRow(int64(9), int64(5), "user", "second", nil, false, now))

			doc := int64(5)
			m, err := repo.LatestUserMessage(ctx, &doc)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.ID).To(Equal(int64(9)))
			Expect(*m.DocumentID).To(Equal(int64(5)))
		})
	})
})
