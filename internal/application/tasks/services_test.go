package tasks_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apptasks "github.com/bryanwahyu/docimpact/internal/application/tasks"
	"github.com/bryanwahyu/docimpact/internal/domain/analysis"
	"github.com/bryanwahyu/docimpact/internal/domain/documents"
	domain "github.com/bryanwahyu/docimpact/internal/domain/tasks"
	"github.com/bryanwahyu/docimpact/internal/infra/db/memory"
)

type mockTracker struct {
	createFn func(ctx context.Context, t *domain.Task) (string, error)
	updates  map[string]domain.Status
}

func (m *mockTracker) CreateTask(ctx context.Context, t *domain.Task) (string, error) {
	if m.createFn != nil {
		return m.createFn(ctx, t)
	}
	return "task_1", nil
}

func (m *mockTracker) UpdateTask(ctx context.Context, externalID string, status domain.Status) error {
	if m.updates == nil {
		m.updates = map[string]domain.Status{}
	}
	m.updates[externalID] = status
	return nil
}

type stubStates struct{ view analysis.View }

func (s stubStates) CurrentState(ctx context.Context, id int64) (analysis.View, error) {
	v := s.view
	v.DocumentID = id
	return v, nil
}

var _ = Describe("Service", func() {
	var (
		ctx     context.Context
		docs    *memory.DocumentRepository
		repo    *memory.TaskRepository
		tracker *mockTracker
		svc     *apptasks.Service
		docID   int64
	)

	BeforeEach(func() {
		ctx = context.Background()
		docs = memory.NewDocumentRepository()
		repo = memory.NewTaskRepository()
		tracker = &mockTracker{}
		doc := &documents.Document{Title: "Refund policy", UploadedAt: time.Now()}
		Expect(docs.Create(ctx, doc)).To(Succeed())
		docID = doc.ID
		svc = &apptasks.Service{
			Documents: docs,
			Analysis: stubStates{view: analysis.View{
				State: analysis.StateComplete,
				Result: &analysis.Result{
					ImpactLevel: analysis.ImpactHigh,
					ImpactedAreas: []analysis.ImpactArea{{
						Name:        "Payment Processing Module",
						ImpactLevel: analysis.ImpactHigh,
						Description: "Refund flow changes.",
						Contact:     analysis.Contact{Name: "Jane Smith", Email: "jane.smith@company.com"},
						Conflict:    "Settlement batch timing.",
					}},
				},
			}},
			Repo:    repo,
			Tracker: tracker,
		}
	})

	It("creates a task with the tracker id", func() {
		due := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
		t, err := svc.Create(ctx, apptasks.CreateTaskCommand{
			DocumentID: docID, Title: "Review refunds", Assignee: "ops@company.com", DueDate: &due,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(t.ID).NotTo(BeZero())
		Expect(t.ExternalID).To(Equal("task_1"))
		Expect(t.Status).To(Equal(domain.StatusOpen))

		list, err := svc.ListByDocument(ctx, docID)
		Expect(err).NotTo(HaveOccurred())
		Expect(list).To(HaveLen(1))
		Expect(list[0].Title).To(Equal("Review refunds"))
	})

	It("derives empty fields from the impact area", func() {
		t, err := svc.Create(ctx, apptasks.CreateTaskCommand{DocumentID: docID, ImpactArea: "payment processing module"})
		Expect(err).NotTo(HaveOccurred())
		Expect(t.Title).To(Equal("Address impact on Payment Processing Module"))
		Expect(t.Assignee).To(Equal("jane.smith@company.com"))
		Expect(t.Description).To(ContainSubstring("Conflict: Settlement batch timing."))
	})

	It("requires a title when nothing can be derived", func() {
		_, err := svc.Create(ctx, apptasks.CreateTaskCommand{DocumentID: docID, ImpactArea: "Unknown"})
		Expect(err).To(MatchError(domain.ErrInvalidTask))
	})

	It("rejects unknown documents", func() {
		_, err := svc.Create(ctx, apptasks.CreateTaskCommand{DocumentID: 99, Title: "x"})
		Expect(err).To(MatchError(documents.ErrDocumentNotFound))
		_, err = svc.ListByDocument(ctx, 99)
		Expect(err).To(MatchError(documents.ErrDocumentNotFound))
	})

	It("does not store the task when the tracker fails", func() {
		tracker.createFn = func(ctx context.Context, t *domain.Task) (string, error) {
			return "", errors.New("tracker down")
		}
		_, err := svc.Create(ctx, apptasks.CreateTaskCommand{DocumentID: docID, Title: "x"})
		Expect(err).To(HaveOccurred())
		list, _ := repo.ListByDocument(ctx, docID)
		Expect(list).To(BeEmpty())
	})

	It("updates status locally and in the tracker", func() {
		t, err := svc.Create(ctx, apptasks.CreateTaskCommand{DocumentID: docID, Title: "x"})
		Expect(err).NotTo(HaveOccurred())

		updated, err := svc.UpdateStatus(ctx, t.ID, domain.StatusCompleted)
		Expect(err).NotTo(HaveOccurred())
		Expect(updated.Status).To(Equal(domain.StatusCompleted))
		Expect(tracker.updates).To(HaveKeyWithValue("task_1", domain.StatusCompleted))

		_, err = svc.UpdateStatus(ctx, t.ID, domain.Status("done"))
		Expect(err).To(MatchError(domain.ErrInvalidTask))
		_, err = svc.UpdateStatus(ctx, 999, domain.StatusOpen)
		Expect(err).To(MatchError(domain.ErrTaskNotFound))
	})
})
