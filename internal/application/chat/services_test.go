package chat_test

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	appchat "github.com/bryanwahyu/docimpact/internal/application/chat"
	"github.com/bryanwahyu/docimpact/internal/application/worker"
	"github.com/bryanwahyu/docimpact/internal/domain/analysis"
	"github.com/bryanwahyu/docimpact/internal/domain/chat"
	"github.com/bryanwahyu/docimpact/internal/domain/documents"
	"github.com/bryanwahyu/docimpact/internal/infra/ai/prompt"
	"github.com/bryanwahyu/docimpact/internal/infra/db/memory"
)

var _ = Describe("Service", func() {
	var (
		ctx      context.Context
		docs     *memory.DocumentRepository
		messages *memory.MessageRepository
		jobErrs  *memory.JobErrorRepository
		states   *mockStateReader
		gen      *mockGenerator
		svc      *appchat.Service
		doc      *documents.Document
		docID    *int64
	)

	BeforeEach(func() {
		ctx = context.Background()
		docs = memory.NewDocumentRepository()
		messages = memory.NewMessageRepository()
		jobErrs = memory.NewJobErrorRepository()
		states = &mockStateReader{}
		gen = &mockGenerator{}
		svc = &appchat.Service{
			Documents:    docs,
			Analysis:     states,
			Messages:     messages,
			Generator:    gen,
			Errors:       jobErrs,
			Workers:      worker.NewPool("chat-test", 0),
			ReplyTimeout: time.Second,
		}
		doc = &documents.Document{Title: "Checkout redesign", FileType: "pdf", UploadedAt: time.Now()}
		Expect(docs.Create(ctx, doc)).To(Succeed())
		id := doc.ID
		docID = &id
	})

	AfterEach(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		Expect(svc.Shutdown(shutdownCtx)).To(Succeed())
	})

	historyOf := func(id *int64) func() []*chat.Message {
		return func() []*chat.Message {
			h, err := svc.History(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			return h
		}
	}

	Describe("BuildContext", func() {
		It("builds a degraded context when no analysis result exists", func() {
			c, err := svc.BuildContext(ctx, docID)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Document.ID).To(Equal(doc.ID))
			Expect(c.Analysis).NotTo(BeNil())
			Expect(c.Analysis.State).To(Equal(analysis.StateInProgress))
			Expect(c.Analysis.Result).To(BeNil())
			Expect(c.History).To(BeEmpty())
		})

		It("fails with DocumentNotFound for unknown documents", func() {
			missing := int64(999)
			_, err := svc.BuildContext(ctx, &missing)
			Expect(err).To(MatchError(documents.ErrDocumentNotFound))
		})

		It("builds a document-less context", func() {
			c, err := svc.BuildContext(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Document).To(BeNil())
			Expect(c.Analysis).To(BeNil())
		})
	})

	Describe("PostMessage", func() {
		It("returns the stored user message and keeps it unchanged in history", func() {
			msg, err := svc.PostMessage(ctx, docID, "What changes for billing?")
			Expect(err).NotTo(HaveOccurred())
			Expect(msg.ID).NotTo(BeZero())
			Expect(msg.Role).To(Equal(chat.RoleUser))

			h := historyOf(docID)()
			Expect(h).NotTo(BeEmpty())
			Expect(h[0].ID).To(Equal(msg.ID))
			Expect(h[0].Role).To(Equal(chat.RoleUser))
			Expect(h[0].Content).To(Equal("What changes for billing?"))
		})

		It("appends the assistant reply asynchronously", func() {
			msg, err := svc.PostMessage(ctx, docID, "hello")
			Expect(err).NotTo(HaveOccurred())

			Eventually(historyOf(docID)).Should(HaveLen(2))
			reply := historyOf(docID)()[1]
			Expect(reply.Role).To(Equal(chat.RoleAssistant))
			Expect(*reply.ReplyTo).To(Equal(msg.ID))
			Expect(reply.Content).To(Equal("reply to hello"))
		})

		It("stores content verbatim", func() {
			raw := "  Line one\r\n\tline two  "
			msg, err := svc.PostMessage(ctx, docID, raw)
			Expect(err).NotTo(HaveOccurred())
			Expect(msg.Content).To(Equal(raw))
			Expect(historyOf(docID)()[0].Content).To(Equal(raw))
		})

		It("rejects empty messages", func() {
			_, err := svc.PostMessage(ctx, docID, "   ")
			Expect(err).To(MatchError(chat.ErrEmptyMessage))
		})

		It("rejects unknown documents", func() {
			missing := int64(42)
			_, err := svc.PostMessage(ctx, &missing, "hi")
			Expect(err).To(MatchError(documents.ErrDocumentNotFound))
		})

		It("keeps history in non-decreasing time order matching insertion order", func() {
			svc.Clock = &steppingClock{base: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
			gen.generateFn = func(ctx context.Context, c *chat.Context, msg string) (string, error) {
				return "", errors.New("skip")
			}
			var ids []int64
			for _, text := range []string{"one", "two", "three"} {
				m, err := svc.PostMessage(ctx, docID, text)
				Expect(err).NotTo(HaveOccurred())
				ids = append(ids, m.ID)
			}

			h := historyOf(docID)()
			var userIDs []int64
			for i, m := range h {
				if i > 0 {
					Expect(m.CreatedAt).NotTo(BeTemporally("<", h[i-1].CreatedAt))
					Expect(m.ID).To(BeNumerically(">", h[i-1].ID))
				}
				if m.Role == chat.RoleUser {
					userIDs = append(userIDs, m.ID)
				}
			}
			Expect(userIDs).To(Equal(ids))
		})

		It("pairs replies to back-to-back messages without fixing their order", func() {
			release := make(chan struct{})
			gen.generateFn = func(ctx context.Context, c *chat.Context, msg string) (string, error) {
				<-release
				return "reply to " + msg, nil
			}
			first, err := svc.PostMessage(ctx, docID, "first question")
			Expect(err).NotTo(HaveOccurred())
			second, err := svc.PostMessage(ctx, docID, "second question")
			Expect(err).NotTo(HaveOccurred())

			h := historyOf(docID)()
			Expect(h).To(HaveLen(2))
			Expect(h[0].ID).To(Equal(first.ID))
			Expect(h[1].ID).To(Equal(second.ID))

			close(release)
			Eventually(historyOf(docID)).Should(HaveLen(4))

			h = historyOf(docID)()
			Expect(h[0].Content).To(Equal("first question"))
			Expect(h[1].Content).To(Equal("second question"))
			var repliedTo []int64
			for _, m := range h[2:] {
				Expect(m.Role).To(Equal(chat.RoleAssistant))
				repliedTo = append(repliedTo, *m.ReplyTo)
			}
			Expect(repliedTo).To(ConsistOf(first.ID, second.ID))
		})

		It("supports document-less sessions", func() {
			_, err := svc.PostMessage(ctx, nil, "hi")
			Expect(err).NotTo(HaveOccurred())
			Eventually(historyOf(nil)).Should(HaveLen(2))
			Expect(historyOf(docID)()).To(BeEmpty())
		})
	})

	Describe("Respond", func() {
		It("fails with NoMessageToRespondTo when nothing was asked", func() {
			_, err := svc.Respond(ctx, docID)
			Expect(err).To(MatchError(chat.ErrNoMessageToRespondTo))
		})

		It("answers 'impact' with the document's impact level", func() {
			svc.Generator = prompt.KeywordResponder{}
			states.set(analysis.View{
				DocumentID: doc.ID,
				State:      analysis.StateComplete,
				Result: &analysis.Result{
					DocumentID:  doc.ID,
					ImpactLevel: analysis.ImpactMedium,
					ImpactedAreas: []analysis.ImpactArea{{
						Name: "User Profile Service", ImpactLevel: analysis.ImpactMedium, Description: "profile fields",
						Contact: analysis.Contact{Name: "Michael Johnson", Email: "michael.johnson@company.com"},
					}},
				},
			})
			_, err := svc.PostMessage(ctx, docID, "impact")
			Expect(err).NotTo(HaveOccurred())

			reply, err := svc.Respond(ctx, docID)
			Expect(err).NotTo(HaveOccurred())
			Expect(reply.Role).To(Equal(chat.RoleAssistant))
			Expect(reply.Content).To(ContainSubstring("Medium"))
			Expect(reply.Content).To(ContainSubstring("Checkout redesign"))
		})

		It("replies to 'hello' before any analysis exists", func() {
			svc.Generator = prompt.KeywordResponder{}
			_, err := svc.PostMessage(ctx, docID, "hello")
			Expect(err).NotTo(HaveOccurred())

			reply, err := svc.Respond(ctx, docID)
			Expect(err).NotTo(HaveOccurred())
			Expect(reply.Content).NotTo(BeEmpty())
		})

		It("shares one generation between the background reply and Respond", func() {
			release := make(chan struct{})
			gen.generateFn = func(ctx context.Context, c *chat.Context, msg string) (string, error) {
				<-release
				return "the answer", nil
			}
			msg, err := svc.PostMessage(ctx, docID, "question")
			Expect(err).NotTo(HaveOccurred())

			done := make(chan *chat.Message)
			go func() {
				defer GinkgoRecover()
				r, err := svc.Respond(ctx, docID)
				Expect(err).NotTo(HaveOccurred())
				done <- r
			}()
			close(release)

			var reply *chat.Message
			Eventually(done).Should(Receive(&reply))
			Expect(*reply.ReplyTo).To(Equal(msg.ID))

			Eventually(historyOf(docID)).Should(HaveLen(2))
			Consistently(historyOf(docID), 100*time.Millisecond).Should(HaveLen(2))

			again, err := svc.Respond(ctx, docID)
			Expect(err).NotTo(HaveOccurred())
			Expect(again.ID).To(Equal(reply.ID))
		})

		It("surfaces generator failures as a failed reply", func() {
			gen.generateFn = func(ctx context.Context, c *chat.Context, msg string) (string, error) {
				return "", errors.New("model timeout")
			}
			_, err := svc.PostMessage(ctx, docID, "impact?")
			Expect(err).NotTo(HaveOccurred())

			reply, err := svc.Respond(ctx, docID)
			Expect(err).To(MatchError(chat.ErrGenerationFailure))
			Expect(reply).NotTo(BeNil())
			Expect(reply.Failed).To(BeTrue())
			Expect(reply.Role).To(Equal(chat.RoleAssistant))

			Eventually(func() int {
				entries, _ := jobErrs.ListByDocument(ctx, doc.ID, 10)
				return len(entries)
			}).Should(BeNumerically(">=", 1))
			for _, m := range historyOf(docID)()[1:] {
				Expect(m.Failed).To(BeTrue())
			}
		})

		It("retries an earlier failed turn after a later one was answered", func() {
			var broken atomic.Bool
			broken.Store(true)
			gen.generateFn = func(ctx context.Context, c *chat.Context, msg string) (string, error) {
				if msg == "first" && broken.Load() {
					return "", errors.New("transient")
				}
				return "reply to " + msg, nil
			}

			first, err := svc.PostMessage(ctx, docID, "first")
			Expect(err).NotTo(HaveOccurred())
			Eventually(historyOf(docID)).Should(HaveLen(2))
			Expect(historyOf(docID)()[1].Failed).To(BeTrue())

			_, err = svc.PostMessage(ctx, docID, "second")
			Expect(err).NotTo(HaveOccurred())
			Eventually(historyOf(docID)).Should(HaveLen(4))

			broken.Store(false)
			reply, err := svc.Respond(ctx, docID)
			Expect(err).NotTo(HaveOccurred())
			Expect(*reply.ReplyTo).To(Equal(first.ID))
			Expect(reply.Content).To(Equal("reply to first"))
			Expect(reply.Failed).To(BeFalse())
			Expect(chat.LatestPending(historyOf(docID)())).To(BeNil())
		})

		It("reuses the latest reply when nothing is pending", func() {
			_, err := svc.PostMessage(ctx, docID, "hello")
			Expect(err).NotTo(HaveOccurred())
			Eventually(historyOf(docID)).Should(HaveLen(2))

			reply, err := svc.Respond(ctx, docID)
			Expect(err).NotTo(HaveOccurred())
			Expect(reply.ID).To(Equal(historyOf(docID)()[1].ID))
			Expect(gen.calls.Load()).To(Equal(int32(1)))
			Expect(historyOf(docID)()).To(HaveLen(2))
		})

		It("retries a failed turn", func() {
			var fail = true
			gen.generateFn = func(ctx context.Context, c *chat.Context, msg string) (string, error) {
				if fail {
					return "", errors.New("transient")
				}
				return "recovered", nil
			}
			_, err := svc.PostMessage(ctx, docID, "question")
			Expect(err).NotTo(HaveOccurred())
			Eventually(historyOf(docID)).Should(HaveLen(2))

			fail = false
			reply, err := svc.Respond(ctx, docID)
			Expect(err).NotTo(HaveOccurred())
			Expect(reply.Content).To(Equal("recovered"))
			Expect(reply.Failed).To(BeFalse())
		})
	})
})
