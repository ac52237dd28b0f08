package memory

import (
	"context"
	"sync"
	"time"

	"github.com/bryanwahyu/docimpact/internal/domain/analysis"
)

// AnalysisRepository keeps lifecycle rows and results behind one lock so
// TryStart and Complete are atomic.
type AnalysisRepository struct {
	mu      sync.RWMutex
	nextID  int64
	status  map[int64]analysis.Status
	results []analysis.Result
}

func NewAnalysisRepository() *AnalysisRepository {
	return &AnalysisRepository{
		status: make(map[int64]analysis.Status),
	}
}

func (r *AnalysisRepository) Status(ctx context.Context, documentID int64) (*analysis.Status, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.status[documentID]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (r *AnalysisRepository) TryStart(ctx context.Context, documentID int64, now time.Time) (*analysis.Status, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.status[documentID]
	if ok && !st.State.Startable() {
		return &st, false, nil
	}
	started := now
	st = analysis.Status{
		DocumentID: documentID,
		State:      analysis.StateInProgress,
		Attempts:   st.Attempts + 1,
		StartedAt:  &started,
		UpdatedAt:  now,
	}
	r.status[documentID] = st
	return &st, true, nil
}

func (r *AnalysisRepository) Complete(ctx context.Context, res *analysis.Result, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.find(res.DocumentID) >= 0 {
		return analysis.ErrAlreadyAnalyzed
	}
	st, ok := r.status[res.DocumentID]
	if !ok || st.State != analysis.StateInProgress {
		return analysis.ErrNotInProgress
	}
	r.nextID++
	res.ID = r.nextID
	r.results = append(r.results, *res)

	finished := now
	st.State = analysis.StateComplete
	st.Error = ""
	st.FinishedAt = &finished
	st.UpdatedAt = now
	r.status[res.DocumentID] = st
	return nil
}

func (r *AnalysisRepository) Fail(ctx context.Context, documentID int64, reason string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.status[documentID]
	if !ok || st.State != analysis.StateInProgress {
		return analysis.ErrNotInProgress
	}
	finished := now
	st.State = analysis.StateFailed
	st.Error = reason
	st.FinishedAt = &finished
	st.UpdatedAt = now
	r.status[documentID] = st
	return nil
}

func (r *AnalysisRepository) Result(ctx context.Context, documentID int64) (*analysis.Result, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := r.find(documentID)
	if i < 0 {
		return nil, nil
	}
	res := r.results[i]
	return &res, nil
}

func (r *AnalysisRepository) find(documentID int64) int {
	for i := range r.results {
		if r.results[i].DocumentID == documentID {
			return i
		}
	}
	return -1
}

func (r *AnalysisRepository) ResetRunning(ctx context.Context, reason string, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, st := range r.status {
		if st.State != analysis.StateInProgress {
			continue
		}
		st.State = analysis.StateFailed
		st.Error = reason
		st.UpdatedAt = now
		r.status[id] = st
		n++
	}
	return n, nil
}

// ResultCount is the number of stored results for a document. Used by tests
// asserting the one-result-per-document rule.
func (r *AnalysisRepository) ResultCount(documentID int64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for i := range r.results {
		if r.results[i].DocumentID == documentID {
			n++
		}
	}
	return n
}
