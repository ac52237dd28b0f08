package tracker

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/bryanwahyu/docimpact/internal/domain/tasks"
	"github.com/bryanwahyu/docimpact/internal/logger"
)

// LocalTracker stands in for the external task system. It issues
// task_<snowflake> ids and remembers statuses in memory.
type LocalTracker struct {
	node *snowflake.Node

	mu       sync.Mutex
	statuses map[string]tasks.Status
}

func NewLocalTracker(nodeID int64) (*LocalTracker, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("tracker node: %w", err)
	}
	return &LocalTracker{node: node, statuses: make(map[string]tasks.Status)}, nil
}

func (t *LocalTracker) CreateTask(ctx context.Context, task *tasks.Task) (string, error) {
	id := "task_" + t.node.Generate().String()
	t.mu.Lock()
	t.statuses[id] = task.Status
	t.mu.Unlock()
	logger.Info("tracker task created",
		zap.String("external_id", id),
		zap.Int64("document_id", task.DocumentID),
		zap.String("assignee", task.Assignee))
	return id, nil
}

func (t *LocalTracker) UpdateTask(ctx context.Context, externalID string, status tasks.Status) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.statuses[externalID]; !ok {
		return fmt.Errorf("%w: external id %s", tasks.ErrTaskNotFound, externalID)
	}
	t.statuses[externalID] = status
	logger.Debug("tracker task updated", zap.String("external_id", externalID), zap.String("status", string(status)))
	return nil
}

// Status reports the tracked status of an external task.
func (t *LocalTracker) Status(externalID string) (tasks.Status, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.statuses[externalID]
	return s, ok
}
