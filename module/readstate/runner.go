package readstate

import (
	"context"

	"DProject/logger"

	"go.uber.org/zap"
)

const taskBatchSize = 64

// TaskRunner 批量已读任务的消费侧，worker 进程里按周期触发。
type TaskRunner struct {
	Store *Store
}

func NewTaskRunner(store *Store) *TaskRunner { return &TaskRunner{Store: store} }

// RunOnce 处理一批 pending 任务。单个任务失败只记日志，不影响同批其它任务。
func (r *TaskRunner) RunOnce(ctx context.Context) (int, error) {
	tasks, err := r.Store.ListPending(ctx, taskBatchSize)
	if err != nil {
		return 0, err
	}
	done := 0
	for _, t := range tasks {
		flipped, err := r.Store.FlipReadUpTo(ctx, t)
		if err != nil {
			logger.Error("read task flip failed",
				zap.String("dialog_id", t.DialogID), zap.String("user_id", t.UserID), zap.Error(err))
			continue
		}
		if err := r.Store.MarkDone(ctx, t); err != nil {
			logger.Error("read task mark done failed",
				zap.String("dialog_id", t.DialogID), zap.String("user_id", t.UserID), zap.Error(err))
			continue
		}
		logger.Debug("read task done",
			zap.String("dialog_id", t.DialogID), zap.String("user_id", t.UserID),
			zap.Int64("flipped", flipped))
		done++
	}
	return done, nil
}
