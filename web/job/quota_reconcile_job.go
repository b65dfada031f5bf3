package job

import (
	"context"

	"github.com/mhsanaei/3x-accounts/logger"
	"github.com/mhsanaei/3x-accounts/util/common"
	"github.com/mhsanaei/3x-accounts/web/service"
)

// QuotaReconcileJob periodically pushes every user's effective quota to the backend,
// repairing drift left by failed or lost sync events.
type QuotaReconcileJob struct {
	ctx  context.Context
	sync *service.SyncService
}

func NewQuotaReconcileJob(ctx context.Context, syncService *service.SyncService) *QuotaReconcileJob {
	return &QuotaReconcileJob{ctx: ctx, sync: syncService}
}

func (j *QuotaReconcileJob) Run() {
	defer common.Recover("quota reconcile job panic")

	result, err := j.sync.SyncAll(j.ctx)
	if err != nil {
		logger.Warning("quota reconcile failed:", err)
		return
	}
	if len(result.Failed) > 0 {
		logger.Warningf("quota reconcile: %s", result.Summary("synced"))
	}
}
