package job

import (
	"context"
	"time"

	"github.com/coder/quartz"
	"go.uber.org/atomic"

	"github.com/mhsanaei/3x-accounts/logger"
	"github.com/mhsanaei/3x-accounts/util/calendar"
	"github.com/mhsanaei/3x-accounts/util/common"
	"github.com/mhsanaei/3x-accounts/util/metrics"
	"github.com/mhsanaei/3x-accounts/web/service"
)

// ResetReport describes one evaluation of the usage reset schedule.
type ResetReport struct {
	CycleStart time.Time
	// Acted is false when the evaluated day is not the first day of a month.
	Acted  bool
	Result service.BatchResult
}

// UsageResetJob resets remote usage counters once per billing cycle. It runs on every
// scheduler tick and does nothing unless the local date is the first day of a month;
// users already in the reset ledger for the cycle are excluded, so repeated ticks on
// that day only retry users whose reset failed.
type UsageResetJob struct {
	ctx      context.Context
	clock    quartz.Clock
	loc      *time.Location
	calendar calendar.Calendar
	ledger   *service.ResetLogService
	sync     *service.SyncService
	metrics  *metrics.Metrics

	lastCycle atomic.Time
}

func NewUsageResetJob(
	ctx context.Context,
	clock quartz.Clock,
	loc *time.Location,
	cal calendar.Calendar,
	ledger *service.ResetLogService,
	syncService *service.SyncService,
	m *metrics.Metrics,
) *UsageResetJob {
	return &UsageResetJob{
		ctx:      ctx,
		clock:    clock,
		loc:      loc,
		calendar: cal,
		ledger:   ledger,
		sync:     syncService,
		metrics:  m,
	}
}

// Run is invoked by cron.
func (j *UsageResetJob) Run() {
	defer common.Recover("usage reset job panic")

	if _, err := j.RunAt(j.ctx, j.clock.Now()); err != nil {
		logger.Warning("usage reset failed:", err)
	}
}

// RunAt evaluates the schedule as if the current time were now.
func (j *UsageResetJob) RunAt(ctx context.Context, now time.Time) (ResetReport, error) {
	cycleStart, ok := calendar.CycleStart(now, j.loc, j.calendar)
	j.metrics.ObserveResetTick(ok)
	if !ok {
		return ResetReport{}, nil
	}
	report := ResetReport{CycleStart: cycleStart, Acted: true}

	users, err := j.ledger.GetUsersNotReset(ctx, cycleStart)
	if err != nil {
		return report, err
	}
	if len(users) == 0 {
		return report, nil
	}

	if !j.lastCycle.Load().Equal(cycleStart) {
		logger.Infof("billing cycle %s started, resetting usage of %d users", cycleStart.In(j.loc).Format(time.DateOnly), len(users))
	}

	report.Result = j.sync.ResetUsage(ctx, users)
	if err := j.ledger.RecordResets(ctx, report.Result.Done(), cycleStart); err != nil {
		return report, err
	}
	j.lastCycle.Store(cycleStart)

	logger.Infof("usage reset: %s", report.Result.Summary("reset"))
	return report, nil
}
