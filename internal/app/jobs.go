package app

import (
	"os"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
	"github.com/shirou/gopsutil/process"
	"go.uber.org/zap"

	"github.com/artisanhub/artisanhub/internal/domain"
	"github.com/artisanhub/artisanhub/pkg/metrics"
)

const (
	JobSystemMonitor  = "system_monitor"
	JobProcessMonitor = "process_monitor"
	JobAuditPurge     = "audit_purge"
	JobEventCleanup   = "event_cleanup"
	JobDraftReport    = "draft_report"
)

var ErrJobNotFound = errors.New("job not found")

// AuditRetention is how long audit log entries are kept
const AuditRetention = 365 * 24 * time.Hour

// EventRetention is how long ended events stay visible
const EventRetention = 7 * 24 * time.Hour

type jobEntry struct {
	name    string
	spec    string
	remark  string
	fn      func()
	entryID cron.EntryID
	lastRun time.Time
}

// JobInfo describes a registered background job
type JobInfo struct {
	Name    string    `json:"name"`
	Spec    string    `json:"spec"`
	Remark  string    `json:"remark"`
	Next    time.Time `json:"next_run_at"`
	Prev    time.Time `json:"prev_run_at"`
	LastRun time.Time `json:"last_manual_run_at"`
}

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) registerJobs() {
	a.registerJob(JobSystemMonitor, "@every 30s", "Collects host cpu and memory usage", a.SchedSystemMonitorTask)
	a.registerJob(JobProcessMonitor, "@every 30s", "Collects process cpu and memory usage", a.SchedProcessMonitorTask)
	a.registerJob(JobAuditPurge, "@daily", "Deletes audit log entries older than a year", a.SchedAuditPurge)
	a.registerJob(JobEventCleanup, "@hourly", "Drops events that ended more than a week ago", a.SchedEventCleanup)
	a.registerJob(JobDraftReport, "0 0 9 * * *", "Logs how many listings are still in draft", a.SchedDraftReport)
}

func (a *Application) registerJob(name, spec, remark string, fn func()) {
	a.jobsMu.Lock()
	defer a.jobsMu.Unlock()
	a.jobs[name] = &jobEntry{name: name, spec: spec, remark: remark, fn: a.safeJob(name, fn)}
}

// initJob schedules the registered jobs on cron and starts it
func (a *Application) initJob() {
	loc, err := time.LoadLocation(a.appConfig.System.Location)
	if err != nil {
		loc = time.Local
	}
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	a.jobsMu.Lock()
	for _, job := range a.jobs {
		id, err := a.sched.AddFunc(job.spec, job.fn)
		if err != nil {
			zap.S().Errorf("init job %s error %s", job.name, err.Error())
			continue
		}
		job.entryID = id
	}
	a.jobsMu.Unlock()

	a.sched.Start()
}

func (a *Application) safeJob(name string, fn func()) func() {
	return func() {
		defer func() {
			if err := recover(); err != nil {
				zap.S().Errorf("job %s panic: %v", name, err)
			}
		}()
		fn()
	}
}

// Jobs lists registered jobs ordered by name
func (a *Application) Jobs() []JobInfo {
	a.jobsMu.RLock()
	defer a.jobsMu.RUnlock()
	result := make([]JobInfo, 0, len(a.jobs))
	for _, job := range a.jobs {
		info := JobInfo{Name: job.name, Spec: job.spec, Remark: job.remark, LastRun: job.lastRun}
		if a.sched != nil && job.entryID != 0 {
			entry := a.sched.Entry(job.entryID)
			info.Next = entry.Next
			info.Prev = entry.Prev
		}
		result = append(result, info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// RunJobNow triggers a job immediately by name
func (a *Application) RunJobNow(name string) error {
	a.jobsMu.Lock()
	job, ok := a.jobs[name]
	if ok {
		job.lastRun = time.Now()
	}
	a.jobsMu.Unlock()
	if !ok {
		return ErrJobNotFound
	}
	zap.L().Info("running job on demand", zap.String("job", name))
	job.fn()
	return nil
}

// SchedSystemMonitorTask system monitor
func (a *Application) SchedSystemMonitorTask() {
	_cpuuse, err := cpu.Percent(0, false)
	if err == nil && len(_cpuuse) > 0 {
		metrics.SetGauge(metrics.SystemCpuUse, int64(_cpuuse[0]*100)) // Store as percentage * 100
	}

	_meminfo, err := mem.VirtualMemory()
	if err == nil {
		metrics.SetGauge(metrics.SystemMemUse, int64(_meminfo.Used/1024/1024)) //nolint:gosec // G115: memory MB value fits in int64
	}
}

// SchedProcessMonitorTask app process monitor
func (a *Application) SchedProcessMonitorTask() {
	p, err := process.NewProcess(int32(os.Getpid())) //nolint:gosec // G115: PID is always within int32 range
	if err != nil {
		return
	}

	cpuuse, err := p.CPUPercent()
	if err == nil {
		metrics.SetGauge(metrics.ProcessCpuUse, int64(cpuuse*100))
	}

	meminfo, err := p.MemoryInfo()
	if err == nil {
		metrics.SetGauge(metrics.ProcessMemUse, int64(meminfo.RSS/1024/1024)) //nolint:gosec // G115: memory MB value fits in int64
	}
}

// SchedAuditPurge removes expired audit log entries
func (a *Application) SchedAuditPurge() {
	res := a.gormDB.
		Where("created_at < ?", time.Now().Add(-AuditRetention)).
		Delete(&domain.SysAuditLog{})
	if res.Error != nil {
		zap.L().Error("audit purge failed", zap.Error(res.Error))
		return
	}
	zap.L().Info("audit purge done", zap.Int64("deleted", res.RowsAffected))
}

// SchedEventCleanup drops long finished events from the catalogue
func (a *Application) SchedEventCleanup() {
	n := a.eventStore.PruneEnded(time.Now().Add(-EventRetention))
	if n > 0 {
		zap.L().Info("pruned ended events", zap.Int("count", n))
	}
}

// SchedDraftReport logs stale drafts so operators can nudge sellers
func (a *Application) SchedDraftReport() {
	var stale int64
	a.gormDB.Model(&domain.Product{}).
		Where("status = ? AND updated_at < ?", domain.ProductStatusDraft, time.Now().AddDate(0, 0, -30)).
		Count(&stale)
	zap.L().Info("draft listing report", zap.Int64("stale_drafts", stale))
}
