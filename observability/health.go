package observability

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	goruntime "runtime"
	"time"

	"github.com/shirou/gopsutil/process"
)

// Health reports liveness plus a coarse resource snapshot of the server
// process.
type Health struct {
	log     *slog.Logger
	proc    *process.Process
	started time.Time
}

func NewHealth(log *slog.Logger) (*Health, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &Health{log: log, proc: proc, started: time.Now().UTC()}, nil
}

type HealthStatus struct {
	Status     string  `json:"status"`
	UptimeSec  float64 `json:"uptime_sec"`
	Goroutines int     `json:"goroutines"`
	AllocMemMb uint64  `json:"alloc_mem_mb"`
	RssMb      uint64  `json:"rss_mb"`
	CPUPercent float64 `json:"cpu_percent"`
}

func (h *Health) Snapshot() HealthStatus {
	var memStats goruntime.MemStats
	goruntime.ReadMemStats(&memStats)

	status := HealthStatus{
		Status:     "ok",
		UptimeSec:  time.Since(h.started).Seconds(),
		Goroutines: goruntime.NumGoroutine(),
		AllocMemMb: memStats.Alloc >> 20,
	}
	if memInfo, err := h.proc.MemoryInfo(); err == nil {
		status.RssMb = memInfo.RSS >> 20
	} else {
		h.log.Debug("memory info unavailable", "error", err)
	}
	if cpu, err := h.proc.CPUPercent(); err == nil {
		status.CPUPercent = cpu
	}
	return status
}

func (h *Health) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(h.Snapshot())
	}
}
