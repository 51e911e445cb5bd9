// Package conditions provides admission checks for crawl jobs based on system metrics
package conditions

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
)

const defaultCustomTimeout = 10 * time.Second

// Config defines thresholds a host must satisfy before a crawler process starts.
// Nil fields are not checked.
type Config struct {
	CPUBelow      *int           `yaml:"cpu_below,omitempty" json:"cpu_below,omitempty" jsonschema:"minimum=1,maximum=100"`
	MemoryBelow   *int           `yaml:"memory_below,omitempty" json:"memory_below,omitempty" jsonschema:"minimum=1,maximum=100"`
	LoadAvgBelow  *float64       `yaml:"load_avg_below,omitempty" json:"load_avg_below,omitempty"`
	DiskFreeAbove *int           `yaml:"disk_free_above,omitempty" json:"disk_free_above,omitempty" jsonschema:"minimum=0,maximum=100"`
	DiskFreePath  string         `yaml:"disk_free_path,omitempty" json:"disk_free_path,omitempty"`
	Custom        string         `yaml:"custom,omitempty" json:"custom,omitempty"`
	MaxPostpone   *time.Duration `yaml:"max_postpone,omitempty" json:"max_postpone,omitempty"`
	CheckInterval *time.Duration `yaml:"check_interval,omitempty" json:"check_interval,omitempty"`
}

// Empty reports whether config has no checks
func (c Config) Empty() bool {
	return c.CPUBelow == nil && c.MemoryBelow == nil && c.LoadAvgBelow == nil && c.DiskFreeAbove == nil && c.Custom == ""
}

// Checker verifies system conditions
type Checker struct {
	customTimeout time.Duration
}

// NewChecker makes Checker, customTimeout limits run time of custom check script (default 10s)
func NewChecker(customTimeout time.Duration) *Checker {
	if customTimeout <= 0 {
		customTimeout = defaultCustomTimeout
	}
	return &Checker{customTimeout: customTimeout}
}

// Check verifies if all conditions are met.
// Returns true if conditions are satisfied, false with reason otherwise
func (c *Checker) Check(cfg Config) (bool, string) {
	if cfg.CPUBelow != nil {
		if ok, reason := c.checkCPU(*cfg.CPUBelow); !ok {
			return false, reason
		}
	}
	if cfg.MemoryBelow != nil {
		if ok, reason := c.checkMemory(*cfg.MemoryBelow); !ok {
			return false, reason
		}
	}
	if cfg.LoadAvgBelow != nil {
		if ok, reason := c.checkLoadAvg(*cfg.LoadAvgBelow); !ok {
			return false, reason
		}
	}
	if cfg.DiskFreeAbove != nil {
		path := cfg.DiskFreePath
		if path == "" {
			path = "/"
		}
		if ok, reason := c.checkDiskFree(*cfg.DiskFreeAbove, path); !ok {
			return false, reason
		}
	}
	if cfg.Custom != "" {
		if ok, reason := c.checkCustom(cfg.Custom); !ok {
			return false, reason
		}
	}
	return true, ""
}

// Wait blocks until conditions are met, max postpone reached or context canceled.
// Returns false if the job should not run. Without MaxPostpone unmet conditions skip the job.
func (c *Checker) Wait(ctx context.Context, cfg Config, jobDesc string) bool {
	if cfg.Empty() {
		return true
	}
	met, reason := c.Check(cfg)
	if met {
		return true
	}

	if cfg.MaxPostpone == nil {
		log.Printf("[INFO] job skipped: %s, reason: %s", jobDesc, reason)
		return false
	}

	deadline := time.Now().Add(*cfg.MaxPostpone)
	log.Printf("[INFO] job postponed: %s, reason: %s, deadline: %s", jobDesc, reason, deadline.Format(time.RFC3339))

	checkInterval := 30 * time.Second
	if cfg.CheckInterval != nil {
		checkInterval = *cfg.CheckInterval
	}
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()
	deadlineTimer := time.NewTimer(*cfg.MaxPostpone)
	defer deadlineTimer.Stop()

	for {
		select {
		case <-ticker.C:
			met, reason = c.Check(cfg)
			if met {
				log.Printf("[INFO] conditions met, starting postponed job: %s", jobDesc)
				return true
			}
			log.Printf("[DEBUG] conditions not met yet: %s, reason: %s", jobDesc, reason)
		case <-deadlineTimer.C:
			log.Printf("[WARN] max postpone reached, starting anyway: %s", jobDesc)
			return true
		case <-ctx.Done():
			log.Printf("[INFO] postponed job canceled: %s", jobDesc)
			return false
		}
	}
}

// DiskUsage returns used percent and free bytes of the file system holding path
func DiskUsage(path string) (usedPercent float64, free uint64, err error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get disk usage for %s: %w", path, err)
	}
	return usage.UsedPercent, usage.Free, nil
}

func (c *Checker) checkCPU(threshold int) (bool, string) {
	cpuPercent, err := cpu.Percent(time.Second, false)
	if err != nil {
		return false, fmt.Sprintf("failed to get CPU: %v", err)
	}
	if len(cpuPercent) == 0 {
		return false, "no CPU data available"
	}
	current := int(cpuPercent[0])
	if current >= threshold {
		return false, fmt.Sprintf("CPU at %d%%, threshold %d%%", current, threshold)
	}
	return true, ""
}

func (c *Checker) checkMemory(threshold int) (bool, string) {
	v, err := mem.VirtualMemory()
	if err != nil {
		return false, fmt.Sprintf("failed to get memory: %v", err)
	}
	current := int(v.UsedPercent)
	if current >= threshold {
		return false, fmt.Sprintf("memory at %d%%, threshold %d%%", current, threshold)
	}
	return true, ""
}

func (c *Checker) checkLoadAvg(threshold float64) (bool, string) {
	loads, err := load.Avg()
	if err != nil {
		return false, fmt.Sprintf("failed to get load average: %v", err)
	}
	if loads.Load1 >= threshold {
		return false, fmt.Sprintf("load at %.2f, threshold %.2f", loads.Load1, threshold)
	}
	return true, ""
}

func (c *Checker) checkDiskFree(minFreePercent int, path string) (bool, string) {
	usedPercent, _, err := DiskUsage(path)
	if err != nil {
		return false, err.Error()
	}
	freePercent := 100 - int(usedPercent)
	if freePercent < minFreePercent {
		return false, fmt.Sprintf("disk free at %d%%, need %d%% on %s", freePercent, minFreePercent, path)
	}
	return true, ""
}

func (c *Checker) checkCustom(script string) (bool, string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.customTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, "sh", "-c", script) //nolint:gosec // script comes from the catalog file
	if err := cmd.Run(); err != nil {
		return false, fmt.Sprintf("custom check failed: %v", err)
	}
	return true, ""
}
