package source

import (
	"context"
	"errors"
	"math"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
)

func newCPU(opts Options) *Metric {
	window := opts.SampleWindow
	return NewMetric("cpu", "%", 0, 100, func(ctx context.Context) (float64, error) {
		percents, err := cpu.PercentWithContext(ctx, window, false)
		if err != nil {
			return 0, err
		}
		if len(percents) == 0 {
			return 0, errors.New("no cpu readings returned")
		}
		return percents[0], nil
	})
}

func newMemory(Options) *Metric {
	return NewMetric("memory", "%", 0, 100, func(ctx context.Context) (float64, error) {
		vm, err := mem.VirtualMemoryWithContext(ctx)
		if err != nil {
			return 0, err
		}
		return vm.UsedPercent, nil
	})
}

func newSwap(Options) *Metric {
	return NewMetric("swap", "%", 0, 100, func(ctx context.Context) (float64, error) {
		sw, err := mem.SwapMemoryWithContext(ctx)
		if err != nil {
			return 0, err
		}
		return sw.UsedPercent, nil
	})
}

func newDisk(opts Options) *Metric {
	path := opts.DiskPath
	if path == "" {
		path = "/"
	}
	return NewMetric("disk", "%", 0, 100, func(ctx context.Context) (float64, error) {
		usage, err := disk.UsageWithContext(ctx, path)
		if err != nil {
			return 0, err
		}
		return usage.UsedPercent, nil
	})
}

func newLoad1(Options) *Metric {
	return NewMetric("load1", "", 0, math.Inf(1), func(ctx context.Context) (float64, error) {
		avg, err := load.AvgWithContext(ctx)
		if err != nil {
			return 0, err
		}
		return avg.Load1, nil
	})
}
