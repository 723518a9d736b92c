// Package device implements the compute backends that evaluate search
// batches: an OpenCL GPU backend (build tag "opencl") and a host CPU
// backend. Enumeration happens once at session start; the scheduler in
// pkg/search only sees the search.Device interface.
package device

import (
	"github.com/solvanity/pkg/search"
)

// Config controls device enumeration.
type Config struct {
	// KernelPath locates the OpenCL kernel source for the GPU backend.
	KernelPath string

	// AllowCPU admits host CPU devices when no GPU is available. There
	// is no silent CPU fallback: without this flag an empty GPU set
	// surfaces as ErrNoComputeDevice at session start.
	AllowCPU bool

	// CPUWorkers sets the CPU backend's parallelism; 0 means NumCPU.
	CPUWorkers int
}

// Enumerate lists the compute devices available to a session. The
// returned slice may be empty; the caller decides whether that is fatal
// (search.Run reports ErrNoComputeDevice).
func Enumerate(cfg Config) ([]search.Device, error) {
	devs, err := enumerateOpenCL(cfg.KernelPath)
	if err != nil {
		if !cfg.AllowCPU {
			return nil, err
		}
		devs = nil
	}
	if len(devs) == 0 && cfg.AllowCPU {
		devs = append(devs, NewCPU(0, cfg.CPUWorkers))
	}
	return devs, nil
}
