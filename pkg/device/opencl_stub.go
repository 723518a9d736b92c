//go:build !opencl
// +build !opencl

package device

import (
	"github.com/solvanity/pkg/search"
)

// enumerateOpenCL reports no GPUs when built without OpenCL support.
func enumerateOpenCL(string) ([]search.Device, error) {
	return nil, nil
}
