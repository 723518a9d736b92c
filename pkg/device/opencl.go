//go:build opencl
// +build opencl

package device

/*
#cgo CFLAGS: -I${SRCDIR}/../../deps/opencl-headers
#cgo windows LDFLAGS: -L${SRCDIR}/../../deps/lib -lOpenCL
#cgo linux LDFLAGS: -lOpenCL
#cgo darwin LDFLAGS: -framework OpenCL

#ifdef __APPLE__
#include <OpenCL/opencl.h>
#else
#include <CL/cl.h>
#endif

#include <stdlib.h>
*/
import "C"

import (
	"context"
	"fmt"
	"unsafe"

	"github.com/solvanity/pkg/address"
	"github.com/solvanity/pkg/keypair"
	"github.com/solvanity/pkg/search"
)

const (
	localWorkSize = 256

	// Output layout: flag(1) + seed(32). The kernel records at most one
	// winning seed per launch; the host re-derives and verifies it.
	outputSize = 33

	affixBufSize = 44
)

// OpenCL evaluates batches on a single GPU. Each device owns its own
// context, queue and compiled program, so multiple GPUs run fully
// independent pipelines.
type OpenCL struct {
	id   string
	name string

	device  C.cl_device_id
	clCtx   C.cl_context
	queue   C.cl_command_queue
	program C.cl_program
	kernel  C.cl_kernel

	bufSeed          C.cl_mem
	bufOutput        C.cl_mem
	bufOccupiedBytes C.cl_mem
	bufGroupOffset   C.cl_mem
	bufPrefix        C.cl_mem
	bufSuffix        C.cl_mem
}

// enumerateOpenCL builds one device per GPU across all platforms. The
// kernel at kernelPath is compiled once per device.
func enumerateOpenCL(kernelPath string) ([]search.Device, error) {
	src, err := LoadKernelSource(kernelPath)
	if err != nil {
		return nil, err
	}

	var numPlatforms C.cl_uint
	if C.clGetPlatformIDs(0, nil, &numPlatforms) != C.CL_SUCCESS || numPlatforms == 0 {
		return nil, nil
	}
	platforms := make([]C.cl_platform_id, numPlatforms)
	C.clGetPlatformIDs(numPlatforms, &platforms[0], nil)

	var devs []search.Device
	index := 0
	for _, platform := range platforms {
		var numDevices C.cl_uint
		if C.clGetDeviceIDs(platform, C.CL_DEVICE_TYPE_GPU, 0, nil, &numDevices) != C.CL_SUCCESS || numDevices == 0 {
			continue
		}
		clDevices := make([]C.cl_device_id, numDevices)
		C.clGetDeviceIDs(platform, C.CL_DEVICE_TYPE_GPU, numDevices, &clDevices[0], nil)

		for _, clDev := range clDevices {
			d, err := newOpenCL(index, clDev, src)
			if err != nil {
				return nil, err
			}
			devs = append(devs, d)
			index++
		}
	}
	return devs, nil
}

func newOpenCL(index int, clDev C.cl_device_id, kernelSrc string) (*OpenCL, error) {
	d := &OpenCL{
		id:     fmt.Sprintf("opencl:%d", index),
		device: clDev,
		name:   deviceName(clDev),
	}

	var ret C.cl_int
	d.clCtx = C.clCreateContext(nil, 1, &d.device, nil, nil, &ret)
	if ret != C.CL_SUCCESS {
		return nil, fmt.Errorf("device %s: creating context: %d", d.id, ret)
	}

	d.queue = C.clCreateCommandQueue(d.clCtx, d.device, 0, &ret)
	if ret != C.CL_SUCCESS {
		d.Release()
		return nil, fmt.Errorf("device %s: creating queue: %d", d.id, ret)
	}

	src := C.CString(kernelSrc)
	defer C.free(unsafe.Pointer(src))
	length := C.size_t(len(kernelSrc))
	d.program = C.clCreateProgramWithSource(d.clCtx, 1, &src, &length, &ret)
	if ret != C.CL_SUCCESS {
		d.Release()
		return nil, fmt.Errorf("device %s: creating program: %d", d.id, ret)
	}

	buildOptions := C.CString("-cl-fast-relaxed-math -cl-mad-enable")
	defer C.free(unsafe.Pointer(buildOptions))
	if C.clBuildProgram(d.program, 1, &d.device, buildOptions, nil, nil) != C.CL_SUCCESS {
		var logSize C.size_t
		C.clGetProgramBuildInfo(d.program, d.device, C.CL_PROGRAM_BUILD_LOG, 0, nil, &logSize)
		buildLog := make([]byte, logSize)
		C.clGetProgramBuildInfo(d.program, d.device, C.CL_PROGRAM_BUILD_LOG, logSize, unsafe.Pointer(&buildLog[0]), nil)
		d.Release()
		return nil, fmt.Errorf("device %s: kernel build failed: %s", d.id, string(buildLog))
	}

	kName := C.CString(kernelEntryPoint)
	defer C.free(unsafe.Pointer(kName))
	d.kernel = C.clCreateKernel(d.program, kName, &ret)
	if ret != C.CL_SUCCESS {
		d.Release()
		return nil, fmt.Errorf("device %s: creating kernel: %d", d.id, ret)
	}

	if err := d.createBuffers(); err != nil {
		d.Release()
		return nil, err
	}
	return d, nil
}

func deviceName(clDev C.cl_device_id) string {
	var size C.size_t
	if C.clGetDeviceInfo(clDev, C.CL_DEVICE_NAME, 0, nil, &size) != C.CL_SUCCESS || size == 0 {
		return "unknown GPU"
	}
	buf := make([]byte, size)
	C.clGetDeviceInfo(clDev, C.CL_DEVICE_NAME, size, unsafe.Pointer(&buf[0]), nil)
	if n := len(buf); n > 0 && buf[n-1] == 0 {
		buf = buf[:n-1]
	}
	return string(buf)
}

func (d *OpenCL) createBuffers() error {
	var ret C.cl_int

	create := func(flags C.cl_mem_flags, size int, what string) (C.cl_mem, error) {
		buf := C.clCreateBuffer(d.clCtx, flags, C.size_t(size), nil, &ret)
		if ret != C.CL_SUCCESS {
			return nil, fmt.Errorf("device %s: creating %s buffer: %d", d.id, what, ret)
		}
		return buf, nil
	}

	var err error
	if d.bufSeed, err = create(C.CL_MEM_READ_ONLY, keypair.SeedSize, "seed"); err != nil {
		return err
	}
	if d.bufOutput, err = create(C.CL_MEM_READ_WRITE, outputSize, "output"); err != nil {
		return err
	}
	if d.bufOccupiedBytes, err = create(C.CL_MEM_READ_ONLY, 1, "occupied_bytes"); err != nil {
		return err
	}
	if d.bufGroupOffset, err = create(C.CL_MEM_READ_ONLY, 1, "group_offset"); err != nil {
		return err
	}
	if d.bufPrefix, err = create(C.CL_MEM_READ_ONLY, affixBufSize, "prefix"); err != nil {
		return err
	}
	if d.bufSuffix, err = create(C.CL_MEM_READ_ONLY, affixBufSize, "suffix"); err != nil {
		return err
	}

	C.clSetKernelArg(d.kernel, 0, C.size_t(unsafe.Sizeof(d.bufSeed)), unsafe.Pointer(&d.bufSeed))
	C.clSetKernelArg(d.kernel, 1, C.size_t(unsafe.Sizeof(d.bufOutput)), unsafe.Pointer(&d.bufOutput))
	C.clSetKernelArg(d.kernel, 2, C.size_t(unsafe.Sizeof(d.bufOccupiedBytes)), unsafe.Pointer(&d.bufOccupiedBytes))
	C.clSetKernelArg(d.kernel, 3, C.size_t(unsafe.Sizeof(d.bufGroupOffset)), unsafe.Pointer(&d.bufGroupOffset))
	C.clSetKernelArg(d.kernel, 4, C.size_t(unsafe.Sizeof(d.bufPrefix)), unsafe.Pointer(&d.bufPrefix))
	C.clSetKernelArg(d.kernel, 5, C.size_t(unsafe.Sizeof(d.bufSuffix)), unsafe.Pointer(&d.bufSuffix))
	return nil
}

// ID implements search.Device.
func (d *OpenCL) ID() string { return d.id }

// Name implements search.Device.
func (d *OpenCL) Name() string { return d.name }

// Evaluate launches the kernel over the batch's full offset range. The
// kernel embeds each work item's global ID into the seed's trailing
// occupied bytes, matches in-kernel, and records at most one winning
// seed. The host re-derives any reported seed; a disagreement between
// the kernel's claim and the host derivation is a DerivationError.
func (d *OpenCL) Evaluate(ctx context.Context, batch *search.Batch, m *address.Matcher) (search.Report, error) {
	if err := ctx.Err(); err != nil {
		return search.Report{}, err
	}

	if err := d.writeMatchArgs(m); err != nil {
		return search.Report{}, err
	}

	seed := batch.BaseSeed
	occupiedBytes := byte((batch.IterationBits + 7) / 8)
	groupOffset := byte(0)
	zeros := make([]byte, outputSize)

	writes := []struct {
		buf  C.cl_mem
		size int
		ptr  unsafe.Pointer
		what string
	}{
		{d.bufSeed, keypair.SeedSize, unsafe.Pointer(&seed[0]), "seed"},
		{d.bufOccupiedBytes, 1, unsafe.Pointer(&occupiedBytes), "occupied_bytes"},
		{d.bufGroupOffset, 1, unsafe.Pointer(&groupOffset), "group_offset"},
		{d.bufOutput, outputSize, unsafe.Pointer(&zeros[0]), "output"},
	}
	for _, w := range writes {
		if ret := C.clEnqueueWriteBuffer(d.queue, w.buf, C.CL_TRUE, 0, C.size_t(w.size),
			w.ptr, 0, nil, nil); ret != C.CL_SUCCESS {
			return search.Report{}, fmt.Errorf("device %s: writing %s: %d", d.id, w.what, ret)
		}
	}

	globalSize := C.size_t(batch.Count())
	localSize := C.size_t(localWorkSize)
	if ret := C.clEnqueueNDRangeKernel(d.queue, d.kernel, 1, nil,
		&globalSize, &localSize, 0, nil, nil); ret != C.CL_SUCCESS {
		return search.Report{}, fmt.Errorf("device %s: enqueueing kernel: %d", d.id, ret)
	}

	hostOutput := make([]byte, outputSize)
	if ret := C.clEnqueueReadBuffer(d.queue, d.bufOutput, C.CL_TRUE, 0, outputSize,
		unsafe.Pointer(&hostOutput[0]), 0, nil, nil); ret != C.CL_SUCCESS {
		return search.Report{}, fmt.Errorf("device %s: reading output: %d", d.id, ret)
	}

	report := search.Report{Evaluated: batch.Count()}
	if hostOutput[0] == 0 {
		return report, nil
	}

	kp, err := keypair.Derive(hostOutput[1:outputSize])
	if err != nil {
		return report, &search.DeviceError{DeviceID: d.id, Err: err}
	}
	addr := address.Encode(kp.PublicKey[:])
	if !m.Matches(addr) {
		return report, &search.DerivationError{
			DeviceID: d.id,
			Err:      fmt.Errorf("kernel match %q fails host verification", addr),
		}
	}
	report.Matches = append(report.Matches, search.MatchResult{
		Seed:      kp.Seed,
		PublicKey: kp.PublicKey,
		Address:   addr,
	})
	return report, nil
}

func (d *OpenCL) writeMatchArgs(m *address.Matcher) error {
	prefix := []byte(m.Prefix())
	suffix := []byte(m.Suffix())

	if len(prefix) > 0 {
		if ret := C.clEnqueueWriteBuffer(d.queue, d.bufPrefix, C.CL_TRUE, 0,
			C.size_t(len(prefix)), unsafe.Pointer(&prefix[0]), 0, nil, nil); ret != C.CL_SUCCESS {
			return fmt.Errorf("device %s: writing prefix: %d", d.id, ret)
		}
	}
	if len(suffix) > 0 {
		if ret := C.clEnqueueWriteBuffer(d.queue, d.bufSuffix, C.CL_TRUE, 0,
			C.size_t(len(suffix)), unsafe.Pointer(&suffix[0]), 0, nil, nil); ret != C.CL_SUCCESS {
			return fmt.Errorf("device %s: writing suffix: %d", d.id, ret)
		}
	}

	prefixLen := C.uint(len(prefix))
	suffixLen := C.uint(len(suffix))
	caseSensitive := C.uint(1)
	if !m.CaseSensitive() {
		caseSensitive = C.uint(0)
	}
	C.clSetKernelArg(d.kernel, 6, C.size_t(unsafe.Sizeof(prefixLen)), unsafe.Pointer(&prefixLen))
	C.clSetKernelArg(d.kernel, 7, C.size_t(unsafe.Sizeof(suffixLen)), unsafe.Pointer(&suffixLen))
	C.clSetKernelArg(d.kernel, 8, C.size_t(unsafe.Sizeof(caseSensitive)), unsafe.Pointer(&caseSensitive))
	return nil
}

// Release frees all OpenCL resources owned by the device.
func (d *OpenCL) Release() {
	for _, buf := range []C.cl_mem{
		d.bufSeed, d.bufOutput, d.bufOccupiedBytes,
		d.bufGroupOffset, d.bufPrefix, d.bufSuffix,
	} {
		if buf != nil {
			C.clReleaseMemObject(buf)
		}
	}
	if d.kernel != nil {
		C.clReleaseKernel(d.kernel)
	}
	if d.program != nil {
		C.clReleaseProgram(d.program)
	}
	if d.queue != nil {
		C.clReleaseCommandQueue(d.queue)
	}
	if d.clCtx != nil {
		C.clReleaseContext(d.clCtx)
	}
}
