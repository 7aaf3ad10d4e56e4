// Package gpu offloads the padding kernels to a WebGPU compute device for
// float32 buffers. The segment layout is resolved on the CPU into flat
// per-row maps (see rowmap.go); the shaders are then plain gathers and
// per-element reductions over those maps, so device output matches the CPU
// path exactly for row copies and within float-summation tolerance for the
// gather reduction.
package gpu

import (
	"fmt"
	"sync"

	"github.com/openfluke/seqpad/detector"
	"github.com/openfluke/webgpu/wgpu"
)

// Context holds the single WebGPU context for the process.
type Context struct {
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue

	// WorkgroupX is the probe-recommended 1-D workgroup size, clamped to
	// the device limit.
	WorkgroupX uint32

	once sync.Once
}

var ctx Context

// GetContext returns the singleton GPU context, initializing it on first
// use. The hardware probe picks the power preference (low power for
// integrated adapters) and the workgroup size.
func GetContext() (*Context, error) {
	var initErr error
	ctx.once.Do(func() {
		pp := wgpu.PowerPreferenceHighPerformance
		var wgx uint32 = 64
		if rep, err := detector.Detect(); err == nil {
			if rep.AdapterType == "integrated-gpu" {
				pp = wgpu.PowerPreferenceLowPower
			}
			if rep.Recommended.WorkgroupX > 0 {
				wgx = rep.Recommended.WorkgroupX
			}
			if rep.Limits.MaxComputeWorkgroupSizeX > 0 && wgx > rep.Limits.MaxComputeWorkgroupSizeX {
				wgx = rep.Limits.MaxComputeWorkgroupSizeX
			}
		}

		ctx.Instance = wgpu.CreateInstance(nil)
		if ctx.Instance == nil {
			initErr = fmt.Errorf("failed to create WebGPU instance")
			return
		}

		var err error
		ctx.Adapter, err = ctx.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{PowerPreference: pp})
		if err != nil || ctx.Adapter == nil {
			// Fall back to whatever the runtime offers.
			ctx.Adapter, err = ctx.Instance.RequestAdapter(nil)
		}
		if err != nil || ctx.Adapter == nil {
			initErr = fmt.Errorf("no usable WebGPU adapter: %v", err)
			return
		}

		ctx.Device, err = ctx.Adapter.RequestDevice(nil)
		if err != nil {
			initErr = err
			return
		}
		ctx.Queue = ctx.Device.GetQueue()
		ctx.WorkgroupX = wgx
	})

	if initErr != nil {
		return nil, initErr
	}
	if ctx.Device == nil || ctx.Queue == nil {
		return nil, fmt.Errorf("WebGPU device or queue not initialized")
	}
	return &ctx, nil
}
