package gpu

import (
	"fmt"

	"github.com/openfluke/seqpad/seq"
	"github.com/openfluke/webgpu/wgpu"
)

// GatherSpec defines one padding gather over a float32 buffer.
type GatherSpec struct {
	Rows        int
	Block       int
	Widths      seq.PadWidths // normalized
	SeparateEnd bool
}

// GatherLayer holds GPU resources for the padding reduction. One
// invocation per block element walks the rows in order and accumulates
// the masked ones, so results are deterministic for a given device.
type GatherLayer struct {
	Spec GatherSpec
	mask []uint32

	pipeline  *wgpu.ComputePipeline
	bindGroup *wgpu.BindGroup

	InputBuffer    *wgpu.Buffer
	RowMaskBuffer  *wgpu.Buffer
	StartSumBuffer *wgpu.Buffer
	EndSumBuffer   *wgpu.Buffer
}

// NewGatherLayer resolves the padded segment layout into a per-row mask.
// lengths are the padded lengths; nil means one implicit segment.
func NewGatherLayer(rows, block int, lengths []int64, widths seq.PadWidths, separateEnd bool) (*GatherLayer, error) {
	w, err := widths.Normalize()
	if err != nil {
		return nil, err
	}
	mask, err := gatherRowMask(lengths, rows, w)
	if err != nil {
		return nil, err
	}
	return &GatherLayer{
		Spec: GatherSpec{
			Rows:        rows,
			Block:       block,
			Widths:      w,
			SeparateEnd: separateEnd,
		},
		mask: mask,
	}, nil
}

func (l *GatherLayer) AllocateBuffers(ctx *Context, input []float32) error {
	if len(input) != l.Spec.Rows*l.Spec.Block {
		return fmt.Errorf("seqpad gpu: input has %d elements, want %d", len(input), l.Spec.Rows*l.Spec.Block)
	}
	var err error
	storage := wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
	if l.InputBuffer, err = NewFloatBuffer(input, storage); err != nil {
		return err
	}
	if l.RowMaskBuffer, err = NewUint32Buffer(l.mask, storage); err != nil {
		return err
	}
	l.StartSumBuffer, err = ctx.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Gather_StartSum",
		Size:  uint64(l.Spec.Block * 4),
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc,
	})
	if err != nil {
		return err
	}
	l.EndSumBuffer, err = ctx.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Gather_EndSum",
		Size:  uint64(l.Spec.Block * 4),
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc,
	})
	return err
}

func (l *GatherLayer) GenerateShader(wgx uint32) string {
	separate := 0
	if l.Spec.SeparateEnd {
		separate = 1
	}
	return fmt.Sprintf(`
		@group(0) @binding(0) var<storage, read> src : array<f32>;
		@group(0) @binding(1) var<storage, read> row_mask : array<u32>;
		@group(0) @binding(2) var<storage, read_write> start_sum : array<f32>;
		@group(0) @binding(3) var<storage, read_write> end_sum : array<f32>;

		const ROWS: u32 = %du;
		const BLOCK: u32 = %du;
		const SEPARATE_END: u32 = %du;

		@compute @workgroup_size(%d)
		fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
			let col = gid.x;
			if (col >= BLOCK) { return; }
			var s = 0.0;
			var e = 0.0;
			for (var r = 0u; r < ROWS; r++) {
				let m = row_mask[r];
				if (m == 1u) {
					s += src[r * BLOCK + col];
				} else if (m == 2u) {
					e += src[r * BLOCK + col];
				}
			}
			if (SEPARATE_END == 1u) {
				start_sum[col] = s;
				end_sum[col] = e;
			} else {
				start_sum[col] = s + e;
				end_sum[col] = 0.0;
			}
		}
	`, l.Spec.Rows, l.Spec.Block, separate, wgx)
}

func (l *GatherLayer) Compile(ctx *Context) error {
	module, err := ctx.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "Gather_Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: l.GenerateShader(ctx.WorkgroupX)},
	})
	if err != nil {
		return err
	}
	l.pipeline, err = ctx.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:   "Gather_Pipe",
		Compute: wgpu.ProgrammableStageDescriptor{Module: module, EntryPoint: "main"},
	})
	return err
}

func (l *GatherLayer) CreateBindGroup(ctx *Context) error {
	var err error
	l.bindGroup, err = ctx.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Gather_Bind",
		Layout: l.pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: l.InputBuffer, Size: l.InputBuffer.GetSize()},
			{Binding: 1, Buffer: l.RowMaskBuffer, Size: l.RowMaskBuffer.GetSize()},
			{Binding: 2, Buffer: l.StartSumBuffer, Size: l.StartSumBuffer.GetSize()},
			{Binding: 3, Buffer: l.EndSumBuffer, Size: l.EndSumBuffer.GetSize()},
		},
	})
	return err
}

func (l *GatherLayer) Dispatch(ctx *Context, pass *wgpu.ComputePassEncoder) {
	pass.SetPipeline(l.pipeline)
	pass.SetBindGroup(0, l.bindGroup, nil)
	block := uint32(l.Spec.Block)
	pass.DispatchWorkgroups((block+ctx.WorkgroupX-1)/ctx.WorkgroupX, 1, 1)
}

func (l *GatherLayer) Cleanup() {
	for _, b := range []*wgpu.Buffer{l.InputBuffer, l.RowMaskBuffer, l.StartSumBuffer, l.EndSumBuffer} {
		if b != nil {
			b.Destroy()
		}
	}
	if l.pipeline != nil {
		l.pipeline.Release()
	}
	if l.bindGroup != nil {
		l.bindGroup.Release()
	}
}

// Run executes the full pipeline and returns the start-padding sum and,
// when SeparateEnd is set, the end-padding sum (nil otherwise).
func (l *GatherLayer) Run(input []float32) ([]float32, []float32, error) {
	ctx, err := GetContext()
	if err != nil {
		return nil, nil, err
	}
	defer l.Cleanup()

	if err := l.AllocateBuffers(ctx, input); err != nil {
		return nil, nil, err
	}
	if err := l.Compile(ctx); err != nil {
		return nil, nil, err
	}
	if err := l.CreateBindGroup(ctx); err != nil {
		return nil, nil, err
	}

	encoder, err := ctx.Device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("command encoder: %v", err)
	}
	pass := encoder.BeginComputePass(nil)
	l.Dispatch(ctx, pass)
	pass.End()
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("command encoder finish: %v", err)
	}
	ctx.Queue.Submit(cmd)
	ctx.Device.Poll(true, nil)

	start, err := ReadBuffer(l.StartSumBuffer, l.Spec.Block)
	if err != nil {
		return nil, nil, err
	}
	if !l.Spec.SeparateEnd {
		return start, nil, nil
	}
	end, err := ReadBuffer(l.EndSumBuffer, l.Spec.Block)
	if err != nil {
		return nil, nil, err
	}
	return start, end, nil
}
