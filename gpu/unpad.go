package gpu

import (
	"fmt"

	"github.com/openfluke/seqpad/seq"
	"github.com/openfluke/webgpu/wgpu"
)

// UnpadSpec defines one padding removal over a float32 buffer.
type UnpadSpec struct {
	InRows  int
	OutRows int
	Block   int
	Widths  seq.PadWidths // normalized
}

// UnpadLayer holds GPU resources for a padding removal. Every output row
// maps to a payload row of the padded input, so the kernel is a pure
// gather.
type UnpadLayer struct {
	Spec   UnpadSpec
	rowMap []int32

	pipeline  *wgpu.ComputePipeline
	bindGroup *wgpu.BindGroup

	InputBuffer  *wgpu.Buffer
	RowMapBuffer *wgpu.Buffer
	OutputBuffer *wgpu.Buffer
}

// NewUnpadLayer resolves the padded segment layout and builds the output
// row map. lengths are the padded lengths; nil means one implicit segment.
func NewUnpadLayer(inRows, block int, lengths []int64, widths seq.PadWidths) (*UnpadLayer, error) {
	w, err := widths.Normalize()
	if err != nil {
		return nil, err
	}
	rowMap, err := unpadRowMap(lengths, inRows, w)
	if err != nil {
		return nil, err
	}
	return &UnpadLayer{
		Spec: UnpadSpec{
			InRows:  inRows,
			OutRows: len(rowMap),
			Block:   block,
			Widths:  w,
		},
		rowMap: rowMap,
	}, nil
}

func (l *UnpadLayer) AllocateBuffers(ctx *Context, input []float32) error {
	if len(input) != l.Spec.InRows*l.Spec.Block {
		return fmt.Errorf("seqpad gpu: input has %d elements, want %d", len(input), l.Spec.InRows*l.Spec.Block)
	}
	var err error
	storage := wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
	if l.InputBuffer, err = NewFloatBuffer(input, storage); err != nil {
		return err
	}
	if l.RowMapBuffer, err = NewInt32Buffer(l.rowMap, storage); err != nil {
		return err
	}
	l.OutputBuffer, err = ctx.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Unpad_Out",
		Size:  uint64(max1(l.Spec.OutRows*l.Spec.Block) * 4),
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc,
	})
	return err
}

func (l *UnpadLayer) GenerateShader(wgx uint32) string {
	return fmt.Sprintf(`
		@group(0) @binding(0) var<storage, read> src : array<f32>;
		@group(0) @binding(1) var<storage, read> row_map : array<i32>;
		@group(0) @binding(2) var<storage, read_write> dst : array<f32>;

		const SIZE: u32 = %du;
		const BLOCK: u32 = %du;

		@compute @workgroup_size(%d)
		fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
			let i = gid.x;
			if (i >= SIZE) { return; }
			let row = i / BLOCK;
			let col = i %% BLOCK;
			let s = row_map[row];
			if (s < 0) {
				dst[i] = 0.0;
			} else {
				dst[i] = src[u32(s) * BLOCK + col];
			}
		}
	`, l.Spec.OutRows*l.Spec.Block, l.Spec.Block, wgx)
}

func (l *UnpadLayer) Compile(ctx *Context) error {
	module, err := ctx.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "Unpad_Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: l.GenerateShader(ctx.WorkgroupX)},
	})
	if err != nil {
		return err
	}
	l.pipeline, err = ctx.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:   "Unpad_Pipe",
		Compute: wgpu.ProgrammableStageDescriptor{Module: module, EntryPoint: "main"},
	})
	return err
}

func (l *UnpadLayer) CreateBindGroup(ctx *Context) error {
	var err error
	l.bindGroup, err = ctx.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Unpad_Bind",
		Layout: l.pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: l.InputBuffer, Size: l.InputBuffer.GetSize()},
			{Binding: 1, Buffer: l.RowMapBuffer, Size: l.RowMapBuffer.GetSize()},
			{Binding: 2, Buffer: l.OutputBuffer, Size: l.OutputBuffer.GetSize()},
		},
	})
	return err
}

func (l *UnpadLayer) Dispatch(ctx *Context, pass *wgpu.ComputePassEncoder) {
	pass.SetPipeline(l.pipeline)
	pass.SetBindGroup(0, l.bindGroup, nil)
	size := uint32(l.Spec.OutRows * l.Spec.Block)
	pass.DispatchWorkgroups((size+ctx.WorkgroupX-1)/ctx.WorkgroupX, 1, 1)
}

func (l *UnpadLayer) Cleanup() {
	for _, b := range []*wgpu.Buffer{l.InputBuffer, l.RowMapBuffer, l.OutputBuffer} {
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

// Run executes the full pipeline for one input and returns the unpadded
// buffer.
func (l *UnpadLayer) Run(input []float32) ([]float32, error) {
	ctx, err := GetContext()
	if err != nil {
		return nil, err
	}
	defer l.Cleanup()

	if err := l.AllocateBuffers(ctx, input); err != nil {
		return nil, err
	}
	if err := l.Compile(ctx); err != nil {
		return nil, err
	}
	if err := l.CreateBindGroup(ctx); err != nil {
		return nil, err
	}

	encoder, err := ctx.Device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("command encoder: %v", err)
	}
	pass := encoder.BeginComputePass(nil)
	l.Dispatch(ctx, pass)
	pass.End()
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("command encoder finish: %v", err)
	}
	ctx.Queue.Submit(cmd)
	ctx.Device.Poll(true, nil)

	return ReadBuffer(l.OutputBuffer, l.Spec.OutRows*l.Spec.Block)
}

func max1(v int) int {
	if v <= 0 {
		return 1
	}
	return v
}
