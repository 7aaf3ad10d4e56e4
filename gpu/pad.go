package gpu

import (
	"fmt"

	"github.com/openfluke/seqpad/seq"
	"github.com/openfluke/webgpu/wgpu"
)

// PadSpec defines one padding insertion over a float32 buffer.
type PadSpec struct {
	InRows  int
	OutRows int
	Block   int
	Widths  seq.PadWidths // normalized
}

// PadLayer holds GPU resources for a padding insertion. Each output
// element reads either its mapped payload element or a template element,
// so one flat dispatch covers the whole output.
type PadLayer struct {
	Spec   PadSpec
	rowMap []int32

	pipeline  *wgpu.ComputePipeline
	bindGroup *wgpu.BindGroup

	InputBuffer    *wgpu.Buffer
	RowMapBuffer   *wgpu.Buffer
	StartPadBuffer *wgpu.Buffer
	EndPadBuffer   *wgpu.Buffer
	OutputBuffer   *wgpu.Buffer
}

// NewPadLayer resolves the segment layout and builds the output row map.
// A nil lengths vector means one implicit segment spanning all rows.
func NewPadLayer(inRows, block int, lengths []int64, widths seq.PadWidths) (*PadLayer, error) {
	w, err := widths.Normalize()
	if err != nil {
		return nil, err
	}
	rowMap, err := padRowMap(lengths, inRows, w)
	if err != nil {
		return nil, err
	}
	return &PadLayer{
		Spec: PadSpec{
			InRows:  inRows,
			OutRows: len(rowMap),
			Block:   block,
			Widths:  w,
		},
		rowMap: rowMap,
	}, nil
}

// AllocateBuffers uploads the input, row map, and templates. Nil templates
// upload as zero blocks, matching the CPU zero-fill path.
func (l *PadLayer) AllocateBuffers(ctx *Context, input, startPad, endPad []float32) error {
	if len(input) != l.Spec.InRows*l.Spec.Block {
		return fmt.Errorf("seqpad gpu: input has %d elements, want %d", len(input), l.Spec.InRows*l.Spec.Block)
	}
	if startPad != nil && len(startPad) != l.Spec.Block {
		return fmt.Errorf("seqpad gpu: start template has %d elements, want block size %d: %w",
			len(startPad), l.Spec.Block, seq.ErrShapeMismatch)
	}
	if endPad != nil && len(endPad) != l.Spec.Block {
		return fmt.Errorf("seqpad gpu: end template has %d elements, want block size %d: %w",
			len(endPad), l.Spec.Block, seq.ErrShapeMismatch)
	}
	if endPad == nil {
		endPad = startPad
	}
	if startPad == nil {
		startPad = make([]float32, l.Spec.Block)
	}
	if endPad == nil {
		endPad = make([]float32, l.Spec.Block)
	}

	var err error
	storage := wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
	if l.InputBuffer, err = NewFloatBuffer(input, storage); err != nil {
		return err
	}
	if l.RowMapBuffer, err = NewInt32Buffer(l.rowMap, storage); err != nil {
		return err
	}
	if l.StartPadBuffer, err = NewFloatBuffer(startPad, storage); err != nil {
		return err
	}
	if l.EndPadBuffer, err = NewFloatBuffer(endPad, storage); err != nil {
		return err
	}
	l.OutputBuffer, err = ctx.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Pad_Out",
		Size:  uint64(l.Spec.OutRows * l.Spec.Block * 4),
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc,
	})
	return err
}

func (l *PadLayer) GenerateShader(wgx uint32) string {
	return fmt.Sprintf(`
		@group(0) @binding(0) var<storage, read> src : array<f32>;
		@group(0) @binding(1) var<storage, read> row_map : array<i32>;
		@group(0) @binding(2) var<storage, read> start_pad : array<f32>;
		@group(0) @binding(3) var<storage, read> end_pad : array<f32>;
		@group(0) @binding(4) var<storage, read_write> dst : array<f32>;

		const SIZE: u32 = %du;
		const BLOCK: u32 = %du;

		@compute @workgroup_size(%d)
		fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
			let i = gid.x;
			if (i >= SIZE) { return; }
			let row = i / BLOCK;
			let col = i %% BLOCK;
			let s = row_map[row];
			if (s == -1) {
				dst[i] = start_pad[col];
			} else if (s == -2) {
				dst[i] = end_pad[col];
			} else if (s < 0) {
				dst[i] = 0.0;
			} else {
				dst[i] = src[u32(s) * BLOCK + col];
			}
		}
	`, l.Spec.OutRows*l.Spec.Block, l.Spec.Block, wgx)
}

func (l *PadLayer) Compile(ctx *Context) error {
	module, err := ctx.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "Pad_Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: l.GenerateShader(ctx.WorkgroupX)},
	})
	if err != nil {
		return err
	}
	l.pipeline, err = ctx.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:   "Pad_Pipe",
		Compute: wgpu.ProgrammableStageDescriptor{Module: module, EntryPoint: "main"},
	})
	return err
}

func (l *PadLayer) CreateBindGroup(ctx *Context) error {
	var err error
	l.bindGroup, err = ctx.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Pad_Bind",
		Layout: l.pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: l.InputBuffer, Size: l.InputBuffer.GetSize()},
			{Binding: 1, Buffer: l.RowMapBuffer, Size: l.RowMapBuffer.GetSize()},
			{Binding: 2, Buffer: l.StartPadBuffer, Size: l.StartPadBuffer.GetSize()},
			{Binding: 3, Buffer: l.EndPadBuffer, Size: l.EndPadBuffer.GetSize()},
			{Binding: 4, Buffer: l.OutputBuffer, Size: l.OutputBuffer.GetSize()},
		},
	})
	return err
}

func (l *PadLayer) Dispatch(ctx *Context, pass *wgpu.ComputePassEncoder) {
	pass.SetPipeline(l.pipeline)
	pass.SetBindGroup(0, l.bindGroup, nil)
	size := uint32(l.Spec.OutRows * l.Spec.Block)
	pass.DispatchWorkgroups((size+ctx.WorkgroupX-1)/ctx.WorkgroupX, 1, 1)
}

func (l *PadLayer) Cleanup() {
	for _, b := range []*wgpu.Buffer{l.InputBuffer, l.RowMapBuffer, l.StartPadBuffer, l.EndPadBuffer, l.OutputBuffer} {
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

// Run executes the full pipeline for one input and returns the padded
// buffer.
func (l *PadLayer) Run(input, startPad, endPad []float32) ([]float32, error) {
	ctx, err := GetContext()
	if err != nil {
		return nil, err
	}
	defer l.Cleanup()

	if err := l.AllocateBuffers(ctx, input, startPad, endPad); err != nil {
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
