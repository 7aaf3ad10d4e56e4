// Command seqpad runs the padding operations over JSON batches from the
// command line: pad/unpad/gather for one-off transformations, bench for a
// quick CPU/parallel/GPU comparison, and detect to dump the GPU probe.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/openfluke/seqpad/detector"
	"github.com/openfluke/seqpad/gpu"
	"github.com/openfluke/seqpad/seq"
)

// batch is the on-disk JSON form of a segmented buffer.
type batch struct {
	Data    []float32 `json:"data"`
	Shape   []int     `json:"shape"`
	Lengths []int64   `json:"lengths,omitempty"`
}

func loadBatch(path string) (*batch, error) {
	var raw []byte
	var err error
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read batch: %w", err)
	}
	var b batch
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("failed to parse batch: %w", err)
	}
	if len(b.Shape) == 0 {
		b.Shape = []int{len(b.Data)}
	}
	return &b, nil
}

func writeBatch(cmd *cobra.Command, b *batch) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	return enc.Encode(b)
}

func widthsFromFlags(cmd *cobra.Command) (seq.PadWidths, error) {
	start, err := cmd.Flags().GetInt("pad-width")
	if err != nil {
		return seq.PadWidths{}, err
	}
	end, err := cmd.Flags().GetInt("end-pad-width")
	if err != nil {
		return seq.PadWidths{}, err
	}
	return seq.PadWidths{Start: start, End: end}, nil
}

func addWidthFlags(cmd *cobra.Command) {
	cmd.Flags().Int("pad-width", 1, "Rows of padding at the start of each segment")
	cmd.Flags().Int("end-pad-width", -1, "Rows of padding at the end of each segment (-1: same as start)")
	cmd.Flags().Int("workers", 0, "Worker goroutines (0: serial)")
}

func templateFromFlags(cmd *cobra.Command, flag, nameFlag string) (*seq.Tensor[float32], error) {
	path, err := cmd.Flags().GetString(flag)
	if err != nil || path == "" {
		return nil, err
	}
	name, err := cmd.Flags().GetString(nameFlag)
	if err != nil {
		return nil, err
	}
	return seq.LoadTemplate(path, name)
}

func padHandler(cmd *cobra.Command, args []string) error {
	in, err := loadBatch(args[0])
	if err != nil {
		return err
	}
	widths, err := widthsFromFlags(cmd)
	if err != nil {
		return err
	}
	startPad, err := templateFromFlags(cmd, "template", "template-name")
	if err != nil {
		return err
	}
	endPad, err := templateFromFlags(cmd, "end-template", "end-template-name")
	if err != nil {
		return err
	}
	workers, _ := cmd.Flags().GetInt("workers")
	useGPU, _ := cmd.Flags().GetBool("gpu")

	t := seq.NewTensorFromSlice(in.Data, in.Shape...)

	if useGPU {
		layer, err := gpu.NewPadLayer(t.Outer(), t.BlockSize(), in.Lengths, widths)
		if err != nil {
			return err
		}
		var start, end []float32
		if startPad != nil {
			start = startPad.Data
		}
		if endPad != nil {
			end = endPad.Data
		}
		data, err := layer.Run(in.Data, start, end)
		if err != nil {
			return err
		}
		shape := append([]int(nil), in.Shape...)
		shape[0] = layer.Spec.OutRows
		lengths := in.Lengths
		if lengths != nil {
			lengths = make([]int64, len(in.Lengths))
			for i, l := range in.Lengths {
				lengths[i] = l + int64(layer.Spec.Widths.Total())
			}
		}
		return writeBatch(cmd, &batch{Data: data, Shape: shape, Lengths: lengths})
	}

	var out *seq.Tensor[float32]
	var lengths []int64
	if workers > 0 {
		out, lengths, err = seq.AddPaddingParallel(t, in.Lengths, startPad, endPad, widths, workers)
	} else {
		out, lengths, err = seq.AddPadding(t, in.Lengths, startPad, endPad, widths)
	}
	if err != nil {
		return err
	}
	return writeBatch(cmd, &batch{Data: out.Data, Shape: out.Shape, Lengths: lengths})
}

func unpadHandler(cmd *cobra.Command, args []string) error {
	in, err := loadBatch(args[0])
	if err != nil {
		return err
	}
	widths, err := widthsFromFlags(cmd)
	if err != nil {
		return err
	}
	workers, _ := cmd.Flags().GetInt("workers")
	useGPU, _ := cmd.Flags().GetBool("gpu")

	t := seq.NewTensorFromSlice(in.Data, in.Shape...)

	if useGPU {
		layer, err := gpu.NewUnpadLayer(t.Outer(), t.BlockSize(), in.Lengths, widths)
		if err != nil {
			return err
		}
		data, err := layer.Run(in.Data)
		if err != nil {
			return err
		}
		shape := append([]int(nil), in.Shape...)
		shape[0] = layer.Spec.OutRows
		lengths := in.Lengths
		if lengths != nil {
			lengths = make([]int64, len(in.Lengths))
			for i, l := range in.Lengths {
				lengths[i] = l - int64(layer.Spec.Widths.Total())
			}
		}
		return writeBatch(cmd, &batch{Data: data, Shape: shape, Lengths: lengths})
	}

	var out *seq.Tensor[float32]
	var lengths []int64
	if workers > 0 {
		out, lengths, err = seq.RemovePaddingParallel(t, in.Lengths, widths, workers)
	} else {
		out, lengths, err = seq.RemovePadding(t, in.Lengths, widths)
	}
	if err != nil {
		return err
	}
	return writeBatch(cmd, &batch{Data: out.Data, Shape: out.Shape, Lengths: lengths})
}

func gatherHandler(cmd *cobra.Command, args []string) error {
	in, err := loadBatch(args[0])
	if err != nil {
		return err
	}
	widths, err := widthsFromFlags(cmd)
	if err != nil {
		return err
	}
	separate, _ := cmd.Flags().GetBool("separate-end")
	workers, _ := cmd.Flags().GetInt("workers")
	useGPU, _ := cmd.Flags().GetBool("gpu")

	t := seq.NewTensorFromSlice(in.Data, in.Shape...)

	var startData, endData []float32
	var blockShape []int
	if useGPU {
		layer, err := gpu.NewGatherLayer(t.Outer(), t.BlockSize(), in.Lengths, widths, separate)
		if err != nil {
			return err
		}
		startData, endData, err = layer.Run(in.Data)
		if err != nil {
			return err
		}
		blockShape = in.Shape[1:]
	} else {
		var start, end *seq.Tensor[float32]
		if workers > 0 {
			start, end, err = seq.GatherPaddingParallel(t, in.Lengths, widths, separate, workers)
		} else {
			start, end, err = seq.GatherPadding(t, in.Lengths, widths, separate)
		}
		if err != nil {
			return err
		}
		startData = start.Data
		blockShape = start.Shape
		if end != nil {
			endData = end.Data
		}
	}

	if err := writeBatch(cmd, &batch{Data: startData, Shape: blockShape}); err != nil {
		return err
	}
	if separate {
		return writeBatch(cmd, &batch{Data: endData, Shape: blockShape})
	}
	return nil
}

func benchHandler(cmd *cobra.Command, args []string) error {
	rows, _ := cmd.Flags().GetInt("rows")
	block, _ := cmd.Flags().GetInt("block")
	segments, _ := cmd.Flags().GetInt("segments")
	workers, _ := cmd.Flags().GetInt("workers")
	useGPU, _ := cmd.Flags().GetBool("gpu")
	widths, err := widthsFromFlags(cmd)
	if err != nil {
		return err
	}

	if segments < 1 || rows < segments {
		return fmt.Errorf("need at least one row per segment (rows=%d, segments=%d)", rows, segments)
	}

	data := make([]float32, rows*block)
	for i := range data {
		data[i] = rand.Float32()
	}
	lengths := make([]int64, segments)
	for i := range lengths {
		lengths[i] = int64(rows / segments)
	}
	lengths[segments-1] += int64(rows % segments)
	t := seq.NewTensorFromSlice(data, rows, block)

	started := time.Now()
	if _, _, err := seq.AddPadding(t, lengths, nil, nil, widths); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "serial:   %v\n", time.Since(started))

	started = time.Now()
	if _, _, err := seq.AddPaddingParallel(t, lengths, nil, nil, widths, workers); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "parallel: %v\n", time.Since(started))

	if useGPU {
		layer, err := gpu.NewPadLayer(rows, block, lengths, widths)
		if err != nil {
			return err
		}
		started = time.Now()
		if _, err := layer.Run(data, nil, nil); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "gpu:      %v\n", time.Since(started))
	}
	return nil
}

func detectHandler(cmd *cobra.Command, args []string) error {
	out, err := detector.DetectJSON()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "seqpad",
		Short:         "Segmented-buffer padding operations",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	padCmd := &cobra.Command{
		Use:   "pad BATCH",
		Short: "Insert padding rows at each segment boundary",
		Args:  cobra.ExactArgs(1),
		RunE:  padHandler,
	}
	addWidthFlags(padCmd)
	padCmd.Flags().String("template", "", "Safetensors file holding the start padding template")
	padCmd.Flags().String("template-name", "padding", "Tensor name of the start template")
	padCmd.Flags().String("end-template", "", "Safetensors file holding the end padding template")
	padCmd.Flags().String("end-template-name", "padding", "Tensor name of the end template")
	padCmd.Flags().Bool("gpu", false, "Run on the WebGPU device")

	unpadCmd := &cobra.Command{
		Use:   "unpad BATCH",
		Short: "Strip padding rows from each segment boundary",
		Args:  cobra.ExactArgs(1),
		RunE:  unpadHandler,
	}
	addWidthFlags(unpadCmd)
	unpadCmd.Flags().Bool("gpu", false, "Run on the WebGPU device")

	gatherCmd := &cobra.Command{
		Use:   "gather BATCH",
		Short: "Sum padding rows into block-sized vectors",
		Args:  cobra.ExactArgs(1),
		RunE:  gatherHandler,
	}
	addWidthFlags(gatherCmd)
	gatherCmd.Flags().Bool("separate-end", false, "Accumulate end padding separately")
	gatherCmd.Flags().Bool("gpu", false, "Run on the WebGPU device")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "Time the padding kernels",
		RunE:  benchHandler,
	}
	addWidthFlags(benchCmd)
	benchCmd.Flags().Int("rows", 1<<16, "Total rows in the synthetic batch")
	benchCmd.Flags().Int("block", 64, "Elements per row")
	benchCmd.Flags().Int("segments", 128, "Number of segments")
	benchCmd.Flags().Bool("gpu", false, "Also time the WebGPU path")

	detectCmd := &cobra.Command{
		Use:   "detect",
		Short: "Print the GPU capability report",
		RunE:  detectHandler,
	}

	rootCmd.AddCommand(padCmd, unpadCmd, gatherCmd, benchCmd, detectCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
