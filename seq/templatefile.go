package seq

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/x448/float16"
)

// templateInfo describes one tensor in a safetensors header.
type templateInfo struct {
	DType   string `json:"dtype"`
	Shape   []int  `json:"shape"`
	Offsets []int  `json:"data_offsets"`
}

// LoadTemplates reads padding templates from a safetensors file and
// converts them to float32. Learned templates are typically trained and
// exported elsewhere, so the common on-disk dtypes are accepted:
// F32, F64, I32, I64, F16, BF16, and BOOL.
func LoadTemplates(path string) (map[string]*Tensor[float32], error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open template file: %w", err)
	}
	if len(raw) < 8 {
		return nil, fmt.Errorf("template file %s too short for safetensors header", path)
	}

	headerSize := binary.LittleEndian.Uint64(raw[:8])
	if uint64(len(raw)-8) < headerSize {
		return nil, fmt.Errorf("template file %s truncated: header claims %d bytes", path, headerSize)
	}

	var header map[string]json.RawMessage
	if err := json.Unmarshal(raw[8:8+headerSize], &header); err != nil {
		return nil, fmt.Errorf("failed to parse safetensors header: %w", err)
	}
	payload := raw[8+headerSize:]

	templates := make(map[string]*Tensor[float32], len(header))
	for name, rawInfo := range header {
		if name == "__metadata__" {
			continue
		}
		var info templateInfo
		if err := json.Unmarshal(rawInfo, &info); err != nil {
			return nil, fmt.Errorf("failed to parse entry %q: %w", name, err)
		}
		if len(info.Offsets) != 2 || info.Offsets[0] < 0 || info.Offsets[1] > len(payload) || info.Offsets[0] > info.Offsets[1] {
			return nil, fmt.Errorf("entry %q has invalid data offsets %v", name, info.Offsets)
		}
		data, err := decodeTemplateData(info.DType, payload[info.Offsets[0]:info.Offsets[1]])
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", name, err)
		}
		templates[name] = NewTensorFromSlice(data, info.Shape...)
	}
	return templates, nil
}

// LoadTemplate reads a single named template from a safetensors file.
func LoadTemplate(path, name string) (*Tensor[float32], error) {
	templates, err := LoadTemplates(path)
	if err != nil {
		return nil, err
	}
	tmpl, ok := templates[name]
	if !ok {
		return nil, fmt.Errorf("template %q not found in %s", name, path)
	}
	return tmpl, nil
}

// decodeTemplateData converts raw little-endian tensor bytes to float32.
func decodeTemplateData(dtype string, b []byte) ([]float32, error) {
	switch dtype {
	case "F32":
		out := make([]float32, len(b)/4)
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
		}
		return out, nil
	case "F64":
		out := make([]float32, len(b)/8)
		for i := range out {
			out[i] = float32(math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:])))
		}
		return out, nil
	case "I32":
		out := make([]float32, len(b)/4)
		for i := range out {
			out[i] = float32(int32(binary.LittleEndian.Uint32(b[i*4:])))
		}
		return out, nil
	case "I64":
		out := make([]float32, len(b)/8)
		for i := range out {
			out[i] = float32(int64(binary.LittleEndian.Uint64(b[i*8:])))
		}
		return out, nil
	case "F16":
		out := make([]float32, len(b)/2)
		for i := range out {
			out[i] = float16.Frombits(binary.LittleEndian.Uint16(b[i*2:])).Float32()
		}
		return out, nil
	case "BF16":
		// bfloat16 is the high half of a float32
		out := make([]float32, len(b)/2)
		for i := range out {
			out[i] = math.Float32frombits(uint32(binary.LittleEndian.Uint16(b[i*2:])) << 16)
		}
		return out, nil
	case "BOOL":
		out := make([]float32, len(b))
		for i, v := range b {
			if v != 0 {
				out[i] = 1
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported template dtype %s", dtype)
	}
}
