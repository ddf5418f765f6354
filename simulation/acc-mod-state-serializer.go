package simulation

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/pierrec/lz4/v4"
)

// layout: step count (int32), then every series in field order, all little
// endian, compressed as one lz4 frame
func SaveAccumulativeState(path string, state *AccumulativeState) error {
	var buf bytes.Buffer

	steps := int32(state.Len())
	series := []any{
		steps,
		state.NewlyPropagated,
		state.TotalPropagated,
		state.NewlySeen,
		state.NumReReceived,
		state.NumDiscarded,
		state.NumPropagatingUsers,
		state.ActiveUsers,
	}
	for _, s := range series {
		if err := binary.Write(&buf, binary.LittleEndian, s); err != nil {
			return fmt.Errorf("failed to encode accumulative state: %w", err)
		}
	}

	var out bytes.Buffer
	w := lz4.NewWriter(&out)
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to compress accumulative state: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to compress accumulative state: %w", err)
	}

	return os.WriteFile(path, out.Bytes(), 0644)
}

func LoadAccumulativeState(path string) (*AccumulativeState, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	r := lz4.NewReader(bytes.NewReader(raw))
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, fmt.Errorf("failed to decompress %s: %w", path, err)
	}
	reader := bytes.NewReader(buf.Bytes())

	var steps int32
	if err := binary.Read(reader, binary.LittleEndian, &steps); err != nil {
		return nil, fmt.Errorf("failed to read step count: %w", err)
	}
	if steps < 0 {
		return nil, fmt.Errorf("invalid step count %d", steps)
	}

	state := &AccumulativeState{
		NewlyPropagated:     make([]int64, steps),
		TotalPropagated:     make([]int64, steps),
		NewlySeen:           make([]int32, steps),
		NumReReceived:       make([]int32, steps),
		NumDiscarded:        make([]int32, steps),
		NumPropagatingUsers: make([]int32, steps),
		ActiveUsers:         make([]int32, steps),
	}
	series := []any{
		state.NewlyPropagated,
		state.TotalPropagated,
		state.NewlySeen,
		state.NumReReceived,
		state.NumDiscarded,
		state.NumPropagatingUsers,
		state.ActiveUsers,
	}
	for _, s := range series {
		if err := binary.Read(reader, binary.LittleEndian, s); err != nil {
			return nil, fmt.Errorf("failed to decode accumulative state: %w", err)
		}
	}

	return state, nil
}
