package sqlite

import (
	"bytes"
	"encoding/binary"
	"fmt"

	vecdriver "github.com/sandevgo/docqa/pkg/sqlite"
)

// serializeVector converts a float32 slice to the BLOB layout of vec0 columns.
func serializeVector(vec []float32) ([]byte, error) {
	blob, err := vecdriver.SerializeVector(vec)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize vector: %w", err)
	}
	return blob, nil
}

func deserializeVector(blob []byte, dims int) ([]float32, error) {
	if len(blob) != dims*4 {
		return nil, fmt.Errorf("vector blob has %d bytes, want %d", len(blob), dims*4)
	}
	vec := make([]float32, dims)
	if err := binary.Read(bytes.NewReader(blob), binary.LittleEndian, vec); err != nil {
		return nil, fmt.Errorf("failed to deserialize vector: %w", err)
	}
	return vec, nil
}
