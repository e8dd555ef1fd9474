package export

import (
	"encoding/json"
	"fmt"

	"github.com/ritzau/siteflow/pkg/model"
)

// Serialize encodes a graph as pretty-printed JSON in the exchange shape.
// The graph is normalized first so Serialize/Parse round-trips are lossless
// for any input that normalization accepts.
func Serialize(g model.Graph) ([]byte, error) {
	normalized, err := model.Normalize(&g)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(normalized, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode graph: %w", err)
	}
	return data, nil
}

// Parse decodes a serialized graph and normalizes it, so corrupted
// connection references are repaired rather than surfaced.
func Parse(data []byte) (model.Graph, error) {
	var g model.Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return model.Graph{}, fmt.Errorf("failed to parse graph: %w", err)
	}
	return model.Normalize(&g)
}
