package storage

import "encoding/json"

// encodeMetadataJSON and decodeMetadataJSON serialize the metadata sidecar
// as plain JSON, the same encoding the teacher repo uses for its metadata
// columns — unlike points and adjacency lists, metadata has no fixed shape,
// so a self-describing format beats a hand-rolled wire layout here.
func encodeMetadataJSON(m map[string]string) (string, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeMetadataJSON(s string) (map[string]string, error) {
	if s == "" {
		return nil, nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, err
	}
	return m, nil
}
