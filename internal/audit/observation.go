package audit

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// Observation is one unit of field evidence: photos plus a note.
// Images are data URLs ("data:image/jpeg;base64,...").
type Observation struct {
	ID          string    `json:"id"`
	Images      []string  `json:"images"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// IsEmpty reports whether the observation has neither photos nor text.
func (o Observation) IsEmpty() bool {
	return len(o.Images) == 0 && strings.TrimSpace(o.Description) == ""
}

// Clone returns a copy that shares no slices with o.
func (o Observation) Clone() Observation {
	o.Images = append([]string(nil), o.Images...)
	return o
}

// CloneObservations deep-copies a batch.
func CloneObservations(in []Observation) []Observation {
	if in == nil {
		return nil
	}
	out := make([]Observation, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}

// DataURL encodes raw image bytes as a base64 data URL.
func DataURL(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

// ParseDataURL splits a base64 data URL into its MIME type and decoded bytes.
func ParseDataURL(value string) (string, []byte, error) {
	header, payload, ok := strings.Cut(value, ",")
	if !ok || !strings.HasPrefix(header, "data:") {
		return "", nil, fmt.Errorf("audit: not a data url")
	}
	meta := strings.TrimPrefix(header, "data:")
	mimeType, encoding, _ := strings.Cut(meta, ";")
	if encoding != "base64" {
		return "", nil, fmt.Errorf("audit: data url must be base64 encoded")
	}
	if mimeType == "" {
		return "", nil, fmt.Errorf("audit: data url has no mime type")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("audit: decode data url: %w", err)
	}
	return mimeType, data, nil
}
