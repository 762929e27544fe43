package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kalambet/folio/internal/profile"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// encodeDoc serializes the full profile document.
func encodeDoc(p profile.Profile) ([]byte, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding profile %s: %w", p.ID, err)
	}
	return b, nil
}

func decodeDoc(data []byte) (profile.Profile, error) {
	var p profile.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return profile.Profile{}, fmt.Errorf("decoding profile document: %w", err)
	}
	return p, nil
}
