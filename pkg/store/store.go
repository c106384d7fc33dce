package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"twinkscan/pkg/config"
)

// Keys shared by the scanner and the command line
const (
	KeyIsWorking      = "isWorking"
	KeySavedPosition  = "savedPosition"
	KeyStoredResults  = "storedResults"
	KeyAdminNickname  = "adminNickname"
	KeyProgressData   = "progressData"
	KeyExportSettings = "exportSettings"
)

// Store is a small durable key-value map. Values are JSON encoded. Each call
// is a separate round trip; nothing is atomic across calls.
type Store interface {
	Get(ctx context.Context, keys ...string) (Values, error)
	Set(ctx context.Context, values map[string]any) error
	Remove(ctx context.Context, keys ...string) error
	Close() error
}

// Values holds the raw JSON of the keys that were found
type Values map[string]json.RawMessage

// Has reports whether key was present
func (v Values) Has(key string) bool {
	_, ok := v[key]
	return ok
}

// Decode unmarshals key into out and reports whether it was present
func (v Values) Decode(key string, out any) (bool, error) {
	raw, ok := v[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// Bool returns key as a bool, or def when missing or malformed
func (v Values) Bool(key string, def bool) bool {
	var b bool
	if ok, err := v.Decode(key, &b); !ok || err != nil {
		return def
	}
	return b
}

// Int returns key as an int, or def when missing or malformed
func (v Values) Int(key string, def int) int {
	var n int
	if ok, err := v.Decode(key, &n); !ok || err != nil {
		return def
	}
	return n
}

// String returns key as a string, or def when missing, empty or malformed
func (v Values) String(key string, def string) string {
	var s string
	if ok, err := v.Decode(key, &s); !ok || err != nil || s == "" {
		return def
	}
	return s
}

// Progress is the last progress snapshot of a scan
type Progress struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
}

// ExportSettings controls automatic export on completion
type ExportSettings struct {
	AutoExport bool   `json:"autoExport"`
	Directory  string `json:"directory,omitempty"`
}

func encode(values map[string]any) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(values))
	for key, value := range values {
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", key, err)
		}
		out[key] = raw
	}
	return out, nil
}

// Open returns the store engine selected by cfg
func Open(cfg config.StoreConfig) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "file", "":
		return NewFileStore(cfg.Path)
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.Driver)
	}
}
