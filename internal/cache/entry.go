package cache

import (
	"encoding/json"
	"errors"
	"time"
)

// Entry is one cached document with its expiry.
type Entry struct {
	Key        string          `json:"key"`
	Data       json.RawMessage `json:"data"`
	CreatedAt  time.Time       `json:"created_at"`
	ExpiresAt  time.Time       `json:"expires_at"`
	TTLSeconds int             `json:"ttl_seconds"`
}

// NewEntry creates an entry that expires ttlSeconds from now.
func NewEntry(key string, data json.RawMessage, ttlSeconds int) *Entry {
	now := time.Now()
	return &Entry{
		Key:        key,
		Data:       data,
		CreatedAt:  now,
		ExpiresAt:  now.Add(time.Duration(ttlSeconds) * time.Second),
		TTLSeconds: ttlSeconds,
	}
}

// IsExpired reports whether the entry is past its expiry.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.ExpiresAt)
}

// Age returns the time since the entry was written.
func (e *Entry) Age() time.Duration {
	return time.Since(e.CreatedAt)
}

// TimeUntilExpiration returns the remaining lifetime, or 0.
func (e *Entry) TimeUntilExpiration() time.Duration {
	remaining := time.Until(e.ExpiresAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Decode unmarshals the cached document into out.
func (e *Entry) Decode(out any) error {
	return json.Unmarshal(e.Data, out)
}

// MarshalJSON writes timestamps as RFC3339.
func (e *Entry) MarshalJSON() ([]byte, error) {
	type alias Entry
	return json.Marshal(&struct {
		*alias

		CreatedAt string `json:"created_at"`
		ExpiresAt string `json:"expires_at"`
	}{
		alias:     (*alias)(e),
		CreatedAt: e.CreatedAt.Format(time.RFC3339),
		ExpiresAt: e.ExpiresAt.Format(time.RFC3339),
	})
}

// UnmarshalJSON parses RFC3339 timestamps.
func (e *Entry) UnmarshalJSON(data []byte) error {
	if e == nil {
		return errors.New("cannot unmarshal into nil Entry")
	}
	type alias Entry
	aux := &struct {
		*alias

		CreatedAt string `json:"created_at"`
		ExpiresAt string `json:"expires_at"`
	}{alias: (*alias)(e)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if e.CreatedAt, err = time.Parse(time.RFC3339, aux.CreatedAt); err != nil {
		return err
	}
	if e.ExpiresAt, err = time.Parse(time.RFC3339, aux.ExpiresAt); err != nil {
		return err
	}
	return nil
}
