package session

import (
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/goliatone/go-forms/pkg/params"
)

type payload struct {
	Data  map[string]any `json:"data"`
	Flash []string       `json:"flash,omitempty"`
}

// Encode serializes the session values and the keys pending expiry.
func Encode(s *Session) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := append(append([]string(nil), s.stale...), s.fresh...)
	data, err := sonic.Marshal(payload{Data: s.bag.All(), Flash: pending})
	if err != nil {
		return nil, fmt.Errorf("session: encode %s: %w", s.id, err)
	}
	return data, nil
}

// Decode restores a session previously produced by Encode.
func Decode(id string, data []byte) (*Session, error) {
	var decoded payload
	if err := sonic.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("session: decode %s: %w", id, err)
	}
	return &Session{
		id:    id,
		bag:   params.New(decoded.Data),
		stale: decoded.Flash,
	}, nil
}
