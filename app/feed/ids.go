package feed

import (
	"errors"
	"fmt"
)

const (
	syntheticIDPrefix = "id_"
	syntheticIDLength = 7
	idAlphabet        = "abcdefghijklmnopqrstuvwxyz0123456789"

	maxIDAttempts = 16
)

var errIDExhausted = errors.New("no unique id after repeated attempts")

// idSource hands out synthesized ids that are unique within one batch.
type idSource struct {
	token TokenFunc
	seen  map[string]struct{}
}

func newIDSource(token TokenFunc) *idSource {
	return &idSource{
		token: token,
		seen:  make(map[string]struct{}),
	}
}

func (s *idSource) reserve(id string) {
	s.seen[id] = struct{}{}
}

func (s *idSource) next() (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		token, err := s.token(syntheticIDLength)
		if err != nil {
			return "", fmt.Errorf("failed to generate id: %w", err)
		}

		id := syntheticIDPrefix + token
		if _, dup := s.seen[id]; !dup {
			s.reserve(id)
			return id, nil
		}
	}
	return "", errIDExhausted
}
