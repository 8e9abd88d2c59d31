package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/opensource-wellbeing/pulse/internal/domain"
)

// responsePrefix namespaces cached assessment responses.
const responsePrefix = "resp:"

// byteStore is the raw key/value surface shared by every cache tier.
type byteStore interface {
	Get(ctx context.Context, institutionID string, key string) ([]byte, error)
	Set(ctx context.Context, institutionID string, key string, value []byte, ttl time.Duration) error
}

func getResponse(ctx context.Context, s byteStore, institutionID, answersKey string) (*domain.Response, error) {
	data, err := s.Get(ctx, institutionID, responsePrefix+answersKey)
	if err != nil || data == nil {
		return nil, err
	}

	var resp domain.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode cached response: %w", err)
	}
	return &resp, nil
}

func setResponse(ctx context.Context, s byteStore, institutionID, answersKey string, resp *domain.Response, ttl time.Duration) error {
	if resp == nil || resp.Failed() {
		return nil
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	return s.Set(ctx, institutionID, responsePrefix+answersKey, data, ttl)
}
