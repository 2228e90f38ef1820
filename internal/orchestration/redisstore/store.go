// Package redisstore persists orchestration instances in Redis as JSON
// documents keyed by user id.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"

	apperrors "line-membership-bot/internal/common/errors"
	"line-membership-bot/internal/orchestration"

	"github.com/redis/go-redis/v9"
)

type Store struct {
	client redis.Cmdable
}

func NewStore(client redis.Cmdable) *Store {
	return &Store{client: client}
}

func instanceKey(userID string) string {
	return fmt.Sprintf("orchestration:instance:%s", userID)
}

func (s *Store) SaveInstance(ctx context.Context, inst *orchestration.Instance) error {
	instJSON, err := json.Marshal(inst)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, instanceKey(inst.UserID), instJSON, 0).Err(); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeGatewayUnavailable, "persist instance", err)
	}
	return nil
}

func (s *Store) GetInstance(ctx context.Context, userID string) (*orchestration.Instance, error) {
	instJSON, err := s.client.Get(ctx, instanceKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, apperrors.New(apperrors.ErrCodeInstanceNotFound, "no instance for user")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeGatewayUnavailable, "load instance", err)
	}

	var inst orchestration.Instance
	if err := json.Unmarshal(instJSON, &inst); err != nil {
		return nil, err
	}
	return &inst, nil
}

func (s *Store) UpdateInstance(ctx context.Context, inst *orchestration.Instance) error {
	exists, err := s.client.Exists(ctx, instanceKey(inst.UserID)).Result()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeGatewayUnavailable, "check instance", err)
	}
	if exists == 0 {
		return apperrors.New(apperrors.ErrCodeInstanceNotFound, "no instance for user")
	}
	return s.SaveInstance(ctx, inst)
}
