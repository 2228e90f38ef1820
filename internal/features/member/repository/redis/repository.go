package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	apperrors "line-membership-bot/internal/common/errors"
	"line-membership-bot/internal/features/member/models"
	"line-membership-bot/internal/features/member/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type memberRepository struct {
	client redis.Cmdable
}

func NewMemberRepository(client redis.Cmdable) repository.MemberRepository {
	return &memberRepository{
		client: client,
	}
}

func memberKey(id string) string {
	return fmt.Sprintf("member:%s", id)
}

func userIndexKey(lineUserID string) string {
	return fmt.Sprintf("member:user:%s", lineUserID)
}

func (r *memberRepository) Create(ctx context.Context, member *models.Member) error {
	if member.ID == "" {
		member.ID = uuid.New().String()
	}
	now := time.Now()
	member.CreatedAt = now
	member.UpdatedAt = now

	memberJSON, err := json.Marshal(member)
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, memberKey(member.ID), memberJSON, 0).Err(); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeStoreUnavailable, "persist member record", err)
	}
	if err := r.client.SAdd(ctx, userIndexKey(member.LineUserID), member.ID).Err(); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeStoreUnavailable, "index member record", err)
	}
	return nil
}

func (r *memberRepository) FindActiveByUser(ctx context.Context, lineUserID string) ([]*models.Member, error) {
	records, err := r.FindAllByUser(ctx, lineUserID)
	if err != nil {
		return nil, err
	}

	var active []*models.Member
	for _, record := range records {
		if record.Active() {
			active = append(active, record)
		}
	}
	return active, nil
}

func (r *memberRepository) FindAllByUser(ctx context.Context, lineUserID string) ([]*models.Member, error) {
	ids, err := r.client.SMembers(ctx, userIndexKey(lineUserID)).Result()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeStoreUnavailable, "list member ids", err)
	}

	var members []*models.Member
	for _, id := range ids {
		memberJSON, err := r.client.Get(ctx, memberKey(id)).Bytes()
		if err == redis.Nil {
			// Index entry without a document; skip it.
			continue
		}
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeStoreUnavailable, "load member record", err)
		}

		var member models.Member
		if err := json.Unmarshal(memberJSON, &member); err != nil {
			return nil, err
		}
		members = append(members, &member)
	}

	return members, nil
}

func (r *memberRepository) SoftDelete(ctx context.Context, member *models.Member) (*models.Member, error) {
	key := memberKey(member.ID)

	// Re-read so we never resurrect fields from a stale copy.
	memberJSON, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, apperrors.New(apperrors.ErrCodeNotFound, "member record not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeStoreUnavailable, "load member record", err)
	}

	var current models.Member
	if err := json.Unmarshal(memberJSON, &current); err != nil {
		return nil, err
	}

	current.IsDeleted = true
	current.UpdatedAt = time.Now()

	updatedJSON, err := json.Marshal(&current)
	if err != nil {
		return nil, err
	}
	if err := r.client.Set(ctx, key, updatedJSON, 0).Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeStoreUnavailable, "persist member record", err)
	}

	return &current, nil
}
