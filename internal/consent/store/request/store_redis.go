package request

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"vigorlog/internal/consent/models"
	id "vigorlog/pkg/domain"
	"vigorlog/pkg/sentinel"
)

const (
	// Redis key prefixes for dual-consent request data
	requestKeyPrefix        = "dual_consent_request:"
	athleteRequestKeyPrefix = "athlete_requests:"
	parentPendingKeyPrefix  = "parent_pending_requests:"

	// retentionGrace keeps keys alive past the approval window so that an
	// expired request is still readable and reports itself expired instead of
	// vanishing from the API.
	retentionGrace = 30 * 24 * time.Hour

	// maxRequestsPerIndex caps the number of requests loaded per index set.
	maxRequestsPerIndex = 100
)

// requestJSON is the JSON-serializable representation of a DualConsentRequest.
type requestJSON struct {
	ID                string   `json:"id"`
	AthleteID         string   `json:"athlete_id"`
	ParentID          string   `json:"parent_id"`
	RequiredConsents  []string `json:"required_consents"`
	Status            string   `json:"status"`
	CreatedAt         int64    `json:"created_at"` // Unix nano
	ExpiresAt         int64    `json:"expires_at"` // Unix nano
	NotificationsSent int      `json:"notifications_sent"`
}

func requestToJSON(r *models.DualConsentRequest) *requestJSON {
	required := make([]string, len(r.RequiredConsents))
	for i, t := range r.RequiredConsents {
		required[i] = string(t)
	}
	return &requestJSON{
		ID:                uuid.UUID(r.ID).String(),
		AthleteID:         uuid.UUID(r.AthleteID).String(),
		ParentID:          uuid.UUID(r.ParentID).String(),
		RequiredConsents:  required,
		Status:            string(r.Status),
		CreatedAt:         r.CreatedAt.UnixNano(),
		ExpiresAt:         r.ExpiresAt.UnixNano(),
		NotificationsSent: r.NotificationsSent,
	}
}

func requestFromJSON(j *requestJSON) (*models.DualConsentRequest, error) {
	requestID, err := uuid.Parse(j.ID)
	if err != nil {
		return nil, fmt.Errorf("parse request id: %w", err)
	}
	athleteID, err := uuid.Parse(j.AthleteID)
	if err != nil {
		return nil, fmt.Errorf("parse athlete id: %w", err)
	}
	parentID, err := uuid.Parse(j.ParentID)
	if err != nil {
		return nil, fmt.Errorf("parse parent id: %w", err)
	}

	required := make([]models.Type, len(j.RequiredConsents))
	for i, t := range j.RequiredConsents {
		required[i] = models.Type(t)
	}
	return &models.DualConsentRequest{
		ID:                id.RequestID(requestID),
		AthleteID:         id.AthleteID(athleteID),
		ParentID:          id.ParentID(parentID),
		RequiredConsents:  required,
		Status:            models.RequestStatus(j.Status),
		CreatedAt:         time.Unix(0, j.CreatedAt),
		ExpiresAt:         time.Unix(0, j.ExpiresAt),
		NotificationsSent: j.NotificationsSent,
	}, nil
}

// RedisStore persists dual-consent requests in Redis. Suitable for distributed
// deployments where multiple instances serve the parent approval flow.
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed request store.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) requestKey(requestID id.RequestID) string {
	return requestKeyPrefix + uuid.UUID(requestID).String()
}

func (s *RedisStore) athleteKey(athleteID id.AthleteID) string {
	return athleteRequestKeyPrefix + uuid.UUID(athleteID).String()
}

func (s *RedisStore) parentKey(parentID id.ParentID) string {
	return parentPendingKeyPrefix + uuid.UUID(parentID).String()
}

// keyTTL covers the approval window plus the retention grace, so a request
// outlives its ExpiresAt and can still be listed as expired.
func keyTTL(request *models.DualConsentRequest, now time.Time) time.Duration {
	ttl := request.ExpiresAt.Sub(now) + retentionGrace
	if ttl <= 0 {
		ttl = retentionGrace
	}
	return ttl
}

func (s *RedisStore) Save(ctx context.Context, request *models.DualConsentRequest) error {
	if request == nil {
		return fmt.Errorf("request is required")
	}

	key := s.requestKey(request.ID)
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("check request exists: %w", err)
	}
	if exists > 0 {
		return sentinel.ErrConflict
	}

	data, err := json.Marshal(requestToJSON(request))
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	ttl := keyTTL(request, time.Now())
	requestIDStr := uuid.UUID(request.ID).String()

	pipe := s.client.Pipeline()
	pipe.Set(ctx, key, data, ttl)
	pipe.SAdd(ctx, s.athleteKey(request.AthleteID), requestIDStr)
	pipe.Expire(ctx, s.athleteKey(request.AthleteID), ttl+time.Hour)
	if request.Status == models.StatusPending {
		pipe.SAdd(ctx, s.parentKey(request.ParentID), requestIDStr)
		pipe.Expire(ctx, s.parentKey(request.ParentID), ttl+time.Hour)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save dual-consent request: %w", err)
	}
	return nil
}

func (s *RedisStore) FindByID(ctx context.Context, requestID id.RequestID) (*models.DualConsentRequest, error) {
	data, err := s.client.Get(ctx, s.requestKey(requestID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("dual-consent request not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find dual-consent request: %w", err)
	}

	var j requestJSON
	if err := json.Unmarshal([]byte(data), &j); err != nil {
		return nil, fmt.Errorf("unmarshal request: %w", err)
	}
	return requestFromJSON(&j)
}

func (s *RedisStore) Update(ctx context.Context, request *models.DualConsentRequest) error {
	if request == nil {
		return fmt.Errorf("request is required")
	}

	key := s.requestKey(request.ID)
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("check request exists: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("dual-consent request not found: %w", sentinel.ErrNotFound)
	}

	data, err := json.Marshal(requestToJSON(request))
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil || ttl <= 0 {
		ttl = keyTTL(request, time.Now())
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, key, data, ttl)
	if request.Status != models.StatusPending {
		// Decided or expired requests leave the parent's pending index.
		pipe.SRem(ctx, s.parentKey(request.ParentID), uuid.UUID(request.ID).String())
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("update dual-consent request: %w", err)
	}
	return nil
}

func (s *RedisStore) ListByAthlete(ctx context.Context, athleteID id.AthleteID) ([]*models.DualConsentRequest, error) {
	return s.listByIndex(ctx, s.athleteKey(athleteID), nil)
}

func (s *RedisStore) ListPendingByParent(ctx context.Context, parentID id.ParentID) ([]*models.DualConsentRequest, error) {
	return s.listByIndex(ctx, s.parentKey(parentID), func(r *models.DualConsentRequest) bool {
		return r.Status == models.StatusPending
	})
}

func (s *RedisStore) listByIndex(ctx context.Context, indexKey string, keep func(*models.DualConsentRequest) bool) ([]*models.DualConsentRequest, error) {
	requestIDs, err := s.client.SRandMemberN(ctx, indexKey, maxRequestsPerIndex).Result()
	if err != nil {
		return nil, fmt.Errorf("list request ids: %w", err)
	}
	if len(requestIDs) == 0 {
		return []*models.DualConsentRequest{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(requestIDs))
	for i, ridStr := range requestIDs {
		cmds[i] = pipe.Get(ctx, requestKeyPrefix+ridStr)
	}
	// Some requests may have aged out between SRandMemberN and Get; their
	// errors are filtered below.
	_, _ = pipe.Exec(ctx)

	requests := make([]*models.DualConsentRequest, 0, len(requestIDs))
	staleIDs := make([]string, 0)
	for i, cmd := range cmds {
		data, err := cmd.Result()
		if errors.Is(err, redis.Nil) {
			staleIDs = append(staleIDs, requestIDs[i])
			continue
		}
		if err != nil {
			continue
		}
		var j requestJSON
		if err := json.Unmarshal([]byte(data), &j); err != nil {
			continue
		}
		request, err := requestFromJSON(&j)
		if err != nil {
			continue
		}
		if keep != nil && !keep(request) {
			continue
		}
		requests = append(requests, request)
	}

	if len(staleIDs) > 0 {
		go func() {
			cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			s.client.SRem(cleanupCtx, indexKey, staleIDs)
		}()
	}

	sort.Slice(requests, func(i, j int) bool { return requests[i].CreatedAt.Before(requests[j].CreatedAt) })
	return requests, nil
}
