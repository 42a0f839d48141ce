package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrAnalysisInProgress indicates another run holds the assignment's lock.
var ErrAnalysisInProgress = errors.New("an analysis run is already in progress for this assignment")

// AnalysisLocker serializes analysis runs per assignment. The returned
// release function is safe to call once the run has finished.
type AnalysisLocker interface {
	Acquire(ctx context.Context, assignmentID string) (func(), error)
}

// NewAnalysisLocker returns a Redis backed lock shared between replicas, or
// an in-process lock when client is nil.
func NewAnalysisLocker(client *redis.Client, ttl time.Duration, logger zerolog.Logger) AnalysisLocker {
	if client == nil {
		return newLocalAnalysisLock()
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &redisAnalysisLock{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "analysis_lock").Logger(),
	}
}

func analysisLockKey(assignmentID string) string {
	return fmt.Sprintf("integrity:lock:%s", assignmentID)
}

// releaseScript deletes the lock only while it still carries our token, so a
// run that outlived its TTL cannot drop a lock taken by the next run.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisAnalysisLock struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func (l *redisAnalysisLock) Acquire(ctx context.Context, assignmentID string) (func(), error) {
	key := analysisLockKey(assignmentID)
	token := uuid.NewString()

	acquired, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire analysis lock: %w", err)
	}
	if !acquired {
		return nil, ErrAnalysisInProgress
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
				l.logger.Warn().Err(err).Str("assignment_id", assignmentID).Msg("failed to release analysis lock")
			}
		})
	}, nil
}

type localAnalysisLock struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newLocalAnalysisLock() *localAnalysisLock {
	return &localAnalysisLock{held: make(map[string]struct{})}
}

func (l *localAnalysisLock) Acquire(_ context.Context, assignmentID string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[assignmentID]; busy {
		return nil, ErrAnalysisInProgress
	}
	l.held[assignmentID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, assignmentID)
			l.mu.Unlock()
		})
	}, nil
}
