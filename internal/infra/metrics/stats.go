// Package metrics counts render outcomes in Redis so every instance reports
// the same totals.
package metrics

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/LoveCode20/arabic-pdf-pages/internal/domain"
	"github.com/LoveCode20/arabic-pdf-pages/internal/infra/logging"
)

const (
	// Key is the Redis hash holding the counters.
	Key = "arabicpdf:render:outcomes"
	// OutcomeSuccess counts delivered PDFs. Failures are counted under their
	// error kind.
	OutcomeSuccess = "success"
	// OutcomeTooLarge counts PDFs rejected by the size limit.
	OutcomeTooLarge = "too_large"
)

// Outcomes is a snapshot of the counters by outcome name.
type Outcomes map[string]int64

// RenderStats records render outcomes. A nil client or nil *RenderStats
// disables recording.
type RenderStats struct {
	rdb     *redis.Client
	timeout time.Duration
}

func New(rdb *redis.Client) *RenderStats {
	return &RenderStats{rdb: rdb, timeout: 500 * time.Millisecond}
}

// Enabled reports whether counters are stored anywhere.
func (s *RenderStats) Enabled() bool {
	return s != nil && s.rdb != nil
}

// OutcomeOf names the outcome of a render that returned err.
func OutcomeOf(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	return string(domain.KindOf(err))
}

// Record increments the counter for outcome. Redis errors are logged and
// otherwise ignored; a render never fails because stats could not be written.
func (s *RenderStats) Record(ctx context.Context, outcome string) {
	if !s.Enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	if err := s.rdb.HIncrBy(ctx, Key, outcome, 1).Err(); err != nil {
		logging.Warn("Failed to record render outcome", "outcome", outcome, "error", err)
	}
}

// Snapshot returns all counters. Missing outcomes are reported as 0.
func (s *RenderStats) Snapshot(ctx context.Context) (Outcomes, error) {
	out := Outcomes{OutcomeSuccess: 0, OutcomeTooLarge: 0}
	for _, k := range domain.Kinds {
		out[string(k)] = 0
	}
	if !s.Enabled() {
		return out, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	raw, err := s.rdb.HGetAll(ctx, Key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	for k, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		out[k] = n
	}
	return out, nil
}
