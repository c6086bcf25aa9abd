package scanner

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/GodsB1025/trade-monitor/internal/interfaces"
	"github.com/GodsB1025/trade-monitor/internal/models"
)

// ReclaimSeenKey is the bookkeeping hash recording when each task ID was
// first observed in a processing queue.
const ReclaimSeenKey = "monitor:reclaim:seen"

// Reclaimer returns tasks stranded in a processing queue by a crashed
// consumer back to their pending queue. A task is stranded when it stays in
// processing across sweeps for longer than the staleness threshold; healthy
// consumers remove their task well before that.
type Reclaimer struct {
	coord      interfaces.CoordinationStore
	logger     arbor.ILogger
	staleAfter time.Duration
}

// NewReclaimer creates a processing-queue reclaimer.
func NewReclaimer(coord interfaces.CoordinationStore, staleAfter time.Duration, logger arbor.ILogger) *Reclaimer {
	return &Reclaimer{
		coord:      coord,
		logger:     logger,
		staleAfter: staleAfter,
	}
}

// Sweep inspects every channel's processing queue once and requeues stale
// tasks. Returns the number of tasks returned to pending. Requeued tasks may
// be delivered twice; delivery is at-least-once by design.
func (r *Reclaimer) Sweep(ctx context.Context) (int, error) {
	seen, err := r.coord.HashGetAll(ctx, ReclaimSeenKey)
	if errors.Is(err, interfaces.ErrKeyNotFound) {
		seen = map[string]string{}
	} else if err != nil {
		return 0, err
	}

	now := time.Now().Unix()
	requeued := 0
	live := make(map[string]bool)

	for _, channel := range models.AllChannels() {
		processingKey := models.ProcessingQueueKey(channel)
		pendingKey := models.PendingQueueKey(channel)

		taskIDs, err := r.coord.ListRange(ctx, processingKey)
		if err != nil {
			return requeued, err
		}

		for _, taskID := range taskIDs {
			firstSeen, ok := parseUnix(seen[taskID])
			if !ok {
				// First sighting: start the staleness clock.
				if err := r.coord.HashSet(ctx, ReclaimSeenKey, map[string]string{
					taskID: strconv.FormatInt(now, 10),
				}); err != nil {
					return requeued, err
				}
				live[taskID] = true
				continue
			}

			if time.Duration(now-firstSeen)*time.Second < r.staleAfter {
				live[taskID] = true
				continue
			}

			// Stale: pull it out of processing and requeue. A zero removal
			// count means the consumer finished between the range read and
			// now, which is the good outcome.
			removed, err := r.coord.ListRemoveByValue(ctx, processingKey, taskID, 1)
			if err != nil {
				return requeued, err
			}
			if removed == 0 {
				if err := r.coord.HashDeleteField(ctx, ReclaimSeenKey, taskID); err != nil {
					return requeued, err
				}
				continue
			}

			if err := r.coord.ListPush(ctx, pendingKey, taskID); err != nil {
				return requeued, err
			}
			if err := r.coord.HashDeleteField(ctx, ReclaimSeenKey, taskID); err != nil {
				return requeued, err
			}

			requeued++
			r.logger.Warn().
				Str("task_id", taskID).
				Str("channel", string(channel)).
				Dur("stale_after", r.staleAfter).
				Msg("Requeued stale task from processing queue")
		}
	}

	// Drop bookkeeping for tasks that left processing normally.
	for taskID := range seen {
		if !live[taskID] {
			if err := r.coord.HashDeleteField(ctx, ReclaimSeenKey, taskID); err != nil {
				return requeued, err
			}
		}
	}

	if requeued > 0 {
		r.logger.Info().Int("requeued", requeued).Msg("Reclaim sweep completed")
	}
	return requeued, nil
}

func parseUnix(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
