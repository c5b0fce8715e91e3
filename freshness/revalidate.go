package freshness

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrMissingInstance = errors.New("freshness: missing instanceId")

// Invalidator is the slice of tagcache.Registry that revalidation needs.
type Invalidator interface {
	InvalidateTag(ctx context.Context, tag string) (int, error)
}

type RevalidateResult struct {
	Revalidated bool     `json:"revalidated"`
	Type        Strategy `json:"type"`
	Message     string   `json:"message"`
	Timestamp   int64    `json:"timestamp"`
	InstanceID  string   `json:"instanceId,omitempty"`
	Count       int      `json:"count"`
}

// Revalidate invalidates the tag of one instance of strategy s. For
// on-demand an empty instanceID falls back to OnDemandAllTag; time-based
// requires an instanceID.
func Revalidate(ctx context.Context, inv Invalidator, s Strategy, instanceID string) (RevalidateResult, error) {
	var tag, msg string
	switch s {
	case OnDemand:
		if instanceID == "" {
			tag, msg = OnDemandAllTag, "Revalidation triggered for all on-demand content"
		} else {
			tag, msg = OnDemandTag(instanceID), "Revalidated on-demand instance: "+instanceID
		}
	case TimeBased:
		if instanceID == "" {
			return RevalidateResult{}, ErrMissingInstance
		}
		tag, msg = TimeBasedTag(instanceID), "Revalidated time-based instance: "+instanceID
	default:
		return RevalidateResult{}, fmt.Errorf("%w: %q cannot be revalidated", ErrUnknownStrategy, s)
	}

	n, err := inv.InvalidateTag(ctx, tag)
	if err != nil {
		return RevalidateResult{}, fmt.Errorf("revalidate %s: %w", tag, err)
	}
	return RevalidateResult{
		Revalidated: true,
		Type:        s,
		Message:     msg,
		Timestamp:   time.Now().UnixMilli(),
		InstanceID:  instanceID,
		Count:       n,
	}, nil
}
