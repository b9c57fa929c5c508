// Package graph provides a read view over deployed process definitions and
// the runtime transition editing a reject operation needs.
package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/enactio/enact/backend"
	"github.com/enactio/enact/core"
	"github.com/enactio/enact/fault"
)

const (
	defaultCacheSize = 128
	defaultCacheTTL  = 5 * time.Minute
)

// Accessor is a read-only view over deployed definitions. Lookups go through
// a TTL cache; definitions are immutable per version so entries never go
// stale, the TTL only bounds memory.
type Accessor struct {
	engine backend.Engine
	cache  *ttlcache.Cache[string, *core.ProcessDefinition]
}

func NewAccessor(engine backend.Engine) *Accessor {
	c := ttlcache.New(
		ttlcache.WithCapacity[string, *core.ProcessDefinition](defaultCacheSize),
		ttlcache.WithTTL[string, *core.ProcessDefinition](defaultCacheTTL),
	)

	return &Accessor{
		engine: engine,
		cache:  c,
	}
}

// Definition returns the deployed definition. The returned object is the
// engine's live graph, shared across all running instances of the definition.
func (a *Accessor) Definition(ctx context.Context, definitionID string) (*core.ProcessDefinition, error) {
	if item := a.cache.Get(definitionID); item != nil {
		return item.Value(), nil
	}

	def, err := a.engine.DeployedDefinition(ctx, definitionID)
	if err != nil {
		return nil, fmt.Errorf("getting deployed definition: %w", err)
	}

	a.cache.Set(definitionID, def, ttlcache.DefaultTTL)

	return def, nil
}

// FindActivity returns the activity with the given key in the deployed
// definition.
func (a *Accessor) FindActivity(ctx context.Context, definitionID, activityKey string) (*core.Activity, error) {
	def, err := a.Definition(ctx, definitionID)
	if err != nil {
		return nil, err
	}

	activity := def.Activity(activityKey)
	if activity == nil {
		return nil, fault.NotFound(fmt.Sprintf("activity %q does not exist in definition %q", activityKey, definitionID))
	}

	return activity, nil
}

// UserTaskActivities returns the definition's user-task activities in
// definition order.
func (a *Accessor) UserTaskActivities(ctx context.Context, definitionID string) ([]*core.Activity, error) {
	def, err := a.Definition(ctx, definitionID)
	if err != nil {
		return nil, err
	}

	var activities []*core.Activity
	for _, activity := range def.Activities {
		if activity.Type == core.ActivityUserTask {
			activities = append(activities, activity)
		}
	}

	return activities, nil
}

// EndEvent returns the definition's terminal activity.
func (a *Accessor) EndEvent(ctx context.Context, definitionID string) (*core.Activity, error) {
	def, err := a.Definition(ctx, definitionID)
	if err != nil {
		return nil, err
	}

	for _, activity := range def.Activities {
		if activity.Type == core.ActivityEndEvent {
			return activity, nil
		}
	}

	return nil, fault.NotFound(fmt.Sprintf("definition %q has no end event", definitionID))
}
