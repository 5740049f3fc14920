package service

import (
	"context"

	"github.com/iuliaszarics/WhiskersWonderland/internal/logger"
	"github.com/iuliaszarics/WhiskersWonderland/internal/model"
)

// activityRecorder appends activity rows on a best-effort basis: a failed
// write is logged and never fails the caller.
type activityRecorder struct {
	store ActivityStore
	log   *logger.Logger
}

func (r activityRecorder) record(ctx context.Context, actorID int64, action string, entityID int64, details string) {
	entry := &model.ActivityLog{
		UserID:     &actorID,
		Action:     action,
		EntityType: model.EntityUser,
		EntityID:   &entityID,
		Details:    details,
	}
	if err := r.store.Create(ctx, entry); err != nil {
		r.log.Error().Err(err).
			Int64("user_id", actorID).
			Str("action", action).
			Msg("failed to write activity log")
		return
	}
	r.log.AuditLog(actorID, action, model.EntityUser, entityID, details)
}
