package repo

import (
	"time"

	"github.com/rogerio-castellano/shopnesty/internal/models"
)

// MovementFilter narrows a product's movement log. Nil fields and an
// empty Reason match everything.
type MovementFilter struct {
	Since  *time.Time
	Until  *time.Time
	Reason models.MovementReason
	Offset *int
	Limit  *int
}

const defaultLimit = 100

func (mf MovementFilter) matches(m models.Movement) bool {
	if mf.Since != nil && m.CreatedAt.Before(*mf.Since) {
		return false
	}
	if mf.Until != nil && m.CreatedAt.After(*mf.Until) {
		return false
	}
	return mf.Reason == "" || m.Reason == mf.Reason
}
