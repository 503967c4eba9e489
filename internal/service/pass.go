package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"nettracker/internal/domain"
	"nettracker/internal/repository"
)

// Pass carries everything one reconciliation pass needs. It is created when
// the pass transaction opens and discarded when it commits or rolls back;
// nothing in it outlives the pass.
type Pass struct {
	ID       uuid.UUID
	Now      time.Time
	Tx       repository.Tx
	Registry *Registry
	Log      *HistoryLog
	logger   zerolog.Logger
}

func newPass(tx repository.Tx, now time.Time, logger zerolog.Logger) *Pass {
	id := uuid.New()
	registry := NewRegistry(tx)
	return &Pass{
		ID:       id,
		Now:      domain.NormalizeTime(now),
		Tx:       tx,
		Registry: registry,
		Log:      NewHistoryLog(tx, registry),
		logger:   logger.With().Str("pass_id", id.String()).Logger(),
	}
}
