package service

import (
	"context"
	"fmt"

	"github.com/apophisnow/icemaker/internal/controller"
	"github.com/apophisnow/icemaker/internal/logger"
	"github.com/apophisnow/icemaker/internal/repository"
)

// Restore brings a freshly built controller back to where the last run left
// off: persisted config overrides first, applied over the file config, then
// the lifetime counter, then the state snapshot. Overrides that no longer
// validate are logged and skipped; repository read errors are returned.
func Restore(ctx context.Context, ctrl *controller.Controller, repos *repository.Repository, log *logger.Logger) error {
	if log == nil {
		log = logger.Nop()
	}

	if repos.ConfigRepo != nil {
		overrides, ok, err := repos.ConfigRepo.Load(ctx)
		if err != nil {
			return fmt.Errorf("load config overrides: %w", err)
		}
		if ok && len(overrides) > 0 {
			if _, err := ctrl.UpdateConfig(overrides); err != nil {
				log.Warnw("stored_config_rejected", "err", err)
			} else {
				log.Infow("stored_config_applied", "fields", len(overrides))
			}
		}
	}

	if err := ctrl.LoadCounters(ctx); err != nil {
		return err
	}

	if repos.StateRepo != nil {
		rec, ok, err := repos.StateRepo.Load(ctx)
		if err != nil {
			return fmt.Errorf("load state snapshot: %w", err)
		}
		if ok {
			if err := ctrl.Restore(rec); err != nil {
				log.Errorw("state_restore_failed", "stored", rec.State.String(), "err", err)
			}
			log.Infow("state_restored", "stored", rec.State.String(), "now", ctrl.State().String())
		}
	}
	return nil
}

// Persist writes the final snapshot, typically on shutdown.
func Persist(ctx context.Context, ctrl *controller.Controller, repos *repository.Repository) error {
	if repos.StateRepo == nil {
		return nil
	}
	if err := repos.StateRepo.Save(ctx, ctrl.Record()); err != nil {
		return fmt.Errorf("persist state snapshot: %w", err)
	}
	return nil
}
