package service

import (
	"context"
	"sort"

	"github.com/apophisnow/icemaker/internal/controller"
	"github.com/apophisnow/icemaker/internal/logger"
	"github.com/apophisnow/icemaker/internal/models"
	"github.com/apophisnow/icemaker/internal/repository"
)

// ConfigurationService applies runtime config changes to the controller and
// persists them, so they are re-applied at the next boot.
type ConfigurationService struct {
	ctrl       *controller.Controller
	configRepo repository.ConfigRepo
	eventRepo  repository.EventRepo
	log        *logger.Logger
}

func NewConfigurationService(ctrl *controller.Controller, configRepo repository.ConfigRepo, eventRepo repository.EventRepo, log *logger.Logger) *ConfigurationService {
	return &ConfigurationService{ctrl: ctrl, configRepo: configRepo, eventRepo: eventRepo, log: log}
}

func (s *ConfigurationService) Get(ctx context.Context) models.CycleConfig {
	return s.ctrl.Config()
}

// Update accepts flat dotted keys or nested objects. The controller keeps the
// new values even if persisting them fails; the error is returned so the
// caller knows they will not survive a restart.
func (s *ConfigurationService) Update(ctx context.Context, update map[string]any) (models.CycleConfig, error) {
	flat := models.FlattenUpdate(update)
	cfg, err := s.ctrl.UpdateConfig(flat)
	if err != nil {
		return cfg, err
	}

	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	journal(ctx, s.eventRepo, s.log, models.LogEvent{
		Type:        models.LogConfig,
		Description: "config updated",
		Metadata:    map[string]any{"fields": keys},
	})

	if s.configRepo != nil {
		if err := s.persist(ctx, cfg, keys); err != nil {
			s.log.Errorw("config_persist_failed", "err", err)
			return cfg, err
		}
	}
	return cfg, nil
}

// persist merges the changed keys into the stored overrides. Fields never
// changed at runtime stay out of the store and keep following the config file.
func (s *ConfigurationService) persist(ctx context.Context, cfg models.CycleConfig, keys []string) error {
	overrides, _, err := s.configRepo.Load(ctx)
	if err != nil {
		return err
	}
	if overrides == nil {
		overrides = make(map[string]any, len(keys))
	}
	for _, k := range keys {
		f, ok := models.LookupConfigField(k)
		if !ok || f.ReadOnly {
			continue
		}
		overrides[k] = f.Value(cfg)
	}
	return s.configRepo.Save(ctx, overrides)
}

// Reset restores factory defaults and forgets the persisted overrides.
func (s *ConfigurationService) Reset(ctx context.Context) (models.CycleConfig, error) {
	cfg := s.ctrl.ResetConfig()
	journal(ctx, s.eventRepo, s.log, models.LogEvent{
		Type:        models.LogConfig,
		Description: "config reset to defaults",
	})
	if s.configRepo != nil {
		if err := s.configRepo.Clear(ctx); err != nil {
			s.log.Errorw("config_clear_failed", "err", err)
			return cfg, err
		}
	}
	return cfg, nil
}

// Schema lists every tunable field with its bounds and factory default.
func (s *ConfigurationService) Schema() []models.ConfigField {
	return models.ConfigSchema()
}
