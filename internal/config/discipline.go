package config

import (
	apperrors "anchor/internal/errors"
	"anchor/internal/models"
)

// Presets are the built-in discipline modes. Applying one replaces the
// stored configuration wholesale.
var Presets = map[models.Mode]models.Config{
	models.ModeScalper: {
		Mode: models.ModeScalper,
		CustomTriggers: models.TriggerRules{
			ConsecutiveLosses: 3,
			MaxDailyLoss:      300,
			TradeBurst:        models.BurstRule{Count: 8, Minutes: 10},
			MaxLossBehavior:   models.MaxLossJournal,
		},
		CooldownMinutes: 5,
		EnabledTriggers: []models.TriggerKind{models.TriggerMaxDailyLoss, models.TriggerTradeBurst},
	},
	models.ModeStructured: {
		Mode: models.ModeStructured,
		CustomTriggers: models.TriggerRules{
			ConsecutiveLosses: 2,
			MaxDailyLoss:      500,
			TradeBurst:        models.BurstRule{Count: 5, Minutes: 10},
			MaxLossBehavior:   models.MaxLossJournal,
		},
		CooldownMinutes: 15,
		EnabledTriggers: []models.TriggerKind{models.TriggerConsecutiveLosses, models.TriggerMaxDailyLoss},
	},
	models.ModeReset: {
		Mode: models.ModeReset,
		CustomTriggers: models.TriggerRules{
			ConsecutiveLosses: 1,
			MaxDailyLoss:      300,
			TradeBurst:        models.BurstRule{Count: 3, Minutes: 5},
			MaxLossBehavior:   models.MaxLossJournal,
		},
		CooldownMinutes: 15,
		EnabledTriggers: []models.TriggerKind{models.TriggerConsecutiveLosses, models.TriggerMaxDailyLoss, models.TriggerTradeBurst},
	},
}

// DefaultDiscipline is the configuration seeded on first run.
func DefaultDiscipline() models.Config {
	return Presets[models.ModeStructured]
}

// ApplyPreset returns the configuration for a named preset mode.
func ApplyPreset(mode models.Mode) (models.Config, error) {
	preset, ok := Presets[mode]
	if !ok {
		return models.Config{}, apperrors.Wrapf(apperrors.ErrUnknownPreset, "mode %q", mode)
	}
	return preset, nil
}

// ValidateDiscipline checks a discipline configuration before it is
// persisted. Custom configurations come in over the wire, so every
// field is checked.
func ValidateDiscipline(cfg models.Config) error {
	switch cfg.Mode {
	case models.ModeScalper, models.ModeStructured, models.ModeReset, models.ModeCustom:
	default:
		return apperrors.NewValidationError("mode", cfg.Mode, "unknown mode")
	}

	if cfg.CooldownMinutes <= 0 {
		return apperrors.NewValidationError("cooldownMinutes", cfg.CooldownMinutes, "must be positive")
	}

	r := cfg.CustomTriggers
	if r.ConsecutiveLosses < 1 {
		return apperrors.NewValidationError("consecutiveLosses", r.ConsecutiveLosses, "must be at least 1")
	}
	if r.MaxDailyLoss <= 0 {
		return apperrors.NewValidationError("maxDailyLoss", r.MaxDailyLoss, "must be positive")
	}
	if r.TradeBurst.Count < 1 {
		return apperrors.NewValidationError("tradeBurst.count", r.TradeBurst.Count, "must be at least 1")
	}
	if r.TradeBurst.Minutes < 1 {
		return apperrors.NewValidationError("tradeBurst.minutes", r.TradeBurst.Minutes, "must be at least 1")
	}
	switch r.MaxLossBehavior {
	case models.MaxLossJournal, models.MaxLossLockDay:
	default:
		return apperrors.NewValidationError("maxLossBehavior", r.MaxLossBehavior, "unknown behavior")
	}

	for _, t := range cfg.EnabledTriggers {
		known := false
		for _, k := range models.KnownTriggers {
			if t == k {
				known = true
				break
			}
		}
		if !known {
			return apperrors.NewValidationError("enabledTriggers", t, "unknown trigger")
		}
	}

	return nil
}
