package driving

import "github.com/custodia-labs/sercha-intel/internal/core/domain"

// SettingsService loads and persists application settings.
type SettingsService interface {
	// Get returns the validated settings, with defaults for unset keys.
	Get() (*domain.AppSettings, error)

	// Save validates and persists settings.
	Save(settings *domain.AppSettings) error
}
