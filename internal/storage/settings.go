package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	klog "github.com/Klingon-tech/klingwallet/internal/log"
)

// Currency display modes.
const (
	CurrencyETH = "ETH"
	CurrencyUSD = "USD"
)

// Themes.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// Settings are the user preferences that survive restarts. Key material is
// never part of Settings.
type Settings struct {
	Network         string        `json:"network,omitempty"`
	CurrencyDisplay string        `json:"currency_display"`
	Theme           string        `json:"theme"`
	AutoLock        bool          `json:"auto_lock"`
	LockTimeout     time.Duration `json:"lock_timeout"`
}

// DefaultSettings returns the settings of a fresh install.
func DefaultSettings() Settings {
	return Settings{
		CurrencyDisplay: CurrencyETH,
		Theme:           ThemeDark,
	}
}

// Validate checks the enumerated fields.
func (s Settings) Validate() error {
	switch s.CurrencyDisplay {
	case CurrencyETH, CurrencyUSD:
	default:
		return fmt.Errorf("currency display %q: want %s or %s", s.CurrencyDisplay, CurrencyETH, CurrencyUSD)
	}
	switch s.Theme {
	case ThemeDark, ThemeLight:
	default:
		return fmt.Errorf("theme %q: want %s or %s", s.Theme, ThemeDark, ThemeLight)
	}
	if s.LockTimeout < 0 {
		return fmt.Errorf("lock timeout must not be negative")
	}
	return nil
}

var (
	settingsPrefix = []byte("settings/")
	settingsKey    = []byte("current")
)

// SettingsStore persists Settings as JSON in its own namespace of a DB.
type SettingsStore struct {
	db *PrefixDB
}

// NewSettingsStore creates a settings store on db.
func NewSettingsStore(db DB) *SettingsStore {
	return &SettingsStore{db: NewPrefixDB(db, settingsPrefix)}
}

// Load returns the stored settings, or DefaultSettings when none are stored.
func (s *SettingsStore) Load() (Settings, error) {
	data, err := s.db.Get(settingsKey)
	if errors.Is(err, ErrNotFound) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return DefaultSettings(), fmt.Errorf("load settings: %w", err)
	}
	settings := DefaultSettings()
	if err := json.Unmarshal(data, &settings); err != nil {
		return DefaultSettings(), fmt.Errorf("decode settings: %w", err)
	}
	return settings, nil
}

// Save validates and stores settings.
func (s *SettingsStore) Save(settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := s.db.Put(settingsKey, data); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	klog.Storage.Debug().Str("network", settings.Network).Msg("Settings saved")
	return nil
}

// Clear removes every stored setting.
func (s *SettingsStore) Clear() error {
	if err := s.db.DeleteAll(); err != nil {
		return fmt.Errorf("clear settings: %w", err)
	}
	klog.Storage.Info().Msg("Settings cleared")
	return nil
}
