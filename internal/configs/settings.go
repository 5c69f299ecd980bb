package configs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Backend names accepted for the crypto service.
const (
	BackendPGP = "pgp"
	BackendAge = "age"
)

// Settings holds the user level defaults that flags can override.
type Settings struct {
	InstallID string `toml:"install_id,omitempty"`
	Keystore  string `toml:"keystore" validate:"required"`
	Backend   string `toml:"backend" validate:"required,oneof=pgp age"`
	GPGBinary string `toml:"gpg_binary" validate:"required"`
	StopFile  string `toml:"stop_file" validate:"required,excludesall=/\\"`
	Audit     bool   `toml:"audit"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Defaults returns the built-in settings.
func Defaults() *Settings {
	return &Settings{
		Keystore:  "~/.crypthru",
		Backend:   BackendPGP,
		GPGBinary: "gpg",
		StopFile:  "STOP",
		Audit:     true,
	}
}

// SettingsPath returns the settings file location. CRYPTHRU_CONFIG
// overrides the default under the user config directory.
func SettingsPath() (string, error) {
	if p := os.Getenv("CRYPTHRU_CONFIG"); p != "" {
		return p, nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("error getting config directory: %w", err)
	}
	return filepath.Join(configDir, "crypthru", "config.toml"), nil
}

// Validate checks every field constraint.
func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return fmt.Errorf("invalid setting %s: %q fails %q", f.Field(), f.Value(), f.Tag())
		}
		return err
	}
	return nil
}

// LoadSettings reads path over the defaults. A missing file yields the
// defaults unchanged.
func LoadSettings(path string) (*Settings, error) {
	settings := Defaults()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return settings, nil
	}

	if err := LoadTOML(path, settings); err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return settings, nil
}

// SaveSettings validates and writes settings to path.
func SaveSettings(path string, settings *Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	if err := SaveTOML(path, settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// InitSettings writes the defaults with a fresh install id. An existing file
// is kept unless force is set.
func InitSettings(path string, force bool) (*Settings, error) {
	if _, err := os.Stat(path); err == nil && !force {
		return nil, fmt.Errorf("settings already exist at %s", path)
	}

	settings := Defaults()
	settings.InstallID = uuid.New().String()
	if err := SaveSettings(path, settings); err != nil {
		return nil, err
	}
	return settings, nil
}
