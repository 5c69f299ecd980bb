package configs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// SaveTOML encodes data into filePath, creating parent directories.
func SaveTOML(filePath string, data any) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0700); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(filePath), err)
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer file.Close()

	return toml.NewEncoder(file).Encode(data)
}

// LoadTOML decodes filePath into data. Keys missing from the file leave the
// corresponding fields of data untouched, so callers can pre-fill defaults.
// Keys present in the file but unknown to data are reported as an error.
func LoadTOML(filePath string, data any) error {
	meta, err := toml.DecodeFile(filePath, data)
	if err != nil {
		return err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown setting %q in %s", undecoded[0].String(), filePath)
	}
	return nil
}
