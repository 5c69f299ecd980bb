// Package configs manages the crypthru user settings file.
//
// Settings are stored in TOML at $XDG_CONFIG_HOME/crypthru/config.toml
// (or the path in CRYPTHRU_CONFIG):
//
//	install_id = "6f1c..."
//	keystore   = "~/.crypthru"
//	backend    = "pgp"        # or "age"
//	gpg_binary = "gpg"
//	stop_file  = "STOP"
//	audit      = true
//
// LoadSettings starts from Defaults and overlays whatever keys the file
// defines, so a partial file is fine. Unknown keys are rejected, and the
// result is validated with go-playground/validator before use. Command-line
// flags take precedence over every value read here.
package configs
