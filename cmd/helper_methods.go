package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/PolarWolf314/crypthru/internal/configs"
	"github.com/PolarWolf314/crypthru/internal/crypt"
	"github.com/PolarWolf314/crypthru/internal/keystore"
	"github.com/PolarWolf314/crypthru/internal/ui"
	"github.com/briandowns/spinner"
)

// newService builds the crypto service of a backend. Tests swap it for
// cheaper key parameters.
var newService = crypt.New

// environment is what every command needs from settings and flags.
type environment struct {
	settings *configs.Settings
	keystore *keystore.Keystore
	service  crypt.Service
}

// loadEnvironment layers the settings file and the persistent flags over the
// built-in defaults.
func loadEnvironment() (*environment, error) {
	path, err := configs.SettingsPath()
	if err != nil {
		return nil, err
	}
	Logger.Debugf("Loading settings from %s", path)
	settings, err := configs.LoadSettings(path)
	if err != nil {
		return nil, err
	}
	if keystoreFlag != "" {
		settings.Keystore = keystoreFlag
	}
	if backendFlag != "" {
		settings.Backend = backendFlag
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	ks, err := keystore.New(settings.Keystore)
	if err != nil {
		return nil, err
	}
	svc, err := newService(settings.Backend)
	if err != nil {
		return nil, err
	}
	Logger.Debugf("Using keystore %s with the %s backend", ks.Root(), settings.Backend)
	return &environment{settings: settings, keystore: ks, service: svc}, nil
}

// startSpinner creates and starts a spinner with the given message when active.
// Returns the spinner and a function that should be deferred to clean up.
//
// IMPORTANT: spinner.FinalMSG values do NOT need trailing newlines. The cleanup function
// automatically calls ui.EnsureNewline() on the final message before printing it.
func startSpinner(message string, active bool) (*spinner.Spinner, func()) {
	Logger.Debugf("Starting spinner with message: %s", message)
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message

	if err := s.Color("cyan"); err != nil {
		Logger.Warnf("Failed to set spinner color: %v", err)
	}

	if active {
		s.Start()
		// Ensure log output is discarded while the spinner owns the line.
		log.SetOutput(io.Discard)
	} else {
		Logger.Infof("%s", message)
	}

	cleanup := func() {
		if active {
			log.SetOutput(os.Stdout)
		}

		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = ui.EnsureNewline(s.FinalMSG)
			// Clear FinalMSG so s.Stop() doesn't print it.
			s.FinalMSG = ""
		}

		// Stopping an inactive spinner is a no-op.
		s.Stop()

		if finalMsg != "" {
			fmt.Print(finalMsg)
		}
	}

	return s, cleanup
}
