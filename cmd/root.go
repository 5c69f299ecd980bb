package cmd

import (
	"errors"
	"fmt"
	"os"

	kerrors "github.com/PolarWolf314/crypthru/internal/errors"
	logger "github.com/PolarWolf314/crypthru/internal/logging"
	"github.com/PolarWolf314/crypthru/internal/ui"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	verbose bool
	debug   bool
	Logger  logger.Logger

	// Settings overrides shared by every command.
	keystoreFlag string
	backendFlag  string

	RootCmd = &cobra.Command{
		Use:   "crypthru [directive [key=value]...]...",
		Short: "crypthru - encrypt and decrypt files in batches driven by directives",
		Long: `crypthru runs directives: small declarative commands that encrypt, decrypt,
create key pairs, import public keys or execute shell commands.

Directives come from YAML or JSON files (--run), an inline YAML mapping
(--inline) or command-line tokens, where a bare word starts a directive and
key=value words set its fields:

  crypthru encrypt path=~/outbox public-id=bob decrypt path=~/inbox

Keys live in a local keystore (~/.crypthru by default). Run 'crypthru guide'
for a primer and the list of directives.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			Logger = logger.Logger{
				Verbose: verbose,
				Debug:   debug,
			}
			Logger.Debugf("Initializing %s with verbose=%t, debug=%t", cmd.Name(), verbose, debug)
		},
		RunE: runRoot,
	}
)

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	RootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")
	RootCmd.PersistentFlags().StringVar(&keystoreFlag, "keystore", "", "keystore directory (default from settings, ~/.crypthru)")
	RootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "crypto backend: pgp or age (default from settings)")

	registerRunFlags(RootCmd.Flags())

	RootCmd.AddCommand(keysCmd)
	RootCmd.AddCommand(directivesCmd)
	RootCmd.AddCommand(guideCmd)
	RootCmd.AddCommand(ConfigCmd)
}

// Execute runs the command line and reports a failure with a hint when one
// applies.
func Execute() error {
	err := RootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, ui.Failed(err.Error()))
		if hint := hintFor(err); hint != "" {
			fmt.Fprintln(os.Stderr, ui.Hint(hint))
		}
	}
	return err
}

// hintFor suggests the next step for the errors a user can fix.
func hintFor(err error) string {
	switch {
	case errors.Is(err, kerrors.ErrNoPrivateKey):
		return "Run " + ui.Code.Sprint("crypthru keys create") + " to generate your key pair"
	case errors.Is(err, kerrors.ErrAmbiguousIdentity):
		return "Select one with " + ui.Flag.Sprint("--private-id")
	case errors.Is(err, kerrors.ErrNoPublicKeys):
		return "Name a recipient with " + ui.Flag.Sprint("--public-id") + " or the public-id field"
	case errors.Is(err, kerrors.ErrNoSuchKey):
		return "Import the key with " + ui.Code.Sprint("crypthru keys import <file>") + ", or list keys with " + ui.Code.Sprint("crypthru keys list")
	case errors.Is(err, kerrors.ErrUnknownDirective):
		return "Run " + ui.Code.Sprint("crypthru directives") + " to list the available directives"
	case errors.Is(err, kerrors.ErrNoConsole):
		return "Pass the passphrase with " + ui.Flag.Sprint("--pass") + " when not running in a terminal"
	}
	return ""
}

// ResetGlobalState resets all global variables to their default values for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	keystoreFlag = ""
	backendFlag = ""
	resetRunState()
	resetKeysState()
	resetConfigState()
	resetCobraFlagState(RootCmd)
}

// resetCobraFlagState clears the Changed marks of every flag to prevent test pollution.
func resetCobraFlagState(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		flag.Changed = false
	})
	cmd.PersistentFlags().VisitAll(func(flag *pflag.Flag) {
		flag.Changed = false
	})
	for _, sub := range cmd.Commands() {
		resetCobraFlagState(sub)
	}
}
