package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/PolarWolf314/crypthru/internal/audit"
	"github.com/PolarWolf314/crypthru/internal/crypt"
	"github.com/PolarWolf314/crypthru/internal/directive"
	"github.com/PolarWolf314/crypthru/internal/directives"
	"github.com/PolarWolf314/crypthru/internal/session"
	"github.com/PolarWolf314/crypthru/internal/ui"
	"github.com/PolarWolf314/crypthru/internal/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	runFiles       []string
	inlineYAML     string
	publicIDs      []string
	publicKeyFiles []string
	privateID      string
	privateKeyFile string
	passFlag       string
	stopFileFlag   string
	defines        []string
	previewFlag    bool
	forceFlag      bool
	gpgFlag        bool
	watchFlag      bool
)

func registerRunFlags(flags *pflag.FlagSet) {
	flags.StringArrayVarP(&runFiles, "run", "r", nil, "run the directives of a YAML or JSON file (repeatable)")
	flags.StringVar(&inlineYAML, "inline", "", "run one directive given as a YAML mapping")
	flags.StringArrayVar(&publicIDs, "public-id", nil, "add a recipient identity to every encrypt (repeatable)")
	flags.StringArrayVar(&publicKeyFiles, "public-key", nil, "add a recipient public key file to every encrypt (repeatable)")
	flags.StringVar(&privateID, "private-id", "", "identity of the private key used to decrypt")
	flags.StringVar(&privateKeyFile, "private-key", "", "private key file used to decrypt, instead of the keystore")
	flags.StringVar(&passFlag, "pass", "", "passphrase of the private key: a literal, '"+session.AskMe+"' or '"+session.Empty+"' (prompted when absent)")
	flags.StringVar(&stopFileFlag, "stop-file", "", "name of the file that ends watch mode (default from settings, STOP)")
	flags.StringArrayVarP(&defines, "define", "D", nil, "set a property used by ${NAME} placeholders, as key=value (repeatable)")
	flags.BoolVar(&previewFlag, "preview", false, "report what would be done without touching any file")
	flags.BoolVarP(&forceFlag, "force", "f", false, "process files even when their output is up to date")
	flags.BoolVar(&gpgFlag, "gpg", false, "use the system gpg instead of the built-in backend")
	flags.BoolVar(&watchFlag, "watch", false, "keep watching directories for new files after the first pass")
}

// resetRunState resets the run flags for testing.
func resetRunState() {
	runFiles = nil
	inlineYAML = ""
	publicIDs = nil
	publicKeyFiles = nil
	privateID = ""
	privateKeyFile = ""
	passFlag = ""
	stopFileFlag = ""
	defines = nil
	previewFlag = false
	forceFlag = false
	gpgFlag = false
	watchFlag = false
}

func runRoot(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting crypthru run")
	Logger.Debugf("Flags: run=%v, inline=%t, preview=%t, force=%t, gpg=%t, watch=%t", runFiles, inlineYAML != "", previewFlag, forceFlag, gpgFlag, watchFlag)

	properties, err := parseDefines(defines)
	if err != nil {
		return err
	}
	env, err := loadEnvironment()
	if err != nil {
		return err
	}

	loader := &directive.Loader{
		Registry: directives.Registry(),
		Expander: &directive.Expander{Properties: properties},
	}
	list, err := collectDirectives(loader, args)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		Logger.Warnf("Nothing to do: give a directive file with --run or directives on the command line")
		return cmd.Usage()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return runDirectives(ctx, env, properties, list)
}

// collectDirectives loads the --run files first, then --inline, then the
// command-line tokens.
func collectDirectives(loader *directive.Loader, args []string) ([]directive.Directive, error) {
	var list []directive.Directive
	for _, file := range runFiles {
		path, err := utils.ExpandHome(file)
		if err != nil {
			return nil, err
		}
		Logger.Debugf("Loading directives from %s", path)
		loaded, err := loader.LoadFile(path)
		if err != nil {
			return nil, err
		}
		list = append(list, loaded...)
	}
	if inlineYAML != "" {
		d, err := loader.ParseInline(inlineYAML)
		if err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	converted, err := loader.Convert(args)
	if err != nil {
		return nil, err
	}
	return append(list, converted...), nil
}

// runDirectives is the composition root of a run: it builds the session
// and executes every directive in order, stopping at the first failure.
func runDirectives(ctx context.Context, env *environment, properties map[string]string, list []directive.Directive) error {
	stopFile := env.settings.StopFile
	if stopFileFlag != "" {
		stopFile = stopFileFlag
	}

	spinnerActive := !verbose && !debug && !previewFlag && !watchFlag
	spin, cleanup := startSpinner(fmt.Sprintf("Running %d directive(s)...", len(list)), spinnerActive)
	defer cleanup()

	sess, err := session.New(session.Options{
		Flags: session.Flags{
			Force:   forceFlag,
			Preview: previewFlag,
			Watch:   watchFlag,
			RunGPG:  gpgFlag,
		},
		Keystore:       env.keystore,
		Service:        env.service,
		Log:            Logger,
		PublicIDs:      publicIDs,
		PublicKeyFiles: publicKeyFiles,
		PrivateID:      privateID,
		PrivateKeyFile: privateKeyFile,
		Passphrase:     passFlag,
		Properties:     properties,
		StopFile:       stopFile,
		// Prompts and dialogs need the terminal line back from the spinner.
		Prompter: func(prompt string) (string, error) {
			spin.Stop()
			pass, err := utils.ReadPassphrase(prompt)
			return string(pass), err
		},
		Dialog: func() (*ui.Dialog, error) {
			spin.Stop()
			return ui.NewDialog()
		},
	})
	if err != nil {
		return err
	}
	sess.GPG = &crypt.GPG{Binary: gpgBinary(sess, env.settings.GPGBinary), Log: Logger}

	auditLog := openAuditLog(env)

	for _, d := range list {
		desc := d.Describe()
		Logger.Infof("Directive --> %s ...", desc)
		if err := d.Execute(ctx, sess); err != nil {
			recordAudit(auditLog, sess, desc)
			spin.FinalMSG = ui.Failed("Directive " + ui.Code.Sprint(desc) + " failed")
			return err
		}
		recordAudit(auditLog, sess, desc)
	}

	var b strings.Builder
	if previewFlag {
		b.WriteString(ui.Done(fmt.Sprintf("Previewed %d directive(s), nothing was changed", len(list))))
	} else {
		b.WriteString(ui.Done(fmt.Sprintf("Completed %d directive(s)", len(list))))
	}
	for _, line := range sess.PerformanceFigures() {
		Logger.Infof("%s", line)
		b.WriteString("\n  " + ui.Muted.Sprint(line))
	}
	spin.FinalMSG = b.String()
	return nil
}

// gpgBinary picks the gpg executable: the GPG property or environment
// variable, then the settings.
func gpgBinary(sess *session.Session, fromSettings string) string {
	if v, ok := sess.Property("GPG"); ok && v != "" {
		return v
	}
	if fromSettings != "" {
		return fromSettings
	}
	return crypt.DefaultGPGBinary
}

func openAuditLog(env *environment) *audit.Log {
	if !env.settings.Audit || previewFlag {
		return nil
	}
	user, err := utils.GetUsername()
	if err != nil {
		Logger.Debugf("Failed to get username for the audit log: %v", err)
		user = "unknown"
	}
	return audit.NewLog(env.keystore.Root(), user)
}

// recordAudit writes one entry for a directive that touched files. Audit
// failures are warnings only.
func recordAudit(log *audit.Log, sess *session.Session, desc string) {
	sources, outputs := sess.TakeActivity()
	if log == nil || len(sources)+len(outputs) == 0 {
		return
	}
	var existing []string
	for _, out := range outputs {
		if utils.FileExists(out) {
			existing = append(existing, out)
		}
	}
	entry := audit.Entry{Directive: desc, Files: sources, Outputs: existing}
	if err := log.Append(entry); err != nil {
		Logger.Warnf("Failed to write audit log %s: %v", log.Path(), err)
		return
	}
	Logger.Debugf("Audit entry written to %s", log.Path())
}

// parseDefines turns key=value definitions into run properties.
func parseDefines(defs []string) (map[string]string, error) {
	properties := make(map[string]string, len(defs))
	for _, def := range defs {
		key, value, ok := strings.Cut(def, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid property %q, expected key=value", def)
		}
		properties[key] = value
	}
	return properties, nil
}
