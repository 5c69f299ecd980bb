package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/PolarWolf314/crypthru/internal/directive"
	"github.com/PolarWolf314/crypthru/internal/directives"
	"github.com/PolarWolf314/crypthru/internal/keystore"
	"github.com/PolarWolf314/crypthru/internal/ui"
	"github.com/spf13/cobra"
)

var (
	keysHistoryAt      string
	keysHistoryPrivate bool
	keysImportID       string
	keysCreateID       string

	keysCmd = &cobra.Command{
		Use:   "keys",
		Short: "Manage the keys of the keystore",
		Long: `Lists, imports and creates keys, and shows how an identity's keys rotated.

Keys are stored as <keystore>/keys/private/<id>.key and <keystore>/keys/public/<id>.key.
Replaced keys are kept as <id>~<seconds>.key, where seconds is when they
were superseded.`,
	}
)

func init() {
	keysHistoryCmd.Flags().StringVar(&keysHistoryAt, "at", "", "also show the key valid at this RFC3339 date")
	keysHistoryCmd.Flags().BoolVar(&keysHistoryPrivate, "private", false, "show private keys instead of public keys")
	keysImportCmd.Flags().StringVar(&keysImportID, "id", "", "identity to store the key under (default: the identity inside the key)")
	keysCreateCmd.Flags().StringVar(&keysCreateID, "id", "", "identity of the new key pair (asked when absent)")

	keysCmd.AddCommand(keysListCmd)
	keysCmd.AddCommand(keysHistoryCmd)
	keysCmd.AddCommand(keysImportCmd)
	keysCmd.AddCommand(keysCreateCmd)
}

// resetKeysState resets the keys commands' global state for testing.
func resetKeysState() {
	keysHistoryAt = ""
	keysHistoryPrivate = false
	keysImportID = ""
	keysCreateID = ""
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List private and public identities",
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting keys list command")
		env, err := loadEnvironment()
		if err != nil {
			return err
		}

		fmt.Println(ui.Info.Sprint("Keystore") + " " + ui.Path.Sprint(env.keystore.Root()))
		for _, role := range []keystore.Role{keystore.Private, keystore.Public} {
			ids, err := env.keystore.Identities(role)
			if err != nil {
				return Logger.ErrorfAndReturn("Failed to list %s keys: %v", role, err)
			}
			fmt.Printf("\n%s keys (%d):\n", role, len(ids))
			if len(ids) == 0 {
				fmt.Println("  " + ui.Muted.Sprint("none"))
			}
			for _, id := range ids {
				fmt.Println("  " + ui.Identity.Sprint(id))
			}
		}
		return nil
	},
}

var keysHistoryCmd = &cobra.Command{
	Use:   "history <id>",
	Short: "Show the current and superseded keys of an identity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		role := keystore.Public
		if keysHistoryPrivate {
			role = keystore.Private
		}
		Logger.Infof("Starting keys history command for %s (%s)", id, role)

		var at time.Time
		if keysHistoryAt != "" {
			var err error
			if at, err = time.Parse(time.RFC3339, keysHistoryAt); err != nil {
				return fmt.Errorf("invalid --at date %q, expected RFC3339 such as 2024-05-01T12:00:00Z: %w", keysHistoryAt, err)
			}
		}

		env, err := loadEnvironment()
		if err != nil {
			return err
		}
		records, err := env.keystore.History(role, id)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println(ui.Warning.Sprint("⚠") + " No " + string(role) + " key for " + ui.Identity.Sprint(id))
			return nil
		}

		fmt.Printf("%s keys of %s:\n", role, ui.Identity.Sprint(id))
		for _, r := range records {
			fmt.Println("  " + describeRecord(r))
		}

		if at.IsZero() {
			return nil
		}
		record, found, err := env.keystore.LookupAtDate(role, id, at)
		if err != nil {
			return err
		}
		fmt.Println()
		if !found {
			fmt.Println(ui.Warning.Sprint("⚠") + " No key of " + ui.Identity.Sprint(id) + " was valid at " + at.Format(time.RFC3339))
			return nil
		}
		fmt.Println(ui.Done("Valid at " + at.Format(time.RFC3339) + ": " + ui.Path.Sprint(record.Path)))
		return nil
	},
}

func describeRecord(r keystore.KeyRecord) string {
	created := ui.Muted.Sprint("created " + r.Created.Format(time.RFC3339))
	if r.Current() {
		return ui.Success.Sprint("current ") + ui.Path.Sprint(r.Path) + " " + created
	}
	return ui.Warning.Sprint("expired ") + ui.Path.Sprint(r.Path) + " " + created +
		" " + ui.Muted.Sprint("superseded "+r.Expires.Format(time.RFC3339))
}

var keysImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a public key file into the keystore",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting keys import command for %s", args[0])
		fields := map[string]any{"path": args[0]}
		if keysImportID != "" {
			fields["public-id"] = keysImportID
		}
		return runKeyDirective(cmd.Context(), directives.ImportPublicKeyName, fields)
	},
}

var keysCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Generate a new key pair",
	Long: `Generates a new key pair into the keystore, asking for the identity
(unless --id is given) and the passphrase protecting the private key.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting keys create command")
		fields := map[string]any{}
		if keysCreateID != "" {
			fields["id"] = keysCreateID
		}
		return runKeyDirective(cmd.Context(), directives.CreateKeypairName, fields)
	},
}

// runKeyDirective runs one key directive through the regular run pipeline.
func runKeyDirective(ctx context.Context, name string, fields map[string]any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	loader := &directive.Loader{Registry: directives.Registry(), Expander: &directive.Expander{}}
	fields[directive.NameField] = name
	d, err := loader.Build(fields, directive.TokenSource)
	if err != nil {
		return err
	}
	return runDirectives(ctx, env, nil, []directive.Directive{d})
}
