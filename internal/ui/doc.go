// Package ui provides semantic text formatting and console dialogs for the
// crypthru CLI.
//
// # Semantic Formatters
//
// Use the appropriate formatter for the content type:
//
//	ui.Code.Sprint("crypthru encrypt path=in")  // Commands and directive tokens
//	ui.Path.Sprint("in/report.txt.pgp")         // File paths
//	ui.Identity.Sprint("alice@example.com")     // Key owner identities
//	ui.Warning.Sprint("[preview]")              // Warnings
//	ui.Muted.Sprint("2024-01-02T10:00:00Z")     // Secondary details
//
// Done, Failed and Hint build the ✓ / ✗ / → status lines printed when a
// command finishes.
//
// # Color Behavior
//
// Colors are disabled when NO_COLOR is set or the terminal cannot render
// them. Formatters then fall back to plain decorations: backticks for Code,
// single quotes for Identity, parentheses for Muted.
//
// # Dialogs
//
// Dialog asks questions on the terminal and hides secret answers. Any
// question answered with \q returns errors.ErrCancelled. NewScriptedDialog
// reads answers from an io.Reader and is what tests use.
package ui
