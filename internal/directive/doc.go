// Package directive defines the Directive contract and turns directive
// documents into configured instances.
//
// # Sources
//
// A directive document is a sequence of mappings, each naming its type in
// the "directive" field:
//
//	- directive: encrypt
//	  path: ~/outbox
//	  public-id: [bob]
//	  filter:
//	    - exclude: "*.tmp"
//
// Loader reads YAML files, JSON files (comments allowed) and a command-line
// token stream such as
//
//	encrypt path=~/outbox force=true decrypt path=~/inbox
//
// where command-line values are typed by Coerce.
//
// # Decoding
//
// Decoder exposes typed accessors over one node. Strings go through Expander,
// which resolves ${NAME} from run properties and then the environment, and
// ${expand: glob} into the matching names of the working directory.
// Placeholders that cannot be resolved stay as written.
//
// # Registry
//
// Registry maps names to factories. Unknown names fail with
// errors.ErrUnknownDirective and list every registered name.
package directive
