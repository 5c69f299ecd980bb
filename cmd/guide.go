package cmd

import (
	"fmt"

	"github.com/PolarWolf314/crypthru/internal/directives"
	"github.com/PolarWolf314/crypthru/internal/ui"
	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
)

var directivesCmd = &cobra.Command{
	Use:   "directives",
	Short: "List the available directives",
	Run: func(cmd *cobra.Command, args []string) {
		Logger.Infof("Listing registered directives")
		printDirectives()
	},
}

var guideCmd = &cobra.Command{
	Use:   "guide",
	Short: "Print a short primer on running directives",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println()
		banner := figure.NewColorFigure("crypthru", "alligator2", "green", true)
		banner.Print()
		fmt.Println()

		fmt.Println(ui.Info.Sprint("→") + " Create your key pair once:")
		fmt.Println("    " + ui.Code.Sprint("crypthru keys create"))
		fmt.Println(ui.Info.Sprint("→") + " Import the public keys of the people you send files to:")
		fmt.Println("    " + ui.Code.Sprint("crypthru keys import bob.asc"))
		fmt.Println(ui.Info.Sprint("→") + " Encrypt a directory for them, then decrypt what they send you:")
		fmt.Println("    " + ui.Code.Sprint("crypthru encrypt path=~/outbox public-id=bob decrypt path=~/inbox"))
		fmt.Println(ui.Info.Sprint("→") + " Keep the same steps in a file and run it, or keep watching for new files:")
		fmt.Println("    " + ui.Code.Sprint("crypthru --run daily.yaml --watch"))
		fmt.Println(ui.Info.Sprint("→") + " Check what would happen first with " + ui.Flag.Sprint("--preview"))
		fmt.Println()

		printDirectives()
	},
}

func printDirectives() {
	reg := directives.Registry()
	fmt.Println("Available directives:")
	for _, name := range reg.Names() {
		fmt.Printf("  %-18s %s\n", ui.Code.Sprint(name), reg.Summary(name))
	}
}
