package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/vizpage/pkg/codec"
)

// formatsCommand creates the command listing the dataset formats.
func (c *CLI) formatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the supported dataset formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(StyleTitle.Render("Dataset formats"))
			for _, f := range codec.Formats {
				desc := f.Description()
				if f == codec.DefaultFormat {
					desc += " " + StyleDim.Render("(default)")
				}
				printKeyValue(f.String(), desc)
			}
			return nil
		},
	}
}

// completeFormats offers the format names for --format.
func completeFormats(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	names := make([]string, 0, len(codec.Formats))
	for _, f := range codec.Formats {
		names = append(names, f.String()+"\t"+f.Description())
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
