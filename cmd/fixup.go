package cmd

import (
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/assetpipe/usdpublish/internal/fixup"
	"github.com/assetpipe/usdpublish/internal/stage"
)

func init() {
	rootCmd.AddCommand(fixupCmd)
}

var fixupCmd = &cobra.Command{
	Use:   "fixup [layer] [target-root]",
	Short: "Normalize a mesh layer into the component layout",
	Long: `fixup rewrites a host-exported mesh layer in place: material bindings are
stripped, geometry moves under <target-root>/geo/render with instanceable
proxy mirrors, and mesh extents are computed.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		fs := osfs.New(".")

		layer, err := stage.Open(fs, args[0])
		if err != nil {
			return err
		}
		st := stage.NewStage(layer)
		changed, err := fixup.Normalize(st, args[1], log)
		if err != nil {
			return err
		}
		if !changed {
			log.Info("layer already normalized", "layer", args[0])
			return nil
		}
		return layer.Save(fs)
	},
}
