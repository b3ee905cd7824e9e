package cmd

import (
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/assetpipe/usdpublish/internal/previewtex"
)

var (
	bakeResolution int
	bakeFormat     string
)

func init() {
	bakeCmd.Flags().IntVarP(&bakeResolution, "resolution", "r", 1024, "Preview resolution (128-4096)")
	bakeCmd.Flags().StringVarP(&bakeFormat, "format", "f", "jpg", "Preview format (jpg, jpeg, png)")
	rootCmd.AddCommand(bakeCmd)
}

var bakeCmd = &cobra.Command{
	Use:   "bake [texture] [material-name]",
	Short: "Bake a preview texture for a base color map",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		fs := osfs.New(".")

		baker := previewtex.NewBaker(fs, log)
		written, err := baker.Bake(args[0], args[1], bakeResolution, bakeFormat)
		if err != nil {
			return err
		}
		for _, w := range written {
			log.Info("baked preview texture", "path", w)
		}
		return nil
	},
}
