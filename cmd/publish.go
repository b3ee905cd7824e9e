package cmd

import (
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/assetpipe/usdpublish/internal/asset"
	"github.com/assetpipe/usdpublish/internal/geom"
	"github.com/assetpipe/usdpublish/internal/manifest"
	"github.com/assetpipe/usdpublish/internal/previewtex"
	"github.com/assetpipe/usdpublish/internal/texture"
)

var (
	publishOut  string
	publishMesh string
)

func init() {
	publishCmd.Flags().StringVarP(&publishOut, "out", "o", "", "Publish directory (overrides the manifest)")
	publishCmd.Flags().StringVarP(&publishMesh, "mesh", "m", "", "Mesh OBJ file (overrides the manifest)")
	rootCmd.AddCommand(publishCmd)
}

var publishCmd = &cobra.Command{
	Use:   "publish [manifest.json]",
	Short: "Publish a component asset from an export manifest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fs := osfs.New(".")

		man, err := manifest.Load(fs, args[0])
		if err != nil {
			return err
		}
		settings := man.Settings
		if publishOut != "" {
			settings.PublishDir = publishOut
		}
		if settings.PublishDir == "" {
			settings.PublishDir = "publish"
		}
		meshFile := man.MeshFile
		if publishMesh != "" {
			meshFile = publishMesh
		}

		parser := texture.NewParser(texture.NewResolver(cfg), log)
		bundles, err := parser.Parse(man.Sets, man.MeshNames)
		if err != nil {
			return err
		}

		// A failed mesh export degrades to a materials-only publish
		// rather than failing the run.
		var meshes []*geom.Mesh
		if settings.SaveGeometry && meshFile != "" && !man.MeshExportFailed {
			meshes, err = geom.LoadOBJ(fs, meshFile)
			if err != nil {
				log.Warn("mesh import failed, publishing materials only", "error", err)
				meshes = nil
			}
		} else if man.MeshExportFailed {
			log.Warn("mesh export failed upstream, publishing materials only")
		}

		var baker *previewtex.Baker
		if settings.Preview {
			baker = previewtex.NewBaker(fs, log)
		}

		publisher := asset.NewPublisher(fs, cfg, baker, log)
		return publisher.Publish(bundles, &settings, meshes)
	},
}
