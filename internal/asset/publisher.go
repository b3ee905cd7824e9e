package asset

import (
	"log/slog"

	"github.com/go-git/go-billy/v5"

	"github.com/assetpipe/usdpublish/api"
	"github.com/assetpipe/usdpublish/internal/config"
	"github.com/assetpipe/usdpublish/internal/fixup"
	"github.com/assetpipe/usdpublish/internal/geom"
	"github.com/assetpipe/usdpublish/internal/material"
	"github.com/assetpipe/usdpublish/internal/naming"
	"github.com/assetpipe/usdpublish/internal/previewtex"
	"github.com/assetpipe/usdpublish/internal/shade"
	"github.com/assetpipe/usdpublish/internal/stage"
)

const classRoot = "/__class__"

// Publisher writes component assets: the layered file structure, collect
// materials, name-based bindings and optionally baked preview textures.
type Publisher struct {
	fs    billy.Filesystem
	cfg   *config.Config
	baker *previewtex.Baker
	log   *slog.Logger
}

// NewPublisher builds a publisher over fs. The baker may be nil, in which
// case preview textures are not baked.
func NewPublisher(fs billy.Filesystem, cfg *config.Config, baker *previewtex.Baker, log *slog.Logger) *Publisher {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{fs: fs, cfg: cfg, baker: baker, log: log}
}

// Publish writes the complete component under settings.PublishDir. Meshes
// are optional: without them only the material layers carry content and no
// bindings are authored. Re-running with the same asset name overwrites the
// previous result. Preview settings are rejected up front, before anything
// is written; only per-texture bake failures degrade to warnings.
func (p *Publisher) Publish(bundles []*api.MaterialBundle, settings *api.ExportSettings, meshes []*geom.Mesh) error {
	if settings.Preview {
		if err := previewtex.ValidateResolution(settings.PreviewResolution); err != nil {
			return err
		}
		if _, err := previewtex.ParseFormat(settings.PreviewFormat); err != nil {
			return err
		}
	}

	assetName := settings.AssetName()
	afs, paths, err := CreateStructure(p.fs, settings.PublishDir, assetName)
	if err != nil {
		return err
	}
	rootPath := "/" + assetName

	if p.baker != nil && settings.Preview {
		p.bakePreviews(bundles, settings)
	}

	geometryLayer, err := p.writeGeometry(afs, paths, rootPath, meshes)
	if err != nil {
		return err
	}
	if err := p.writeGeoInterface(afs, paths, rootPath, len(meshes) > 0); err != nil {
		return err
	}
	if err := p.writePayload(afs, paths, rootPath); err != nil {
		return err
	}
	mtlLayer, err := p.writeMaterials(afs, paths, rootPath, bundles, settings)
	if err != nil {
		return err
	}
	if err := p.writeAssignments(afs, paths, rootPath, geometryLayer, mtlLayer); err != nil {
		return err
	}
	// The root layer goes last: it references already-saved children.
	if err := p.writeRoot(afs, paths, assetName); err != nil {
		return err
	}

	p.log.Info("published component asset", "asset", assetName, "dir", settings.PublishDir)
	return nil
}

func (p *Publisher) bakePreviews(bundles []*api.MaterialBundle, settings *api.ExportSettings) {
	for _, bundle := range bundles {
		entry, ok := bundle.Textures[api.SlotBaseColor]
		if !ok || entry.Path == "" {
			continue
		}
		_, err := p.baker.Bake(entry.Path, bundle.Name, settings.PreviewResolution, settings.PreviewFormat)
		if err != nil {
			p.log.Warn("preview bake failed", "material", bundle.Name, "error", err)
		}
	}
}

// writeGeometry authors the heavy geometry layer and normalizes it into the
// component layout. Returns the saved layer for later composition, nil when
// there is no geometry.
func (p *Publisher) writeGeometry(afs billy.Filesystem, paths FilePaths, rootPath string, meshes []*geom.Mesh) (*stage.Layer, error) {
	if len(meshes) == 0 {
		return nil, nil
	}
	layer := stage.NewLayer(paths.GeometryFile)
	layer.SetDefaultPrim(rootPath[1:])
	st := stage.NewStage(layer)

	// Meshes land under a staging root first; normalization moves them
	// into <root>/geo/render with proxy mirrors and extents.
	st.DefinePrim("/root", "Xform")
	geom.Author(st, "/root", meshes)
	if _, err := fixup.Normalize(st, rootPath, p.log); err != nil {
		return nil, err
	}

	if err := layer.Save(afs); err != nil {
		return nil, err
	}
	return layer, nil
}

// writeGeoInterface authors geo.usda, the light interface layer that
// payload-loads the heavy geometry file.
func (p *Publisher) writeGeoInterface(afs billy.Filesystem, paths FilePaths, rootPath string, hasGeometry bool) error {
	layer := stage.NewLayer(paths.GeoFile)
	layer.SetDefaultPrim(rootPath[1:])
	st := stage.NewStage(layer)

	st.DefinePrim(rootPath, "Xform")
	geo := st.DefinePrim(rootPath+"/geo", "Scope")
	if hasGeometry {
		geo.AddPayload(stage.Arc{Identifier: "./" + paths.GeometryFile})
	}
	return layer.Save(afs)
}

func (p *Publisher) writePayload(afs billy.Filesystem, paths FilePaths, rootPath string) error {
	layer := stage.NewLayer(paths.PayloadFile)
	layer.SetDefaultPrim(rootPath[1:])
	st := stage.NewStage(layer)

	st.DefinePrim(rootPath, "Xform")
	geo := st.DefinePrim(rootPath+"/geo", "Scope")
	geo.AddReference(stage.Arc{Identifier: "./" + paths.GeoFile})
	return layer.Save(afs)
}

func (p *Publisher) writeMaterials(afs billy.Filesystem, paths FilePaths, rootPath string, bundles []*api.MaterialBundle, settings *api.ExportSettings) (*stage.Layer, error) {
	layer := stage.NewLayer(paths.MtlFile)
	layer.SetDefaultPrim(rootPath[1:])
	st := stage.NewStage(layer)

	st.DefinePrim(rootPath, "Xform")
	st.DefinePrim(rootPath+"/mtl", "Scope")

	renderers := settings.EnabledRenderers()
	for _, bundle := range bundles {
		ctx := shade.NewContext(bundle, settings, p.cfg, p.log)
		if _, err := material.CreateMaterial(st, bundle, ctx, rootPath+"/mtl", renderers, p.log); err != nil {
			return nil, err
		}
	}
	if err := layer.Save(afs); err != nil {
		return nil, err
	}
	return layer, nil
}

// writeAssignments authors the binding sublayer. Bindings compose material
// paths from the mtl layer against meshes from the geometry layer, so both
// participate read-only while the assignment layer takes the edits.
func (p *Publisher) writeAssignments(afs billy.Filesystem, paths FilePaths, rootPath string, geometryLayer, mtlLayer *stage.Layer) error {
	layer := stage.NewLayer(paths.AssignFile)
	if geometryLayer != nil {
		st := stage.NewStage(layer, mtlLayer, geometryLayer)
		st.SetEditTarget(layer)
		convention := naming.FromConfig(p.cfg)
		if err := material.AssignByName(st, rootPath+"/mtl", rootPath+"/geo", convention, p.log); err != nil {
			return err
		}
	}
	return layer.Save(afs)
}

func (p *Publisher) writeRoot(afs billy.Filesystem, paths FilePaths, assetName string) error {
	layer := stage.NewLayer(paths.AssetFile)
	layer.SetDefaultPrim(assetName)
	layer.AddSubLayer("./" + paths.AssignFile)
	layer.AddSubLayer("./" + paths.MtlFile)
	st := stage.NewStage(layer)

	st.CreateClassPrim(classRoot)
	st.CreateClassPrim(classRoot + "/" + assetName)

	root := st.DefinePrim("/"+assetName, "Xform")
	root.Kind = "component"
	root.SetAssetInfo("name", assetName)
	root.SetAssetInfo("identifier", stage.Asset("./"+paths.AssetFile))
	root.AddInherit(classRoot + "/" + assetName)
	root.AddPayload(stage.Arc{Identifier: "./" + paths.PayloadFile})

	st.DefinePrim("/"+assetName+"/geo", "Scope")
	st.DefinePrim("/"+assetName+"/mtl", "Scope")

	return layer.Save(afs)
}
