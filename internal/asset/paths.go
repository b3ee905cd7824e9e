// Package asset creates the published component's file structure and writes
// its layer stack.
package asset

import (
	"strings"

	"github.com/go-git/go-billy/v5"

	"github.com/assetpipe/usdpublish/internal/errs"
)

const layerExt = ".usda"

// FilePaths names every file of a published component, relative to the
// asset's own directory.
//
// Layout, following the ASWF asset structure guidelines:
//
//	<output>/<AssetName>/
//	    <AssetName>.usda   main entry point
//	    payload.usda       references geo.usda
//	    geo.usda           geometry interface
//	    geometry.usda      heavy geometry data
//	    mtl.usda           material library sublayer
//	    assign.usda        material binding sublayer
//	    maps/              texture maps
type FilePaths struct {
	AssetFile    string
	PayloadFile  string
	GeoFile      string
	GeometryFile string
	MtlFile      string
	AssignFile   string
	MapsDir      string
}

// NewFilePaths derives the component file names for an asset.
func NewFilePaths(assetName string) FilePaths {
	return FilePaths{
		AssetFile:    assetName + layerExt,
		PayloadFile:  "payload" + layerExt,
		GeoFile:      "geo" + layerExt,
		GeometryFile: "geometry" + layerExt,
		MtlFile:      "mtl" + layerExt,
		AssignFile:   "assign" + layerExt,
		MapsDir:      "maps",
	}
}

// CreateStructure creates the asset directory under outputDir and returns a
// filesystem rooted inside it. Asset names that would escape the output
// directory are rejected.
func CreateStructure(fs billy.Filesystem, outputDir, assetName string) (billy.Filesystem, FilePaths, error) {
	if assetName == "" || strings.ContainsAny(assetName, `/\`) || strings.Contains(assetName, "..") {
		return nil, FilePaths{}, errs.NewValidation("invalid asset name",
			errs.Details{"asset_name": assetName})
	}
	paths := NewFilePaths(assetName)

	assetDir := outputDir + "/" + assetName
	if err := fs.MkdirAll(assetDir+"/"+paths.MapsDir, 0o755); err != nil {
		return nil, FilePaths{}, errs.NewFileSystem("failed to create asset directory",
			errs.Details{"path": assetDir}, err)
	}
	afs, err := fs.Chroot(assetDir)
	if err != nil {
		return nil, FilePaths{}, errs.NewFileSystem("failed to scope asset directory",
			errs.Details{"path": assetDir}, err)
	}
	return afs, paths, nil
}
