// Package manifest reads the texturing host's export manifest: texture sets,
// optional mesh associations and the flat settings record.
package manifest

import (
	"io"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cast"

	"github.com/assetpipe/usdpublish/api"
	"github.com/assetpipe/usdpublish/internal/errs"
)

// ExportFolderPlaceholder in the publish directory resolves to the folder
// holding the exported textures.
const ExportFolderPlaceholder = "<export_folder>"

// Manifest is one export run's worth of host input.
type Manifest struct {
	Sets             []api.TextureSetExport
	MeshNames        map[string][]string
	MeshFile         string
	MeshExportFailed bool
	Settings         api.ExportSettings
	ExportDir        string
}

var (
	setsPath      = jp.MustParseString("$.texture_sets[*]")
	meshNamesPath = jp.MustParseString("$.mesh_names")
	settingsPath  = jp.MustParseString("$.settings")
)

// Load reads and parses a manifest file from fs.
func Load(fs billy.Filesystem, filePath string) (*Manifest, error) {
	f, err := fs.Open(filePath)
	if err != nil {
		return nil, errs.NewFileSystem("failed to open manifest",
			errs.Details{"path": filePath}, err)
	}
	defer f.Close()
	src, err := io.ReadAll(f)
	if err != nil {
		return nil, errs.NewFileSystem("failed to read manifest",
			errs.Details{"path": filePath}, err)
	}
	return Parse(src)
}

// Parse decodes manifest JSON.
func Parse(src []byte) (*Manifest, error) {
	root, err := oj.Parse(src)
	if err != nil {
		return nil, errs.NewInvalidInput("manifest is not valid JSON",
			errs.Details{"error": err.Error()})
	}
	doc, ok := root.(map[string]any)
	if !ok {
		return nil, errs.NewInvalidInput("manifest must be a JSON object", nil)
	}

	m := &Manifest{MeshNames: make(map[string][]string)}

	if _, present := doc["texture_sets"]; !present {
		return nil, errs.NewInvalidInput("manifest is missing texture_sets", nil)
	}
	for _, raw := range setsPath.Get(root) {
		set, err := parseSet(raw)
		if err != nil {
			return nil, err
		}
		m.Sets = append(m.Sets, set)
	}

	for _, raw := range meshNamesPath.Get(root) {
		names, ok := raw.(map[string]any)
		if !ok {
			return nil, errs.NewInvalidInput("mesh_names must be an object", nil)
		}
		for key, v := range names {
			m.MeshNames[key] = cast.ToStringSlice(v)
		}
	}

	m.MeshFile = cast.ToString(doc["mesh_file"])
	m.MeshExportFailed = cast.ToBool(doc["mesh_export_failed"])

	for _, raw := range settingsPath.Get(root) {
		settings, err := parseSettings(raw)
		if err != nil {
			return nil, err
		}
		m.Settings = settings
	}

	m.ExportDir = exportDir(m.Sets)
	m.Settings.PublishDir = strings.ReplaceAll(m.Settings.PublishDir, ExportFolderPlaceholder, m.ExportDir)
	return m, nil
}

func parseSet(raw any) (api.TextureSetExport, error) {
	var set api.TextureSetExport
	obj, ok := raw.(map[string]any)
	if !ok {
		return set, errs.NewInvalidInput("texture set entry must be an object", nil)
	}
	switch key := obj["key"].(type) {
	case string:
		set.Key = []string{key}
	default:
		set.Key = cast.ToStringSlice(key)
	}
	set.Paths = cast.ToStringSlice(obj["paths"])
	return set, nil
}

func parseSettings(raw any) (api.ExportSettings, error) {
	var s api.ExportSettings
	obj, ok := raw.(map[string]any)
	if !ok {
		return s, errs.NewInvalidInput("settings must be an object", nil)
	}
	s.Preview = cast.ToBool(obj["preview"])
	s.Arnold = cast.ToBool(obj["arnold"])
	s.Mtlx = cast.ToBool(obj["mtlx"])
	s.OpenPBR = cast.ToBool(obj["openpbr"])
	s.PrimPath = cast.ToString(obj["prim_path"])
	s.PublishDir = cast.ToString(obj["publish_dir"])
	s.SaveGeometry = cast.ToBool(obj["save_geometry"])
	s.PreviewResolution = cast.ToInt(obj["preview_resolution"])
	s.PreviewFormat = cast.ToString(obj["preview_format"])
	s.Displacement = cast.ToBool(obj["displacement"])

	if overrides, ok := obj["format_overrides"].(map[string]any); ok {
		s.FormatOverrides = make(map[string]string, len(overrides))
		for k, v := range overrides {
			s.FormatOverrides[strings.ToLower(k)] = cast.ToString(v)
		}
	}

	if s.PrimPath != "" && !strings.HasPrefix(s.PrimPath, "/") {
		return s, errs.NewValidation("root prim path must start with '/'",
			errs.Details{"prim_path": s.PrimPath})
	}
	if s.PreviewResolution == 0 {
		s.PreviewResolution = api.PreviewResolutions[3]
	}
	return s, nil
}

// exportDir derives the texture export folder from the first texture path.
func exportDir(sets []api.TextureSetExport) string {
	for _, set := range sets {
		for _, p := range set.Paths {
			if p != "" {
				return path.Dir(p)
			}
		}
	}
	return "."
}
