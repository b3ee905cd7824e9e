package shade

import (
	"github.com/assetpipe/usdpublish/api"
	"github.com/assetpipe/usdpublish/internal/stage"
)

// imageSignature selects the ND_image_* variant sampled for a slot.
type imageSignature string

const (
	sigColor3  imageSignature = "color3"
	sigVector3 imageSignature = "vector3"
	sigFloat   imageSignature = "float"
)

var mtlxLikeSignatures = map[api.Slot]imageSignature{
	api.SlotBaseColor:    sigColor3,
	api.SlotEmission:     sigColor3,
	api.SlotNormal:       sigVector3,
	api.SlotMetalness:    sigFloat,
	api.SlotOpacity:      sigColor3,
	api.SlotRoughness:    sigFloat,
	api.SlotDisplacement: sigFloat,
}

// mtlxLikeBuilder covers the two MaterialX-flavored targets. They share the
// wiring algorithm and differ only in node identifiers, input names, image
// signatures and surface defaults. Neither supports true displacement: the
// displacement slot always feeds the graph's displacement output directly.
type mtlxLikeBuilder struct {
	renderer      api.Renderer
	prefix        string
	nodeGraphName string
	shaderName    string
	shaderID      string
	surfaceSource string // shader output feeding the graph surface output
	inputs        map[api.Slot]string
	signatures    map[api.Slot]imageSignature
	emissionGain  string // surface input forced to 1 when emission is textured
	initSurface   func(*stage.Prim)
}

func newMtlxBuilder() *mtlxLikeBuilder {
	return &mtlxLikeBuilder{
		renderer:      api.RendererMtlx,
		prefix:        "mtlx",
		nodeGraphName: "MtlxNodeGraph",
		shaderName:    "mtlx_mtlxstandard_surface1",
		shaderID:      "ND_standard_surface_surfaceshader",
		surfaceSource: "surface",
		inputs: map[api.Slot]string{
			api.SlotBaseColor:    "base_color",
			api.SlotEmission:     "emission_color",
			api.SlotMetalness:    "metalness",
			api.SlotRoughness:    "specular_roughness",
			api.SlotNormal:       "normal",
			api.SlotOpacity:      "opacity",
			api.SlotDisplacement: "displacement",
		},
		signatures:   mtlxLikeSignatures,
		emissionGain: "emission",
		initSurface:  initMtlxStandardSurface,
	}
}

func newOpenPBRBuilder() *mtlxLikeBuilder {
	sigs := make(map[api.Slot]imageSignature, len(mtlxLikeSignatures))
	for k, v := range mtlxLikeSignatures {
		sigs[k] = v
	}
	sigs[api.SlotOpacity] = sigFloat
	return &mtlxLikeBuilder{
		renderer:      api.RendererOpenPBR,
		prefix:        "openpbr",
		nodeGraphName: "OpenPbrNodeGraph",
		shaderName:    "openpbr_surface1",
		shaderID:      "ND_open_pbr_surface_surfaceshader",
		surfaceSource: "out",
		inputs: map[api.Slot]string{
			api.SlotBaseColor:    "base_color",
			api.SlotEmission:     "emission_color",
			api.SlotMetalness:    "base_metalness",
			api.SlotRoughness:    "specular_roughness",
			api.SlotNormal:       "geometry_normal",
			api.SlotOpacity:      "geometry_opacity",
			api.SlotDisplacement: "displacement",
		},
		signatures:   sigs,
		emissionGain: "emission_luminance",
		initSurface:  initOpenPBRSurface,
	}
}

// Renderer implements Builder.
func (b *mtlxLikeBuilder) Renderer() api.Renderer { return b.renderer }

// Build implements Builder.
func (b *mtlxLikeBuilder) Build(st *stage.Stage, ctx *Context, collectPath string) Result {
	ngPath := collectPath + "/" + b.nodeGraphName
	ng := defineNodeGraph(st, ngPath)

	surface := defineShader(st, ngPath+"/"+b.shaderName, b.shaderID)
	ng.ConnectOutput("surface", stage.TypeToken, surface.Output(b.surfaceSource))

	b.initSurface(surface)
	result := Result{Surface: ng.Output("surface")}

	for _, entry := range ctx.orderedTextures() {
		inputName, ok := b.inputs[entry.Slot]
		if !ok {
			ctx.log.Warn("texture slot not supported", "slot", entry.Slot, "renderer", string(b.renderer))
			continue
		}
		if entry.Path == "" {
			ctx.log.Warn("texture slot missing path", "slot", entry.Slot)
			continue
		}
		texPath := ctx.TexturePath(entry.Path, b.renderer)
		sig := b.signatures[entry.Slot]
		tex := defineShader(st, ngPath+"/"+b.prefix+"_"+string(entry.Slot)+"Texture", "ND_image_"+string(sig))
		tex.SetInput("file", stage.TypeAsset, stage.Asset(texPath))

		switch entry.Slot {
		case api.SlotBaseColor:
			cc := defineShader(st, ngPath+"/"+b.prefix+"_"+string(entry.Slot)+"ColorCorrect", "ND_colorcorrect_color3")
			cc.ConnectInput("in", stage.TypeColor3f, tex.Output("out"))
			surface.ConnectInput(inputName, stage.TypeColor3f, cc.Output("out"))
		case api.SlotEmission:
			surface.ConnectInput(inputName, stage.TypeColor3f, tex.Output("out"))
			surface.SetInput(b.emissionGain, stage.TypeFloat, 1.0)
		case api.SlotMetalness, api.SlotRoughness:
			if entry.Slot == api.SlotMetalness && ctx.Transmissive {
				continue
			}
			rng := defineShader(st, ngPath+"/"+b.prefix+"_"+string(entry.Slot)+"Range", "ND_range_float")
			rng.ConnectInput("in", stage.TypeFloat, tex.Output("out"))
			surface.ConnectInput(inputName, stage.TypeFloat, rng.Output("out"))
		case api.SlotOpacity:
			opacityType := stage.TypeColor3f
			if sig == sigFloat {
				opacityType = stage.TypeFloat
			}
			surface.ConnectInput(inputName, opacityType, tex.Output("out"))
		case api.SlotNormal:
			nm := defineShader(st, ngPath+"/"+b.prefix+"_NormalMap", "ND_normalmap")
			nm.ConnectInput("in", stage.TypeFloat3, tex.Output("out"))
			surface.ConnectInput(inputName, stage.TypeFloat3, nm.Output("out"))
		case api.SlotDisplacement:
			ng.ConnectOutput("displacement", stage.TypeFloat, tex.Output("out"))
		}
	}

	if ctx.Transmissive {
		surface.SetInput("transmission", stage.TypeFloat, 0.9)
		surface.SetInput("thin_walled", stage.TypeInt, 1)
	}
	return result
}

func initMtlxStandardSurface(s *stage.Prim) {
	s.SetInput("base", stage.TypeFloat, 1.0)
	s.SetInput("base_color", stage.TypeColor3f, stage.Vec3{0.8, 0.8, 0.8})
	s.SetInput("coat", stage.TypeFloat, 0.0)
	s.SetInput("coat_roughness", stage.TypeFloat, 0.1)
	s.SetInput("emission", stage.TypeFloat, 0.0)
	s.SetInput("emission_color", stage.TypeFloat3, stage.Vec3{1, 1, 1})
	s.SetInput("metalness", stage.TypeFloat, 0.0)
	s.SetInput("specular", stage.TypeFloat, 1.0)
	s.SetInput("specular_color", stage.TypeFloat3, stage.Vec3{1, 1, 1})
	s.SetInput("specular_IOR", stage.TypeFloat, 1.5)
	s.SetInput("specular_roughness", stage.TypeFloat, 0.2)
	s.SetInput("transmission", stage.TypeFloat, 0.0)
	s.SetInput("thin_walled", stage.TypeInt, 0)
	s.SetInput("opacity", stage.TypeColor3f, stage.Vec3{1, 1, 1})
}

func initOpenPBRSurface(s *stage.Prim) {
	s.SetInput("base_weight", stage.TypeFloat, 1.0)
	s.SetInput("base_color", stage.TypeColor3f, stage.Vec3{0.8, 0.8, 0.8})
	s.SetInput("base_diffuse_roughness", stage.TypeFloat, 0.0)
	s.SetInput("base_metalness", stage.TypeFloat, 0.0)
	s.SetInput("specular_weight", stage.TypeFloat, 1.0)
	s.SetInput("specular_color", stage.TypeFloat3, stage.Vec3{1, 1, 1})
	s.SetInput("specular_ior", stage.TypeFloat, 1.5)
	s.SetInput("specular_roughness", stage.TypeFloat, 0.2)
	s.SetInput("coat_weight", stage.TypeFloat, 0.0)
	s.SetInput("coat_color", stage.TypeFloat3, stage.Vec3{1, 1, 1})
	s.SetInput("coat_roughness", stage.TypeFloat, 0.1)
	s.SetInput("coat_ior", stage.TypeFloat, 1.6)
	s.SetInput("emission_color", stage.TypeFloat3, stage.Vec3{1, 1, 1})
	s.SetInput("emission_luminance", stage.TypeFloat, 0.0)
	s.SetInput("geometry_opacity", stage.TypeFloat, 1.0)
	s.SetInput("geometry_thin_walled", stage.TypeBool, false)
}
