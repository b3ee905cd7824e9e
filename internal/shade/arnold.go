package shade

import (
	"github.com/assetpipe/usdpublish/api"
	"github.com/assetpipe/usdpublish/internal/stage"
)

var arnoldInputs = map[api.Slot]string{
	api.SlotBaseColor:    "base_color",
	api.SlotEmission:     "emission_color",
	api.SlotMetalness:    "base_metalness",
	api.SlotRoughness:    "specular_roughness",
	api.SlotNormal:       "normal",
	api.SlotOpacity:      "opacity",
	api.SlotDisplacement: "height",
}

// ArnoldBuilder emits an arnold standard_surface graph. It is the only
// target with a true displacement output; every other target wires
// displacement as bump regardless of the requested mode.
type ArnoldBuilder struct{}

// Renderer implements Builder.
func (b *ArnoldBuilder) Renderer() api.Renderer { return api.RendererArnold }

// Build implements Builder.
func (b *ArnoldBuilder) Build(st *stage.Stage, ctx *Context, collectPath string) Result {
	ngPath := collectPath + "/ArnoldNodeGraph"
	ng := defineNodeGraph(st, ngPath)

	surface := defineShader(st, ngPath+"/arnold_standard_surface1", "arnold:standard_surface")
	ng.ConnectOutput("surface", stage.TypeToken, surface.Output("surface"))

	initArnoldStandardSurface(surface)
	result := Result{Surface: ng.Output("surface")}

	var bump *stage.Prim
	ensureBump := func() *stage.Prim {
		if bump == nil {
			bump = initArnoldBump2d(st, ngPath+"/arnold_Bump2d")
		}
		return bump
	}

	for _, entry := range ctx.orderedTextures() {
		inputName, ok := arnoldInputs[entry.Slot]
		if !ok {
			ctx.log.Warn("texture slot not supported", "slot", entry.Slot, "renderer", "arnold")
			continue
		}
		if entry.Path == "" {
			ctx.log.Warn("texture slot missing path", "slot", entry.Slot)
			continue
		}
		texPath := ctx.TexturePath(entry.Path, api.RendererArnold)
		tex := initArnoldImage(st, ngPath+"/arnold_"+string(entry.Slot)+"Texture")
		tex.SetInput("filename", stage.TypeAsset, stage.Asset(texPath))

		switch entry.Slot {
		case api.SlotBaseColor, api.SlotEmission:
			cc := initArnoldColorCorrect(st, ngPath+"/arnold_"+string(entry.Slot)+"ColorCorrect")
			cc.ConnectInput("input", stage.TypeFloat4, tex.Output("rgba"))
			surface.ConnectInput(inputName, stage.TypeFloat3, cc.Output("rgb"))
			if entry.Slot == api.SlotEmission {
				surface.SetInput("emission", stage.TypeFloat, 1.0)
			}
		case api.SlotMetalness, api.SlotRoughness:
			if entry.Slot == api.SlotMetalness && ctx.Transmissive {
				continue
			}
			rng := initArnoldRange(st, ngPath+"/arnold_"+string(entry.Slot)+"Range")
			rng.ConnectInput("input", stage.TypeFloat4, tex.Output("rgba"))
			surface.ConnectInput(inputName, stage.TypeFloat, rng.Output("r"))
		case api.SlotOpacity:
			rng := initArnoldRange(st, ngPath+"/arnold_"+string(entry.Slot)+"Range")
			rng.ConnectInput("input", stage.TypeFloat4, tex.Output("rgba"))
			surface.ConnectInput(inputName, stage.TypeFloat3, rng.Output("rgb"))
		case api.SlotNormal:
			nm := initArnoldNormalMap(st, ngPath+"/arnold_NormalMap")
			nm.ConnectInput("input", stage.TypeFloat3, tex.Output("vector"))
			ensureBump().ConnectInput("normal", stage.TypeFloat3, nm.Output("vector"))
		case api.SlotDisplacement:
			rng := initArnoldRange(st, ngPath+"/arnold_"+string(entry.Slot)+"Range")
			rng.ConnectInput("input", stage.TypeFloat4, tex.Output("rgba"))
			if ctx.Mode == DisplacementTrue {
				disp := defineShader(st, ngPath+"/arnold_Displacement", "arnold:displacement")
				disp.ConnectInput("height", stage.TypeFloat, rng.Output("r"))
				ng.ConnectOutput("displacement", stage.TypeToken, disp.Output("out"))
				conn := ng.Output("displacement")
				result.Displacement = &conn
			} else {
				ensureBump().ConnectInput("bump_map", stage.TypeFloat, rng.Output("r"))
			}
		}
	}

	if bump != nil {
		surface.ConnectInput("normal", stage.TypeFloat3, bump.Output("vector"))
	}
	if ctx.Transmissive {
		surface.SetInput("transmission", stage.TypeFloat, 0.9)
		surface.SetInput("thin_walled", stage.TypeBool, true)
	}
	return result
}

// initArnoldStandardSurface authors the shader's full default parameter set
// so the graph stays valid even with zero textures wired.
func initArnoldStandardSurface(s *stage.Prim) {
	zero3 := stage.Vec3{0, 0, 0}
	one3 := stage.Vec3{1, 1, 1}
	for _, aov := range []string{"aov_id1", "aov_id2", "aov_id3", "aov_id4", "aov_id5", "aov_id6", "aov_id7", "aov_id8"} {
		s.SetInput(aov, stage.TypeFloat3, zero3)
	}
	s.SetInput("base", stage.TypeFloat, 1.0)
	s.SetInput("base_color", stage.TypeFloat3, stage.Vec3{0.8, 0.8, 0.8})
	s.SetInput("base_metalness", stage.TypeFloat, 0.0)
	s.SetInput("specular", stage.TypeFloat, 1.0)
	s.SetInput("specular_color", stage.TypeFloat3, one3)
	s.SetInput("specular_roughness", stage.TypeFloat, 0.2)
	s.SetInput("specular_IOR", stage.TypeFloat, 1.5)
	s.SetInput("specular_anisotropy", stage.TypeFloat, 0.0)
	s.SetInput("specular_rotation", stage.TypeFloat, 0.0)
	s.SetInput("caustics", stage.TypeBool, false)
	s.SetInput("coat", stage.TypeFloat, 0.0)
	s.SetInput("coat_color", stage.TypeFloat3, one3)
	s.SetInput("coat_roughness", stage.TypeFloat, 0.1)
	s.SetInput("coat_IOR", stage.TypeFloat, 1.5)
	s.SetInput("coat_normal", stage.TypeFloat3, zero3)
	s.SetInput("coat_affect_color", stage.TypeFloat, 0.0)
	s.SetInput("coat_affect_roughness", stage.TypeFloat, 0.0)
	s.SetInput("indirect_diffuse", stage.TypeFloat, 1.0)
	s.SetInput("indirect_specular", stage.TypeFloat, 1.0)
	s.SetInput("indirect_reflections", stage.TypeBool, true)
	s.SetInput("subsurface", stage.TypeFloat, 0.0)
	s.SetInput("subsurface_anisotropy", stage.TypeFloat, 0.0)
	s.SetInput("subsurface_color", stage.TypeFloat3, one3)
	s.SetInput("subsurface_radius", stage.TypeFloat3, one3)
	s.SetInput("subsurface_scale", stage.TypeFloat, 1.0)
	s.SetInput("subsurface_type", stage.TypeString, "randomwalk")
	s.SetInput("emission", stage.TypeFloat, 0.0)
	s.SetInput("emission_color", stage.TypeFloat3, one3)
	s.SetInput("normal", stage.TypeFloat3, zero3)
	s.SetInput("opacity", stage.TypeFloat3, one3)
	s.SetInput("sheen", stage.TypeFloat, 0.0)
	s.SetInput("sheen_color", stage.TypeFloat3, one3)
	s.SetInput("sheen_roughness", stage.TypeFloat, 0.3)
	s.SetInput("internal_reflections", stage.TypeBool, true)
	s.SetInput("exit_to_background", stage.TypeBool, false)
	s.SetInput("tangent", stage.TypeFloat3, zero3)
	s.SetInput("transmission", stage.TypeFloat, 0.0)
	s.SetInput("transmission_color", stage.TypeFloat3, one3)
	s.SetInput("transmission_depth", stage.TypeFloat, 0.0)
	s.SetInput("transmission_scatter", stage.TypeFloat3, zero3)
	s.SetInput("transmission_scatter_anisotropy", stage.TypeFloat, 0.0)
	s.SetInput("transmission_dispersion", stage.TypeFloat, 0.0)
	s.SetInput("transmission_extra_roughness", stage.TypeFloat, 0.0)
	s.SetInput("thin_film_IOR", stage.TypeFloat, 1.5)
	s.SetInput("thin_film_thickness", stage.TypeFloat, 0.0)
	s.SetInput("thin_walled", stage.TypeBool, false)
	s.SetInput("transmit_aovs", stage.TypeBool, false)
}

func initArnoldImage(st *stage.Stage, path string) *stage.Prim {
	s := defineShader(st, path, "arnold:image")
	s.SetInput("color_space", stage.TypeString, "auto")
	s.DeclareInput("filename", stage.TypeAsset)
	s.SetInput("filter", stage.TypeString, "smart_bicubic")
	s.SetInput("ignore_missing_textures", stage.TypeBool, false)
	s.SetInput("mipmap_bias", stage.TypeInt, 0)
	s.SetInput("missing_texture_color", stage.TypeFloat4, stage.Vec4{0, 0, 0, 0})
	s.SetInput("multiply", stage.TypeFloat3, stage.Vec3{1, 1, 1})
	s.SetInput("offset", stage.TypeFloat3, stage.Vec3{0, 0, 0})
	s.SetInput("sflip", stage.TypeBool, false)
	s.SetInput("single_channel", stage.TypeBool, false)
	s.SetInput("soffset", stage.TypeFloat, 0.0)
	s.SetInput("sscale", stage.TypeFloat, 1.0)
	s.SetInput("start_channel", stage.TypeInt, 0)
	s.SetInput("swap_st", stage.TypeBool, false)
	s.SetInput("swrap", stage.TypeString, "periodic")
	s.SetInput("tflip", stage.TypeBool, false)
	s.SetInput("toffset", stage.TypeFloat, 0.0)
	s.SetInput("tscale", stage.TypeFloat, 1.0)
	s.SetInput("twrap", stage.TypeString, "periodic")
	s.SetInput("uvcoords", stage.TypeFloat2, stage.Vec2{0, 0})
	s.SetInput("uvset", stage.TypeString, "")
	return s
}

func initArnoldColorCorrect(st *stage.Stage, path string) *stage.Prim {
	s := defineShader(st, path, "arnold:color_correct")
	s.SetInput("add", stage.TypeFloat3, stage.Vec3{0, 0, 0})
	s.SetInput("contrast", stage.TypeFloat, 1.0)
	s.SetInput("exposure", stage.TypeFloat, 0.0)
	s.SetInput("gamma", stage.TypeFloat, 1.0)
	s.SetInput("hue_shift", stage.TypeFloat, 0.0)
	return s
}

func initArnoldRange(st *stage.Stage, path string) *stage.Prim {
	s := defineShader(st, path, "arnold:range")
	s.SetInput("bias", stage.TypeFloat, 0.5)
	s.SetInput("contrast", stage.TypeFloat, 1.0)
	s.SetInput("contrast_pivot", stage.TypeFloat, 0.5)
	s.SetInput("gain", stage.TypeFloat, 0.5)
	s.SetInput("input_min", stage.TypeFloat, 0.0)
	s.SetInput("input_max", stage.TypeFloat, 1.0)
	s.SetInput("output_min", stage.TypeFloat, 0.0)
	s.SetInput("output_max", stage.TypeFloat, 1.0)
	s.SetInput("smoothstep", stage.TypeBool, false)
	return s
}

func initArnoldNormalMap(st *stage.Stage, path string) *stage.Prim {
	s := defineShader(st, path, "arnold:normal_map")
	s.SetInput("color_to_signed", stage.TypeBool, true)
	s.SetInput("input", stage.TypeFloat3, stage.Vec3{0, 0, 0})
	s.SetInput("invert_x", stage.TypeBool, false)
	s.SetInput("invert_y", stage.TypeBool, false)
	s.SetInput("invert_z", stage.TypeBool, false)
	s.SetInput("normal", stage.TypeFloat3, stage.Vec3{0, 0, 0})
	s.SetInput("order", stage.TypeString, "XYZ")
	s.SetInput("strength", stage.TypeFloat, 1.0)
	s.SetInput("tangent", stage.TypeFloat3, stage.Vec3{0, 0, 0})
	s.SetInput("tangent_space", stage.TypeBool, true)
	return s
}

func initArnoldBump2d(st *stage.Stage, path string) *stage.Prim {
	s := defineShader(st, path, "arnold:bump2d")
	s.SetInput("bump_height", stage.TypeFloat, 1.0)
	s.SetInput("bump_map", stage.TypeFloat, 0.0)
	s.SetInput("normal", stage.TypeFloat3, stage.Vec3{0, 0, 0})
	return s
}
