package shade

import (
	"fmt"

	"github.com/assetpipe/usdpublish/api"
	"github.com/assetpipe/usdpublish/internal/stage"
)

// Result is the connectable surface of a built node graph, plus a
// displacement connection when the graph wired one.
type Result struct {
	Surface      stage.Connection
	Displacement *stage.Connection
}

// Builder compiles one renderer's node graph under a collect material.
type Builder interface {
	Renderer() api.Renderer
	Build(st *stage.Stage, ctx *Context, collectPath string) Result
}

// ForRenderer returns the builder for a renderer target.
func ForRenderer(r api.Renderer) (Builder, error) {
	switch r {
	case api.RendererPreview:
		return &PreviewBuilder{}, nil
	case api.RendererArnold:
		return &ArnoldBuilder{}, nil
	case api.RendererMtlx:
		return newMtlxBuilder(), nil
	case api.RendererOpenPBR:
		return newOpenPBRBuilder(), nil
	}
	return nil, fmt.Errorf("no shader builder for renderer %q", r)
}

// defineShader creates a Shader prim with its info:id set.
func defineShader(st *stage.Stage, path, id string) *stage.Prim {
	p := st.DefinePrim(path, "Shader")
	p.SetAttr("info:id", stage.TypeToken, stage.Token(id))
	return p
}

// defineNodeGraph creates a NodeGraph prim.
func defineNodeGraph(st *stage.Stage, path string) *stage.Prim {
	return st.DefinePrim(path, "NodeGraph")
}
