package render

import (
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// Visitor is implemented by node kinds contributed by extensions. Each method
// is called twice per node, once when entering and once when leaving.
type Visitor interface {
	VisitHTML(w util.BufWriter, entering bool) error
	VisitText(w util.BufWriter, entering bool) error
	VisitTexinfo(w util.BufWriter, entering bool) error
}

// visitorRenderer routes registered kinds to their Visitor methods.
type visitorRenderer struct {
	format Format
	kinds  []ast.NodeKind
}

func (r *visitorRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	for _, kind := range r.kinds {
		reg.Register(kind, r.render)
	}
}

func (r *visitorRenderer) render(w util.BufWriter, _ []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	v, ok := n.(Visitor)
	if !ok {
		return ast.WalkContinue, nil
	}
	var err error
	switch r.format {
	case FormatHTML:
		err = v.VisitHTML(w, entering)
	case FormatText:
		err = v.VisitText(w, entering)
	case FormatTexinfo:
		err = v.VisitTexinfo(w, entering)
	}
	if err != nil {
		return ast.WalkStop, err
	}
	return ast.WalkContinue, nil
}
