// Package pipeline runs one headless render: register fonts, allocate the
// surface, decode the document with its assets, lay out text, draw, and
// stream the PNG to the caller.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ByLCY/pictrans/asset"
	"github.com/ByLCY/pictrans/codec"
	"github.com/ByLCY/pictrans/fonts"
	"github.com/ByLCY/pictrans/layout"
	canvasrenderer "github.com/ByLCY/pictrans/renderer/canvas"
	"github.com/ByLCY/pictrans/scene"
)

// ErrRenderFailed is matched by every error returned from Run.
var ErrRenderFailed = errors.New("渲染失败")

// FontSpec binds a family name to a font resource.
type FontSpec struct {
	Family   string
	Resource fonts.Resource
}

// Request is one render job. Width and Height are in pixels.
type Request struct {
	Width    float64
	Height   float64
	Document []byte
	// Fonts are registered in order. Without any, the built-in default family is used.
	Fonts []FontSpec
}

// Options configures Run.
type Options struct {
	// Assets resolves image sources; nil means an asset.Loader rooted at BaseDir.
	Assets  codec.Assets
	BaseDir string
	Logger  *slog.Logger
	// Debug records the layout points and resolved families in Result.Layout.
	Debug bool
}

// Result describes a finished job.
type Result struct {
	JobID    string
	Families []string
	Document *scene.Document
	Layout   *layout.Result
}

// Run renders req and writes a PNG to out. On failure nothing has been written
// unless the PNG encoder itself failed.
func Run(ctx context.Context, req Request, out io.Writer, opts Options) (*Result, error) {
	jobID := uuid.NewString()
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("job", jobID)
	start := time.Now()

	fail := func(stage string, err error) (*Result, error) {
		logger.Error("渲染失败", "stage", stage, "err", err)
		return nil, fmt.Errorf("%w: %s: %w", ErrRenderFailed, stage, err)
	}

	reg, err := registerFonts(req.Fonts)
	if err != nil {
		return fail("fonts", err)
	}
	logger.Debug("字体已注册", "families", reg.Families())

	r, err := canvasrenderer.NewRenderer(canvasrenderer.Options{Fonts: reg, Logger: logger})
	if err != nil {
		return fail("renderer", err)
	}
	surface, err := r.NewSurface(req.Width, req.Height)
	if err != nil {
		return fail("surface", err)
	}

	assets := opts.Assets
	if assets == nil {
		assets = asset.NewLoader(asset.Options{BaseDir: opts.BaseDir, Logger: logger})
	}
	dec := &codec.Decoder{Assets: assets, Logger: logger}
	doc, err := dec.Decode(ctx, req.Document)
	if err != nil {
		return fail("decode", err)
	}

	res, err := layout.Build(doc, layout.BuildOptions{
		Typesetter: r,
		Debug:      layout.DebugOptions{Points: opts.Debug},
	})
	if err != nil {
		return fail("layout", err)
	}
	if err := r.Draw(surface, doc, res); err != nil {
		return fail("draw", err)
	}
	if err := ctx.Err(); err != nil {
		return fail("draw", err)
	}
	if err := surface.WritePNG(out); err != nil {
		return fail("encode", err)
	}

	logger.Info("渲染完成",
		"width", req.Width, "height", req.Height,
		"objects", len(doc.Objects), "elapsed", time.Since(start))
	return &Result{JobID: jobID, Families: reg.Families(), Document: doc, Layout: res}, nil
}

// registerFonts 按顺序注册请求中的字体；未提供字体时只注册内置默认字体，最后冻结注册表。
func registerFonts(specs []FontSpec) (*fonts.Registry, error) {
	reg := fonts.NewRegistry()
	if len(specs) == 0 {
		if err := reg.RegisterDefault(); err != nil {
			return nil, err
		}
	}
	for _, s := range specs {
		if err := reg.Register(s.Family, s.Resource); err != nil {
			return nil, err
		}
	}
	reg.Seal()
	return reg, nil
}
