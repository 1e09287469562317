// Package asset resolves the external content referenced by image and svg
// nodes: data URLs, http(s) URLs, files under a base directory and
// built-in blobs.
package asset

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"

	"github.com/ByLCY/pictrans/scene"
)

var (
	// ErrNotFound is returned when a source does not exist.
	ErrNotFound = errors.New("图片资源不存在")
	// ErrUnsupported is returned for sources the loader cannot address.
	ErrUnsupported = errors.New("不支持的图片来源")
)

const (
	BuiltinPrefix   = "built-in:"
	defaultMaxBytes = 32 << 20
)

// Fetcher returns the raw bytes of a source.
type Fetcher interface {
	Fetch(ctx context.Context, src string) ([]byte, error)
}

// Options configures a Loader.
type Options struct {
	// BaseDir resolves relative paths. Without it only absolute paths are allowed.
	BaseDir string
	// Images are addressable as built-in:<name>.
	Images map[string][]byte
	// Client fetches http(s) sources; nil means http.DefaultClient.
	Client *http.Client
	// MaxBytes caps a single source; 0 means 32 MiB.
	MaxBytes int64
	// MaxPixels caps decoded and rasterized bitmaps; 0 means scene.MaxPixels.
	MaxPixels int64
	Logger    *slog.Logger
}

// Loader fetches and caches asset bytes. It is safe for concurrent use;
// concurrent requests for the same source share one fetch.
type Loader struct {
	opts   Options
	group  singleflight.Group
	mu     sync.RWMutex
	cache  map[string][]byte
	logger *slog.Logger
}

// NewLoader returns a loader for opts.
func NewLoader(opts Options) *Loader {
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = defaultMaxBytes
	}
	if opts.MaxPixels <= 0 {
		opts.MaxPixels = scene.MaxPixels
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{opts: opts, cache: map[string][]byte{}, logger: logger}
}

// Fetch returns the bytes of src.
func (l *Loader) Fetch(ctx context.Context, src string) ([]byte, error) {
	if src == "" {
		return nil, fmt.Errorf("%w: 资源地址为空", ErrNotFound)
	}
	l.mu.RLock()
	data, ok := l.cache[src]
	l.mu.RUnlock()
	if ok {
		return data, nil
	}

	v, err, _ := l.group.Do(src, func() (any, error) {
		data, err := l.fetch(ctx, src)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.cache[src] = data
		l.mu.Unlock()
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (l *Loader) fetch(ctx context.Context, src string) ([]byte, error) {
	switch {
	case strings.HasPrefix(src, "data:"):
		return decodeDataURL(src)
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return l.fetchHTTP(ctx, src)
	case strings.HasPrefix(src, BuiltinPrefix), strings.HasPrefix(src, "builtin:"):
		name := strings.TrimPrefix(strings.TrimPrefix(src, BuiltinPrefix), "builtin:")
		blob, ok := l.opts.Images[name]
		if !ok {
			return nil, fmt.Errorf("%w: 找不到内置图片资源 built-in:%s", ErrNotFound, name)
		}
		return blob, nil
	case strings.HasPrefix(src, "file://"):
		u, err := url.Parse(src)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnsupported, src, err)
		}
		return l.readFile(u.Path)
	}
	if strings.Contains(src, "://") {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, src)
	}
	return l.readFile(src)
}

func (l *Loader) readFile(path string) ([]byte, error) {
	if !filepath.IsAbs(path) {
		if l.opts.BaseDir == "" {
			return nil, fmt.Errorf("%w: 未指定资源目录时不允许使用相对路径：%s", ErrUnsupported, path)
		}
		path = filepath.Join(l.opts.BaseDir, path)
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("打开图片 %s 失败: %w", path, err)
	}
	defer f.Close()
	return l.readAll(f, path)
}

func (l *Loader) fetchHTTP(ctx context.Context, src string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnsupported, src, err)
	}
	l.logger.Debug("下载图片", "src", src)
	resp, err := l.opts.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("下载图片 %s 失败: %w", src, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, src)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("下载图片 %s 失败: 状态码 %s", src, resp.Status)
	}
	return l.readAll(resp.Body, src)
}

func (l *Loader) readAll(r io.Reader, name string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, l.opts.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("读取图片 %s 失败: %w", name, err)
	}
	if int64(len(data)) > l.opts.MaxBytes {
		return nil, fmt.Errorf("图片 %s 超过 %d 字节上限", name, l.opts.MaxBytes)
	}
	return data, nil
}

// decodeDataURL handles data:[<mediatype>][;base64],<data>.
func decodeDataURL(src string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("%w: data url 格式错误", ErrUnsupported)
	}
	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			data, err = base64.RawStdEncoding.DecodeString(payload)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: data url: %v", ErrUnsupported, err)
		}
		return data, nil
	}
	text, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: data url: %v", ErrUnsupported, err)
	}
	return []byte(text), nil
}

// Image fetches and decodes a bitmap (png, jpeg, gif, webp, bmp).
func (l *Loader) Image(ctx context.Context, src string) (image.Image, error) {
	data, err := l.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	// 先读取头部尺寸，避免按伪造的尺寸分配内存
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("解码图片 %s 失败: %w", shorten(src), err)
	}
	if _, _, err := scene.PixelSize(float64(cfg.Width), float64(cfg.Height), l.opts.MaxPixels); err != nil {
		return nil, fmt.Errorf("图片 %s: %w", shorten(src), err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("解码图片 %s 失败: %w", shorten(src), err)
	}
	return img, nil
}

// SVG fetches an SVG document, substitutes color variables and rasterizes it
// to width×height pixels. A zero size uses the view box.
func (l *Loader) SVG(ctx context.Context, src string, colors map[string]string, width, height int) (image.Image, error) {
	data, err := l.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	img, err := rasterizeSVG(ApplyColors(data, colors), width, height, l.opts.MaxPixels)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", shorten(src), err)
	}
	return img, nil
}

// ApplyColors replaces var(<name>) references with the mapped colors.
func ApplyColors(svg []byte, colors map[string]string) []byte {
	if len(colors) == 0 {
		return svg
	}
	pairs := make([]string, 0, len(colors)*2)
	for name, value := range colors {
		pairs = append(pairs, "var("+name+")", value)
	}
	return []byte(strings.NewReplacer(pairs...).Replace(string(svg)))
}

// RasterizeSVG draws an SVG document into an RGBA image of at most
// scene.MaxPixels pixels. A zero size uses the view box.
func RasterizeSVG(svg []byte, width, height int) (*image.RGBA, error) {
	return rasterizeSVG(svg, width, height, scene.MaxPixels)
}

func rasterizeSVG(svg []byte, width, height int, maxPixels int64) (*image.RGBA, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(svg), oksvg.WarnErrorMode)
	if err != nil {
		return nil, fmt.Errorf("解析 svg 失败: %w", err)
	}
	w, h := float64(width), float64(height)
	if width <= 0 || height <= 0 {
		w, h = icon.ViewBox.W, icon.ViewBox.H
	}
	width, height, err = scene.PixelSize(w, h, maxPixels)
	if err != nil {
		return nil, fmt.Errorf("svg: %w", err)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("svg 没有尺寸")
	}
	icon.SetTarget(0, 0, float64(width), float64(height))
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	scanner := rasterx.NewScannerGV(width, height, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(width, height, scanner), 1.0)
	return img, nil
}

func shorten(src string) string {
	if len(src) > 64 {
		return src[:61] + "..."
	}
	return src
}
