package fonts

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"image/color"
	"os"
	"strings"
	"sync"
	"unicode"

	"github.com/go-text/typesetting/font"
	"github.com/tdewolff/canvas"
)

var (
	// ErrRegistration 表示字体资源无法读取或解析。
	ErrRegistration = errors.New("字体注册失败")
	// ErrConflict 表示同一 family 被注册为不同的字体数据。
	ErrConflict = fmt.Errorf("%w: family 已绑定其他字体资源", ErrRegistration)
	// ErrSealed 表示注册表已冻结，不再接受新的 family。
	ErrSealed = fmt.Errorf("%w: 字体注册表已冻结", ErrRegistration)
)

// Resource can be provided either by Bytes or by Path.
// Path accepts the "built-in:" prefix for the bundled Go fonts.
type Resource struct {
	Bytes []byte
	Path  string
}

// Load reads the resource bytes.
func (res Resource) Load() ([]byte, error) {
	if len(res.Bytes) > 0 {
		return res.Bytes, nil
	}
	if res.Path == "" {
		return nil, fmt.Errorf("%w: 字体资源为空", ErrRegistration)
	}
	if strings.HasPrefix(res.Path, BuiltinPrefix) || strings.HasPrefix(res.Path, "builtin:") {
		return Builtin(res.Path)
	}
	data, err := os.ReadFile(res.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: 读取字体 %s 失败: %v", ErrRegistration, res.Path, err)
	}
	return data, nil
}

type familyEntry struct {
	name   string
	digest [sha256.Size]byte
	family *canvas.FontFamily
	styles map[canvas.FontStyle]bool
	glyphs *font.Font
}

// covers reports whether every visible rune of text has a glyph in the regular face.
func (e *familyEntry) covers(text string) bool {
	if e.glyphs == nil {
		return true
	}
	for _, r := range text {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			continue
		}
		if _, ok := e.glyphs.NominalGlyph(r); !ok {
			return false
		}
	}
	return true
}

// Registry maps font-family names to loaded font families.
// Families are write-once: registering the same bytes again is a no-op,
// different bytes under a known name fail with ErrConflict.
// After Seal the set of families is immutable.
type Registry struct {
	mu       sync.RWMutex
	families map[string]*familyEntry
	order    []string
	sealed   bool

	fallbackOnce sync.Once
	fallback     *familyEntry
	fallbackErr  error
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{families: map[string]*familyEntry{}}
}

// Register binds family to the regular style of res.
func (r *Registry) Register(family string, res Resource) error {
	if strings.TrimSpace(family) == "" {
		return fmt.Errorf("%w: family 不能为空", ErrRegistration)
	}
	data, err := res.Load()
	if err != nil {
		return err
	}
	return r.register(family, []styledFont{{data: data, style: canvas.FontRegular}})
}

// RegisterDefault registers DefaultFamily with all four bundled Go styles.
func (r *Registry) RegisterDefault() error {
	styled := make([]styledFont, 0, len(builtinStyles))
	for _, bs := range builtinStyles {
		data, err := Builtin(bs.name)
		if err != nil {
			return err
		}
		styled = append(styled, styledFont{data: data, style: bs.style})
	}
	return r.register(DefaultFamily, styled)
}

type styledFont struct {
	data  []byte
	style canvas.FontStyle
}

func (r *Registry) register(name string, styled []styledFont) error {
	// 以第一份（regular）字体数据的摘要判定是否重复注册
	digest := sha256.Sum256(styled[0].data)

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.families[name]; ok {
		if existing.digest == digest {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrConflict, name)
	}
	if r.sealed {
		return fmt.Errorf("%w: 无法注册 %s", ErrSealed, name)
	}

	entry, err := loadEntry(name, styled)
	if err != nil {
		return err
	}
	entry.digest = digest
	r.families[name] = entry
	r.order = append(r.order, name)
	return nil
}

func loadEntry(name string, styled []styledFont) (*familyEntry, error) {
	parsed, err := font.ParseTTF(bytes.NewReader(styled[0].data))
	if err != nil {
		return nil, fmt.Errorf("%w: 解析字体 %s 失败: %v", ErrRegistration, name, err)
	}
	family := canvas.NewFontFamily(name)
	styles := map[canvas.FontStyle]bool{}
	for _, sf := range styled {
		if err := family.LoadFont(sf.data, 0, sf.style); err != nil {
			return nil, fmt.Errorf("%w: 加载字体 %s 失败: %v", ErrRegistration, name, err)
		}
		styles[sf.style] = true
	}
	return &familyEntry{
		name:   name,
		family: family,
		styles: styles,
		glyphs: parsed.Font,
	}, nil
}

// Seal freezes the registry; later registrations of new families fail.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Sealed reports whether Seal was called.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Families returns the registered family names in registration order.
func (r *Registry) Families() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Has reports whether family was registered.
func (r *Registry) Has(family string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.families[family]
	return ok
}

// Resolve returns the family name that will actually draw text requested in family.
// Unknown families and families lacking glyphs for text fall back to the first
// registered family covering text, then to the built-in fallback. It never fails.
func (r *Registry) Resolve(family, text string) string {
	entry := r.lookup(family, text)
	if entry == nil {
		return ""
	}
	return entry.name
}

// Face returns a font face for family at sizePt points.
// A style that was never loaded for the resolved family degrades to regular.
func (r *Registry) Face(family, text string, sizePt float64, col color.Color, style canvas.FontStyle, deco ...canvas.FontDecorator) (*canvas.FontFace, error) {
	entry := r.lookup(family, text)
	if entry == nil {
		fb, err := r.loadFallback()
		if err != nil {
			return nil, err
		}
		entry = fb
	}
	if !entry.styles[style] {
		switch {
		case entry.styles[style&canvas.FontItalic]:
			style &= canvas.FontItalic
		default:
			style = canvas.FontRegular
		}
	}
	args := []interface{}{col, style, canvas.FontNormal}
	for _, d := range deco {
		args = append(args, d)
	}
	return entry.family.Face(sizePt, args...), nil
}

func (r *Registry) lookup(family, text string) *familyEntry {
	r.mu.RLock()
	requested, ok := r.families[family]
	if ok && requested.covers(text) {
		r.mu.RUnlock()
		return requested
	}
	var firstCovering, first *familyEntry
	for _, name := range r.order {
		e := r.families[name]
		if first == nil {
			first = e
		}
		if firstCovering == nil && e.covers(text) {
			firstCovering = e
		}
	}
	r.mu.RUnlock()

	switch {
	case firstCovering != nil:
		return firstCovering
	case requested != nil:
		return requested
	case first != nil:
		return first
	}
	fb, err := r.loadFallback()
	if err != nil {
		return nil
	}
	return fb
}

// loadFallback 懒加载内置 Go 字体，不计入 Families。
func (r *Registry) loadFallback() (*familyEntry, error) {
	r.fallbackOnce.Do(func() {
		data, err := Builtin("Go-Regular")
		if err != nil {
			r.fallbackErr = err
			return
		}
		r.fallback, r.fallbackErr = loadEntry("pictrans-fallback", []styledFont{{data: data, style: canvas.FontRegular}})
	})
	return r.fallback, r.fallbackErr
}
