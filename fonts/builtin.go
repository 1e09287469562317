package fonts

import (
	"fmt"
	"strings"

	"github.com/tdewolff/canvas"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
)

// DefaultFamily 是内置字体的 family 名称，未提供任何自定义字体时注册它。
const DefaultFamily = "Go"

// BuiltinPrefix 标记内置字体资源，例如 "built-in:Go-Bold"。
const BuiltinPrefix = "built-in:"

var builtinFonts = map[string][]byte{
	"Go-Regular":    goregular.TTF,
	"Go-Bold":       gobold.TTF,
	"Go-Italic":     goitalic.TTF,
	"Go-BoldItalic": gobolditalic.TTF,
}

var builtinStyles = []struct {
	name  string
	style canvas.FontStyle
}{
	{"Go-Regular", canvas.FontRegular},
	{"Go-Bold", canvas.FontBold},
	{"Go-Italic", canvas.FontRegular | canvas.FontItalic},
	{"Go-BoldItalic", canvas.FontBold | canvas.FontItalic},
}

// Builtin 返回内置字体的字节数据，name 可写为 "built-in:Go-Bold" 或直接 "Go-Bold"。
func Builtin(name string) ([]byte, error) {
	clean := strings.TrimPrefix(strings.TrimPrefix(name, BuiltinPrefix), "builtin:")
	data, ok := builtinFonts[clean]
	if !ok {
		return nil, fmt.Errorf("%w: 找不到内置字体 %s", ErrRegistration, clean)
	}
	return data, nil
}
