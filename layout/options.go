package layout

// BuildOptions 配置布局阶段所需的依赖，例如排版后端。
type BuildOptions struct {
	Typesetter Typesetter
	Debug      DebugOptions
}

// DebugOptions 控制调试相关输出。
type DebugOptions struct {
	Points bool // 在调试 JSON 中输出 debug.points 影子字段
}

// Typesetter 负责根据字体与宽度约束将文本拆成可绘制的行。
// fontSize、lineHeight 与 width 均为 px；width<=0 表示不限宽。
type Typesetter interface {
	LayoutLines(content string, width float64, font Font, fontSize float64, lineHeight float64, wrap string) ([]TextLine, error)
}

// FamilyResolver is implemented by typesetters that can report which
// registered family renders a piece of text.
type FamilyResolver interface {
	ResolveFamily(family, text string) string
}
