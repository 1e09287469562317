package renderer

import (
	"io"

	"github.com/ByLCY/pictrans/layout"
	"github.com/ByLCY/pictrans/scene"
)

// Renderer 将文档按从后到前的顺序绘制为最终图像并写入 w。
// result 为 layout.Build 的排版结果；为 nil 时渲染器自行排版。
type Renderer interface {
	Render(doc *scene.Document, result *layout.Result, w io.Writer) error
}
