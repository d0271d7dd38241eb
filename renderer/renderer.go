// Package renderer 定义文档快照的输出后端。
package renderer

import "github.com/ByLCY/docbuilder/layout"

// Renderer 将文档快照输出为最终文件，例如 PDF 预览或 docx。
// Render 返回生成的二进制数据以及可能的错误。
type Renderer interface {
	Render(snap *layout.Snapshot) ([]byte, error)
}

// ContentType returns the MIME type for a file extension handled by the renderers.
func ContentType(ext string) string {
	switch ext {
	case ".pdf", "pdf":
		return "application/pdf"
	case ".docx", "docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "application/octet-stream"
	}
}
