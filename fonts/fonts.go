// Package fonts 为测量与渲染提供内置字体数据。
//
// 编辑器提供的字体族在本地通常不可用，这里按类别映射到随模块分发的开源字体：
// 衬线体映射到 Latin Modern Roman，等宽字体映射到 Go Mono，其余映射到 Go 无衬线字体。
package fonts

import (
	"fmt"
	"strings"

	"github.com/go-fonts/latin-modern/lmroman10bold"
	"github.com/go-fonts/latin-modern/lmroman10bolditalic"
	"github.com/go-fonts/latin-modern/lmroman10italic"
	"github.com/go-fonts/latin-modern/lmroman10regular"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
)

// Class 是字体类别。
type Class int

const (
	Sans Class = iota
	Serif
	Mono
)

func (c Class) String() string {
	switch c {
	case Serif:
		return "serif"
	case Mono:
		return "mono"
	default:
		return "sans"
	}
}

var classes = map[string]Class{
	"times new roman": Serif,
	"georgia":         Serif,
	"palatino":        Serif,
	"baskerville":     Serif,
	"andalé mono":     Mono,
	"andale mono":     Mono,
	"courier":         Mono,
	"courier new":     Mono,
	"monaco":          Mono,
}

// faces[class][bold][italic]
var faces = map[Class][2][2][]byte{
	Sans:  {{goregular.TTF, goitalic.TTF}, {gobold.TTF, gobolditalic.TTF}},
	Serif: {{lmroman10regular.TTF, lmroman10italic.TTF}, {lmroman10bold.TTF, lmroman10bolditalic.TTF}},
	Mono:  {{gomono.TTF, gomonoitalic.TTF}, {gomonobold.TTF, gomonobolditalic.TTF}},
}

// ClassOf maps a family name to its class; unknown families are sans.
func ClassOf(family string) Class {
	if c, ok := classes[strings.ToLower(strings.TrimSpace(family))]; ok {
		return c
	}
	return Sans
}

// Load 返回字体族对应的字体字节。
func Load(family string, bold, italic bool) ([]byte, error) {
	c := ClassOf(family)
	set, ok := faces[c]
	if !ok {
		return nil, fmt.Errorf("找不到字体类别 %s", c)
	}
	data := set[b2i(bold)][b2i(italic)]
	if len(data) == 0 {
		return nil, fmt.Errorf("字体 %s 缺少数据", family)
	}
	return data, nil
}

// Key identifies the concrete face Load returns, for caching.
func Key(family string, bold, italic bool) string {
	return fmt.Sprintf("%s|%t|%t", ClassOf(family), bold, italic)
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
