package style

import (
	"fmt"
	"strconv"
	"strings"
)

// Color 表示 RGB 颜色。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

var Black = Color{}

// Hex formats the color as RRGGBB without the leading '#'.
func (c Color) Hex() string {
	return fmt.Sprintf("%02X%02X%02X", clamp(c.R), clamp(c.G), clamp(c.B))
}

// ParseColor 支持 #rgb、#rrggbb 与 #rrggbbaa（忽略透明度），# 可省略。
func ParseColor(value string) (Color, error) {
	value = strings.TrimPrefix(strings.TrimSpace(value), "#")
	switch len(value) {
	case 3:
		r, err1 := hexByte(strings.Repeat(value[0:1], 2))
		g, err2 := hexByte(strings.Repeat(value[1:2], 2))
		b, err3 := hexByte(strings.Repeat(value[2:3], 2))
		if err1 != nil || err2 != nil || err3 != nil {
			return Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
		}
		return Color{R: r, G: g, B: b}, nil
	case 6, 8:
		r, err1 := hexByte(value[0:2])
		g, err2 := hexByte(value[2:4])
		b, err3 := hexByte(value[4:6])
		if err1 != nil || err2 != nil || err3 != nil {
			return Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
		}
		return Color{R: r, G: g, B: b}, nil
	default:
		return Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
	}
}

func hexByte(s string) (int, error) {
	v, err := strconv.ParseUint(s, 16, 8)
	return int(v), err
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
