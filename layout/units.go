package layout

import (
	"fmt"
	"strconv"
	"strings"
)

// Unit represents the original unit of a length value as written in a template or config file.
type Unit int

const (
	UnitNone Unit = iota // unit-less numbers
	UnitMM               // millimeters
	UnitCM               // centimeters
	UnitIN               // inches
	UnitPT               // points
	UnitPX               // CSS pixels, 1px = 0.75pt
)

// Conversion constants between pt, px and mm.
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
	PxToPt = 0.75
)

// UnitToString returns a short string for a Unit value.
func UnitToString(u Unit) string {
	switch u {
	case UnitMM:
		return "mm"
	case UnitCM:
		return "cm"
	case UnitIN:
		return "in"
	case UnitPT:
		return "pt"
	case UnitPX:
		return "px"
	default:
		return ""
	}
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

// Pt is shorthand for a length in points.
func Pt(v float64) Length { return Length{Value: v, Unit: UnitPT} }

// Px is shorthand for a length in CSS pixels.
func Px(v float64) Length { return Length{Value: v, Unit: UnitPX} }

// Mm is shorthand for a length in millimeters.
func Mm(v float64) Length { return Length{Value: v, Unit: UnitMM} }

func (l Length) IsZero() bool { return l.Value == 0 }

func (l Length) String() string {
	return strconv.FormatFloat(l.Value, 'f', -1, 64) + UnitToString(l.Unit)
}

// mm converts to millimeters; unit-less values are taken as millimeters.
func (l Length) mm() float64 {
	switch l.Unit {
	case UnitCM:
		return l.Value * 10
	case UnitIN:
		return l.Value * 25.4
	case UnitPT:
		return l.Value * PtToMm
	case UnitPX:
		return l.Value * PxToPt * PtToMm
	default:
		return l.Value
	}
}

// To converts this length to the target unit.
func (l Length) To(target Unit) float64 {
	if l.Unit == target {
		return l.Value
	}
	mm := l.mm()
	switch target {
	case UnitCM:
		return mm / 10
	case UnitIN:
		return mm / 25.4
	case UnitPT:
		return mm * MmToPt
	case UnitPX:
		return mm * MmToPt / PxToPt
	default:
		return mm
	}
}

func (l Length) ToMM() float64 { return l.To(UnitMM) }
func (l Length) ToPT() float64 { return l.To(UnitPT) }
func (l Length) ToPX() float64 { return l.To(UnitPX) }

// ParseRawLengthStr parses a length string such as "806px" or "2.5mm" preserving its unit.
// Unparseable input yields the zero Length.
func ParseRawLengthStr(value string) Length {
	l, err := ParseLength(value)
	if err != nil {
		return Length{}
	}
	return l
}

// ParseLength is ParseRawLengthStr with an error for unparseable input.
func ParseLength(value string) (Length, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Length{}, nil
	}
	unit := UnitNone
	num := v
	for _, suf := range []struct {
		s string
		u Unit
	}{{"mm", UnitMM}, {"cm", UnitCM}, {"in", UnitIN}, {"pt", UnitPT}, {"px", UnitPX}} {
		if strings.HasSuffix(v, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(v, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}, fmt.Errorf("长度 %q 无法解析: %w", value, err)
	}
	return Length{Value: f, Unit: unit}, nil
}
