package layout

import (
	"log/slog"

	"github.com/google/uuid"
)

// KeyGenerator produces stable opaque line keys.
type KeyGenerator func() string

// UUIDv7 generates time-sortable line keys.
func UUIDv7() KeyGenerator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Options 配置编辑引擎所需的依赖与文档参数。
type Options struct {
	Measurer    Measurer
	Geometry    Geometry // zero value selects DefaultGeometry
	Orientation Orientation
	Columns     int // zero selects 1
	LineHeight  LineHeightFunc
	Notifier    Notifier
	Logger      *slog.Logger
	KeyGen      KeyGenerator
	Meta        DocumentMeta
}

// BuildOptions 配置模板构建阶段，页面方向与分栏数可由模板覆盖。
type BuildOptions struct {
	Options
	// Strict fails the build when a ${path} placeholder has no value and no fallback.
	Strict bool
}

func (o Options) withDefaults() Options {
	if o.Geometry == (Geometry{}) {
		o.Geometry = DefaultGeometry()
	}
	if o.Columns == 0 {
		o.Columns = 1
	}
	if o.Notifier == nil {
		o.Notifier = NopNotifier{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.KeyGen == nil {
		o.KeyGen = UUIDv7()
	}
	return o
}
