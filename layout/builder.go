package layout

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ByLCY/docbuilder/binding"
	"github.com/ByLCY/docbuilder/dsl"
	"github.com/ByLCY/docbuilder/style"
)

const defaultCreator = "docbuilder"

// namedStyle 是 styles 段中声明的命名样式，Props 为未解析的字段覆盖。
type namedStyle struct {
	Name    string
	Extends string
	Props   map[string]string
}

// Build 根据模板 AST 创建编辑引擎，并把模板内容流入文档。
// 第一个 page 段的头部决定页面方向与分栏数；之后的 page 段各自另起一页。
func Build(doc *dsl.Document, data any, opts BuildOptions) (*Engine, error) {
	if doc == nil {
		return nil, fmt.Errorf("文档为空")
	}
	pages := pageSections(doc)
	if len(pages) == 0 {
		return nil, fmt.Errorf("文档中缺少 page 段落")
	}
	styles, err := collectStyles(doc)
	if err != nil {
		return nil, err
	}

	b := &blockBuilder{styles: styles, data: data, missing: map[string]bool{}}
	o, columns, err := parsePageParams(pages[0].Params)
	if err != nil {
		return nil, err
	}
	opts.Orientation = o
	if columns > 0 {
		opts.Columns = columns
	}
	opts.Meta = b.collectMeta(doc)

	for i, section := range pages {
		if i > 0 {
			if _, _, err := parsePageParams(section.Params); err != nil {
				return nil, err
			}
			b.blocks = append(b.blocks, Block{Kind: BlockPageBreak})
		}
		if err := b.processBlock(section.Block); err != nil {
			return nil, err
		}
	}

	if missing := b.missingPaths(); len(missing) > 0 {
		if opts.Strict {
			return nil, fmt.Errorf("模板数据缺少字段: %s", strings.Join(missing, ", "))
		}
		if opts.Logger != nil {
			opts.Logger.Warn("template: unresolved placeholders", "paths", missing)
		}
	}

	e, err := New(opts.Options)
	if err != nil {
		return nil, err
	}
	if err := e.Fill(b.blocks); err != nil {
		return nil, err
	}
	return e, nil
}

type blockBuilder struct {
	styles  map[string]namedStyle
	data    any
	blocks  []Block
	missing map[string]bool
}

func (b *blockBuilder) text(s string) string {
	out, missing := binding.Expand(s, b.data)
	for _, m := range missing {
		b.missing[m] = true
	}
	return out
}

func (b *blockBuilder) missingPaths() []string {
	out := make([]string, 0, len(b.missing))
	for k := range b.missing {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (b *blockBuilder) processBlock(block *dsl.Block) error {
	if block == nil {
		return nil
	}
	for _, stmt := range block.Statements {
		switch {
		case stmt == nil:
			continue
		case stmt.Text != nil:
			b.blocks = append(b.blocks, Block{Kind: BlockParagraph, Text: b.text(string(stmt.Text.Value)), Style: style.Default()})
		case stmt.Command != nil:
			if err := b.handleCommand(stmt.Command); err != nil {
				return err
			}
		case stmt.Assignment != nil:
			return fmt.Errorf("page 段中不支持赋值语句 %s", stmt.Assignment.Key)
		}
	}
	return nil
}

func (b *blockBuilder) handleCommand(cmd *dsl.Command) error {
	switch strings.ToLower(cmd.Name) {
	case "heading":
		st, err := b.commandStyle(cmd)
		if err != nil {
			return err
		}
		for _, t := range cmd.Texts() {
			b.blocks = append(b.blocks, Block{Kind: BlockHeading, Text: b.text(t), Style: st})
		}
	case "paragraph", "text":
		st, err := b.commandStyle(cmd)
		if err != nil {
			return err
		}
		texts := cmd.Texts()
		for i, t := range texts {
			texts[i] = b.text(t)
		}
		b.blocks = append(b.blocks, Block{Kind: BlockParagraph, Text: strings.Join(texts, "\n"), Style: st})
	case "blank":
		n := 1
		if len(cmd.Args) > 0 {
			v, err := strconv.Atoi(cmd.Args[0].Value)
			if err != nil || v < 1 {
				return fmt.Errorf("第 %d 行: blank 的行数 %q 不合法", cmd.Pos.Line, cmd.Args[0].Value)
			}
			n = v
		}
		b.blocks = append(b.blocks, Block{Kind: BlockParagraph, Text: strings.Repeat("\n", n-1), Style: style.Default()})
	case "break":
		kind := "page"
		if len(cmd.Args) > 0 {
			kind = strings.ToLower(cmd.Args[0].Value)
		}
		switch kind {
		case "column":
			b.blocks = append(b.blocks, Block{Kind: BlockColumnBreak})
		case "page":
			b.blocks = append(b.blocks, Block{Kind: BlockPageBreak})
		default:
			return fmt.Errorf("第 %d 行: 未知的分隔类型 %s", cmd.Pos.Line, kind)
		}
	default:
		return fmt.Errorf("第 %d 行: 未知命令 %s", cmd.Pos.Line, cmd.Name)
	}
	return nil
}

// commandStyle resolves `[StyleName] key value ...` on top of the default style.
func (b *blockBuilder) commandStyle(cmd *dsl.Command) (style.Style, error) {
	name, inline := parseArgs(cmd.Args, true)
	if name != "" {
		if _, ok := b.styles[name]; !ok {
			return style.Style{}, fmt.Errorf("第 %d 行: style %s 未定义", cmd.Pos.Line, name)
		}
	}
	attrs := mergeStyleAttributes(name, inline, b.styles)
	overrides := make(map[style.Field]string, len(attrs))
	for k, v := range attrs {
		overrides[styleField(k)] = v
	}
	st, err := style.Derive(style.Default(), overrides)
	if err != nil {
		return style.Style{}, fmt.Errorf("第 %d 行: %w", cmd.Pos.Line, err)
	}
	return st, nil
}

func styleField(key string) style.Field {
	switch strings.ToLower(key) {
	case "family", "font-family":
		return style.FieldFont
	case "font-size":
		return style.FieldSize
	default:
		return style.Field(strings.ToLower(key))
	}
}

// parsePageParams reads `[portrait|landscape] [columns N]`; columns is 0 when absent.
func parsePageParams(params []*dsl.Lexeme) (Orientation, int, error) {
	o := Portrait
	columns := 0
	for i := 0; i < len(params); i++ {
		v := strings.ToLower(params[i].Value)
		switch v {
		case "portrait", "landscape":
			o, _ = ParseOrientation(v)
		case "columns":
			if i+1 >= len(params) {
				return o, 0, fmt.Errorf("page 头部 columns 缺少数值")
			}
			n, err := strconv.Atoi(params[i+1].Value)
			if err != nil {
				return o, 0, fmt.Errorf("page 头部分栏数 %q 无法解析", params[i+1].Value)
			}
			columns = n
			i++
		default:
			return o, 0, fmt.Errorf("page 头部参数 %s 无法识别", params[i].Value)
		}
	}
	return o, columns, nil
}

func pageSections(doc *dsl.Document) []*dsl.PageSection {
	var out []*dsl.PageSection
	for _, section := range doc.Sections {
		if section != nil && section.Page != nil {
			out = append(out, section.Page)
		}
	}
	return out
}

func (b *blockBuilder) collectMeta(doc *dsl.Document) DocumentMeta {
	meta := DocumentMeta{Creator: defaultCreator}
	for _, section := range doc.Sections {
		if section.Meta == nil || section.Meta.Block == nil {
			continue
		}
		for _, stmt := range section.Meta.Block.Statements {
			if stmt.Assignment == nil {
				continue
			}
			val := stmt.Assignment.Value
			switch strings.ToLower(stmt.Assignment.Key) {
			case "title":
				meta.Title = b.text(valueToString(val))
			case "author":
				meta.Author = b.text(valueToString(val))
			case "subject":
				meta.Subject = b.text(valueToString(val))
			case "creator":
				meta.Creator = valueToString(val)
			case "keywords":
				meta.Keywords = valueToStringSlice(val)
			case "file", "filename":
				meta.FileName = b.text(valueToString(val))
			}
		}
	}
	return meta
}

func collectStyles(doc *dsl.Document) (map[string]namedStyle, error) {
	styles := map[string]namedStyle{}
	for _, section := range doc.Sections {
		if section.Styles == nil || section.Styles.Block == nil {
			continue
		}
		for _, stmt := range section.Styles.Block.Statements {
			if stmt.Command == nil {
				continue
			}
			if !strings.EqualFold(stmt.Command.Name, "style") {
				return nil, fmt.Errorf("第 %d 行: styles 段中只能声明 style", stmt.Command.Pos.Line)
			}
			s := parseStyleResource(stmt.Command)
			if s.Name == "" {
				return nil, fmt.Errorf("第 %d 行: style 缺少名称", stmt.Command.Pos.Line)
			}
			styles[s.Name] = s
		}
	}
	return resolveStyles(styles)
}

func parseStyleResource(cmd *dsl.Command) namedStyle {
	if len(cmd.Args) == 0 {
		return namedStyle{}
	}
	s := namedStyle{
		Name:  cmd.Args[0].Value,
		Props: map[string]string{},
	}
	if len(cmd.Args) >= 3 && strings.EqualFold(cmd.Args[1].Value, "extends") {
		s.Extends = cmd.Args[2].Value
	}
	if cmd.Block == nil {
		return s
	}
	for _, stmt := range cmd.Block.Statements {
		if stmt.Assignment == nil {
			continue
		}
		if val := valueToString(stmt.Assignment.Value); val != "" {
			s.Props[stmt.Assignment.Key] = val
		}
	}
	return s
}

func resolveStyles(styles map[string]namedStyle) (map[string]namedStyle, error) {
	resolved := map[string]namedStyle{}
	visiting := map[string]bool{}

	var dfs func(name string) (namedStyle, error)
	dfs = func(name string) (namedStyle, error) {
		if s, ok := resolved[name]; ok {
			return s, nil
		}
		s, ok := styles[name]
		if !ok {
			return namedStyle{}, fmt.Errorf("style %s 未定义", name)
		}
		if visiting[name] {
			return namedStyle{}, fmt.Errorf("style 继承存在循环：%s", name)
		}
		visiting[name] = true

		props := map[string]string{}
		if s.Extends != "" {
			parent, err := dfs(s.Extends)
			if err != nil {
				return namedStyle{}, err
			}
			for k, v := range parent.Props {
				props[k] = v
			}
		}
		for k, v := range s.Props {
			props[k] = v
		}
		s.Props = props
		resolved[name] = s
		delete(visiting, name)
		return s, nil
	}

	for name := range styles {
		if _, err := dfs(name); err != nil {
			return nil, err
		}
	}
	return resolved, nil
}

// parseArgs splits `[Style] key value key value ...`.
func parseArgs(args []*dsl.Lexeme, allowStyle bool) (string, map[string]string) {
	result := map[string]string{}
	if len(args) == 0 {
		return "", result
	}
	cursor := 0
	var name string
	// an odd argument count means the first token names a style
	if allowStyle && args[0].Type == "Ident" && len(args)%2 == 1 {
		name = args[0].Value
		cursor = 1
	}
	for cursor < len(args)-1 {
		result[args[cursor].Value] = args[cursor+1].Value
		cursor += 2
	}
	return name, result
}

func mergeStyleAttributes(name string, inline map[string]string, styles map[string]namedStyle) map[string]string {
	out := make(map[string]string)
	if s, ok := styles[name]; ok {
		for k, v := range s.Props {
			out[k] = v
		}
	}
	for k, v := range inline {
		out[k] = v
	}
	return out
}

func valueToString(val *dsl.Value) string {
	if val == nil {
		return ""
	}
	switch {
	case val.String != nil:
		return string(*val.String)
	case val.Number != nil:
		return *val.Number
	case val.Color != nil:
		return *val.Color
	case val.Expr != nil:
		var sb strings.Builder
		for _, part := range val.Expr.Parts {
			sb.WriteString(part.Value)
		}
		return sb.String()
	default:
		return ""
	}
}

func valueToStringSlice(val *dsl.Value) []string {
	if val == nil {
		return nil
	}
	if val.Array != nil {
		out := make([]string, 0, len(val.Array.Values))
		for _, item := range val.Array.Values {
			if s := valueToString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s := valueToString(val); s != "" {
		return []string{s}
	}
	return nil
}
