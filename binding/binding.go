// Package binding 把模板文本中的 ${path} 占位符替换为数据中的值。
package binding

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var exprPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Interpolate 将文本中的 ${path.to.value} 替换为 data 中的值。
// ${path|fallback} 在路径不存在时使用 fallback；否则保留原占位符。
func Interpolate(text string, data any) string {
	out, _ := Expand(text, data)
	return out
}

// Expand is Interpolate that also reports the paths that did not resolve and
// had no fallback, sorted and without duplicates.
func Expand(text string, data any) (string, []string) {
	missing := map[string]bool{}
	out := exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := exprPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		path, fallback, hasFallback := strings.Cut(groups[1], "|")
		path = strings.TrimSpace(path)
		if path == "" {
			return match
		}
		if val, ok := Resolve(data, path); ok && val != nil {
			return format(val)
		}
		if hasFallback {
			return strings.TrimSpace(fallback)
		}
		missing[path] = true
		return match
	})
	if len(missing) == 0 {
		return out, nil
	}
	keys := make([]string, 0, len(missing))
	for k := range missing {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return out, keys
}

// Resolve walks a dotted path with optional [i] indexes through maps and slices.
func Resolve(data any, path string) (any, bool) {
	if data == nil {
		return nil, false
	}
	current := data
	for _, segment := range strings.Split(path, ".") {
		name, indexes := parseSegment(segment)
		if name != "" {
			var ok bool
			current, ok = descendMap(current, name)
			if !ok {
				return nil, false
			}
		}
		for _, idxStr := range indexes {
			idx, err := strconv.Atoi(idxStr)
			if err != nil {
				return nil, false
			}
			var ok bool
			current, ok = descendArray(current, idx)
			if !ok {
				return nil, false
			}
		}
	}
	return current, true
}

func format(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		// JSON numbers decode as float64
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func parseSegment(segment string) (string, []string) {
	name := segment
	var indexes []string
	if i := strings.Index(segment, "["); i != -1 {
		name = segment[:i]
		rest := segment[i:]
		for len(rest) > 0 && rest[0] == '[' {
			end := strings.IndexByte(rest, ']')
			if end == -1 {
				break
			}
			indexes = append(indexes, rest[1:end])
			rest = rest[end+1:]
		}
	}
	return strings.TrimSpace(name), indexes
}

func descendMap(current any, key string) (any, bool) {
	switch c := current.(type) {
	case map[string]any:
		val, ok := c[key]
		return val, ok
	case map[string]string:
		val, ok := c[key]
		return val, ok
	default:
		return nil, false
	}
}

func descendArray(current any, idx int) (any, bool) {
	switch c := current.(type) {
	case []any:
		if idx < 0 || idx >= len(c) {
			return nil, false
		}
		return c[idx], true
	case []string:
		if idx < 0 || idx >= len(c) {
			return nil, false
		}
		return c[idx], true
	default:
		return nil, false
	}
}
