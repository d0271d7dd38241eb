package export

import (
	"regexp"
	"strings"
)

// DefaultFileName is used when no file name was given.
const DefaultFileName = "Dokument_1.docx"

const (
	DocxSuffix = ".docx"
	PDFSuffix  = ".pdf"
)

var (
	fileNamePrefix = regexp.MustCompile(`^[\p{L}\p{N}_\-.()]+$`)
	fileNameSuffix = regexp.MustCompile(`^\.(docx|pdf)$`)
)

// AdjustFileName trims name, replaces spaces with '_' and appends the suffix
// for the requested format when it lacks a valid one. A valid suffix is kept. A blank name selects
// DefaultFileName. ok is false when the name cannot be made valid.
func AdjustFileName(name string, pdf bool) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultFileName
	}
	name = strings.ReplaceAll(name, " ", "_")

	prefix, suffix := splitSuffix(name)
	if fileNameSuffix.MatchString(suffix) {
		if !fileNamePrefix.MatchString(prefix) {
			return "", false
		}
		return name, true
	}

	if !fileNamePrefix.MatchString(name) {
		return "", false
	}
	if pdf {
		return name + PDFSuffix, true
	}
	return name + DocxSuffix, true
}

// splitSuffix splits at the last '.', so "a.b.pdf" yields "a.b" and ".pdf".
func splitSuffix(name string) (string, string) {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return name, ""
	}
	return name[:i], name[i:]
}
