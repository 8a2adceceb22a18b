package source

import (
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeName turns a path-like name into a stable identity: NFC, forward
// slashes, cleaned. Two spellings of the same logical file map to one name.
func NormalizeName(name string) string {
	if name == "" {
		return ""
	}
	name = norm.NFC.String(name)
	name = filepath.ToSlash(filepath.Clean(filepath.FromSlash(name)))
	return strings.TrimPrefix(name, "./")
}

// Ext returns the lower-cased extension of name.
func Ext(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// normalizeCRLF заменяет все \r\n на \n, не трогая одиночные \r.
func normalizeCRLF(content []byte) []byte {
	if !slices.Contains(content, '\r') {
		return content
	}
	out := make([]byte, 0, len(content))
	for i := 0; i < len(content); i++ {
		if content[i] == '\r' && i+1 < len(content) && content[i+1] == '\n' {
			continue
		}
		out = append(out, content[i])
	}
	return out
}

func removeBOM(content []byte) []byte {
	if len(content) >= 3 && content[0] == 0xEF && content[1] == 0xBB && content[2] == 0xBF {
		return content[3:]
	}
	return content
}

// Normalize strips a UTF-8 BOM and CRLF line endings so checksums do not
// depend on the editor that saved the file.
func Normalize(content []byte) []byte {
	return normalizeCRLF(removeBOM(content))
}
