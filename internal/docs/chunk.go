package docs

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var reSpaces = regexp.MustCompile(`\s+`)

// makeChunks splits s into roughly approx-sized pieces with a fixed character
// overlap so sentences straddling a boundary stay retrievable. Cuts are backed
// up to rune boundaries; a chunk split mid-rune would be invalid UTF-8 and
// rejected by the chunk store.
func makeChunks(s string, approx, overlap int) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if len(s) <= approx {
		return []string{s}
	}
	var out []string
	for start := 0; start < len(s); {
		end := start + approx
		if end >= len(s) {
			end = len(s)
		} else {
			for end > start && !utf8.RuneStart(s[end]) {
				end--
			}
			if end == start {
				end = start + approx
			}
		}
		out = append(out, s[start:end])
		if end == len(s) {
			break
		}
		start = end - overlap
		if start < 0 {
			start = 0
		}
		for start < len(s) && !utf8.RuneStart(s[start]) {
			start++
		}
	}
	return out
}

// chunkID derives a stable id from the document content hash and the chunk
// position, so re-ingesting identical content produces identical ids.
func chunkID(contentHash string, i int) string {
	return fmt.Sprintf("%s#%03d", contentHash, i)
}

func sha1Hex(s string) string { h := sha1.Sum([]byte(s)); return hex.EncodeToString(h[:]) }

func normalize(s string) string { return strings.TrimSpace(reSpaces.ReplaceAllString(s, " ")) }
