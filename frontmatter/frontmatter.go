// Package frontmatter locates a leading delimited metadata block so it can be
// kept out of text sent for correction.
package frontmatter

import "strings"

// Delimiter is the TOML front matter fence.
const Delimiter = "+++"

// FindNth returns the byte offset of the nth (1-based) non-overlapping
// occurrence of needle in haystack, scanning left to right.
func FindNth(haystack, needle string, n int) (int, bool) {
	if n < 1 || needle == "" {
		return 0, false
	}
	offset := 0
	for {
		i := strings.Index(haystack[offset:], needle)
		if i < 0 {
			return 0, false
		}
		if n == 1 {
			return offset + i, true
		}
		n--
		offset += i + len(needle)
	}
}

// Offset returns the position just past the second delim in content, or 0
// when content has fewer than two.
func Offset(content, delim string) int {
	i, ok := FindNth(content, delim, 2)
	if !ok {
		return 0
	}
	return i + len(delim)
}

// Split cuts content at Offset. header is everything up to and including the
// closing delim; body is the rest.
func Split(content, delim string) (header, body string) {
	off := Offset(content, delim)
	return content[:off], content[off:]
}
