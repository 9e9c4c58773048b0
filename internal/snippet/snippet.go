// Package snippet handles the short codes that embed a drop in course
// content, such as [stashdrop:12:aB3dE9] or [stashdrop:12:aB3dE9:Find me].
package snippet

import (
	"regexp"
	"strconv"
	"strings"
)

var pattern = regexp.MustCompile(`\[stashdrop:(\d+):([A-Za-z0-9]+)(?::([^\]]*))?\]`)

// Ref identifies a drop by id and hashcode.
type Ref struct {
	ID       int64
	HashCode string
}

// Code returns the snippet for a drop. label is optional; closing brackets
// are removed from it since they would end the snippet.
func Code(id int64, hashcode, label string) string {
	var b strings.Builder
	b.WriteString("[stashdrop:")
	b.WriteString(strconv.FormatInt(id, 10))
	b.WriteByte(':')
	b.WriteString(hashcode)
	if label = strings.ReplaceAll(label, "]", ""); label != "" {
		b.WriteByte(':')
		b.WriteString(label)
	}
	b.WriteByte(']')
	return b.String()
}

// RewriteReferences replaces every snippet whose (id, hashcode) is a key of
// refs with the mapped pair. Labels are kept; unknown snippets and all other
// text are left untouched.
func RewriteReferences(content string, refs map[Ref]Ref) string {
	if len(refs) == 0 {
		return content
	}

	return pattern.ReplaceAllStringFunc(content, func(match string) string {
		m := pattern.FindStringSubmatch(match)
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return match
		}
		to, ok := refs[Ref{ID: id, HashCode: m[2]}]
		if !ok {
			return match
		}
		if m[3] == "" && !strings.HasSuffix(match, ":]") {
			return Code(to.ID, to.HashCode, "")
		}
		return "[stashdrop:" + strconv.FormatInt(to.ID, 10) + ":" + to.HashCode + ":" + m[3] + "]"
	})
}
