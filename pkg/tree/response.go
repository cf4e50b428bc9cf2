package tree

import "strings"

// FromResponse builds a store from a semicolon-delimited bulk response,
// the form instruments use to echo back "all settings" queries.
//
// Each segment is "header value". A header that starts with the
// separator, or that contains one, is a full path and establishes the
// current group prefix (its parent path). A bare header is shorthand
// continuation: it names a sibling within the most recently seen group.
//
//	:ACQUIRE:MODE SAMPLE;NUMAVG 16;:CH1:SCALE 0.1;POSITION 0
//
// parses to ACQUIRE:MODE, ACQUIRE:NUMAVG, CH1:SCALE and CH1:POSITION.
// The result is equivalent to issuing each parsed pair through Set.
func FromResponse(text string) *Store {
	s := New()
	prefix := ""
	for _, seg := range strings.Split(text, ";") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		header, raw, ok := strings.Cut(seg, " ")
		if !ok {
			// Header with no value carries no setting.
			continue
		}
		var path string
		switch {
		case strings.HasPrefix(header, Separator), strings.Contains(header, Separator):
			path = strings.Trim(header, Separator)
			prefix = parentPath(path)
		case prefix != "":
			path = prefix + Separator + header
		default:
			path = header
		}
		s.Set(path, ParseValue(raw))
	}
	return s
}

// parentPath returns the path with its last segment removed.
func parentPath(path string) string {
	if idx := strings.LastIndex(path, Separator); idx >= 0 {
		return path[:idx]
	}
	return ""
}
