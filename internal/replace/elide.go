package replace

import "strings"

const blanks = " \t"

// separators are the list separators an empty expansion may leave
// dangling: commas in expression and field lists, semicolons in
// statement lists.
const separators = ",;"

// elide joins expanded pieces. A variable that expanded to nothing takes
// its now dangling separator with it: a separator next to a bracket or
// another separator, or the whole line when nothing else is left on it.
func elide(pieces []piece) string {
	var buf strings.Builder
	for i := 0; i < len(pieces); i++ {
		p := pieces[i]
		if !p.hole || p.text != "" {
			buf.WriteString(p.text)
			continue
		}

		before := strings.TrimRight(buf.String(), blanks)
		var after string
		hasAfter := i+1 < len(pieces) && !pieces[i+1].hole
		if hasAfter {
			after = pieces[i+1].text
		} else if i+1 < len(pieces) {
			continue
		}
		trimmed := strings.TrimLeft(after, blanks)

		switch {
		case lineOnly(before, trimmed):
			// Drop the emptied line together with its indentation.
			buf.Reset()
			buf.WriteString(before)
			after = trimmed[len(lineTail(trimmed)):]
		case startsWithSep(trimmed) && opensList(before, trimmed[0]):
			after = strings.TrimLeft(trimmed[1:], blanks)
		case endsWithSep(before) && closesList(trimmed):
			buf.Reset()
			buf.WriteString(before[:len(before)-1])
			after = trimmed
		default:
			continue
		}
		if hasAfter {
			pieces[i+1].text = after
		}
	}
	return buf.String()
}

// lineOnly reports whether an empty expansion sits alone on its line.
func lineOnly(before, after string) bool {
	if before != "" && !strings.HasSuffix(before, "\n") {
		return false
	}
	if before == "" && after == "" {
		return false
	}
	tail := lineTail(after)
	return tail != "" || after == ""
}

// lineTail returns the separator and newline that end an emptied line,
// or "" when more text follows on the line.
func lineTail(after string) string {
	rest := after
	if strings.HasPrefix(rest, ";") || strings.HasPrefix(rest, ",") {
		rest = strings.TrimLeft(rest[1:], blanks)
	}
	switch {
	case strings.HasPrefix(rest, "\r\n"):
		return after[:len(after)-len(rest)+2]
	case strings.HasPrefix(rest, "\n"):
		return after[:len(after)-len(rest)+1]
	}
	return ""
}

func startsWithSep(s string) bool {
	return s != "" && strings.IndexByte(separators, s[0]) >= 0
}

func endsWithSep(s string) bool {
	return s != "" && strings.IndexByte(separators, s[len(s)-1]) >= 0
}

// opensList reports whether before ends where a list element may start,
// so that a following sep is dangling.
func opensList(before string, sep byte) bool {
	if before == "" {
		return true
	}
	if sep == ';' && inForClause(before) {
		return false
	}
	last := before[len(before)-1]
	return last == sep || strings.IndexByte("([{", last) >= 0
}

// inForClause reports whether before ends inside the header of a for
// statement, whose semicolons stay even around an empty part.
func inForClause(before string) bool {
	seg := " " + before[strings.LastIndexAny(before, "\n{")+1:]
	for _, prefix := range []string{" for ", "\tfor ", ";for "} {
		if strings.Contains(seg, prefix) {
			return true
		}
	}
	return false
}
