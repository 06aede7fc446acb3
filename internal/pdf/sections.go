package pdf

import (
	"strings"
	"unicode"
)

// maxHeadingLen is the longest line still considered a heading candidate.
// Section titles in papers are short; body lines wrap much longer.
const maxHeadingLen = 80

// SplitSections splits extracted plain text into sections by scanning for
// heading-looking lines: numbered headings ("3. Results", "2.1 Methods") and
// short all-caps lines ("ABSTRACT", "REFERENCES"). Text before the first
// heading lands in a leading "Content" section.
func SplitSections(text string) []Section {
	lines := strings.Split(text, "\n")

	var sections []Section
	current := Section{Title: "Content", Level: 1}
	var body strings.Builder

	flush := func() {
		content := strings.TrimSpace(body.String())
		if content != "" {
			current.Content = content
			sections = append(sections, current)
		}
		body.Reset()
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if title, level, ok := headingOf(trimmed); ok {
			flush()
			current = Section{Title: title, Level: level}
			continue
		}
		if trimmed != "" {
			body.WriteString(trimmed)
			body.WriteString("\n")
		}
	}
	flush()

	return sections
}

// headingOf reports whether line looks like a section heading, returning the
// cleaned title and its nesting level.
func headingOf(line string) (title string, level int, ok bool) {
	if line == "" || len(line) > maxHeadingLen {
		return "", 0, false
	}

	if title, level, ok = numberedHeading(line); ok {
		return title, level, true
	}

	if isAllCapsHeading(line) {
		return line, 1, true
	}

	return "", 0, false
}

// numberedHeading matches headings like "1 Introduction", "3. Results" and
// "2.1.4 Ablations". The level is the number of dotted components.
func numberedHeading(line string) (string, int, bool) {
	i := 0
	dots := 0
	digits := 0

	for i < len(line) {
		c := line[i]
		switch {
		case c >= '0' && c <= '9':
			digits++
			i++
		case c == '.':
			// require a digit before every dot ("..1" is not a heading)
			if digits == 0 {
				return "", 0, false
			}
			dots++
			i++
			// trailing dot as in "3. Results"
			if i < len(line) && line[i] == ' ' {
				dots-- // the final dot is punctuation, not nesting
				i++
				goto done
			}
		case c == ' ':
			i++
			goto done
		default:
			return "", 0, false
		}
	}
	return "", 0, false

done:
	if digits == 0 {
		return "", 0, false
	}
	rest := strings.TrimSpace(line[i:])
	if rest == "" || !unicode.IsLetter(rune(rest[0])) {
		return "", 0, false
	}
	return rest, dots + 1, true
}

// isAllCapsHeading reports whether line is a short line of upper-case words,
// e.g. "ABSTRACT" or "RELATED WORK". Requires at least two letters and no
// lower-case ones.
func isAllCapsHeading(line string) bool {
	letters := 0
	for _, r := range line {
		switch {
		case unicode.IsUpper(r):
			letters++
		case unicode.IsLower(r):
			return false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			// other scripts: not a caps heading
			return false
		case r == ' ' || r == '-' || r == ':':
			// allowed separators
		default:
			return false
		}
	}
	return letters >= 2
}
