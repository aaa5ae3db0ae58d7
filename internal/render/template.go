package render

import (
	"strconv"
	"strings"
	"text/template"
	"unicode/utf8"
)

// ParseLineTemplate parses one surface line template with console helpers.
// Params: template name and body.
// Returns: compiled template or parse error.
func ParseLineTemplate(name, body string) (*template.Template, error) {
	return template.New(name).Funcs(template.FuncMap{
		"upper":    strings.ToUpper,
		"join":     joinNames,
		"truncate": truncate,
		"surface":  surfaceTitle,
	}).Option("missingkey=error").Parse(body)
}

// joinNames lists at most limit names and counts the rest, e.g. "A, B +3".
// A limit <= 0 lists every name.
func joinNames(limit int, names []string) string {
	if limit <= 0 || len(names) <= limit {
		return strings.Join(names, ", ")
	}
	return strings.Join(names[:limit], ", ") + " +" + strconv.Itoa(len(names)-limit)
}

// truncate cuts text to width runes, marking the cut with "...".
func truncate(width int, text string) string {
	if width <= 0 || utf8.RuneCountInString(text) <= width {
		return text
	}
	runes := []rune(text)
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}

func surfaceTitle(surface string) string {
	if title, ok := surfaceTitles[surface]; ok {
		return title
	}
	return surface
}
