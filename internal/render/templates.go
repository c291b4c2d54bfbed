package render

import (
	"embed"
	"html/template"
	"strings"
)

const (
	TemplateBase      = "cv_base.html"
	TemplateExecutive = "cv_executive.html"
	templateLetter    = "motivation_letter.html"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"keywordMatch": KeywordMatch,
	"join":         strings.Join,
}

var templates = map[string]*template.Template{
	TemplateBase:      mustParse(TemplateBase),
	TemplateExecutive: mustParse(TemplateExecutive),
	templateLetter:    mustParse(templateLetter),
}

func mustParse(name string) *template.Template {
	return template.Must(template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/"+name))
}

// ResolveTemplate maps a user-supplied template choice onto the allow-list,
// defaulting to the base layout.
func ResolveTemplate(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if !strings.HasSuffix(name, ".html") {
		name += ".html"
	}
	switch name {
	case TemplateBase, TemplateExecutive:
		return name
	default:
		return TemplateBase
	}
}

// Templates lists the selectable CV layouts.
func Templates() []string {
	return []string{TemplateBase, TemplateExecutive}
}
