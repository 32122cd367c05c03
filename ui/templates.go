package ui

import (
	"embed"
	"html/template"
	"io"

	"github.com/pkg/errors"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

var templates = template.Must(
	template.New("ui").Option("missingkey=error").ParseFS(templateFS, "templates/*.gohtml"),
)

type (
	rowView struct {
		ID       int
		Name     string
		Email    string
		Confirm  string // asked before deleting
		Selected bool
	}

	dialogView struct {
		Title        string
		Action       string
		CancelAction string
		FirstName    string
		LastName     string
		Email        string
		Errors       map[string]string
		Busy         bool
	}

	teacherListView struct {
		Loaded bool
		Rows   []rowView
		Dialog *dialogView
	}

	studentListView struct {
		Hidden bool
		Header string
		Rows   []rowView
		Dialog *dialogView
	}

	loginView struct {
		Username string
		Error    string
		Errors   map[string]string
		Busy     bool
	}
)

func render(w io.Writer, name string, data interface{}) error {
	return errors.Wrapf(templates.ExecuteTemplate(w, name, data), "rendering %s", name)
}

// Page is a full HTML document. Body is trusted markup rendered by the components.
type Page struct {
	Title    string
	Username string
	LoggedIn bool
	Body     template.HTML
}

func RenderPage(w io.Writer, page Page) error {
	return render(w, "page", page)
}
