package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gabriel-vasile/mimetype"

	"github.com/kingrea/field-audit/internal/audit"
)

// newInput returns a text input with a steady cursor.
func newInput(prompt, placeholder string) textinput.Model {
	in := textinput.New()
	in.Prompt = prompt
	in.Placeholder = placeholder
	in.Cursor.SetMode(cursor.CursorStatic)
	return in
}

// loginForm holds the login / registration inputs.
type loginForm struct {
	email    textinput.Model
	name     textinput.Model
	password textinput.Model
	focus    int
}

func newLoginForm() loginForm {
	email := newInput("Correo: ", "correo@empresa.com")
	name := newInput("Nombre: ", "Nombre completo")
	password := newInput("Clave:  ", "••••••")
	password.EchoMode = textinput.EchoPassword
	f := loginForm{email: email, name: name, password: password}
	f.email.Focus()
	return f
}

// fields returns the inputs shown for the current mode, in tab order.
func (f *loginForm) fields(registering bool) []*textinput.Model {
	if registering {
		return []*textinput.Model{&f.email, &f.name, &f.password}
	}
	return []*textinput.Model{&f.email, &f.password}
}

func (f *loginForm) cycle(registering bool) tea.Cmd {
	fields := f.fields(registering)
	f.focus = (f.focus + 1) % len(fields)
	return f.focusOn(registering)
}

func (f *loginForm) focusOn(registering bool) tea.Cmd {
	fields := f.fields(registering)
	if f.focus >= len(fields) {
		f.focus = 0
	}
	f.email.Blur()
	f.name.Blur()
	f.password.Blur()
	return fields[f.focus].Focus()
}

func (f *loginForm) update(msg tea.Msg, registering bool) tea.Cmd {
	fields := f.fields(registering)
	if f.focus >= len(fields) {
		f.focus = 0
	}
	var cmd tea.Cmd
	*fields[f.focus], cmd = fields[f.focus].Update(msg)
	return cmd
}

func (f *loginForm) view(registering bool) string {
	var lines []string
	for _, field := range f.fields(registering) {
		lines = append(lines, field.View())
	}
	return strings.Join(lines, "\n")
}

// observationForm edits one observation: a free-text note and a set of
// photos attached by file path.
type observationForm struct {
	id          string
	captured    time.Time
	description textarea.Model
	path        textinput.Model
	images      []string
	pathFocused bool
	err         string
}

func newObservationForm() observationForm {
	desc := textarea.New()
	desc.Placeholder = "Describe la condición observada..."
	desc.ShowLineNumbers = false
	desc.SetHeight(6)
	desc.Cursor.SetMode(cursor.CursorStatic)
	path := newInput("Foto: ", "ruta/a/la/imagen.jpg (Enter para adjuntar)")
	f := observationForm{description: desc, path: path}
	f.description.Focus()
	return f
}

// load replaces the form contents with obs.
func (f *observationForm) load(obs audit.Observation) {
	f.id = obs.ID
	f.captured = obs.Timestamp
	f.description.SetValue(obs.Description)
	f.images = append([]string(nil), obs.Images...)
	f.path.Reset()
	f.err = ""
	f.pathFocused = false
	f.path.Blur()
	f.description.Focus()
}

func (f *observationForm) reset() {
	f.load(audit.Observation{})
}

func (f *observationForm) setWidth(width int) {
	f.description.SetWidth(max(20, width))
	f.path.Width = max(20, width-8)
}

func (f *observationForm) toggleFocus() tea.Cmd {
	f.pathFocused = !f.pathFocused
	if f.pathFocused {
		f.description.Blur()
		return f.path.Focus()
	}
	f.path.Blur()
	return f.description.Focus()
}

// attach reads the file at the typed path and adds it as a data URL.
func (f *observationForm) attach(read func(string) ([]byte, error)) {
	path := strings.TrimSpace(f.path.Value())
	if path == "" {
		return
	}
	data, err := read(path)
	if err != nil {
		f.err = fmt.Sprintf("No se pudo leer %s", path)
		return
	}
	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		f.err = fmt.Sprintf("%s no es una imagen (%s)", path, mime.String())
		return
	}
	f.images = append(f.images, audit.DataURL(mime.String(), data))
	f.path.Reset()
	f.err = ""
}

func (f *observationForm) dropLastImage() {
	if len(f.images) > 0 {
		f.images = f.images[:len(f.images)-1]
	}
}

func (f *observationForm) observation() audit.Observation {
	return audit.Observation{
		ID:          f.id,
		Description: strings.TrimSpace(f.description.Value()),
		Images:      append([]string(nil), f.images...),
		Timestamp:   f.captured,
	}
}

func (f *observationForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if f.pathFocused {
		f.path, cmd = f.path.Update(msg)
	} else {
		f.description, cmd = f.description.Update(msg)
	}
	return cmd
}

func (f *observationForm) view() string {
	lines := []string{f.description.View(), ""}
	lines = append(lines, f.path.View())
	if len(f.images) == 0 {
		lines = append(lines, hintStyle.Render("Sin fotos adjuntas"))
	}
	for i, img := range f.images {
		lines = append(lines, fmt.Sprintf("  📷 %d. %s", i+1, describeImage(img)))
	}
	if f.err != "" {
		lines = append(lines, errorStyle.Render(f.err))
	}
	return strings.Join(lines, "\n")
}

// planForm collects the process name and optional context for the planner.
type planForm struct {
	process textinput.Model
	context textinput.Model
	focus   int
}

func newPlanForm() planForm {
	process := newInput("Proceso:  ", "Ej. Compras y abastecimiento")
	ctx := newInput("Contexto: ", "Opcional: alcance, sede, incidentes previos")
	f := planForm{process: process, context: ctx}
	f.process.Focus()
	return f
}

func (f *planForm) load(process, context string) {
	f.process.SetValue(process)
	f.context.SetValue(context)
	f.focus = 0
	f.context.Blur()
	f.process.Focus()
}

func (f *planForm) toggleFocus() tea.Cmd {
	f.focus = 1 - f.focus
	if f.focus == 0 {
		f.context.Blur()
		return f.process.Focus()
	}
	f.process.Blur()
	return f.context.Focus()
}

func (f *planForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if f.focus == 0 {
		f.process, cmd = f.process.Update(msg)
	} else {
		f.context, cmd = f.context.Update(msg)
	}
	return cmd
}

func (f *planForm) view() string {
	return f.process.View() + "\n" + f.context.View()
}

// describeImage summarizes a data URL as "image/jpeg · 120 KB".
func describeImage(dataURL string) string {
	mime, data, err := audit.ParseDataURL(dataURL)
	if err != nil {
		return "imagen no válida"
	}
	return fmt.Sprintf("%s · %s", mime, humanizeBytes(len(data)))
}

func humanizeBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%d KB", n>>10)
	default:
		return fmt.Sprintf("%d B", n)
	}
}
