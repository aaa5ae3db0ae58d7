package render

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
	"text/template"

	"buffwatch/internal/aggregate"
	"buffwatch/internal/domain"

	"github.com/charmbracelet/lipgloss"
)

// Line is the data passed to the configured line template.
type Line struct {
	Surface  string
	Label    string
	Count    int
	Message  string
	Entity   string
	Entities []string
	Module   string
	Muted    bool
}

type styles struct {
	title lipgloss.Style
	box   lipgloss.Style
	item  lipgloss.Style
	muted lipgloss.Style
}

func newStyles(renderer *lipgloss.Renderer) styles {
	return styles{
		title: renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		box: renderer.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1),
		item:  renderer.NewStyle().Foreground(lipgloss.Color("208")),
		muted: renderer.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

var surfaceTitles = map[string]string{
	"solo":          "Solo",
	"group_list":    "Group",
	"group_overlay": "Overlay",
}

// Console prints visible surfaces whenever their content changes.
// Safe for concurrent Render calls.
type Console struct {
	out    io.Writer
	line   *template.Template
	styles styles

	mu   sync.Mutex
	last string
}

// NewConsole creates console renderer.
// Params: output writer, lipgloss renderer bound to it, and line template body.
// Returns: renderer or template parse error.
func NewConsole(out io.Writer, renderer *lipgloss.Renderer, lineTemplate string) (*Console, error) {
	line, err := ParseLineTemplate("surface_line", lineTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse render template: %w", err)
	}
	return &Console{out: out, line: line, styles: newStyles(renderer)}, nil
}

// Render writes the frame of visible surfaces when it differs from the previous one.
// Params: tick views.
// Returns: template or write error.
func (c *Console) Render(views aggregate.Views) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	blocks := make([]string, 0, 3)
	for _, view := range []aggregate.View{views.Solo, views.GroupList, views.GroupOverlay} {
		if !view.Visible {
			continue
		}
		block, err := c.renderView(view)
		if err != nil {
			return err
		}
		blocks = append(blocks, block)
	}

	frame := ""
	if len(blocks) > 0 {
		frame = lipgloss.JoinHorizontal(lipgloss.Top, blocks...)
	}
	if frame == c.last {
		return nil
	}
	c.last = frame
	if frame == "" {
		_, err := io.WriteString(c.out, c.styles.muted.Render("no active warnings")+"\n")
		return err
	}
	_, err := io.WriteString(c.out, frame+"\n")
	return err
}

func (c *Console) renderView(view aggregate.View) (string, error) {
	rows := make([]string, 0, len(view.Items)+1)
	rows = append(rows, c.styles.title.Render(surfaceTitles[string(view.Surface)]))
	for _, item := range view.Items {
		text, err := c.renderLine(lineFrom(view.Surface, item))
		if err != nil {
			return "", err
		}
		style := c.styles.item
		if item.Muted {
			style = c.styles.muted
		}
		rows = append(rows, style.Render(text))
	}
	return c.styles.box.Render(lipgloss.JoinVertical(lipgloss.Left, rows...)), nil
}

func (c *Console) renderLine(line Line) (string, error) {
	var buf bytes.Buffer
	if err := c.line.Execute(&buf, line); err != nil {
		return "", fmt.Errorf("render line: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func lineFrom(surface domain.Surface, item aggregate.Item) Line {
	entity := item.EntityName
	if len(item.Entities) > 0 {
		entity = strings.Join(item.Entities, ", ")
	}
	return Line{
		Surface:  string(surface),
		Label:    item.Label,
		Count:    item.Count,
		Message:  item.Message,
		Entity:   entity,
		Entities: item.Entities,
		Module:   item.Module,
		Muted:    item.Muted,
	}
}
