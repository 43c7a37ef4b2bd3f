package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"verbum/internal/domain"
)

// BrowsePort is the TUI-facing view of the indexed tree.
type BrowsePort interface {
	Hierarchy() domain.Node
}

// ProfilePort is the TUI-facing subset of the user profile store.
type ProfilePort interface {
	RecordClick(path string)
	UpdateDomainInterest(name string, amount float64)
	PredictNextClick(currentPath string) (string, bool)
}

// DistancePort computes the level-0 semantic distance matrix.
type DistancePort interface {
	ComputeLevel0(ctx context.Context) domain.DistanceMatrix
}

// QueryPort answers questions about a document and serves text previews.
type QueryPort interface {
	Query(ctx context.Context, docRel, question string) (string, error)
	Preview(docRel string, maxChars int) (string, error)
}

// Model is the Bubble Tea model for the landscape browser.
type Model struct {
	browse   BrowsePort
	profile  ProfilePort
	distance DistancePort
	queries  QueryPort

	stack      []domain.Node
	cursor     int
	input      textinput.Model
	viewport   viewport.Model
	asking     bool
	status     string
	suggestion string
	ready      bool
}

// New creates a new browser model rooted at the hierarchy's top level.
func New(browse BrowsePort, profile ProfilePort, dist DistancePort, queries QueryPort) Model {
	ti := textinput.New()
	ti.Prompt = "? "
	ti.Placeholder = "Ask about the selected document and press Enter"
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		browse:   browse,
		profile:  profile,
		distance: dist,
		queries:  queries,
		stack:    []domain.Node{browse.Hierarchy()},
		input:    ti,
		viewport: vp,
		status:   "Arrows to move, Enter to open, d for distances, ? to ask, q to quit.",
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd { return nil }

func (m Model) current() domain.Node { return m.stack[len(m.stack)-1] }

func (m Model) selected() (domain.Node, bool) {
	children := m.current().Children
	if m.cursor < 0 || m.cursor >= len(children) {
		return domain.Node{}, false
	}
	return children[m.cursor], true
}

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, fh := contentBoxStyle.GetFrameSize()
		reserved := 4 + fh // header, breadcrumbs, input, status
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = vh
		m.viewport.SetContent(m.renderListing())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if m.asking {
			return m.updateAsking(msg)
		}
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "down":
			if n := len(m.current().Children); n > 0 {
				m.cursor = (m.cursor + 1) % n
				m.viewport.SetContent(m.renderListing())
			}
			return m, nil
		case "up":
			if n := len(m.current().Children); n > 0 {
				m.cursor = (m.cursor - 1 + n) % n
				m.viewport.SetContent(m.renderListing())
			}
			return m, nil
		case "enter":
			return m.open()
		case "backspace", "esc":
			if len(m.stack) > 1 {
				m.stack = m.stack[:len(m.stack)-1]
				m.cursor = 0
				m.viewport.SetContent(m.renderListing())
			}
			return m, nil
		case "d":
			matrix := m.distance.ComputeLevel0(context.Background())
			m.viewport.SetContent(renderMatrix(matrix))
			m.status = "Level-0 semantic distances."
			return m, nil
		case "?":
			if sel, ok := m.selected(); ok && sel.Type == domain.NodeDocument {
				m.asking = true
				m.input.Focus()
				m.status = "Asking about " + sel.Name
				return m, textinput.Blink
			}
			m.status = "Select a document first."
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateAsking(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.asking = false
		m.input.Blur()
		m.input.SetValue("")
		m.status = "Cancelled."
		return m, nil
	case "enter":
		question := strings.TrimSpace(m.input.Value())
		sel, ok := m.selected()
		if question == "" || !ok {
			return m, nil
		}
		answer, err := m.queries.Query(context.Background(), sel.Path, question)
		if err != nil {
			m.status = "Error: " + err.Error()
		} else {
			m.viewport.SetContent(answer)
			m.status = fmt.Sprintf("Answer for %q", question)
		}
		m.asking = false
		m.input.Blur()
		m.input.SetValue("")
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// open descends into the selected folder or previews a document. Either way
// the navigation is recorded in the profile and a follow-up is suggested.
func (m Model) open() (tea.Model, tea.Cmd) {
	sel, ok := m.selected()
	if !ok {
		return m, nil
	}
	m.profile.RecordClick(sel.Path)
	m.profile.UpdateDomainInterest(topLevelDomain(sel.Path), 0)
	if suggestion, found := m.profile.PredictNextClick(sel.Path); found {
		m.suggestion = suggestion
	} else {
		m.suggestion = ""
	}
	if sel.Type == domain.NodeFolder {
		m.stack = append(m.stack, sel)
		m.cursor = 0
		m.viewport.SetContent(m.renderListing())
		return m, nil
	}
	m.status = "Document: " + sel.Path + "  (? to ask a question)"
	if preview, err := m.queries.Preview(sel.Path, 1000); err == nil && preview != "" {
		m.viewport.SetContent(preview)
	} else {
		m.viewport.SetContent(m.renderListing())
	}
	return m, nil
}

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Verbum Knowledge Landscape")
	crumbs := breadcrumbStyle.Render(m.breadcrumbs())
	content := contentBoxStyle.Render(m.viewport.View())
	var inputLine string
	if m.asking {
		inputLine = m.input.View()
	} else if m.suggestion != "" {
		inputLine = suggestionStyle.Render("Next: " + m.suggestion)
	}
	status := statusStyle.Render(m.status)
	return header + "\n" + crumbs + "\n" + content + "\n" + inputLine + "\n" + status
}

func (m Model) breadcrumbs() string {
	names := make([]string, len(m.stack))
	for i, n := range m.stack {
		names[i] = n.Name
	}
	return strings.Join(names, " / ")
}

func (m Model) renderListing() string {
	children := m.current().Children
	if len(children) == 0 {
		return "Empty folder."
	}
	var b strings.Builder
	for i, child := range children {
		marker := "  "
		if i == m.cursor {
			marker = "> "
		}
		label := child.Name
		if child.Type == domain.NodeFolder {
			label += "/"
		}
		if i == m.cursor {
			label = selectedStyle.Render(label)
		}
		b.WriteString(marker + label + "\n")
	}
	return b.String()
}

func renderMatrix(matrix domain.DistanceMatrix) string {
	if len(matrix.Distances) == 0 {
		return "No distances computable (is the embedding provider configured?)."
	}
	keys := make([]string, 0, len(matrix.Distances))
	for k := range matrix.Distances {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString("Nodes: " + strings.Join(matrix.Nodes, ", ") + "\n\n")
	for _, k := range keys {
		b.WriteString(fmt.Sprintf("%-40s %.4f\n", k, matrix.Distances[k]))
	}
	return b.String()
}

func topLevelDomain(path string) string {
	if i := strings.Index(path, "/"); i >= 0 {
		return path[:i]
	}
	return path
}

var (
	contentBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	breadcrumbStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	suggestionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	selectedStyle   = lipgloss.NewStyle().Bold(true)
)
