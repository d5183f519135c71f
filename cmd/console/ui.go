package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jwebster45206/npc-builder/pkg/npc"
	"github.com/jwebster45206/npc-builder/pkg/session"
)

const PlaceHolderText = "Type a command, /help lists them..."

// ConsoleUI is the BubbleTea model that runs the editor.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config          *ConsoleConfig
	session         *session.Session
	clipboard       session.Clipboard
	changes         <-chan struct{}
	doc             *npc.Definition
	previewViewport viewport.Model
	outlineViewport viewport.Model
	textarea        textarea.Model
	ready           bool
	width           int
	height          int

	showHelp  bool
	status    string
	statusErr bool

	// Quit confirmation state
	showQuitModal bool
}

// documentChangedMsg arrives when the session commits a change made outside
// Update, such as a debounced rename.
type documentChangedMsg struct{}

var (
	previewPanelStyle = lipgloss.NewStyle().
				PaddingTop(1).
				PaddingLeft(3).
				PaddingRight(0)

	outlinePanelStyle = lipgloss.NewStyle().
				PaddingTop(1).
				PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	keyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")) // purple

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("86")) // green

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)
)

var (
	upper = cases.Upper(language.English)
	title = cases.Title(language.English)
)

func NewConsoleUI(cfg *ConsoleConfig, s *session.Session, cb session.Clipboard, changes <-chan struct{}) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 1000
	ta.SetWidth(50)
	ta.SetHeight(2)
	ta.ShowLineNumbers = false

	previewVp := viewport.New(50, 20)
	previewVp.MouseWheelEnabled = true

	outlineVp := viewport.New(30, 20)
	outlineVp.MouseWheelEnabled = true

	return ConsoleUI{
		config:          cfg,
		session:         s,
		clipboard:       cb,
		changes:         changes,
		doc:             s.Document(),
		textarea:        ta,
		previewViewport: previewVp,
		outlineViewport: outlineVp,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.waitForChange())
}

// waitForChange turns the next session change into a message.
func (m ConsoleUI) waitForChange() tea.Cmd {
	if m.changes == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-m.changes; !ok {
			return nil
		}
		return documentChangedMsg{}
	}
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		pvCmd tea.Cmd
		olCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.previewViewport, pvCmd = m.previewViewport.Update(msg)
		m.outlineViewport, olCmd = m.outlineViewport.Update(msg)
		return m, tea.Batch(pvCmd, olCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.ready = true
		m.refresh()

	case documentChangedMsg:
		m.doc = m.session.Document()
		m.refresh()
		return m, m.waitForChange()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			input := strings.TrimSpace(m.textarea.Value())
			m.textarea.Reset()
			a, err := parseCommand(input)
			if err != nil {
				m.setError(err)
				m.refresh()
				return m, nil
			}
			cmd := m.execute(a)
			m.refresh()
			return m, cmd
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.previewViewport, pvCmd = m.previewViewport.Update(msg)
	m.outlineViewport, olCmd = m.outlineViewport.Update(msg)

	return m, tea.Batch(tiCmd, pvCmd, olCmd)
}

// execute runs one parsed command against the session.
func (m *ConsoleUI) execute(a action) tea.Cmd {
	m.showHelp = false

	switch a.kind {
	case actionNone:
	case actionHelp:
		m.showHelp = true
		m.setStatus("help")

	case actionQuit:
		m.showQuitModal = true

	case actionEdit:
		doc, err := m.session.Apply(a.cmd)
		if doc != nil {
			m.doc = doc
		}
		if err != nil {
			m.setError(err)
			return nil
		}
		m.setStatus(a.cmd.Op)

	case actionRename:
		m.session.RenameInput(a.key, a.text)
		m.setStatus(fmt.Sprintf("renaming %s to %s", a.key, a.text))

	case actionRenameNow:
		m.session.RenameInput(a.key, a.text)
		m.session.RenameBlur(a.key, a.text)
		m.doc = m.session.Document()
		m.setStatus(fmt.Sprintf("renamed %s to %s", a.key, a.text))

	case actionCopy:
		if err := m.session.Copy(m.clipboard); err != nil {
			m.setError(err)
			return nil
		}
		m.setStatus("copied to clipboard")

	case actionExport:
		dir := a.text
		if dir == "" {
			dir = m.config.ExportDir
		}
		written, err := m.export(dir)
		if err != nil {
			m.setError(err)
			return nil
		}
		m.setStatus("wrote " + written)

	case actionImport:
		doc, err := loadDocument(a.text)
		if err == nil {
			doc, err = m.session.Replace(doc)
		}
		if err != nil {
			m.setError(fmt.Errorf("import %s: %w", a.text, err))
			return nil
		}
		m.doc = doc
		m.setStatus("imported " + a.text)

	case actionValidate:
		issues := npc.Validate(m.doc)
		switch {
		case len(issues) == 0:
			m.setStatus("document is valid")
		case npc.HasErrors(issues):
			m.setError(fmt.Errorf("%d issues, see the outline", len(issues)))
		default:
			m.setStatus(fmt.Sprintf("%d warnings, see the outline", len(issues)))
		}
	}
	return nil
}

func (m *ConsoleUI) export(dir string) (string, error) {
	data, name, err := m.session.Export()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

func (m *ConsoleUI) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *ConsoleUI) setError(err error) {
	m.status = err.Error()
	if errors.Is(err, session.ErrClipboardUnavailable) {
		m.status += " (install xclip, xsel or wl-clipboard, or use /export)"
	}
	m.statusErr = true
}

func (m *ConsoleUI) resize() {
	previewWidth := int(float64(m.width)*0.6) - 4
	outlineWidth := m.width - previewWidth - 6

	m.previewViewport.Width = previewWidth - 2
	m.previewViewport.Height = m.height - 7
	m.outlineViewport.Width = outlineWidth - 2
	m.outlineViewport.Height = m.height - 3
	m.textarea.SetWidth(previewWidth - 4)
}

// refresh re-renders both panes for the current document and width.
func (m *ConsoleUI) refresh() {
	width := m.previewViewport.Width - 3
	if width < 20 {
		width = 20
	}
	if m.showHelp {
		m.previewViewport.SetContent(wordwrap.String(helpText, width))
	} else {
		m.previewViewport.SetContent(writePreview(m.doc, width))
	}
	m.outlineViewport.SetContent(writeOutline(m.doc, m.session, m.outlineViewport.Width))
}

func writePreview(doc *npc.Definition, width int) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render(npc.ExportFilename(doc)) + "\n\n")
	data, err := npc.Export(doc)
	if err != nil {
		content.WriteString(errorStyle.Render("Error: " + err.Error()))
		return content.String()
	}
	content.WriteString(wordwrap.String(string(data), width))
	return content.String()
}

// renamePending reports which parameters are waiting on a debounced rename.
type renamePending interface {
	RenamePending(key string) bool
}

func writeOutline(doc *npc.Definition, pending renamePending, width int) string {
	var content strings.Builder
	section := func(name string) {
		content.WriteString("\n" + titleStyle.Render(upper.String(name)) + "\n")
	}
	wrap := func(s string) string {
		if width <= 4 {
			return s
		}
		return wordwrap.String(s, width)
	}

	content.WriteString(titleStyle.Render(upper.String(npc.DisplayName(doc, "new npc"))) + "\n")
	content.WriteString(fmt.Sprintf("%s %s", doc.Kind, doc.Reference) + "\n")
	if doc.StartState != "" {
		content.WriteString("starts in " + doc.StartState + "\n")
	}

	section("parameters")
	for key, p := range doc.Parameters.All {
		value, _ := json.Marshal(p.Value)
		line := keyStyle.Render(key) + " = " + string(value)
		if pending != nil && pending.RenamePending(key) {
			line += warnStyle.Render(" (renaming)")
		}
		content.WriteString(wrap("• "+line) + "\n")
	}

	section("state transitions")
	if len(doc.StateTransitions) == 0 {
		content.WriteString("None\n")
	}
	for i, t := range doc.StateTransitions {
		var from, to []string
		if len(t.States) > 0 {
			from, to = t.States[0].From, t.States[0].To
		}
		content.WriteString(wrap(fmt.Sprintf("%d. %s → %s", i, strings.Join(from, ", "), strings.Join(to, ", "))) + "\n")
		for j, a := range t.Actions {
			content.WriteString(wrap(fmt.Sprintf("   %d %s", j, a.Summary())) + "\n")
		}
	}

	section("instructions")
	if len(doc.Instructions) == 0 {
		content.WriteString("None\n")
	}
	doc.Walk(func(path []int, in *npc.Instruction) {
		indent := strings.Repeat("  ", len(path)-1)
		label := "Always"
		if in.Sensor != nil {
			label = string(in.Sensor.Type)
			if state := in.Sensor.State(); state != "" {
				label += " " + state
			}
		}
		content.WriteString(wrap(fmt.Sprintf("%s%s %s", indent, pathLabel(path), label)) + "\n")
		for j, a := range in.Actions {
			content.WriteString(wrap(fmt.Sprintf("%s   %d %s", indent, j, a.Summary())) + "\n")
		}
	})

	section("validation")
	issues := npc.Validate(doc)
	if len(issues) == 0 {
		content.WriteString(okStyle.Render("No issues") + "\n")
	}
	for _, issue := range issues {
		style := warnStyle
		if issue.Severity == npc.SeverityError {
			style = errorStyle
		}
		content.WriteString(wrap(style.Render(title.String(string(issue.Severity)))+" "+issue.Path+": "+issue.Message) + "\n")
	}
	return content.String()
}

func pathLabel(path []int) string {
	parts := make([]string, len(path))
	for i, p := range path {
		parts[i] = fmt.Sprint(p)
	}
	return strings.Join(parts, ".")
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case documentChangedMsg:
		m.doc = m.session.Document()
		m.refresh()
		return m, m.waitForChange()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Editor?"))
	content.WriteString("\n\n")
	content.WriteString("Unsaved changes are lost. Use /export to write the file first.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	previewWidth := int(float64(m.width)*0.6) - 4
	outlineWidth := m.width - previewWidth - 6

	status := okStyle.Render(m.status)
	if m.statusErr {
		status = errorStyle.Render("Error: " + m.status)
	}

	previewPanel := previewPanelStyle.Width(previewWidth).Height(m.height - 2).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.previewViewport.View(),
			separatorStyle.Render(strings.Repeat("─", previewWidth-4)),
			status,
			m.textarea.View(),
		),
	)

	outlinePanel := outlinePanelStyle.Width(outlineWidth).Height(m.height - 2).Render(
		m.outlineViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, previewPanel, outlinePanel)
}
