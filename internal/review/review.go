// Package review is a terminal UI for tagging tracked records.
//
// It lists the store's open records and lets the user mark them applied or
// ignored. The marks are not written here: the caller feeds them through the
// tracker reconcile path, which is the only path allowed to set those states.
package review

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobradar/internal/model"
)

// Lines per record in the list view (title + subtitle + blank separator).
const itemHeight = 3

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Padding(1, 0, 1, 2)

	itemTitleStyle = lipgloss.NewStyle().
			Bold(true)

	itemSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245"))

	selectedTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("24"))

	selectedSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("24"))

	markAppliedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("42")).
				Bold(true)

	markIgnoredStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("203")).
				Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))
)

// Mark is one decision made during a review session.
type Mark struct {
	UID   string
	State model.State // StateApplied or StateIgnored
}

type reviewModel struct {
	records  []model.Record
	marks    map[string]model.State
	cursor   int
	vp       viewport.Model
	width    int
	height   int
	ready    bool
	discard  bool
}

func (m reviewModel) Init() tea.Cmd {
	return nil
}

func (m reviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		headerLines := 3
		m.vp = viewport.New(msg.Width, max(msg.Height-headerLines-1, itemHeight))
		m.ready = true
		m.vp.SetContent(m.renderList())

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.discard = true
			return m, tea.Quit
		case "q", "enter":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.records)-1 {
				m.cursor++
			}
		case "a":
			m.toggle(model.StateApplied)
		case "i":
			m.toggle(model.StateIgnored)
		case "u":
			delete(m.marks, m.current().UID)
		}
		if m.ready {
			m.vp.SetContent(m.renderList())
			m.scrollToCursor()
		}
	}
	return m, nil
}

func (m *reviewModel) current() model.Record {
	return m.records[m.cursor]
}

// toggle sets the mark on the cursor record, or clears it when pressed twice.
func (m *reviewModel) toggle(s model.State) {
	uid := m.current().UID
	if m.marks[uid] == s {
		delete(m.marks, uid)
		return
	}
	m.marks[uid] = s
}

func (m *reviewModel) scrollToCursor() {
	top := m.cursor * itemHeight
	bottom := top + itemHeight
	if top < m.vp.YOffset {
		m.vp.SetYOffset(top)
	} else if bottom > m.vp.YOffset+m.vp.Height {
		m.vp.SetYOffset(bottom - m.vp.Height)
	}
}

func (m reviewModel) renderList() string {
	var b strings.Builder
	for i, rec := range m.records {
		badge := "   "
		switch m.marks[rec.UID] {
		case model.StateApplied:
			badge = markAppliedStyle.Render("[A]")
		case model.StateIgnored:
			badge = markIgnoredStyle.Render("[I]")
		}

		title := fmt.Sprintf("%s %s — %s", badge, rec.Title, rec.Company)
		subtitle := fmt.Sprintf("    score %d · %s · %s · seen %s",
			rec.Score, rec.Location, rec.Source, rec.LastSeen.Format("2006-01-02"))

		if i == m.cursor {
			b.WriteString(selectedTitleStyle.Render(title) + "\n")
			b.WriteString(selectedSubtitleStyle.Render(subtitle) + "\n\n")
		} else {
			b.WriteString(itemTitleStyle.Render(title) + "\n")
			b.WriteString(itemSubtitleStyle.Render(subtitle) + "\n\n")
		}
	}
	return b.String()
}

func (m reviewModel) View() string {
	if !m.ready {
		return "loading..."
	}

	header := titleStyle.Render(fmt.Sprintf("Review — %d open records, %d marked", len(m.records), len(m.marks)))
	bar := statusBarStyle.Width(m.width).Render("↑/↓/j/k navigate  a applied  i ignored  u undo  enter/q save & quit  ctrl+c discard")
	return header + "\n" + m.vp.View() + "\n" + bar
}

// Run shows the review list and returns the marks made, in list order.
// A ctrl+c discard returns no marks.
func Run(records []model.Record) ([]Mark, error) {
	if len(records) == 0 {
		return nil, nil
	}

	m := reviewModel{
		records: records,
		marks:   make(map[string]model.State),
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	result, err := p.Run()
	if err != nil {
		return nil, err
	}

	final := result.(reviewModel)
	if final.discard {
		return nil, nil
	}

	var marks []Mark
	for _, rec := range final.records {
		if s, ok := final.marks[rec.UID]; ok {
			marks = append(marks, Mark{UID: rec.UID, State: s})
		}
	}
	return marks, nil
}
