// Package tui is the terminal front-end: it consumes normalized snapshots
// from a channel subscription, draws the bob chain, and drives the edit
// forms and mutation commands.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/pendlab/internal/chain"
	"github.com/san-kum/pendlab/internal/client"
	"github.com/san-kum/pendlab/internal/forms"
	"github.com/san-kum/pendlab/internal/scene"
)

const (
	// transient status messages clear themselves after this long
	statusTimeout   = 2500 * time.Millisecond
	commandTimeout  = 5 * time.Second
	historyCapacity = 600
)

type tickMsg time.Time

type statusExpireMsg int

// cmdResultMsg reports one finished backend round trip. For a confirmed
// modify it carries the submitted overrides so exactly those form fields
// can be cleared.
type cmdResultMsg struct {
	err      error
	note     string
	isModify bool
	id       uuid.UUID
	length   *float64
	mass     *float64
	theta    *float64
	omega    *float64
}

// Model holds all mutable view state. Nothing here is package-global; a
// fresh mount builds a fresh Model and a fresh subscription.
type Model struct {
	client *client.Client
	sub    *client.Subscription
	scale  float64
	fps    int

	canvas    *Canvas
	latest    chain.Snapshot // raw backend snapshot, replaced wholesale
	rendered  chain.Snapshot // chain-profile normalized, one pass per snapshot
	reach     float64
	have      bool
	subClosed bool

	forms    *forms.Store
	selected int
	field    int
	adding   bool
	addForm  forms.EditForm

	status    string
	statusBad bool
	statusSeq int

	energyHist []float64
	frame      int
}

func NewModel(c *client.Client, sub *client.Subscription, scale float64, fps int) Model {
	if scale <= 0 {
		scale = scene.DefaultScale
	}
	if fps <= 0 {
		fps = 60
	}
	return Model{
		client:     c,
		sub:        sub,
		scale:      scale,
		fps:        fps,
		canvas:     NewCanvas(canvasWidth, canvasHeight),
		forms:      forms.NewStore(),
		energyHist: make([]float64, 0, historyCapacity),
	}
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.fps), func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.frame++
		m.drainSnapshots()
		return m, m.tick()

	case tea.KeyMsg:
		return m.handleKey(msg)

	case cmdResultMsg:
		return m.handleResult(msg)

	case statusExpireMsg:
		if int(msg) == m.statusSeq {
			m.status = ""
		}
		return m, nil
	}
	return m, nil
}

// drainSnapshots pulls every snapshot the subscription has buffered and
// applies only the newest, then normalizes it exactly once and reconciles
// the forms.
func (m *Model) drainSnapshots() {
	if m.subClosed {
		return
	}
	applied := false
drain:
	for !m.subClosed {
		select {
		case snap, ok := <-m.sub.Snapshots():
			if !ok {
				m.subClosed = true
				continue
			}
			m.latest = snap
			applied = true
		default:
			break drain
		}
	}
	if !applied {
		return
	}
	m.have = true
	m.rendered = scene.NormalizeChain(m.latest, m.scale)
	m.reach = chainReach(m.latest, m.scale)
	m.forms.Reconcile(m.latest)
	if n := len(m.latest.Bobs); m.selected >= n && n > 0 {
		m.selected = n - 1
	} else if n == 0 {
		m.selected = 0
	}
	m.energyHist = append(m.energyHist, m.latest.Energy)
	if len(m.energyHist) > historyCapacity {
		m.energyHist = m.energyHist[1:]
	}
}

func chainReach(snap chain.Snapshot, scale float64) float64 {
	total := 0.0
	for _, b := range snap.Bobs {
		total += b.LengthRod
	}
	return total / scale
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.sub.Unsubscribe()
		m.client.Close()
		return m, tea.Quit
	case "up", "k":
		if !m.adding && m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if !m.adding && m.selected < len(m.latest.Bobs)-1 {
			m.selected++
		}
	case "tab":
		m.field = (m.field + 1) % forms.NumFields
	case "shift+tab":
		m.field = (m.field + forms.NumFields - 1) % forms.NumFields
	case "a":
		m.adding = true
		m.addForm = forms.EditForm{}
		m.field = 0
	case "esc":
		m.adding = false
	case "d":
		if !m.adding {
			return m.dispatchRemove()
		}
	case "enter":
		if m.adding {
			return m.dispatchAdd()
		}
		return m.dispatchModify()
	case "backspace":
		if f := m.activeField(); f != nil && len(*f) > 0 {
			*f = (*f)[:len(*f)-1]
		}
	default:
		if len(msg.Runes) == 1 && strings.ContainsRune("0123456789.-+eE", msg.Runes[0]) {
			if f := m.activeField(); f != nil {
				*f += string(msg.Runes)
			}
		}
	}
	return m, nil
}

// activeField resolves the string the user is currently typing into: a
// field of the add form, or of the selected bob's edit form.
func (m *Model) activeField() *string {
	if m.adding {
		return m.addForm.Field(m.field)
	}
	if !m.have || m.selected >= len(m.latest.Bobs) {
		return nil
	}
	f := m.forms.Form(m.latest.Bobs[m.selected].ID)
	if f == nil {
		return nil
	}
	return f.Field(m.field)
}

func (m Model) dispatchAdd() (tea.Model, tea.Cmd) {
	// unparsable fields go out as zero; the backend is the validator and
	// rejects them with a reason the status line shows
	length, mass, theta, omega := m.addForm.Overrides()
	c := m.client
	m.adding = false
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		err := c.AddBob(ctx, deref(length), deref(mass), deref(theta), deref(omega))
		return cmdResultMsg{err: err, note: "bob added"}
	}
}

func (m Model) dispatchRemove() (tea.Model, tea.Cmd) {
	if !m.have || len(m.latest.Bobs) == 0 {
		return m, nil
	}
	index := m.selected
	c := m.client
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		err := c.RemoveBob(ctx, index)
		return cmdResultMsg{err: err, note: fmt.Sprintf("bob %d removed", index)}
	}
}

func (m Model) dispatchModify() (tea.Model, tea.Cmd) {
	if !m.have || m.selected >= len(m.latest.Bobs) {
		return m, nil
	}
	bob := m.latest.Bobs[m.selected]
	f := m.forms.Form(bob.ID)
	if f == nil {
		return m, nil
	}
	length, mass, theta, omega := f.Overrides()
	if length == nil && mass == nil && theta == nil && omega == nil {
		return m.showStatus("no changes to send", false)
	}

	index := m.selected
	c := m.client
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		err := c.ModifyBob(ctx, index, length, mass, theta, omega)
		return cmdResultMsg{
			err: err, note: fmt.Sprintf("bob %d updated", index),
			isModify: true, id: bob.ID,
			length: length, mass: mass, theta: theta, omega: omega,
		}
	}
}

func (m Model) handleResult(msg cmdResultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		// failure keeps the form exactly as the user typed it
		return m.showStatus(msg.err.Error(), true)
	}
	if msg.isModify {
		if f := m.forms.Form(msg.id); f != nil {
			f.ClearSubmitted(msg.length, msg.mass, msg.theta, msg.omega)
		}
	}
	return m.showStatus(msg.note, false)
}

// showStatus installs a transient status line; the expiry of an older
// message never clears a newer one.
func (m Model) showStatus(text string, bad bool) (tea.Model, tea.Cmd) {
	m.status = text
	m.statusBad = bad
	m.statusSeq++
	seq := m.statusSeq
	return m, tea.Tick(statusTimeout, func(time.Time) tea.Msg { return statusExpireMsg(seq) })
}

func (m Model) View() string {
	if !m.have {
		text := spinnerFrames[m.frame%len(spinnerFrames)] + " waiting for pendulum state..."
		if m.subClosed {
			text = "subscription failed"
			if err := m.sub.Err(); err != nil {
				text += ": " + err.Error()
			}
		}
		return loadingStyle.Render(text)
	}

	drawScene(m.canvas, m.rendered, m.reach)
	canvasView := canvasStyle.Render(m.canvas.String())
	panelView := panelStyle.Render(m.renderPanel())

	main := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, panelView)

	statusLine := " "
	if m.status != "" {
		if m.statusBad {
			statusLine = statusErr.Render(m.status)
		} else {
			statusLine = statusOK.Render(m.status)
		}
	} else if m.subClosed {
		statusLine = statusErr.Render("connection lost")
	}
	return main + "\n" + statusLine + "\n"
}

func (m Model) renderPanel() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render("PENDULUM") + "\n")
	s.WriteString(labelStyle.Render("Time   ") + valueStyle.Render(fmt.Sprintf("%.2fs", m.latest.Time)) + "\n")
	s.WriteString(labelStyle.Render("Bobs   ") + valueStyle.Render(fmt.Sprintf("%d", len(m.latest.Bobs))) + "\n")

	if len(m.energyHist) > 1 {
		chart := asciigraph.Plot(m.energyHist, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Energy"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}

	s.WriteString("\n")
	if m.adding {
		s.WriteString(selectedStyle.Render("ADD BOB") + "\n")
		s.WriteString(m.renderForm(&m.addForm) + "\n")
		s.WriteString(helpStyle.Render("Enter:Send Esc:Cancel"))
		return s.String()
	}

	if len(m.latest.Bobs) == 0 {
		s.WriteString(labelStyle.Render("(no bobs — press A to add one)") + "\n")
	}
	for i, b := range m.latest.Bobs {
		line := fmt.Sprintf("%d  len %.1f  m %.1f  θ %+.3f  ω %+.3f", i, b.LengthRod, b.Mass, b.Theta, b.Omega)
		if i == m.selected {
			s.WriteString(selectedStyle.Render("> "+line) + "\n")
			if f := m.forms.Form(b.ID); f != nil {
				s.WriteString("  " + m.renderForm(f) + "\n")
			}
		} else {
			s.WriteString("  " + labelStyle.Render(line) + "\n")
		}
	}

	s.WriteString(helpStyle.Render("J/K:Select Tab:Field Enter:Apply\nA:Add D:Remove Q:Quit"))
	return s.String()
}

func (m Model) renderForm(f *forms.EditForm) string {
	names := []string{"len", "mass", "θ", "ω"}
	parts := make([]string, forms.NumFields)
	for i := 0; i < forms.NumFields; i++ {
		val := *f.Field(i)
		cell := names[i] + ":" + val
		if i == m.field {
			parts[i] = fieldStyle.Render(cell + "▏")
		} else {
			parts[i] = labelStyle.Render(cell)
		}
	}
	return strings.Join(parts, "  ")
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
