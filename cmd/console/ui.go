package main

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jwebster45206/hearth-engine/pkg/interaction"
	"github.com/jwebster45206/hearth-engine/pkg/presenter"
	"github.com/jwebster45206/hearth-engine/pkg/world"
	"github.com/muesli/reflow/wordwrap"
)

const tickInterval = 50 * time.Millisecond

// ConsoleUI is the BubbleTea model that runs the village playground.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	game    *session
	saveID  string
	logView viewport.Model
	width   int
	height  int
	ready   bool
	status  string

	// 'h' arms hover mode; the next digit hovers that option
	hoverArmed bool
	hovered    string

	showQuitModal bool
}

type tickMsg time.Time

var (
	mapPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingLeft(2)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	playerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")). // teal
			Bold(true)

	npcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	waterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")) // blue

	groundStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238"))

	featureStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

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

	menuItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	menuSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(game *session, saveID string) *ConsoleUI {
	return &ConsoleUI{
		game:    game,
		saveID:  saveID,
		logView: viewport.New(50, 8),
	}
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *ConsoleUI) Init() tea.Cmd {
	return tick()
}

func (m *ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.logView.Width = mapWidth*2 + 4
		m.logView.Height = max(m.height-mapHeight-8, 4)
		m.ready = true
		m.writeLog()

	case tickMsg:
		m.game.tick(time.Time(msg))
		m.writeLog()
		return m, tick()

	case tea.KeyMsg:
		m.status = ""
		m.handleKey(msg)
		m.writeLog()
		return m, nil
	}

	// keys drive the player; only the mouse wheel scrolls the log
	var cmd tea.Cmd
	m.logView, cmd = m.logView.Update(msg)
	return m, cmd
}

func (m *ConsoleUI) handleKey(msg tea.KeyMsg) {
	g := m.game
	key := msg.String()

	if m.hoverArmed {
		m.hoverArmed = false
		if opt, ok := m.menuOption(key); ok {
			m.leaveHover()
			g.presenter.HoverOption(opt.ID)
			m.hovered = opt.ID
			return
		}
	}
	if key != "h" {
		m.leaveHover()
	}

	switch key {
	case "ctrl+c", "q":
		m.showQuitModal = true
		return
	case "esc":
		g.escape()
		return
	}

	if g.conv != nil {
		switch {
		case key == "y":
			m.copyLine()
		case isDigit(key):
			g.respond(int(key[0] - '1'))
		}
		return
	}

	if g.menu != nil {
		if opt, ok := m.menuOption(key); ok {
			g.presenter.ClickOption(opt.ID)
			return
		}
		if key == "h" {
			m.hoverArmed = true
			return
		}
	}

	switch key {
	case "up":
		g.move(world.DirectionUp)
	case "down":
		g.move(world.DirectionDown)
	case "left":
		g.move(world.DirectionLeft)
	case "right":
		g.move(world.DirectionRight)
	case "e", "enter", " ":
		g.interact()
	case "t":
		g.cycleTool()
	case "s":
		g.cycleSeed()
	case "w":
		g.cycleWeather()
	case "n":
		g.toggleNight()
	case "d":
		g.nextDay()
	case "p":
		g.togglePotion()
	case "y":
		m.copyLine()
	}
}

func (m *ConsoleUI) leaveHover() {
	if m.hovered != "" {
		m.game.presenter.LeaveOption(m.hovered)
		m.hovered = ""
	}
}

// menuOption maps a digit key to the option at that position.
func (m *ConsoleUI) menuOption(key string) (presenter.Option, bool) {
	menu := m.game.menu
	if menu == nil || !isDigit(key) {
		return presenter.Option{}, false
	}
	i := int(key[0] - '1')
	if i < 0 || i >= len(menu.Options) {
		return presenter.Option{}, false
	}
	return menu.Options[i], true
}

func isDigit(key string) bool {
	return len(key) == 1 && key[0] >= '1' && key[0] <= '9'
}

// copyLine puts the latest dialogue line on the clipboard.
func (m *ConsoleUI) copyLine() {
	log := m.game.log
	if len(log) == 0 {
		return
	}
	if err := clipboard.WriteAll(log[len(log)-1]); err != nil {
		m.status = "Clipboard unavailable: " + err.Error()
		return
	}
	m.status = "Copied."
}

func (m *ConsoleUI) writeLog() {
	width := m.logView.Width - 2
	if width <= 0 {
		width = 40
	}
	var content strings.Builder
	for _, line := range m.game.log {
		content.WriteString(formatLogLine(line, width) + "\n")
	}
	m.logView.SetContent(content.String())
	m.logView.GotoBottom()
}

// formatLogLine wraps a log line and highlights a leading "Speaker:".
func formatLogLine(line string, width int) string {
	wrapped := wordwrap.String(line, width)
	if idx := strings.Index(wrapped, ":"); idx > 0 && idx <= 20 {
		speaker := wrapped[:idx]
		if len(strings.Fields(speaker)) == 1 {
			return speakerStyle.Render(speaker+":") + wrapped[idx+1:]
		}
	}
	return wrapped
}

func (m *ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		return m, tick()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEnter:
			return m, tea.Quit
		case tea.KeyEsc:
			m.showQuitModal = false
			return m, nil
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
			}
		}
	}

	return m, nil
}

func (m *ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Leave the Village?"))
	content.WriteString("\n\n")
	content.WriteString("Your save slot keeps everything you did today.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to keep playing, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m *ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	g := m.game
	left := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(strings.ToUpper(g.bundle.Name))+"  "+promptStyle.Render(interaction.Title(g.mapID)),
		"",
		m.renderMap(),
		"",
		separatorStyle.Render(strings.Repeat("─", mapWidth*2)),
		m.logView.View(),
		m.renderPrompt(),
	)
	mapPanel := mapPanelStyle.Render(left)

	metaWidth := max(m.width-lipgloss.Width(mapPanel)-2, 20)
	metaPanel := metaPanelStyle.Width(metaWidth).Render(m.renderMeta(metaWidth - 2))

	return lipgloss.JoinHorizontal(lipgloss.Top, mapPanel, metaPanel)
}

func (m *ConsoleUI) renderMap() string {
	g := m.game
	npcs := make(map[world.Tile]string)
	for _, n := range g.npcs.OnMap(g.mapID) {
		npcs[n.Position().Tile()] = strings.ToUpper(n.ID[:1])
	}
	anchor := m.menuAnchor()
	playerTile := g.player.Tile()

	var b strings.Builder
	for y := range mapHeight {
		for x := range mapWidth {
			tile := world.Tile{X: x, Y: y}
			switch {
			case tile == playerTile:
				b.WriteString(playerStyle.Render("@ "))
			case npcs[tile] != "":
				b.WriteString(npcStyle.Render(npcs[tile] + " "))
			case anchor != nil && int(anchor.X)/2 == x && int(anchor.Y) == y:
				b.WriteString(titleStyle.Render("◆ "))
			default:
				b.WriteString(m.tileGlyph(tile) + " ")
			}
		}
		if y < mapHeight-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m *ConsoleUI) menuAnchor() *presenter.Point {
	if m.game.menu == nil || m.game.menu.Kind != presenter.MenuClick {
		return nil
	}
	return &m.game.menu.Anchor
}

func (m *ConsoleUI) tileGlyph(tile world.Tile) string {
	g := m.game
	c := g.collab
	if len(g.placed.ItemsAt(g.mapID, tile)) > 0 {
		return featureStyle.Render("&")
	}
	if plot, ok := g.farm.PlotAt(g.mapID, tile); ok {
		glyph := map[interaction.PlotState]string{
			interaction.PlotUntilled: "_",
			interaction.PlotTilled:   "=",
			interaction.PlotPlanted:  ",",
			interaction.PlotReady:    "%",
		}[plot.State]
		if plot.Watered {
			return waterStyle.Render(glyph)
		}
		return featureStyle.Render(glyph)
	}
	if c.Water != nil && c.Water.IsWater(g.mapID, tile) {
		return waterStyle.Render("~")
	}
	if c.Forage != nil {
		if _, ok := c.Forage.ForageableAt(g.mapID, tile); ok {
			return featureStyle.Render("*")
		}
	}
	if c.Transitions != nil {
		if _, ok := c.Transitions.TransitionAt(g.mapID, tile); ok {
			return featureStyle.Render(">")
		}
	}
	if _, ok := g.cobwebs.CobwebAt(g.mapID, tile); ok {
		return promptStyle.Render("#")
	}
	return groundStyle.Render("·")
}

// renderPrompt shows the open conversation, the open menu, or the key help.
func (m *ConsoleUI) renderPrompt() string {
	g := m.game
	var b strings.Builder
	switch {
	case g.conv != nil:
		b.WriteString(speakerStyle.Render(g.speaker) + "\n")
		for i, r := range g.turn.Responses {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, r.Text)
		}
		b.WriteString(promptStyle.Render("digits respond · y copy · esc leave"))
	case g.menu != nil:
		title := "Interact"
		if g.menu.Kind == presenter.MenuNPC {
			title = interaction.Title(g.menu.NPCID)
		}
		b.WriteString(titleStyle.Render(title) + "\n")
		for i, opt := range g.menu.Options {
			line := fmt.Sprintf("%d. [%s] %s", i+1, opt.Icon, opt.Label)
			switch {
			case opt.ID == g.highlighted:
				b.WriteString("  " + menuSelectedItemStyle.Render(line) + "\n")
			case opt.ID == m.hovered:
				b.WriteString("  " + menuItemStyle.Underline(true).Render(line) + "\n")
			default:
				b.WriteString("  " + lipgloss.NewStyle().Foreground(lipgloss.Color(opt.Color)).Render(line) + "\n")
			}
		}
		b.WriteString(promptStyle.Render("digit select · h+digit hover · esc close"))
	default:
		b.WriteString(promptStyle.Render("arrows move · e interact · t tool · s seed · d next day · w weather · n night · p potion · q quit"))
	}
	if m.status != "" {
		b.WriteString("\n" + statusStyle.Render(m.status))
	}
	return b.String()
}

func (m *ConsoleUI) renderMeta(width int) string {
	g := m.game
	view := g.snapshot()

	var b strings.Builder
	b.WriteString(titleStyle.Render("VILLAGE") + "\n\n")
	fmt.Fprintf(&b, "Save:    %s\n", m.saveID)
	fmt.Fprintf(&b, "Day:     %d\n", g.day)
	fmt.Fprintf(&b, "Season:  %s\n", view.GetSeason())
	fmt.Fprintf(&b, "Time:    %s\n", view.GetTimeOfDay())
	fmt.Fprintf(&b, "Weather: %s\n", view.GetWeather())
	tool := string(g.currentTool())
	if tool == "" {
		tool = "hands"
	}
	fmt.Fprintf(&b, "Tool:    %s\n", tool)
	fmt.Fprintf(&b, "Seed:    %s\n\n", seeds[g.seed])

	b.WriteString(titleStyle.Render("NEIGHBOURS") + "\n")
	for _, n := range g.npcs.OnMap(g.mapID) {
		fmt.Fprintf(&b, "• %s (%s) %s\n", n.Name, view.GetFriendshipTier(n.ID), promptStyle.Render(n.CurrentSprite()))
		if n.Position().Distance(g.player) <= n.InteractionRadius {
			fmt.Fprintf(&b, "  %s\n", promptStyle.Render(fmt.Sprintf("nearby, %.1f tiles", math.Round(n.Position().Distance(g.player)*10)/10)))
		}
	}

	b.WriteString("\n" + titleStyle.Render("QUESTS") + "\n")
	b.WriteString(listOrNone(questLines(view.QuestStages, view.CompletedQuests)))

	b.WriteString("\n" + titleStyle.Render("INVENTORY") + "\n")
	var items []string
	for id, qty := range g.inventory {
		items = append(items, fmt.Sprintf("%s × %d", interaction.Title(id), qty))
	}
	sort.Strings(items)
	b.WriteString(listOrNone(items))

	b.WriteString("\n" + titleStyle.Render("UNLOCKS & EFFECTS") + "\n")
	var flags []string
	for name := range view.Unlocks {
		flags = append(flags, interaction.Title(name))
	}
	flags = append(flags, view.ActivePotionEffects()...)
	for event, n := range view.GlobalEvents {
		flags = append(flags, fmt.Sprintf("%s ×%d", event, n))
	}
	sort.Strings(flags)
	b.WriteString(listOrNone(flags))

	return wordwrap.String(b.String(), width)
}

func questLines(stages map[string]int, completed map[string]bool) []string {
	var lines []string
	for id, stage := range stages {
		if completed[id] {
			lines = append(lines, interaction.Title(id)+" ✓")
			continue
		}
		lines = append(lines, fmt.Sprintf("%s (stage %d)", interaction.Title(id), stage))
	}
	for id := range completed {
		if _, ok := stages[id]; !ok {
			lines = append(lines, interaction.Title(id)+" ✓")
		}
	}
	slices.Sort(lines)
	return lines
}

func listOrNone(lines []string) string {
	if len(lines) == 0 {
		return promptStyle.Render("None") + "\n"
	}
	var b strings.Builder
	for _, l := range lines {
		b.WriteString("• " + l + "\n")
	}
	return b.String()
}
