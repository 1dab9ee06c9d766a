// Copyright (c) 2025 Redcon Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package views

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/redconhq/redcon/internal/api"
	"github.com/redconhq/redcon/internal/session"
	"github.com/redconhq/redcon/internal/ui/components"
	"github.com/redconhq/redcon/internal/ui/styles"
)

// attackForm tracks which form, if any, is open.
type attackForm int

const (
	formNone attackForm = iota
	formCreatePlan
	formTestChatbot
	formSimulate
)

// AttackView manages attack plans and chatbot tests: a plan list, a
// create-plan form vetted by the backend safety layer before anything is
// declared, and a chatbot test form with a result pane.
type AttackView struct {
	listPanel   *components.Panel
	detailPanel *components.Panel

	// Create-plan form: target name, target URL, comma-separated objectives.
	planInputs []textinput.Model
	// Chatbot test form: URL, test type.
	chatbotInputs []textinput.Model
	// Simulate form: phase, technique, run against the selected plan.
	simInputs []textinput.Model

	form       attackForm
	formField  int
	cursor     int
	showResult bool
	showSim    bool

	ctrl  *session.Controller
	theme *styles.Theme

	width  int
	height int
}

// NewAttackView creates the attack view.
func NewAttackView(ctrl *session.Controller, theme *styles.Theme) *AttackView {
	if theme == nil {
		theme = styles.DefaultTheme()
	}

	planInputs := make([]textinput.Model, 3)
	for i := range planInputs {
		planInputs[i] = textinput.New()
		planInputs[i].CharLimit = 300
	}
	planInputs[0].Placeholder = "target name"
	planInputs[1].Placeholder = "https://target.example.com"
	planInputs[2].Placeholder = "objectives, comma separated"

	chatbotInputs := make([]textinput.Model, 2)
	for i := range chatbotInputs {
		chatbotInputs[i] = textinput.New()
		chatbotInputs[i].CharLimit = 300
	}
	chatbotInputs[0].Placeholder = "https://chatbot.example.com"
	chatbotInputs[1].Placeholder = "basic"

	simInputs := make([]textinput.Model, 2)
	for i := range simInputs {
		simInputs[i] = textinput.New()
		simInputs[i].CharLimit = 100
	}
	simInputs[0].Placeholder = "reconnaissance"
	simInputs[1].Placeholder = "Port scanning"

	return &AttackView{
		listPanel:     components.NewPanel("Attack Plans"),
		detailPanel:   components.NewPanel("Detail"),
		planInputs:    planInputs,
		chatbotInputs: chatbotInputs,
		simInputs:     simInputs,
		ctrl:          ctrl,
		theme:         theme,
		width:         80,
		height:        24,
	}
}

// Init implements the view contract.
func (v *AttackView) Init() tea.Cmd {
	return nil
}

// Update handles view-local input.
func (v *AttackView) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case OpDoneMsg:
		if msg.Err == nil {
			switch msg.Op {
			case session.OpTestChatbot:
				v.showResult = true
			case session.OpSimulate:
				v.showSim = true
			}
		}
		v.clampCursor()
		return nil
	case tea.KeyMsg:
		if v.form != formNone {
			return v.updateForm(msg)
		}
		return v.handleKey(msg)
	}
	return nil
}

func (v *AttackView) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "j", "down":
		v.cursor++
		v.clampCursor()
	case "k", "up":
		v.cursor--
		v.clampCursor()
	case "n":
		v.openForm(formCreatePlan)
		return textinput.Blink
	case "t":
		v.openForm(formTestChatbot)
		return textinput.Blink
	case "s":
		if len(v.ctrl.Store().Plans()) > 0 {
			v.openForm(formSimulate)
			return textinput.Blink
		}
	case "esc":
		v.showResult = false
		v.showSim = false
	}
	return nil
}

func (v *AttackView) openForm(form attackForm) {
	v.form = form
	v.formField = 0
	v.showResult = false
	v.showSim = false
	inputs := v.formInputs()
	for i := range inputs {
		inputs[i].Blur()
	}
	inputs[0].Focus()
}

func (v *AttackView) formInputs() []textinput.Model {
	switch v.form {
	case formCreatePlan:
		return v.planInputs
	case formSimulate:
		return v.simInputs
	default:
		return v.chatbotInputs
	}
}

func (v *AttackView) updateForm(msg tea.KeyMsg) tea.Cmd {
	inputs := v.formInputs()
	switch msg.String() {
	case "esc":
		v.closeForm()
		return nil
	case "tab", "shift+tab":
		inputs[v.formField].Blur()
		if msg.String() == "tab" {
			v.formField = (v.formField + 1) % len(inputs)
		} else {
			v.formField = (v.formField + len(inputs) - 1) % len(inputs)
		}
		inputs[v.formField].Focus()
		return textinput.Blink
	case "enter":
		return v.submitForm()
	}

	var cmd tea.Cmd
	inputs[v.formField], cmd = inputs[v.formField].Update(msg)
	return cmd
}

func (v *AttackView) submitForm() tea.Cmd {
	switch v.form {
	case formCreatePlan:
		target := api.Target{
			Name: strings.TrimSpace(v.planInputs[0].Value()),
			URL:  strings.TrimSpace(v.planInputs[1].Value()),
		}
		objectives := splitObjectives(v.planInputs[2].Value())
		v.closeForm()
		return CreatePlanCmd(v.ctrl, target, objectives)
	case formTestChatbot:
		url := strings.TrimSpace(v.chatbotInputs[0].Value())
		testType := strings.TrimSpace(v.chatbotInputs[1].Value())
		v.closeForm()
		return TestChatbotCmd(v.ctrl, url, testType)
	case formSimulate:
		phase := strings.TrimSpace(v.simInputs[0].Value())
		technique := strings.TrimSpace(v.simInputs[1].Value())
		planID := v.selectedPlanID()
		v.closeForm()
		return SimulateCmd(v.ctrl, planID, phase, technique)
	}
	return nil
}

// selectedPlanID returns the ID of the plan under the cursor, or zero when
// no plan is selected.
func (v *AttackView) selectedPlanID() int64 {
	plans := v.ctrl.Store().Plans()
	if len(plans) == 0 || v.cursor >= len(plans) {
		return 0
	}
	return plans[v.cursor].ID
}

func (v *AttackView) closeForm() {
	inputs := v.formInputs()
	for i := range inputs {
		inputs[i].Blur()
	}
	v.form = formNone
}

// splitObjectives parses the comma-separated objectives field, dropping
// empty entries.
func splitObjectives(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func (v *AttackView) clampCursor() {
	n := len(v.ctrl.Store().Plans())
	if n == 0 {
		v.cursor = 0
		return
	}
	if v.cursor < 0 {
		v.cursor = 0
	}
	if v.cursor >= n {
		v.cursor = n - 1
	}
}

// SetSize splits the view into list and detail columns.
func (v *AttackView) SetSize(width, height int) {
	v.width = width
	v.height = height

	listWidth := width / 2
	if listWidth < 30 {
		listWidth = minInt(30, width)
	}
	v.listPanel.SetSize(listWidth, height)
	v.detailPanel.SetSize(width-listWidth, height)

	for i := range v.planInputs {
		v.planInputs[i].Width = listWidth - 16
	}
	for i := range v.chatbotInputs {
		v.chatbotInputs[i].Width = listWidth - 16
	}
	for i := range v.simInputs {
		v.simInputs[i].Width = listWidth - 16
	}
}

// SetTheme propagates a theme change.
func (v *AttackView) SetTheme(theme *styles.Theme) {
	if theme == nil {
		return
	}
	v.theme = theme
	v.listPanel.SetTheme(theme)
	v.detailPanel.SetTheme(theme)
}

// StatusHint returns the key hints for the status bar.
func (v *AttackView) StatusHint() string {
	if v.form != formNone {
		return "tab next field | enter submit | esc cancel"
	}
	return "n new plan | t test chatbot | s simulate step"
}

// InputActive reports whether a form is capturing keystrokes.
func (v *AttackView) InputActive() bool {
	return v.form != formNone
}

// View renders the attack console.
func (v *AttackView) View() string {
	v.listPanel.SetContent(v.listContent())
	v.detailPanel.SetContent(v.detailContent())
	return lipgloss.JoinHorizontal(lipgloss.Top,
		v.listPanel.Render(),
		v.detailPanel.Render(),
	)
}

func (v *AttackView) listContent() string {
	var b strings.Builder

	switch v.form {
	case formCreatePlan:
		b.WriteString(v.theme.TitleStyle.Render("New Attack Plan") + "\n\n")
		labels := []string{"Name:      ", "URL:       ", "Objectives:"}
		for i, in := range v.planInputs {
			fmt.Fprintf(&b, "%s %s\n", labels[i], in.View())
		}
		b.WriteString("\nThe backend safety layer vets the plan before it is declared.")
		return b.String()
	case formTestChatbot:
		b.WriteString(v.theme.TitleStyle.Render("Chatbot Test") + "\n\n")
		labels := []string{"URL: ", "Type:"}
		for i, in := range v.chatbotInputs {
			fmt.Fprintf(&b, "%s %s\n", labels[i], in.View())
		}
		b.WriteString("\nLeave type empty for a basic probe.")
		return b.String()
	case formSimulate:
		b.WriteString(v.theme.TitleStyle.Render("Simulate Step") + "\n\n")
		labels := []string{"Phase:    ", "Technique:"}
		for i, in := range v.simInputs {
			fmt.Fprintf(&b, "%s %s\n", labels[i], in.View())
		}
		b.WriteString("\nRuns one simulated step against the selected plan.")
		return b.String()
	}

	plans := v.ctrl.Store().Plans()
	if len(plans) == 0 {
		return "No attack plans.\n\nPress n to create one."
	}
	for i, p := range plans {
		marker := "  "
		if i == v.cursor {
			marker = v.theme.TitleStyle.Render("> ")
		}
		name := p.Target.Name
		if name == "" {
			name = p.Target.URL
		}
		fmt.Fprintf(&b, "%s[%s] %s\n", marker, p.Status, name)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (v *AttackView) detailContent() string {
	if v.showResult {
		if result := v.ctrl.Store().ChatbotResult(); result != nil {
			return v.resultContent(result)
		}
	}
	if v.showSim {
		if result := v.ctrl.Store().SimulationResult(); result != nil {
			return v.simContent(result)
		}
	}

	plans := v.ctrl.Store().Plans()
	if len(plans) == 0 || v.cursor >= len(plans) {
		if result := v.ctrl.Store().ChatbotResult(); result != nil {
			return v.resultContent(result)
		}
		return ""
	}

	p := plans[v.cursor]
	var b strings.Builder
	name := p.Target.Name
	if name == "" {
		name = p.Target.URL
	}
	fmt.Fprintf(&b, "%s\n", v.theme.TitleStyle.Render(name))
	if p.Target.URL != "" {
		fmt.Fprintf(&b, "%s\n", p.Target.URL)
	}
	fmt.Fprintf(&b, "\nStatus:     %s\n", p.Status)
	fmt.Fprintf(&b, "Objectives: %s\n", p.ObjectivesLine())
	if p.Timestamp != "" {
		fmt.Fprintf(&b, "Declared:   %s\n", shortTime(p.Timestamp))
	}

	if len(p.Phases) > 0 {
		b.WriteString("\nPhases:\n")
		names := make([]string, 0, len(p.Phases))
		for name := range p.Phases {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			phase := p.Phases[name]
			fmt.Fprintf(&b, " %s\n", name)
			if len(phase.Techniques) > 0 {
				fmt.Fprintf(&b, "   techniques: %s\n", strings.Join(phase.Techniques, ", "))
			}
			if len(phase.Tools) > 0 {
				fmt.Fprintf(&b, "   tools: %s\n", strings.Join(phase.Tools, ", "))
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (v *AttackView) resultContent(result *api.ChatbotTestResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", v.theme.TitleStyle.Render("Chatbot Test: "+result.Target))
	fmt.Fprintf(&b, "Type: %s\n\n", result.TestType)

	sum := result.TestSummary
	fmt.Fprintf(&b, "Tests run:       %d\n", sum.TotalTests)
	fmt.Fprintf(&b, "Vulnerabilities: %d\n", sum.VulnerabilitiesFound)
	fmt.Fprintf(&b, "Risk level:      %s\n", v.theme.RiskStyle(sum.RiskLevel).Render(sum.RiskLevel))

	if len(result.VulnerabilitiesFound) > 0 {
		b.WriteString("\nFindings:\n")
		for _, f := range result.VulnerabilitiesFound {
			label := v.theme.SeverityStyle(string(f.Severity)).Render(severityTag(f.Severity))
			fmt.Fprintf(&b, " %s %s\n", label, f.Type)
			fmt.Fprintf(&b, "      %s\n", f.Description)
			if f.Recommendation != "" {
				fmt.Fprintf(&b, "      fix: %s\n", f.Recommendation)
			}
		}
	}
	b.WriteString("\nesc to dismiss")
	return strings.TrimRight(b.String(), "\n")
}

func (v *AttackView) simContent(result *api.SimulationResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", v.theme.TitleStyle.Render("Simulated Step"))
	fmt.Fprintf(&b, "Plan:      #%d\n", result.AttackID)
	fmt.Fprintf(&b, "Phase:     %s\n", result.Phase)
	fmt.Fprintf(&b, "Technique: %s\n", result.Technique)
	fmt.Fprintf(&b, "Status:    %s\n", result.Status)
	if result.Timestamp != "" {
		fmt.Fprintf(&b, "Ran:       %s\n", shortTime(result.Timestamp))
	}

	if len(result.Results.Findings) > 0 {
		b.WriteString("\nFindings:\n")
		for _, f := range result.Results.Findings {
			fmt.Fprintf(&b, " - %s\n", f)
		}
	}
	if len(result.Results.Recommendations) > 0 {
		b.WriteString("\nRecommendations:\n")
		for _, r := range result.Results.Recommendations {
			fmt.Fprintf(&b, " - %s\n", r)
		}
	}
	b.WriteString("\nesc to dismiss")
	return strings.TrimRight(b.String(), "\n")
}
