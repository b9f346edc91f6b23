package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/wasm-web-runtime/runtime"
	"github.com/wippyai/wasm-web-runtime/testbed"
	"github.com/wippyai/wasm-web-runtime/wasm"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type interactiveModel struct {
	err      error
	bridge   *testbed.Bridge
	store    *runtime.Store[struct{}]
	module   *runtime.Module
	instance *runtime.Instance
	filename string
	result   string
	funcs    []funcInfo
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
}

type funcInfo struct {
	name string
	ty   wasm.FuncType
}

type modelState int

const (
	stateSelectFunc modelState = iota
	stateInputArgs
	stateShowResult
)

func newInteractiveModel(filename string) *interactiveModel {
	return &interactiveModel{
		filename: filename,
		state:    stateSelectFunc,
	}
}

type loadedMsg struct {
	err    error
	bridge *testbed.Bridge
	store  *runtime.Store[struct{}]
	mod    *runtime.Module
	funcs  []funcInfo
}

type callResultMsg struct {
	err    error
	result string
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadModule
}

func (m *interactiveModel) loadModule() tea.Msg {
	ctx := context.Background()

	data, err := os.ReadFile(m.filename)
	if err != nil {
		return loadedMsg{err: err}
	}

	br := testbed.New(ctx)
	engine := runtime.NewEngine(br)
	store := runtime.NewStore(engine, struct{}{})

	mod, err := runtime.NewModule(ctx, engine, data)
	if err != nil {
		store.Close()
		br.Close(ctx)
		return loadedMsg{err: err}
	}
	if n := len(mod.Imports()); n > 0 {
		store.Close()
		br.Close(ctx)
		return loadedMsg{err: fmt.Errorf("module requires %d imports; the runner only instantiates self-contained modules", n)}
	}

	var funcs []funcInfo
	for name, ty := range mod.Exports() {
		if ty.Kind == wasm.ExternFunc {
			funcs = append(funcs, funcInfo{name: name, ty: *ty.Func})
		}
	}
	sort.Slice(funcs, func(i, j int) bool { return funcs[i].name < funcs[j].name })

	return loadedMsg{funcs: funcs, bridge: br, store: store, mod: mod}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			ctx := context.Background()
			if m.store != nil {
				m.store.Close()
			}
			if m.bridge != nil {
				m.bridge.Close(ctx)
			}
			return m, tea.Quit

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.funcs)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callFunction
				}
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.callFunction

			case stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectFunc
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.funcs = msg.funcs
		m.bridge = msg.bridge
		m.store = msg.store
		m.module = msg.mod

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) prepareInputs() {
	f := m.funcs[m.selected]
	m.inputs = make([]textinput.Model, len(f.ty.Params))
	for i, p := range f.ty.Params {
		ti := textinput.New()
		ti.Placeholder = p.String()
		ti.Prompt = fmt.Sprintf("arg%d: ", i)
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) callFunction() tea.Msg {
	ctx := context.Background()

	if m.instance == nil {
		if m.module == nil {
			return callResultMsg{err: fmt.Errorf("module not loaded")}
		}
		inst, err := runtime.NewInstance(ctx, m.store, m.module, runtime.NewImports())
		if err != nil {
			return callResultMsg{err: err}
		}
		m.instance = inst
	}

	f := m.funcs[m.selected]
	raw := make([]string, len(m.inputs))
	for i, input := range m.inputs {
		raw[i] = strings.TrimSpace(input.Value())
	}
	args, err := parseArgs(raw, f.ty.Params)
	if err != nil {
		return callResultMsg{err: err}
	}

	ext, ok := m.instance.Export(f.name)
	if !ok || ext.Func == nil {
		return callResultMsg{err: fmt.Errorf("no exported function %q", f.name)}
	}
	results := make([]runtime.Value, len(f.ty.Results))
	if err := ext.Func.Call(ctx, m.store, args, results); err != nil {
		return callResultMsg{err: err}
	}

	if len(results) == 0 {
		return callResultMsg{result: "(no results)"}
	}
	strs := make([]string, len(results))
	for i, r := range results {
		strs[i] = r.String()
	}
	return callResultMsg{result: strings.Join(strs, ", ")}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if len(m.funcs) == 0 {
		return "Loading module..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("WASM Runner"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectFunc:
		b.WriteString("Select a function to call:\n\n")
		for i, f := range m.funcs {
			cursor := "  "
			if i == m.selected {
				cursor = "> "
				b.WriteString(selectedStyle.Render(cursor + m.formatFunc(f)))
			} else {
				b.WriteString(cursor + m.formatFunc(f))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • q quit"))

	case stateInputArgs:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(f.name)))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(f.ty.Params[i].String()))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(f.name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) formatFunc(f funcInfo) string {
	var params []string
	for i, p := range f.ty.Params {
		params = append(params, fmt.Sprintf("arg%d: %s", i, typeStyle.Render(p.String())))
	}
	result := ""
	for i, r := range f.ty.Results {
		if i == 0 {
			result = " -> " + typeStyle.Render(r.String())
		} else {
			result += ", " + typeStyle.Render(r.String())
		}
	}
	return funcStyle.Render(f.name) + "(" + strings.Join(params, ", ") + ")" + result
}

func runInteractive(filename string) error {
	p := tea.NewProgram(newInteractiveModel(filename), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
