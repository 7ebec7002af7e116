// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bojanbass/01v96-remote/pkg/message"
	"github.com/bojanbass/01v96-remote/pkg/sysex"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const (
	maxLogEntries = 200
	meterWidth    = 8
	stripsPerRow  = 8
	logHeight     = 8
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// requestSender sends requests to the bridge
type requestSender interface {
	Send(req message.Request) error
}

// strip is the last known state of one fader and on switch
type strip struct {
	fader    int
	on       bool
	hasFader bool
	hasOn    bool
}

// mixerState mirrors the console as seen through bridge events
type mixerState struct {
	channels []strip
	auxes    []strip
	buses    []strip
	sum      strip
	sends    [][]int // [slot][channel]
	levels   [sysex.MeterChannels]int
}

func newMixerState(layout sysex.Layout) *mixerState {
	s := &mixerState{
		channels: make([]strip, layout.Channels),
		auxes:    make([]strip, layout.Auxes),
		buses:    make([]strip, layout.Buses),
		sends:    make([][]int, layout.AuxSends),
	}
	for i := range s.sends {
		s.sends[i] = make([]int, layout.Channels)
	}
	return s
}

// logEntry is one line of the event log
type logEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

type busEventMsg struct {
	env message.Envelope
}

type busErrorMsg struct {
	err error
}

type connectionLostMsg struct{}

type reconnectedMsg struct {
	url string
}

type monitorTickMsg time.Time

// monitorModel is the Bubble Tea model for the monitor TUI
type monitorModel struct {
	sender  requestSender
	url     string
	mixer   *mixerState
	input   textinput.Model
	logView viewport.Model
	log     []logEntry

	events    int
	snapshots int
	lastLevel time.Time

	connectionLost bool
	width          int
	height         int
	quitting       bool
}

func initialMonitorModel(sender requestSender, url string) monitorModel {
	ti := textinput.New()
	ti.Placeholder = "fader channel 1 512 | on aux 2 off | send 1 5 700 | sync"
	ti.Prompt = "> "
	ti.CharLimit = 64
	ti.Focus()

	vp := viewport.New(80, logHeight)

	m := monitorModel{
		sender:  sender,
		url:     url,
		mixer:   newMixerState(sysex.DefaultLayout()),
		input:   ti,
		logView: vp,
	}
	m.addLogEntry("Connected to "+url, false)
	return m
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, monitorTickCmd())
}

func monitorTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return monitorTickMsg(t)
	})
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			cmd := m.submit(m.input.Value())
			m.input.SetValue("")
			return m, cmd
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.logView, cmd = m.logView.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.logView.Width = msg.Width - 4
		m.input.Width = msg.Width - 4

	case monitorTickMsg:
		return m, monitorTickCmd()

	case busEventMsg:
		m.handleEvent(msg.env)
		return m, nil

	case busErrorMsg:
		m.addLogEntry(fmt.Sprintf("Decode error: %v", msg.err), true)
		return m, nil

	case connectionLostMsg:
		m.connectionLost = true
		m.addLogEntry("Connection lost - reconnecting...", true)

	case reconnectedMsg:
		m.connectionLost = false
		m.url = msg.url
		m.addLogEntry("Reconnected - requesting sync", false)
		return m, m.submit("sync")
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit parses a command line and sends the request
func (m *monitorModel) submit(line string) tea.Cmd {
	line = strings.TrimSpace(line)
	switch line {
	case "":
		return nil
	case "q", "quit":
		m.quitting = true
		return tea.Quit
	}

	req, err := parseCommand(line)
	if err != nil {
		m.addLogEntry(err.Error(), true)
		return nil
	}
	if err := m.sender.Send(req); err != nil {
		m.addLogEntry(fmt.Sprintf("Send failed: %v", err), true)
		return nil
	}
	m.addLogEntry("> "+line, false)
	return nil
}

// handleEvent applies a bus event to the mixer state
func (m *monitorModel) handleEvent(env message.Envelope) {
	if env.Type == message.TypeLevel {
		m.snapshots++
		m.lastLevel = time.Now()
		m.mixer.applyLevels(env.Levels)
		return
	}

	m.events++
	if err := m.mixer.apply(env); err != nil {
		m.addLogEntry(err.Error(), true)
		return
	}
	m.addLogEntry(describeEvent(env), false)
}

func (m *monitorModel) addLogEntry(msg string, isError bool) {
	m.log = append(m.log, logEntry{
		timestamp: time.Now(),
		message:   msg,
		isError:   isError,
	})
	if len(m.log) > maxLogEntries {
		m.log = m.log[len(m.log)-maxLogEntries:]
	}
	m.refreshLog()
}

func (m *monitorModel) refreshLog() {
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	timeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	var s strings.Builder
	for i, entry := range m.log {
		if i > 0 {
			s.WriteString("\n")
		}
		s.WriteString(timeStyle.Render(entry.timestamp.Format("15:04:05")))
		s.WriteString(" ")
		if entry.isError {
			s.WriteString(errorStyle.Render(entry.message))
		} else {
			s.WriteString(entry.message)
		}
	}
	m.logView.SetContent(s.String())
	m.logView.GotoBottom()
}

//////////////////////////////////////////////////////////////
// Mixer State
//////////////////////////////////////////////////////////////

// apply stores a control event
func (s *mixerState) apply(env message.Envelope) error {
	family, err := sysex.ParseFamily(env.Target)
	if err != nil {
		return err
	}

	if family == sysex.FamilyAuxSend {
		if env.Type != message.TypeFader {
			return fmt.Errorf("unexpected %s event for auxsend", env.Type)
		}
		v, err := env.FaderValue()
		if err != nil {
			return err
		}
		if env.Num2 < 1 || env.Num2 > len(s.sends) || env.Num < 1 || env.Num > len(s.sends[env.Num2-1]) {
			return fmt.Errorf("auxsend %d/%d out of range", env.Num2, env.Num)
		}
		s.sends[env.Num2-1][env.Num-1] = v
		return nil
	}

	st := s.strip(family, env.Num)
	if st == nil {
		return fmt.Errorf("%s %d out of range", env.Target, env.Num)
	}

	switch env.Type {
	case message.TypeFader:
		v, err := env.FaderValue()
		if err != nil {
			return err
		}
		st.fader = v
		st.hasFader = true
	case message.TypeOn:
		v, err := env.OnValue()
		if err != nil {
			return err
		}
		st.on = v
		st.hasOn = true
	default:
		return fmt.Errorf("unknown event type %q", env.Type)
	}
	return nil
}

func (s *mixerState) strip(family sysex.Family, num int) *strip {
	var strips []strip
	switch family {
	case sysex.FamilyChannel:
		strips = s.channels
	case sysex.FamilyAux:
		strips = s.auxes
	case sysex.FamilyBus:
		strips = s.buses
	case sysex.FamilySum:
		return &s.sum
	}
	if num < 1 || num > len(strips) {
		return nil
	}
	return &strips[num-1]
}

func (s *mixerState) applyLevels(levels map[string]int) {
	for key, v := range levels {
		n, err := strconv.Atoi(key)
		if err != nil || n < 1 || n > len(s.levels) {
			continue
		}
		s.levels[n-1] = v
	}
}

//////////////////////////////////////////////////////////////
// Command Parsing
//////////////////////////////////////////////////////////////

var errUsage = errors.New("usage: fader <target> <n> <0-1023> | on <target> <n> <on|off> | send <slot> <channel> <0-1023> | sync")

// parseCommand turns a command line into a bridge request
func parseCommand(line string) (message.Request, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return message.Request{}, errUsage
	}

	switch fields[0] {
	case "sync":
		if len(fields) != 1 {
			return message.Request{}, errUsage
		}
		return message.Request{Type: message.TypeSync}, nil

	case "send":
		if len(fields) != 4 {
			return message.Request{}, errUsage
		}
		slot, err := parseNumber("slot", fields[1])
		if err != nil {
			return message.Request{}, err
		}
		ch, err := parseNumber("channel", fields[2])
		if err != nil {
			return message.Request{}, err
		}
		v, err := parseFader(fields[3])
		if err != nil {
			return message.Request{}, err
		}
		return message.Request{Type: message.TypeFader, Target: sysex.FamilyAuxSend.String(), Num: ch, Num2: slot, Value: v}, nil

	case message.TypeFader, message.TypeOn:
		target, num, rest, err := parseTarget(fields[1:])
		if err != nil {
			return message.Request{}, err
		}
		if len(rest) != 1 {
			return message.Request{}, errUsage
		}
		req := message.Request{Type: fields[0], Target: target, Num: num}
		if fields[0] == message.TypeFader {
			req.Value, err = parseFader(rest[0])
		} else {
			req.Value, err = parseOn(rest[0])
		}
		if err != nil {
			return message.Request{}, err
		}
		return req, nil
	}

	return message.Request{}, errUsage
}

// parseTarget reads "<target> <n>", or just "sum"
func parseTarget(fields []string) (string, int, []string, error) {
	if len(fields) == 0 {
		return "", 0, nil, errUsage
	}
	family, err := sysex.ParseFamily(fields[0])
	if err != nil || family == sysex.FamilyAuxSend {
		return "", 0, nil, fmt.Errorf("unknown target %q (channel, aux, bus, sum)", fields[0])
	}
	if family == sysex.FamilySum {
		return family.String(), 1, fields[1:], nil
	}
	if len(fields) < 2 {
		return "", 0, nil, errUsage
	}
	num, err := parseNumber(fields[0], fields[1])
	if err != nil {
		return "", 0, nil, err
	}
	return family.String(), num, fields[2:], nil
}

func parseNumber(name, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s number %q", name, s)
	}
	return n, nil
}

func parseFader(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil || v < sysex.FaderMin || v > sysex.FaderMax {
		return 0, fmt.Errorf("invalid fader value %q (%d-%d)", s, sysex.FaderMin, sysex.FaderMax)
	}
	return v, nil
}

func parseOn(s string) (bool, error) {
	switch s {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	}
	return false, fmt.Errorf("invalid on value %q (on, off)", s)
}

func describeEvent(env message.Envelope) string {
	target := env.Target
	if env.Target != sysex.FamilySum.String() {
		target = fmt.Sprintf("%s %d", env.Target, env.Num)
	}
	if env.Target == sysex.FamilyAuxSend.String() {
		target = fmt.Sprintf("aux send %d ch %d", env.Num2, env.Num)
	}
	return fmt.Sprintf("%s %s = %v", target, env.Type, env.Value)
}

//////////////////////////////////////////////////////////////
// View
//////////////////////////////////////////////////////////////

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	offStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9"))

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	// Header
	s.WriteString(titleStyle.Render("01V96 MONITOR"))
	s.WriteString(" ")
	connStatus := m.url
	if m.connectionLost {
		connStatus = warningStyle.Render("RECONNECTING...")
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | events %d | meters %d | Esc=quit PgUp/PgDn=log", connStatus, m.events, m.snapshots)))
	s.WriteString("\n\n")

	// Channels
	var ch strings.Builder
	ch.WriteString(labelStyle.Render("Channels"))
	ch.WriteString("\n")
	for i, st := range m.mixer.channels {
		if i > 0 && i%stripsPerRow == 0 {
			ch.WriteString("\n")
		}
		level := 0
		if i < len(m.mixer.levels) {
			level = m.mixer.levels[i]
		}
		ch.WriteString(renderStrip(fmt.Sprintf("%02d", i+1), st, level, valueStyle, offStyle))
	}
	s.WriteString(boxStyle.Render(ch.String()))
	s.WriteString("\n")

	// Aux, bus and sum
	var mix strings.Builder
	mix.WriteString(labelStyle.Render("Aux"))
	mix.WriteString("\n")
	for i, st := range m.mixer.auxes {
		mix.WriteString(renderStrip(fmt.Sprintf("A%d", i+1), st, -1, valueStyle, offStyle))
	}
	mix.WriteString("\n")
	mix.WriteString(labelStyle.Render("Bus"))
	mix.WriteString("\n")
	for i, st := range m.mixer.buses {
		mix.WriteString(renderStrip(fmt.Sprintf("B%d", i+1), st, -1, valueStyle, offStyle))
	}
	mix.WriteString("\n")
	mix.WriteString(labelStyle.Render("Sum "))
	mix.WriteString(renderStrip("ST", m.mixer.sum, -1, valueStyle, offStyle))
	s.WriteString(boxStyle.Render(mix.String()))
	s.WriteString("\n")

	// Event log
	s.WriteString(boxStyle.Render(labelStyle.Render("Event Log") + "\n" + m.logView.View()))
	s.WriteString("\n")
	s.WriteString(m.input.View())
	s.WriteString("\n")

	return s.String()
}

// renderStrip renders one strip cell; a negative level hides the meter
func renderStrip(label string, st strip, level int, valueStyle, offStyle lipgloss.Style) string {
	fader := "  --"
	if st.hasFader {
		fader = fmt.Sprintf("%4d", st.fader)
	}

	state := "  "
	if st.hasOn {
		if st.on {
			state = valueStyle.Render("on")
		} else {
			state = offStyle.Render("--")
		}
	}

	cell := fmt.Sprintf("%s %s %s", label, fader, state)
	if level >= 0 {
		cell += " " + meterBar(level)
	}
	return cell + "  "
}

// meterBar scales a 0-127 level to a fixed width bar
func meterBar(level int) string {
	if level < 0 {
		level = 0
	}
	if level > 127 {
		level = 127
	}
	filled := level * meterWidth / 127
	return strings.Repeat("█", filled) + strings.Repeat("·", meterWidth-filled)
}
