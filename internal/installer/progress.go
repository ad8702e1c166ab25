package installer

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"xupg/internal/theme"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
)

const (
	padding      = 2
	barWidth     = 40
	sendInterval = 80 * time.Millisecond
)

// Progress receives updates for one download or extraction. Implementations
// are driven by a single goroutine at a time.
type Progress interface {
	SetTotal(total int64)
	Advance(n int64)
	Finish(msg string)
}

type nopProgress struct{}

func (nopProgress) SetTotal(int64) {}
func (nopProgress) Advance(int64)  {}
func (nopProgress) Finish(string)  {}

// Unit selects how a bar renders its counters
type Unit int

const (
	Bytes Unit = iota
	Items
)

type barTotalMsg struct {
	id    int
	total int64
}

type barPositionMsg struct {
	id      int
	current int64
}

type barFinishMsg struct {
	id  int
	msg string
}

type bar struct {
	label   string
	unit    Unit
	total   int64
	current int64
	started time.Time
	done    bool
	msg     string
}

type multiModel struct {
	bars        []*bar
	progress    progress.Model
	interrupted bool
}

func (m multiModel) Init() tea.Cmd {
	return nil
}

func (m multiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.interrupted = true
			return m, tea.Quit
		}
		return m, nil

	case barTotalMsg:
		m.bars[msg.id].total = msg.total
		return m, nil

	case barPositionMsg:
		if b := m.bars[msg.id]; msg.current > b.current {
			b.current = msg.current
		}
		return m, nil

	case barFinishMsg:
		b := m.bars[msg.id]
		b.done = true
		b.msg = msg.msg
		for _, other := range m.bars {
			if !other.done {
				return m, nil
			}
		}
		return m, tea.Quit

	default:
		return m, nil
	}
}

func (m multiModel) View() string {
	pad := strings.Repeat(" ", padding)
	var b strings.Builder
	b.WriteString("\n")

	for _, bar := range m.bars {
		b.WriteString(pad + theme.LabelStyle.Render(bar.label) + "\n")
		if bar.done {
			b.WriteString(pad + theme.Faint.Render(bar.msg) + "\n")
			continue
		}

		percent := 0.0
		if bar.total > 0 {
			percent = float64(bar.current) / float64(bar.total)
		}
		b.WriteString(pad + m.progress.ViewAs(percent) + "\n")
		b.WriteString(pad + theme.Faint.Render(bar.info(percent)) + "\n")
	}

	return b.String()
}

func (b *bar) info(percent float64) string {
	if b.unit == Items {
		return fmt.Sprintf("%d / %d (%.0f%%)", b.current, b.total, percent*100)
	}
	return fmt.Sprintf("%s / %s (%.0f%%) - %s",
		humanize.IBytes(uint64(b.current)),
		humanize.IBytes(uint64(b.total)),
		percent*100,
		speed(b.current, b.started))
}

func speed(done int64, since time.Time) string {
	elapsed := time.Since(since).Seconds()
	if elapsed <= 0 {
		return "0 B/s"
	}
	return humanize.IBytes(uint64(float64(done)/elapsed)) + "/s"
}

// MultiProgress renders one animated bar per registered task in the
// terminal. Bars are registered with Add before Start.
type MultiProgress struct {
	mu      sync.Mutex
	bars    []*bar
	opts    []tea.ProgramOption
	program *tea.Program
	result  chan bool
}

// NewMultiProgress creates an empty display. The options are passed to the
// underlying bubbletea program.
func NewMultiProgress(opts ...tea.ProgramOption) *MultiProgress {
	return &MultiProgress{opts: opts}
}

// Add registers a bar and returns its sink.
func (mp *MultiProgress) Add(label string, unit Unit) Progress {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	id := len(mp.bars)
	mp.bars = append(mp.bars, &bar{label: label, unit: unit, started: time.Now()})
	return &teaSink{mp: mp, id: id}
}

// Start runs the display in the background.
func (mp *MultiProgress) Start() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if len(mp.bars) == 0 || mp.program != nil {
		return
	}

	model := multiModel{
		bars: mp.bars,
		progress: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(barWidth),
			progress.WithoutPercentage(),
		),
	}
	mp.program = tea.NewProgram(model, mp.opts...)
	mp.result = make(chan bool, 1)

	go func() {
		final, err := mp.program.Run()
		interrupted := false
		if m, ok := final.(multiModel); ok && err == nil {
			interrupted = m.interrupted
		}
		mp.result <- interrupted
	}()
}

// Wait blocks until every bar finished. It reports whether the user
// interrupted the display with ctrl+c.
func (mp *MultiProgress) Wait() bool {
	mp.mu.Lock()
	result := mp.result
	mp.mu.Unlock()

	if result == nil {
		return false
	}
	return <-result
}

func (mp *MultiProgress) send(msg tea.Msg) {
	mp.mu.Lock()
	p := mp.program
	mp.mu.Unlock()

	if p != nil {
		p.Send(msg)
	}
}

// teaSink forwards updates to the bubbletea program, throttled so a fast
// download does not flood the event loop.
type teaSink struct {
	mp       *MultiProgress
	id       int
	current  int64
	lastSent time.Time
}

func (s *teaSink) SetTotal(total int64) {
	s.mp.send(barTotalMsg{id: s.id, total: total})
}

func (s *teaSink) Advance(n int64) {
	s.current += n
	if time.Since(s.lastSent) < sendInterval {
		return
	}
	s.lastSent = time.Now()
	s.mp.send(barPositionMsg{id: s.id, current: s.current})
}

func (s *teaSink) Finish(msg string) {
	s.mp.send(barPositionMsg{id: s.id, current: s.current})
	s.mp.send(barFinishMsg{id: s.id, msg: msg})
}

// PlainProgress writes line-based progress, for output that is not a terminal.
type PlainProgress struct {
	mu  sync.Mutex
	out io.Writer
}

// NewPlainProgress creates a line-based progress writer
func NewPlainProgress(out io.Writer) *PlainProgress {
	return &PlainProgress{out: out}
}

// Add returns a sink that reports in quarter steps.
func (pp *PlainProgress) Add(label string, unit Unit) Progress {
	return &plainSink{pp: pp, label: label, unit: unit}
}

func (pp *PlainProgress) printf(format string, args ...any) {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	fmt.Fprintf(pp.out, format, args...)
}

type plainSink struct {
	pp       *PlainProgress
	label    string
	unit     Unit
	total    int64
	current  int64
	reported int64
}

func (s *plainSink) SetTotal(total int64) {
	s.total = total
	if s.unit == Bytes {
		s.pp.printf("%s: %s\n", s.label, humanize.IBytes(uint64(total)))
		return
	}
	s.pp.printf("%s: %d entries\n", s.label, total)
}

func (s *plainSink) Advance(n int64) {
	s.current += n
	if s.total <= 0 {
		return
	}
	step := s.current * 4 / s.total
	if step > s.reported && step < 4 {
		s.reported = step
		s.pp.printf("%s: %d%%\n", s.label, step*25)
	}
}

func (s *plainSink) Finish(msg string) {
	s.pp.printf("%s: %s\n", s.label, msg)
}
