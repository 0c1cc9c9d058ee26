package status

import (
	"context"
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"
)

// View draws snapshots on a terminal screen.
type View struct {
	screen tcell.Screen
	mu     sync.Mutex
}

// NewView creates a view on a new terminal screen.
func NewView() (*View, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	return NewViewOn(screen)
}

// NewViewOn creates a view on an existing screen and initializes it.
func NewViewOn(screen tcell.Screen) (*View, error) {
	if err := screen.Init(); err != nil {
		return nil, err
	}
	screen.HideCursor()
	return &View{screen: screen}, nil
}

var (
	titleStyle  = tcell.StyleDefault.Bold(true)
	layerStyle  = tcell.StyleDefault.Foreground(tcell.ColorAqua)
	armedStyle  = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	footerStyle = tcell.StyleDefault.Dim(true)
)

// Draw replaces the screen contents with s.
func (v *View) Draw(s Snapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.screen.Clear()
	for y, line := range Render(s) {
		style := tcell.StyleDefault
		switch {
		case y == 0:
			style = titleStyle
		case y == 2:
			style = layerStyle
		case y == 4 && !s.Armed.IsEmpty():
			style = armedStyle
		}
		v.drawLine(y, line, style)
	}

	_, h := v.screen.Size()
	m := s.Metrics
	v.drawLine(h-1, fmt.Sprintf("taps %d  holds %d  repeats %d  oneshot %d/%d   q to quit",
		m.Taps, m.Holds(), m.Repeats, m.OneshotToggles, m.OneshotConsumptions), footerStyle)
	v.screen.Show()
}

func (v *View) drawLine(y int, line string, style tcell.Style) {
	x := 0
	for _, r := range line {
		v.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

// Line returns the text at row y, for tests.
func (v *View) Line(y int) string {
	v.mu.Lock()
	defer v.mu.Unlock()

	w, _ := v.screen.Size()
	runes := make([]rune, 0, w)
	for x := 0; x < w; x++ {
		r, _, _, _ := v.screen.GetContent(x, y) //nolint:staticcheck // GetContent is the correct API
		runes = append(runes, r)
	}
	return string(runes)
}

// WaitQuit blocks until the user presses q, Esc or Ctrl-C, the screen is
// closed, or ctx is done.
func (v *View) WaitQuit(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = v.screen.PostEvent(tcell.NewEventInterrupt(nil)) // best-effort wakeup
	}()

	for {
		switch ev := v.screen.PollEvent().(type) {
		case nil:
			return nil
		case *tcell.EventInterrupt:
			if err := ctx.Err(); err != nil {
				return err
			}
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q' {
				return nil
			}
		case *tcell.EventResize:
			v.screen.Sync()
		}
	}
}

// Close restores the terminal.
func (v *View) Close() {
	v.screen.Fini()
}
