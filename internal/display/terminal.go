// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"context"
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/relabs-tech/gesture_lock/internal/lock"
)

// Terminal is a full-screen tcell view of the lock. ENTER or SPACE confirm,
// ESC or Ctrl-C quit.
type Terminal struct {
	mu       sync.Mutex
	screen   tcell.Screen
	lines    []string
	fraction float64
	result   *lock.Decision

	OnConfirm func()
	OnQuit    func()

	closeOnce sync.Once
}

// NewTerminal initializes s, or the real terminal when s is nil.
func NewTerminal(s tcell.Screen) (*Terminal, error) {
	if s == nil {
		var err error
		if s, err = tcell.NewScreen(); err != nil {
			return nil, fmt.Errorf("display: terminal: %w", err)
		}
	}
	if err := s.Init(); err != nil {
		return nil, fmt.Errorf("display: terminal init: %w", err)
	}
	s.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	s.Clear()
	return &Terminal{screen: s, fraction: -1}, nil
}

func (t *Terminal) ShowPrompt(lines []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append([]string(nil), lines...)
	t.fraction = -1
	t.result = nil
	t.redraw()
}

func (t *Terminal) ShowProgress(fraction float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fraction = fraction
	t.redraw()
}

func (t *Terminal) ShowResult(d lock.Decision) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = ResultLines(d)
	t.fraction = -1
	t.result = &d
	t.redraw()
}

// Run dispatches key events until ctx is cancelled or the screen closes.
func (t *Terminal) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		t.Close()
	}()
	for {
		ev := t.screen.PollEvent()
		if ev == nil {
			return
		}
		switch ev := ev.(type) {
		case *tcell.EventResize:
			t.mu.Lock()
			t.redraw()
			t.mu.Unlock()
			t.screen.Sync()
		case *tcell.EventKey:
			switch {
			case ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC:
				if t.OnQuit != nil {
					t.OnQuit()
				}
			case ev.Key() == tcell.KeyEnter || ev.Rune() == ' ':
				if t.OnConfirm != nil {
					t.OnConfirm()
				}
			}
		}
	}
}

// Close restores the terminal.
func (t *Terminal) Close() {
	t.closeOnce.Do(t.screen.Fini)
}

// redraw paints the whole view. Callers hold t.mu.
func (t *Terminal) redraw() {
	s := t.screen
	s.Clear()
	width, height := s.Size()
	if width < 4 || height < 4 {
		s.Show()
		return
	}

	border := tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorPink)
	drawBox(s, 0, 0, width-1, height-1, border)
	drawText(s, 2, 0, " GESTURE LOCK ", border)

	text := tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorLightSteelBlue)
	if t.result != nil {
		if t.result.Unlocked {
			text = text.Foreground(tcell.ColorGreen).Bold(true)
		} else {
			text = text.Foreground(tcell.ColorRed).Bold(true)
		}
	}
	top := height/2 - len(t.lines)
	for i, line := range t.lines {
		x := (width - len([]rune(line))) / 2
		drawText(s, x, top+i, line, text)
	}

	if t.fraction >= 0 {
		barWidth := width - 6
		fill := int(t.fraction * float64(barWidth))
		if fill > barWidth {
			fill = barWidth
		}
		y := top + len(t.lines) + 1
		bar := tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorDodgerBlue)
		for i := 0; i < barWidth; i++ {
			r := '░'
			if i < fill {
				r = '█'
			}
			s.SetContent(3+i, y, r, nil, bar)
		}
	}

	hint := tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorGray)
	drawText(s, 2, height-1, " ENTER confirm | ESC quit ", hint)
	s.Show()
}

func drawText(s tcell.Screen, x, y int, text string, style tcell.Style) {
	for _, r := range text {
		s.SetContent(x, y, r, nil, style)
		x++
	}
}

func drawBox(s tcell.Screen, x1, y1, x2, y2 int, style tcell.Style) {
	for x := x1 + 1; x < x2; x++ {
		s.SetContent(x, y1, tcell.RuneHLine, nil, style)
		s.SetContent(x, y2, tcell.RuneHLine, nil, style)
	}
	for y := y1 + 1; y < y2; y++ {
		s.SetContent(x1, y, tcell.RuneVLine, nil, style)
		s.SetContent(x2, y, tcell.RuneVLine, nil, style)
	}
	s.SetContent(x1, y1, tcell.RuneULCorner, nil, style)
	s.SetContent(x2, y1, tcell.RuneURCorner, nil, style)
	s.SetContent(x1, y2, tcell.RuneLLCorner, nil, style)
	s.SetContent(x2, y2, tcell.RuneLRCorner, nil, style)
}
