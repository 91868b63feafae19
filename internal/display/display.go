// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package display renders the lock prompts, capture progress and decisions
// on the OLED panel, a terminal UI or the log.
package display

import (
	"fmt"
	"log"
	"math"
	"strings"
	"sync"

	"github.com/relabs-tech/gesture_lock/internal/lock"
)

// Multi fans every call out to each display in order.
type Multi []lock.Display

func (m Multi) ShowPrompt(lines []string) {
	for _, d := range m {
		d.ShowPrompt(lines)
	}
}

func (m Multi) ShowProgress(fraction float64) {
	for _, d := range m {
		d.ShowProgress(fraction)
	}
}

func (m Multi) ShowResult(dec lock.Decision) {
	for _, d := range m {
		d.ShowResult(dec)
	}
}

// ResultLines is the text form of a decision.
func ResultLines(d lock.Decision) []string {
	head := "FAIL"
	if d.Unlocked {
		head = "UNLOCKED :)"
	}
	lines := []string{
		head,
		fmt.Sprintf("X %9.1f", d.Thresholds.X),
		fmt.Sprintf("Y %9.1f", d.Thresholds.Y),
		fmt.Sprintf("Z %9.1f", d.Thresholds.Z),
	}
	if d.Error != "" {
		lines = append(lines, "error: "+d.Error)
	}
	return lines
}

// Log writes prompts and decisions to the standard logger. Progress is
// reported once per quarter of the buffer.
type Log struct {
	mu      sync.Mutex
	quarter int
}

func (l *Log) ShowPrompt(lines []string) {
	l.mu.Lock()
	l.quarter = 0
	l.mu.Unlock()
	log.Printf("display: %s", strings.Join(lines, " / "))
}

func (l *Log) ShowProgress(fraction float64) {
	q := int(math.Floor(fraction * 4))
	l.mu.Lock()
	defer l.mu.Unlock()
	if q <= l.quarter {
		return
	}
	l.quarter = q
	log.Printf("display: capture %3.0f%%", fraction*100)
}

func (l *Log) ShowResult(d lock.Decision) {
	log.Printf("display: %s", strings.Join(ResultLines(d), " | "))
}

// wrap splits lines on word boundaries so none exceeds cols runes. Words
// longer than cols are kept whole.
func wrap(lines []string, cols int) []string {
	var out []string
	for _, line := range lines {
		cur := ""
		for _, w := range strings.Fields(line) {
			switch {
			case cur == "":
				cur = w
			case len([]rune(cur))+1+len([]rune(w)) <= cols:
				cur += " " + w
			default:
				out = append(out, cur)
				cur = w
			}
		}
		out = append(out, cur)
	}
	return out
}
