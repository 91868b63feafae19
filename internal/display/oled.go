// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"fmt"
	"image"
	"log"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/gesture_lock/internal/lock"
)

const (
	oledWidth  = 128
	oledHeight = 64
	oledCols   = oledWidth / 7
	lineHeight = 12
	maxLines   = 5
)

// oledDev is the part of *ssd1306.Dev the OLED display draws through.
type oledDev interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
	Halt() error
}

// OLED draws on a 128x64 SSD1306 panel.
type OLED struct {
	mu     sync.Mutex
	dev    oledDev
	closer func() error
	lines  []string
}

// OpenOLED opens the I2C bus (empty name picks the first one) and
// initializes the panel.
func OpenOLED(busName string) (*OLED, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("display: failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("display: failed to open I2C bus: %w", err)
	}

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("display: failed to initialize OLED: %w", err)
	}
	log.Printf("display: OLED initialized on I2C bus %q", busName)

	o := newOLED(dev)
	o.closer = bus.Close
	return o, nil
}

func newOLED(dev oledDev) *OLED {
	return &OLED{dev: dev}
}

func (o *OLED) ShowPrompt(lines []string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lines = wrap(lines, oledCols)
	o.draw(renderText(o.lines, -1))
}

func (o *OLED) ShowProgress(fraction float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.draw(renderText(o.lines, fraction))
}

func (o *OLED) ShowResult(d lock.Decision) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lines = nil
	if d.Unlocked {
		o.draw(renderSmiley())
		return
	}
	o.draw(renderText(ResultLines(d)[:4], -1))
}

func (o *OLED) draw(img *image1bit.VerticalLSB) {
	if err := o.dev.Draw(o.dev.Bounds(), img, image.Point{}); err != nil {
		log.Printf("display: OLED draw error: %v", err)
	}
}

// Close blanks the panel and releases the bus.
func (o *OLED) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	err := o.dev.Halt()
	if o.closer != nil {
		if cerr := o.closer(); err == nil {
			err = cerr
		}
	}
	return err
}

func newCanvas() *image1bit.VerticalLSB {
	return image1bit.NewVerticalLSB(image.Rect(0, 0, oledWidth, oledHeight))
}

// renderText draws up to maxLines lines. A fraction in [0, 1] adds a
// progress bar along the bottom edge and leaves room for it.
func renderText(lines []string, fraction float64) *image1bit.VerticalLSB {
	img := newCanvas()
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}

	limit := maxLines
	if fraction >= 0 {
		limit = maxLines - 1
	}
	for i, line := range lines {
		if i >= limit {
			break
		}
		drawer.Dot = fixed.P(0, lineHeight*(i+1))
		drawer.DrawBytes([]byte(line))
	}

	if fraction >= 0 {
		drawBar(img, fraction)
	}
	return img
}

// drawBar draws an outlined bar in rows 54..63 filled to fraction.
func drawBar(img *image1bit.VerticalLSB, fraction float64) {
	if fraction > 1 {
		fraction = 1
	}
	const top, bottom = 54, oledHeight - 1
	for x := 0; x < oledWidth; x++ {
		img.Set(x, top, image1bit.On)
		img.Set(x, bottom, image1bit.On)
	}
	for y := top; y <= bottom; y++ {
		img.Set(0, y, image1bit.On)
		img.Set(oledWidth-1, y, image1bit.On)
	}
	fill := int(fraction * float64(oledWidth-4))
	for x := 2; x < 2+fill; x++ {
		for y := top + 2; y <= bottom-2; y++ {
			img.Set(x, y, image1bit.On)
		}
	}
}

// renderSmiley draws the unlock face: a filled disc with two eyes and a
// smile cut out.
func renderSmiley() *image1bit.VerticalLSB {
	img := newCanvas()
	const cx, cy, r = oledWidth / 2, oledHeight / 2, 30
	inside := func(x, y, px, py, rad int) bool {
		dx, dy := x-px, y-py
		return dx*dx+dy*dy <= rad*rad
	}
	for y := 0; y < oledHeight; y++ {
		for x := 0; x < oledWidth; x++ {
			if !inside(x, y, cx, cy, r) {
				continue
			}
			eye := inside(x, y, cx-11, cy-9, 4) || inside(x, y, cx+11, cy-9, 4)
			smile := y > cy+2 && inside(x, y, cx, cy, 19) && !inside(x, y, cx, cy, 15)
			if !eye && !smile {
				img.Set(x, y, image1bit.On)
			}
		}
	}
	return img
}
