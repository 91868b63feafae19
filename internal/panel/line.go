// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package panel

import (
	"bufio"
	"io"
	"log"
	"time"
)

// WatchLines fires latch for every line read from r, typically os.Stdin,
// until r fails. It returns immediately; the reader runs on its own
// goroutine.
func WatchLines(r io.Reader, latch *Latch) {
	in := bufio.NewReader(r)
	go func() {
		for {
			if _, err := in.ReadString('\n'); err != nil {
				if err != io.EOF {
					log.Printf("panel: confirm reader stopped: %v", err)
				}
				return
			}
			latch.Fire(time.Now())
		}
	}()
}
