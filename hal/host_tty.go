//go:build !tinygo

package hal

import (
	"context"
	"sync"

	"github.com/mattn/go-tty"
)

// attachTTY feeds runes typed on the controlling terminal into ch until ctx
// is done or the returned func is called.
func attachTTY(ctx context.Context, ch chan<- KeyEvent) (func(), error) {
	t, err := tty.Open()
	if err != nil {
		return nil, err
	}

	var once sync.Once
	closeTTY := func() { once.Do(func() { _ = t.Close() }) }

	go func() {
		<-ctx.Done()
		closeTTY()
	}()
	go func() {
		for {
			r, err := t.ReadRune()
			if err != nil {
				return
			}
			ev, ok := keyEventFromRune(r)
			if !ok {
				continue
			}
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return closeTTY, nil
}

// keyEventFromRune maps raw-mode terminal input onto key events.
func keyEventFromRune(r rune) (KeyEvent, bool) {
	switch r {
	case 0:
		return KeyEvent{}, false
	case '\r', '\n':
		return KeyEvent{Code: KeyEnter, Press: true}, true
	case 0x7f, 0x08:
		return KeyEvent{Code: KeyBackspace, Press: true}, true
	case 0x1b:
		return KeyEvent{Code: KeyEscape, Press: true}, true
	case '\t':
		return KeyEvent{Code: KeyTab, Press: true}, true
	}
	return KeyEvent{Press: true, Rune: r}, true
}
