package services

import (
	"errors"

	"github.com/atotto/clipboard"
)

// ErrNoClipboard is returned when the host has no clipboard utility
// (xclip, xsel, wl-copy, pbcopy or the Windows API).
var ErrNoClipboard = errors.New("no system clipboard")

// SystemClipboard writes to the host clipboard.
type SystemClipboard struct{}

func (SystemClipboard) WriteAll(text string) error {
	if clipboard.Unsupported {
		return ErrNoClipboard
	}
	return clipboard.WriteAll(text)
}
