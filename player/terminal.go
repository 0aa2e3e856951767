package player

import (
	"os"

	"golang.org/x/sys/unix"
)

// Fallback grid used when the terminal cannot be queried
const (
	FallbackCols = 80
	FallbackRows = 24
)

// GetTerminalSize returns terminal dimensions (cols, rows, widthPx, heightPx)
func GetTerminalSize() (cols, rows, widthPx, heightPx int, err error) {
	ws, err := unix.IoctlGetWinsize(int(os.Stdout.Fd()), unix.TIOCGWINSZ)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	return int(ws.Col), int(ws.Row), int(ws.Xpixel), int(ws.Ypixel), nil
}

// TargetGrid returns the cell grid the background video is scaled to.
// The grid is frozen when the pipeline starts; a later resize only changes
// how the frame is centered and clipped.
func TargetGrid() (cols, rows int) {
	cols, rows, _, _, err := GetTerminalSize()
	if err != nil || cols == 0 || rows == 0 {
		return FallbackCols, FallbackRows
	}
	return cols, rows
}
