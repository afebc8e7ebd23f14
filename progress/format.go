package progress

import (
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	nameWidth = 40
	barWidth  = 40
)

var spinnerFrames = []string{"⠁", "⠂", "⠄", "⡀", "⢀", "⠠", "⠐", "⠈"}

// formatLine renders one indicator as
//
//	{spinner} {name:40} [{elapsed}] [{bar:40}] {bytes}/{total}
func formatLine(s State, frame int) string {
	spinner := " "
	if !s.Finished {
		spinner = spinnerFrames[frame%len(spinnerFrames)]
	}

	return fmt.Sprintf("%s %s [%s] [%s] %s/%s",
		spinner,
		padRight(truncateName(s.Name), nameWidth),
		formatElapsed(s.Elapsed),
		renderBar(s.Position, s.Total, s.Finished),
		formatBytes(s.Position),
		formatBytes(s.Total),
	)
}

// truncateName shortens names of nameWidth or more runes to 36 runes
// followed by "...".
func truncateName(name string) string {
	if utf8.RuneCountInString(name) < nameWidth {
		return name
	}
	r := []rune(name)
	return string(r[:nameWidth-4]) + "..."
}

func padRight(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

func renderBar(pos, total int64, finished bool) string {
	var filled int
	switch {
	case total <= 0 && finished:
		filled = barWidth
	case total > 0:
		filled = int(min(max(pos, 0), total) * barWidth / total)
	}
	return strings.Repeat("#", filled) + strings.Repeat("-", barWidth-filled)
}

func formatElapsed(d time.Duration) string {
	if d <= 0 {
		return "00:00:00"
	}
	secs := int(d.Seconds())
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit && exp < 4; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %ciB", float64(n)/float64(div), "KMGTP"[exp])
}

func percent(pos, total int64) string {
	if total <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", float64(pos)/float64(total)*100)
}

// IsTTY reports whether v is an *os.File attached to a terminal.
func IsTTY(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
