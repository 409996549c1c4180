package utils

// ANSI escape sequences for terminal output
const (
	ResetColor   = "\033[0m"
	RedColor     = "\033[31m" // errors
	GreenColor   = "\033[32m" // success
	YellowColor  = "\033[33m" // warnings
	BlueColor    = "\033[34m" // step start / info
	MagentaColor = "\033[35m" // emphasis
	CyanColor    = "\033[36m" // debug detail
)

// ColoredText wraps text with a color code and a trailing reset
func ColoredText(text string, color string) string {
	return color + text + ResetColor
}

// Info returns blue-colored text for informational messages
func Info(text string) string {
	return ColoredText(text, BlueColor)
}

// Success returns green-colored text for completion messages
func Success(text string) string {
	return ColoredText(text, GreenColor)
}

// Warning returns yellow-colored text for warning messages
func Warning(text string) string {
	return ColoredText(text, YellowColor)
}

// Error returns red-colored text for error messages
func Error(text string) string {
	return ColoredText(text, RedColor)
}

// Highlight returns magenta-colored text for emphasized content
func Highlight(text string) string {
	return ColoredText(text, MagentaColor)
}

// Debug returns cyan-colored text for debug output
func Debug(text string) string {
	return ColoredText(text, CyanColor)
}
