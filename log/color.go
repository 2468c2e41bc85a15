package log

const colorReset = "\033[0m"

// levelColors holds the ANSI escape used for terminal output of each level.
var levelColors = map[LogLevel]string{
	Debug: "\033[34m",
	Info:  "\033[32m",
	Warn:  "\033[33m",
	Error: "\033[31m",
	Fatal: "\033[35m",
}

// colorize wraps line in the escape of level. Unknown levels are left uncolored.
func colorize(level LogLevel, line string) string {
	color, exists := levelColors[level]
	if !exists {
		return line
	}
	return color + line + colorReset
}
