package logger

import (
	"fmt"
	"strings"
	"time"
)

type LogLevel int

const (
	LogOff  LogLevel = 0 // basic logs only
	LogLow  LogLevel = 1 // + per-request debug lines
	LogHigh LogLevel = 2 // + upstream request/response bodies
)

const (
	ColorReset  = "\x1b[0m"
	ColorGreen  = "\x1b[32m"
	ColorYellow = "\x1b[33m"
	ColorRed    = "\x1b[31m"
	ColorCyan   = "\x1b[36m"
	ColorGray   = "\x1b[90m"
	ColorBlue   = "\x1b[34m"
)

var currentLogLevel LogLevel

func Init(debug string) {
	currentLogLevel = parseLogLevel(debug)
}

func parseLogLevel(debug string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(debug)) {
	case "low":
		return LogLow
	case "high":
		return LogHigh
	default:
		return LogOff
	}
}

func GetLevel() LogLevel {
	return currentLogLevel
}

func Info(format string, args ...any) {
	line("info", ColorGreen, format, args...)
}

func Warn(format string, args ...any) {
	line("warn", ColorYellow, format, args...)
}

func Error(format string, args ...any) {
	line("error", ColorRed, format, args...)
}

func Debug(format string, args ...any) {
	if currentLogLevel < LogLow {
		return
	}
	line("debug", ColorBlue, format, args...)
}

func line(level, color, format string, args ...any) {
	timestamp := time.Now().Format("15:04:05")
	msg := fmt.Sprintf(format, args...)
	fmt.Printf("%s%s%s %s[%s]%s %s\n", ColorGray, timestamp, ColorReset, color, level, ColorReset, msg)
}

func Request(method, path string, status int, duration time.Duration) {
	statusColor := ColorGreen
	if status >= 500 {
		statusColor = ColorRed
	} else if status >= 400 {
		statusColor = ColorYellow
	}

	fmt.Printf("%s[%s]%s %s %s%d%s %s%dms%s\n",
		ColorCyan, method, ColorReset,
		path,
		statusColor, status, ColorReset,
		ColorGray, duration.Milliseconds(), ColorReset)
}

func Upstream(method, url string, status int, duration time.Duration) {
	if currentLogLevel < LogHigh {
		return
	}
	fmt.Printf("%s[upstream]%s %s %s -> %d %s%dms%s\n",
		ColorYellow, ColorReset, method, url, status,
		ColorGray, duration.Milliseconds(), ColorReset)
}

func Banner(host string, port int, accounts int, apiKeySet bool) {
	fmt.Printf(`
%s╔════════════════════════════════════════════════════════════╗
║            %sGemini Business Gateway%s                         ║
╚════════════════════════════════════════════════════════════╝%s
`, ColorCyan, ColorGreen, ColorCyan, ColorReset)

	Info("Server starting on %s:%d", host, port)
	Info("Accounts loaded: %d", accounts)

	if !apiKeySet {
		Warn("API_KEY not set - API authentication disabled")
	}

	fmt.Println()
}
