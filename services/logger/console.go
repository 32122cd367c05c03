package logsvc

import (
	"io"
	"log"
	"os"

	"github.com/trezcool/classroom/core"
)

// ConsoleLogger only writes to a std logger; used in DEV and tests.
type ConsoleLogger struct {
	std *log.Logger
}

var _ core.Logger = (*ConsoleLogger)(nil)

func NewConsoleLogger(std *log.Logger) *ConsoleLogger {
	return &ConsoleLogger{std: std}
}

// NewDiscardLogger drops everything.
func NewDiscardLogger() *ConsoleLogger {
	return &ConsoleLogger{std: log.New(io.Discard, "", 0)}
}

// New returns the logger fitting the configuration: Rollbar outside debug mode, the console otherwise.
func New(conf *core.Config, prefix string) core.Logger {
	std := log.New(os.Stdout, prefix, log.LstdFlags)
	if conf.Debug || conf.RollbarToken == "" {
		return NewConsoleLogger(std)
	}
	logger := NewRollbarLogger(std, conf)
	logger.Enable(true)
	return logger
}

func (l ConsoleLogger) Debug(msg string, args ...interface{}) { printEntry(l.std, "DEBUG", msg, args) }
func (l ConsoleLogger) Info(msg string, args ...interface{})  { printEntry(l.std, "INFO", msg, args) }
func (l ConsoleLogger) Warn(msg string, args ...interface{})  { printEntry(l.std, "WARN", msg, args) }
func (l ConsoleLogger) Error(msg string, args ...interface{}) { printEntry(l.std, "ERROR", msg, args) }

func (l ConsoleLogger) Fatal(msg string, args ...interface{}) {
	printEntry(l.std, "FATAL", msg, args)
	l.std.Fatal(msg)
}

func printEntry(std *log.Logger, level, msg string, args []interface{}) {
	std.Printf("[%s] %s\n", level, msg)
	for _, arg := range args {
		if usr, ok := arg.(core.LogUser); ok {
			if usr.Username != "" {
				std.Printf("  user: %s\n", usr.Username)
			}
			continue
		}
		std.Printf("  %+v\n", arg)
	}
}
