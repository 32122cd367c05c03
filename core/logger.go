package core

// Logger is any service that can log messages.
// args may hold errors, maps of extras, or the logged-in username (LogUser).
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// LogUser identifies the logged-in user in log entries.
type LogUser struct {
	Username string
}
