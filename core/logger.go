package core

// Logger is the logging contract shared by apps and services.
// args may hold errors, map[string]interface{} extras and the acting reviewer's identity.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
