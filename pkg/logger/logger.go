package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus to provide structured logging with preset fields.
type Logger struct {
	entry *logrus.Entry
}

// Init configures the global logrus settings. Call once at startup. An
// unknown level falls back to info.
func Init(level string) {
	logrus.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	logrus.SetOutput(os.Stdout)

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logrus.SetLevel(parsed)
}

// New creates a Logger tagged with the service name.
func New(serviceName string) *Logger {
	return &Logger{
		entry: logrus.WithField("service_name", serviceName),
	}
}

// WithPayload returns a Logger with structured business data attached.
func (l *Logger) WithPayload(payload map[string]interface{}) *Logger {
	return &Logger{entry: l.entry.WithField("payload", payload)}
}

// WithError returns a Logger with the error message attached.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{entry: l.entry.WithField("error", err.Error())}
}

func (l *Logger) Info(message string)  { l.entry.Info(message) }
func (l *Logger) Warn(message string)  { l.entry.Warn(message) }
func (l *Logger) Error(message string) { l.entry.Error(message) }
func (l *Logger) Debug(message string) { l.entry.Debug(message) }
func (l *Logger) Fatal(message string) { l.entry.Fatal(message) }
