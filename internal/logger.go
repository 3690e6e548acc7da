package internal

import (
	"fmt"
	"github.com/sirupsen/logrus"
	"gpaylink/entity"
	"gpaylink/services"
	"os"
	"strings"
	"time"
)

// Logger writes JSON records through logrus and mirrors warnings and errors into the database
// when one is set.
type Logger struct {
	category string
	database services.Database
	entry    *logrus.Entry
}

func NewLogger(category string, debug bool, database services.Database) *Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.JSONFormatter{})
	if debug {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
	return &Logger{
		category: category,
		database: database,
		entry:    logger.WithField("category", category),
	}
}

// SetLevel accepts logrus level names; an unknown name keeps the current level.
func (l *Logger) SetLevel(level string) {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		l.entry.Warn(fmt.Sprintf("invalid log level %q", level))
		return
	}
	l.entry.Logger.SetLevel(parsed)
}

func (l *Logger) Debug(text string) {
	l.entry.Debug(text)
}

func (l *Logger) Info(text string) {
	l.entry.Info(text)
}

func (l *Logger) Warn(text string) {
	l.entry.Warn(text)
	l.write("warn", text, nil)
}

func (l *Logger) Error(text string, err error) {
	if err != nil {
		l.entry.WithError(err).Error(text)
	} else {
		l.entry.Error(text)
	}
	l.write("error", text, err)
}

func (l *Logger) write(level, text string, err error) {
	if l.database == nil {
		return
	}
	message := &entity.LogMessage{
		Time:     time.Now(),
		Level:    level,
		Category: l.category,
		Text:     text,
	}
	if err != nil {
		message.Error = err.Error()
	}
	if e := l.database.WriteLogMessage(message); e != nil {
		l.entry.WithError(e).Debug("write log message")
	}
}

type discardLogger struct{}

func (discardLogger) Debug(string)        {}
func (discardLogger) Info(string)         {}
func (discardLogger) Warn(string)         {}
func (discardLogger) Error(string, error) {}

// restyLogger routes resty's own messages (retries, response parse warnings) through a LogHandler.
type restyLogger struct {
	logger services.LogHandler
}

func (r restyLogger) Errorf(format string, v ...interface{}) {
	r.logger.Error(restyMessage(format, v), nil)
}

func (r restyLogger) Warnf(format string, v ...interface{}) {
	r.logger.Warn(restyMessage(format, v))
}

func (r restyLogger) Debugf(format string, v ...interface{}) {
	r.logger.Debug(restyMessage(format, v))
}

func restyMessage(format string, v []interface{}) string {
	return "resty: " + strings.TrimSpace(fmt.Sprintf(format, v...))
}

// secret masks identifiers and tokens in log records.
func secret(some string) string {
	if len(some) > 5 {
		return fmt.Sprintf("%s***", some[0:5])
	}
	if some == "" {
		return "?"
	}
	return "***"
}
