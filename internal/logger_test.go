package internal

import (
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gpaylink/entity"
	"gpaylink/services"
	"testing"
)

type recordingLogger struct {
	debug    []string
	warn     []string
	failures []string
}

func (r *recordingLogger) Debug(text string)            { r.debug = append(r.debug, text) }
func (r *recordingLogger) Info(string)                  {}
func (r *recordingLogger) Warn(text string)             { r.warn = append(r.warn, text) }
func (r *recordingLogger) Error(text string, err error) { r.failures = append(r.failures, text) }

type memoryDatabase struct {
	records []services.Data
}

func (m *memoryDatabase) WriteLogMessage(data services.Data) error {
	m.records = append(m.records, data)
	return nil
}

func (m *memoryDatabase) Close() error {
	return nil
}

func TestLoggerMirrorsWarningsAndErrors(t *testing.T) {
	database := &memoryDatabase{}
	logger := NewLogger("engine", false, database)

	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("payment flow failed")
	logger.Error("process payment", errors.New("timeout"))

	require.Len(t, database.records, 2)
	warning := database.records[0].(*entity.LogMessage)
	assert.Equal(t, "warn", warning.Level)
	assert.Equal(t, "engine", warning.Category)
	assert.Equal(t, "payment flow failed", warning.Text)
	failure := database.records[1].(*entity.LogMessage)
	assert.Equal(t, "error", failure.Level)
	assert.Equal(t, "timeout", failure.Error)
	assert.Equal(t, "log", failure.DataType())
}

func TestSecret(t *testing.T) {
	assert.Equal(t, "?", secret(""))
	assert.Equal(t, "***", secret("P1"))
	assert.Equal(t, "abcde***", secret("abcdefgh"))
}

func TestRestyLoggerForwardsToLogHandler(t *testing.T) {
	recorder := &recordingLogger{}
	logger := restyLogger{logger: recorder}

	logger.Warnf("Encountered an error while parsing response: %v\n", "bad json")
	logger.Errorf("%v", "connection reset")
	logger.Debugf("request %s", "GET /status")

	assert.Equal(t, []string{"resty: Encountered an error while parsing response: bad json"}, recorder.warn)
	assert.Equal(t, []string{"resty: connection reset"}, recorder.failures)
	assert.Equal(t, []string{"resty: request GET /status"}, recorder.debug)
}
