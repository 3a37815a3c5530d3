package utils

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// ConfigureLogger sets level & formatter untuk logger global.
func ConfigureLogger(level, format string) {
	logrus.SetOutput(os.Stdout)
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}

// LogEvent prints standardized log line with module/action/request_id.
// Avoid logging sensitive payload; message should be summarized.
func LogEvent(requestID, module, action, message string) {
	Event(requestID, module, action).Info(message)
}

// LogWarn is LogEvent at warning level, for failures that do not abort the operation.
func LogWarn(requestID, module, action, message string) {
	Event(requestID, module, action).Warn(message)
}

// Event returns an entry carrying the standard fields, for callers that need extra fields.
func Event(requestID, module, action string) *logrus.Entry {
	return logrus.WithFields(logrus.Fields{
		"module":     strings.ToUpper(module),
		"action":     action,
		"request_id": strings.TrimSpace(requestID),
	})
}
