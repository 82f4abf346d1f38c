// Package logging provides structured logging for the core services.
package logging

import (
	"github.com/sirupsen/logrus"

	"github.com/idlab-discover/Multi-path-XR/pkg/config"
)

// Logger is the structured logger type used across the module.
type Logger = *logrus.Logger

// Fields is a set of structured logging fields.
type Fields = logrus.Fields

// NewLogger creates a JSON-formatted logger honoring LOG_LEVEL.
func NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(config.GetLogLevel())
	return logger
}

// NewLoggerWithComponent creates a logger tagged with a component field,
// e.g. "scheduler", "registry", "egress".
func NewLoggerWithComponent(component string) *logrus.Logger {
	base := NewLogger()
	base.AddHook(componentHook{component: component})
	return base
}

// componentHook stamps every entry with the logger's component field.
type componentHook struct{ component string }

func (h componentHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h componentHook) Fire(e *logrus.Entry) error {
	if _, ok := e.Data["component"]; !ok {
		e.Data["component"] = h.component
	}
	return nil
}
