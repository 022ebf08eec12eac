package gologger

import (
	"strings"

	job "github.com/goliatone/go-job"
	glog "github.com/goliatone/go-logger/glog"
)

// Bridge holds one resolved logger in both the glog and go-job shapes so the
// sync runtime and queue workers write to the same sink.
type Bridge struct {
	Provider    glog.LoggerProvider
	Logger      glog.Logger
	JobProvider job.LoggerProvider
	JobLogger   job.Logger
}

// NewBridge resolves provider > logger > nop under name.
func NewBridge(name string, provider glog.LoggerProvider, logger glog.Logger) Bridge {
	resolvedProvider, resolvedLogger := glog.Resolve(name, provider, logger)
	bridge := Bridge{
		Provider: resolvedProvider,
		Logger:   resolvedLogger,
	}
	if resolvedProvider != nil {
		bridge.JobProvider = job.GoLoggerProvider(resolvedProvider)
	}
	if resolvedLogger != nil {
		bridge.JobLogger = job.GoLogger(resolvedLogger)
	}
	return bridge
}

// For returns the component logger ("sync", "vault", "script", ...). When
// integrationID is set and the logger supports fields it is attached as
// integration_id.
func (b Bridge) For(component string, integrationID string) glog.Logger {
	logger := b.Logger
	if component = strings.TrimSpace(component); component != "" && b.Provider != nil {
		if named := b.Provider.GetLogger(component); named != nil {
			logger = named
		}
	}
	if logger == nil {
		logger = glog.Nop()
	}
	integrationID = strings.TrimSpace(integrationID)
	if integrationID == "" {
		return logger
	}
	if fields, ok := logger.(glog.FieldsLogger); ok {
		return fields.WithFields(map[string]any{"integration_id": integrationID})
	}
	return logger
}
