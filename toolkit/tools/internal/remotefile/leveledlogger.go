// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package remotefile

import (
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
)

// leveledLogrus routes retryablehttp's key/value logging into logrus fields.
type leveledLogrus struct {
	logger *logrus.Logger
}

func newLeveledLogger(logger *logrus.Logger) retryablehttp.LeveledLogger {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &leveledLogrus{logger: logger}
}

func fields(keysAndValues ...interface{}) logrus.Fields {
	result := logrus.Fields{}
	for i := 0; i < len(keysAndValues)-1; i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		result[key] = keysAndValues[i+1]
	}
	return result
}

func (l *leveledLogrus) Error(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(fields(keysAndValues...)).Error(msg)
}

func (l *leveledLogrus) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(fields(keysAndValues...)).Info(msg)
}

// Retries are worth surfacing at info level, everything else retryablehttp says is debug noise.
func (l *leveledLogrus) Debug(msg string, keysAndValues ...interface{}) {
	if strings.Contains(msg, "retrying") {
		l.logger.WithFields(fields(keysAndValues...)).Info(msg)
	} else {
		l.logger.WithFields(fields(keysAndValues...)).Debug(msg)
	}
}

func (l *leveledLogrus) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(fields(keysAndValues...)).Warn(msg)
}
