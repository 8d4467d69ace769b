// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestLevelsMatchLogrus(t *testing.T) {
	levels := Levels()
	assert.Len(t, levels, len(logrus.AllLevels))
	assert.Contains(t, levels, "debug")
	assert.Contains(t, levels, "trace")
}

func TestSetStderrLogLevelInvalid(t *testing.T) {
	InitStderrLog()
	err := SetStderrLogLevel("loud")
	assert.ErrorContains(t, err, "invalid log level (loud)")
	assert.Equal(t, logrus.InfoLevel, Log.GetLevel())
}

func TestInitBestEffortWritesDebugToFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "ovaconverter.log")
	level := "info"
	color := ColorNever

	InitBestEffort(&LogFlags{LogColor: &color, LogFile: &logFile, LogLevel: &level})
	defer InitStderrLog()

	Log.Debugf("debug only message")
	Log.Infof("info message")

	contents, err := os.ReadFile(logFile)
	if !assert.NoError(t, err) {
		return
	}
	assert.Contains(t, string(contents), "debug only message")
	assert.Contains(t, string(contents), "info message")
}

func TestMemoryLogHookCapturesMessages(t *testing.T) {
	InitStderrLog()
	hook := NewMemoryLogHook()
	Log.AddHook(hook)

	subHook := hook.AddSubHook()
	defer subHook.Close()

	Log.Warnf("low on %s", "space")

	messages := subHook.ConsumeMessages()
	if assert.Len(t, messages, 1) {
		assert.Equal(t, "low on space", messages[0].Message)
		assert.Equal(t, logrus.WarnLevel, messages[0].Level)
	}
	assert.Empty(t, subHook.ConsumeMessages())
}
