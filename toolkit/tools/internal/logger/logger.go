// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

const (
	ColorFlag  = "log-color"
	FileFlag   = "log-file"
	LevelsFlag = "log-level"

	ColorFlagHelp = "Color setting for log terminal output"
	FileFlagHelp  = "Path to the log file"
	LevelsHelp    = "The minimum log level"

	ColorsPlaceholder = "(always|auto|never)"
	LevelsPlaceholder = "(panic|fatal|error|warn|info|debug|trace)"

	ColorAlways = "always"
	ColorAuto   = "auto"
	ColorNever  = "never"

	defaultLogFileLevel   = logrus.DebugLevel
	defaultStderrLogLevel = logrus.InfoLevel
)

// Log is the logger used by every package in the tool.
var Log *logrus.Logger

// LogFlags holds the command-line settings of the logger.
// A nil or empty value selects the default.
type LogFlags struct {
	LogColor *string
	LogFile  *string
	LogLevel *string
}

var (
	stderrFormatter = &logrus.TextFormatter{
		FullTimestamp:          true,
		DisableLevelTruncation: true,
		PadLevelText:           true,
	}
	fileFormatter = &logrus.TextFormatter{
		FullTimestamp: true,
		DisableColors: true,
	}
)

func Levels() []string {
	levels := make([]string, 0, len(logrus.AllLevels))
	for _, level := range logrus.AllLevels {
		levels = append(levels, level.String())
	}
	return levels
}

func Colors() []string {
	return []string{ColorAlways, ColorAuto, ColorNever}
}

// InitStderrLog initializes the logger to print to stderr only.
func InitStderrLog() {
	Log = logrus.New()
	Log.SetOutput(os.Stderr)
	Log.SetFormatter(stderrFormatter)
	Log.SetLevel(defaultStderrLogLevel)
}

// InitBestEffort initializes the logger from the provided flags.
// Failures are reported on stderr and the logger falls back to stderr only output.
func InitBestEffort(lf *LogFlags) {
	InitStderrLog()
	if lf == nil {
		return
	}

	err := applyColorSetting(valueOrEmpty(lf.LogColor))
	if err != nil {
		Log.Warnf("%v", err)
	}

	levelName := valueOrEmpty(lf.LogLevel)
	if levelName != "" {
		err = SetStderrLogLevel(levelName)
		if err != nil {
			Log.Warnf("%v", err)
		}
	}

	logFile := valueOrEmpty(lf.LogFile)
	if logFile != "" {
		err = addFileHook(logFile)
		if err != nil {
			Log.Warnf("Failed to log to file (%s):\n%v", logFile, err)
		}
	}
}

// SetStderrLogLevel sets the minimum level printed to stderr.
func SetStderrLogLevel(levelName string) error {
	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		return fmt.Errorf("invalid log level (%s):\n%w", levelName, err)
	}

	Log.SetLevel(level)
	return nil
}

func applyColorSetting(setting string) error {
	switch setting {
	case "", ColorAuto:
		stderrFormatter.ForceColors = false
		stderrFormatter.DisableColors = false

	case ColorAlways:
		stderrFormatter.ForceColors = true
		stderrFormatter.DisableColors = false
		color.NoColor = false

	case ColorNever:
		stderrFormatter.ForceColors = false
		stderrFormatter.DisableColors = true
		color.NoColor = true

	default:
		return fmt.Errorf("invalid log color setting (%s), must be one of: %s", setting,
			strings.Join(Colors(), ", "))
	}

	return nil
}

func addFileHook(logFile string) error {
	err := os.MkdirAll(filepath.Dir(logFile), os.ModePerm)
	if err != nil {
		return err
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}

	// The file receives debug output even when stderr is less verbose.
	stderrLevel := Log.GetLevel()
	fileLevel := max(stderrLevel, defaultLogFileLevel)

	Log.SetLevel(fileLevel)
	Log.SetOutput(io.Discard)
	Log.AddHook(&levelWriterHook{out: os.Stderr, formatter: stderrFormatter, maxLevel: stderrLevel})
	Log.AddHook(&levelWriterHook{out: file, formatter: fileFormatter, maxLevel: fileLevel})
	return nil
}

// levelWriterHook writes entries up to maxLevel to out.
type levelWriterHook struct {
	out       io.Writer
	formatter logrus.Formatter
	maxLevel  logrus.Level
}

func (h *levelWriterHook) Levels() []logrus.Level {
	return logrus.AllLevels[:h.maxLevel+1]
}

func (h *levelWriterHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.out.Write(line)
	return err
}

func valueOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
