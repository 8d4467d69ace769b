// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package shell

import (
	"bytes"

	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/logger"
	"github.com/sirupsen/logrus"
)

// lineLogWriter forwards process output to the logger one line at a time.
type lineLogWriter struct {
	level   logrus.Level
	pending bytes.Buffer
}

func newLineLogWriter(level logrus.Level) *lineLogWriter {
	// Panic and fatal would abort the tool. The zero value means "unset".
	if level <= logrus.FatalLevel {
		level = logrus.DebugLevel
	}
	return &lineLogWriter{level: level}
}

func (w *lineLogWriter) Write(p []byte) (int, error) {
	w.pending.Write(p)

	for {
		index := bytes.IndexByte(w.pending.Bytes(), '\n')
		if index < 0 {
			break
		}

		line := w.pending.Next(index + 1)
		logger.Log.Log(w.level, string(bytes.TrimRight(line, "\r\n")))
	}

	return len(p), nil
}

func (w *lineLogWriter) Flush() {
	if w.pending.Len() > 0 {
		logger.Log.Log(w.level, w.pending.String())
		w.pending.Reset()
	}
}
