// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package shell

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/logger"
	"github.com/sirupsen/logrus"
)

// Command describes a single external process invocation.
type Command struct {
	Name                 string
	Args                 []string
	WorkingDirectory     string
	EnvironmentVariables []string

	// Stdout, when set, receives the process's stdout instead of Result.Stdout.
	Stdout io.Writer

	StdoutLogLevel logrus.Level
	StderrLogLevel logrus.Level

	// ErrorStderrLines is the number of trailing stderr lines included in an ExitError message.
	ErrorStderrLines int
}

// Result is the structured outcome of a finished process.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Executor runs external processes to completion.
// Processes are never interrupted once started.
type Executor interface {
	Execute(cmd Command) (Result, error)
}

// ExitError is returned when a process exits with a non-zero code.
type ExitError struct {
	CommandLine string
	Result      Result
	StderrLines int
}

func (e *ExitError) Error() string {
	message := fmt.Sprintf("command (%s) exited with code (%d)", e.CommandLine, e.Result.ExitCode)

	stderr := lastLines(e.Result.Stderr, e.StderrLines)
	if stderr != "" {
		message += ":\n" + stderr
	}
	return message
}

// CommandLine renders a command for logs and error messages.
func (c Command) CommandLine() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// HostExecutor runs processes on the host with os/exec.
type HostExecutor struct{}

func NewHostExecutor() *HostExecutor {
	return &HostExecutor{}
}

func (HostExecutor) Execute(c Command) (Result, error) {
	logger.Log.Debugf("Executing: %s", c.CommandLine())

	cmd := exec.Command(c.Name, c.Args...)
	cmd.Dir = c.WorkingDirectory
	if len(c.EnvironmentVariables) > 0 {
		cmd.Env = c.EnvironmentVariables
	}

	stdoutBuffer := &bytes.Buffer{}
	stderrBuffer := &bytes.Buffer{}
	stderrLog := newLineLogWriter(c.StderrLogLevel)
	cmd.Stderr = io.MultiWriter(stderrBuffer, stderrLog)

	var stdoutLog *lineLogWriter
	if c.Stdout != nil {
		cmd.Stdout = c.Stdout
	} else {
		stdoutLog = newLineLogWriter(c.StdoutLogLevel)
		cmd.Stdout = io.MultiWriter(stdoutBuffer, stdoutLog)
	}

	err := cmd.Run()

	stderrLog.Flush()
	if stdoutLog != nil {
		stdoutLog.Flush()
	}

	result := Result{
		ExitCode: cmd.ProcessState.ExitCode(),
		Stdout:   stdoutBuffer.String(),
		Stderr:   stderrBuffer.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return result, &ExitError{
				CommandLine: c.CommandLine(),
				Result:      result,
				StderrLines: c.ErrorStderrLines,
			}
		}

		return Result{ExitCode: -1}, fmt.Errorf("failed to run (%s):\n%w", c.CommandLine(), err)
	}

	return result, nil
}

func lastLines(text string, count int) string {
	text = strings.TrimRight(text, "\n")
	if text == "" || count <= 0 {
		return ""
	}

	lines := strings.Split(text, "\n")
	if len(lines) > count {
		lines = lines[len(lines)-count:]
	}
	return strings.Join(lines, "\n")
}
