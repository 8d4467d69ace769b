// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package shell

import (
	"io"

	"github.com/sirupsen/logrus"
)

type ExecBuilder struct {
	executor Executor
	command  Command
}

func NewExecBuilder(executor Executor, name string, args ...string) ExecBuilder {
	return ExecBuilder{
		executor: executor,
		command: Command{
			Name:             name,
			Args:             args,
			StdoutLogLevel:   logrus.DebugLevel,
			StderrLogLevel:   logrus.DebugLevel,
			ErrorStderrLines: 5,
		},
	}
}

func (b ExecBuilder) WorkingDirectory(dir string) ExecBuilder {
	b.command.WorkingDirectory = dir
	return b
}

func (b ExecBuilder) EnvironmentVariables(env []string) ExecBuilder {
	b.command.EnvironmentVariables = env
	return b
}

func (b ExecBuilder) Stdout(w io.Writer) ExecBuilder {
	b.command.Stdout = w
	return b
}

func (b ExecBuilder) LogLevel(stdoutLevel logrus.Level, stderrLevel logrus.Level) ExecBuilder {
	b.command.StdoutLogLevel = stdoutLevel
	b.command.StderrLogLevel = stderrLevel
	return b
}

func (b ExecBuilder) ErrorStderrLines(lines int) ExecBuilder {
	b.command.ErrorStderrLines = lines
	return b
}

func (b ExecBuilder) Command() Command {
	return b.command
}

func (b ExecBuilder) Execute() error {
	_, err := b.executor.Execute(b.command)
	return err
}

func (b ExecBuilder) ExecuteCaptureOutput() (string, string, error) {
	result, err := b.executor.Execute(b.command)
	return result.Stdout, result.Stderr, err
}
