// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package testutils

import (
	"slices"
	"sync"

	"github.com/ppc64le-cloud/powervs-image-tools/toolkit/tools/internal/shell"
)

type CommandHandler func(cmd shell.Command) (shell.Result, error)

type commandMatcher struct {
	name       string
	argsPrefix []string
	handler    CommandHandler
}

// RecordingExecutor is a shell.Executor that records every command and answers
// through registered handlers. Unmatched commands succeed with empty output.
type RecordingExecutor struct {
	lock     sync.Mutex
	calls    []shell.Command
	matchers []commandMatcher
}

func NewRecordingExecutor() *RecordingExecutor {
	return &RecordingExecutor{}
}

// On registers a handler for commands with the given name whose arguments start with argsPrefix.
// Handlers registered first win.
func (e *RecordingExecutor) On(name string, argsPrefix []string, handler CommandHandler) *RecordingExecutor {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.matchers = append(e.matchers, commandMatcher{name: name, argsPrefix: argsPrefix, handler: handler})
	return e
}

func (e *RecordingExecutor) Execute(cmd shell.Command) (shell.Result, error) {
	e.lock.Lock()
	e.calls = append(e.calls, cmd)
	matchers := slices.Clone(e.matchers)
	e.lock.Unlock()

	for _, matcher := range matchers {
		if matcher.name != cmd.Name {
			continue
		}
		if len(cmd.Args) < len(matcher.argsPrefix) || !slices.Equal(cmd.Args[:len(matcher.argsPrefix)], matcher.argsPrefix) {
			continue
		}
		return matcher.handler(cmd)
	}

	return shell.Result{}, nil
}

func (e *RecordingExecutor) Calls() []shell.Command {
	e.lock.Lock()
	defer e.lock.Unlock()
	return slices.Clone(e.calls)
}

// CommandLines returns the recorded commands rendered as single strings.
func (e *RecordingExecutor) CommandLines() []string {
	calls := e.Calls()
	lines := make([]string, 0, len(calls))
	for _, call := range calls {
		lines = append(lines, call.CommandLine())
	}
	return lines
}

// CallsNamed returns the recorded commands whose binary is name.
func (e *RecordingExecutor) CallsNamed(name string) []shell.Command {
	var matches []shell.Command
	for _, call := range e.Calls() {
		if call.Name == name {
			matches = append(matches, call)
		}
	}
	return matches
}

func Respond(stdout string) CommandHandler {
	return func(cmd shell.Command) (shell.Result, error) {
		return shell.Result{Stdout: stdout}, nil
	}
}

func FailWith(exitCode int, stderr string) CommandHandler {
	return func(cmd shell.Command) (shell.Result, error) {
		result := shell.Result{ExitCode: exitCode, Stderr: stderr}
		return result, &shell.ExitError{CommandLine: cmd.CommandLine(), Result: result, StderrLines: cmd.ErrorStderrLines}
	}
}
