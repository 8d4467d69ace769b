// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package ovaconverterlib

import (
	"errors"
)

type OvaConverterError struct {
	name    string
	message string
}

func NewOvaConverterError(name string, message string) *OvaConverterError {
	return &OvaConverterError{
		name:    name,
		message: message,
	}
}

func (e *OvaConverterError) Name() string {
	return e.name
}

func (e *OvaConverterError) Error() string {
	return e.message
}

// GetAllOvaConverterErrors walks the error tree of err depth-first and returns every
// named error found, outermost first.
func GetAllOvaConverterErrors(err error) []*OvaConverterError {
	var found []*OvaConverterError
	collectOvaConverterErrors(err, &found)
	return found
}

func collectOvaConverterErrors(err error, found *[]*OvaConverterError) {
	if err == nil {
		return
	}

	var named *OvaConverterError
	if errors.As(err, &named) && named == err {
		*found = append(*found, named)
		return
	}

	switch wrapped := err.(type) {
	case interface{ Unwrap() []error }:
		for _, inner := range wrapped.Unwrap() {
			collectOvaConverterErrors(inner, found)
		}

	case interface{ Unwrap() error }:
		collectOvaConverterErrors(wrapped.Unwrap(), found)
	}
}
