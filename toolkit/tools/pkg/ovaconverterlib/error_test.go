// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package ovaconverterlib

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func errorNames(err error) []string {
	names := []string(nil)
	for _, named := range GetAllOvaConverterErrors(err) {
		names = append(names, named.Name())
	}
	return names
}

func TestGetAllOvaConverterErrorsOrder(t *testing.T) {
	err := fmt.Errorf("stage (customize_guest) failed:\n%w", fmt.Errorf("%w:\n%w", ErrCustomization,
		fmt.Errorf("%w:\n%w", ErrMount, errors.New("permission denied"))))

	assert.Equal(t, []string{"Guest:Customization", "Guest:Mount"}, errorNames(err))
}

func TestGetAllOvaConverterErrorsPlainError(t *testing.T) {
	assert.Empty(t, GetAllOvaConverterErrors(errors.New("plain")))
	assert.Empty(t, GetAllOvaConverterErrors(nil))
}

func TestOvaConverterErrorMessage(t *testing.T) {
	assert.Equal(t, "scratch directory does not exist", ErrScratchDirNotFound.Error())
	assert.Equal(t, "Validation:ScratchDirNotFound", ErrScratchDirNotFound.Name())
}
