package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", Lookup("no column %q", "x")))

	assert.True(t, IsLookup(err))
	assert.False(t, IsDuplicate(err))
	assert.Equal(t, CodeLookup, CodeOf(err))
	assert.Contains(t, err.Error(), `no column "x"`)
}

func TestDatabaseKeepsDriverText(t *testing.T) {
	driverErr := errors.New("UNIQUE constraint failed: bdb_files.uuid")
	err := Database("insert file", driverErr)

	assert.True(t, IsDatabase(err))
	assert.ErrorIs(t, err, driverErr)
	assert.Equal(t, "DATABASE: insert file: UNIQUE constraint failed: bdb_files.uuid", err.Error())
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
	assert.False(t, Is(nil, CodeValue))
}

func TestUnknownOperatorMessage(t *testing.T) {
	err := UnknownOperator("xor")
	assert.True(t, IsUnknownOperator(err))
	assert.Equal(t, `UNKNOWN_OPERATOR: unknown operator "xor"`, err.Error())
}
