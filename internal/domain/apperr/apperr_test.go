package apperr

import (
	"fmt"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMissing(t *testing.T) {
	err := Missing("city")
	assert.Equal(t, "city", err.Field)
	assert.Equal(t, "Missing required field: city", err.Error())
}

func TestNotFoundError_Message(t *testing.T) {
	assert.Equal(t, "order not found", (&NotFoundError{Resource: "order", ID: 7}).Error())
	assert.Equal(t, "Customer not found", (&NotFoundError{Resource: "customer", Message: "Customer not found"}).Error())
}

func TestPersistenceError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	var err error = &PersistenceError{Op: "place order", Err: fmt.Errorf("insert order: %w", cause)}

	require.ErrorIs(t, err, cause)
	assert.Equal(t, "place order: insert order: connection reset", err.Error())

	var pe *PersistenceError
	require.ErrorAs(t, fmt.Errorf("wrapped: %w", err), &pe)
	assert.Equal(t, "place order", pe.Op)
}
