package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

var pqUniqueErr = pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pqUniqueErr))
	assert.True(t, IsUniqueViolation(fmt.Errorf("create syllabus: %w", &pqUniqueErr)))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
	assert.False(t, IsUniqueViolation(nil))
}
