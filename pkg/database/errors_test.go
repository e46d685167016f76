package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
}

func TestIsConstraintViolation(t *testing.T) {
	assert.True(t, IsConstraintViolation(&pq.Error{Code: "23503"}))
	assert.True(t, IsConstraintViolation(&pq.Error{Code: "23502"}))
	assert.False(t, IsConstraintViolation(&pq.Error{Code: "42P01"}))
	assert.False(t, IsConstraintViolation(nil))
}

func TestIsUnavailable(t *testing.T) {
	assert.True(t, IsUnavailable(context.DeadlineExceeded))
	assert.True(t, IsUnavailable(fmt.Errorf("query: %w", driver.ErrBadConn)))
	assert.True(t, IsUnavailable(&pq.Error{Code: "08006"}))
	assert.True(t, IsUnavailable(&pq.Error{Code: "57P01"}))
	assert.False(t, IsUnavailable(&pq.Error{Code: "23505"}))
	assert.False(t, IsUnavailable(errors.New("syntax")))
	assert.False(t, IsUnavailable(nil))
}

func TestQuoteLiteral(t *testing.T) {
	assert.Equal(t, "'UTC'", quoteLiteral("UTC"))
	assert.Equal(t, "'O''Brien'", quoteLiteral("O'Brien"))
}
