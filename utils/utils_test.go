package utils

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsPermanent(t *testing.T) {
	perm := PermError("bad input")
	assert.True(t, IsPermanent(perm))
	assert.True(t, IsPermanent(fmt.Errorf("error in f: %w", perm)))
	assert.False(t, IsPermanent(errors.New("flaky")))
	assert.False(t, IsPermanent(nil))
}

func TestIsRetryablePGError(t *testing.T) {
	assert.True(t, IsRetryablePGError(&pgconn.PgError{Code: "40001"}))
	assert.True(t, IsRetryablePGError(fmt.Errorf("error in UPSERT: %w", &pgconn.PgError{Code: "40P01"})))
	assert.False(t, IsRetryablePGError(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsRetryablePGError(context.Canceled))
	assert.False(t, IsRetryablePGError(errors.New("syntax")))
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("ICETABLE_TEST_STR", "x")
	t.Setenv("ICETABLE_TEST_INT", "42")
	assert.Equal(t, "x", GetEnvOrDefault("ICETABLE_TEST_STR", "y"))
	assert.Equal(t, "y", GetEnvOrDefault("ICETABLE_TEST_MISSING", "y"))
	assert.Equal(t, int64(42), GetEnvOrDefaultInt("ICETABLE_TEST_INT", 1))
	assert.Equal(t, int64(1), GetEnvOrDefaultInt("ICETABLE_TEST_MISSING", 1))
}

func TestIDs(t *testing.T) {
	id := GenKSortedID("ses_")
	assert.True(t, strings.HasPrefix(id, "ses_"))
	assert.Len(t, id, len("ses_")+27)
	assert.Len(t, GenRandomID(""), 22)
	assert.NotEqual(t, GenRandomID(""), GenRandomID(""))
}

func TestPtrHelpers(t *testing.T) {
	assert.Equal(t, 3, *Ptr(3))
	assert.Equal(t, 5, Deref(nil, 5))
	assert.Equal(t, 3, Deref(Ptr(3), 5))
	assert.Equal(t, []string{}, ArrayOrEmpty[string](nil))
	assert.True(t, ContainsString([]string{"a", "b"}, "b"))
}
