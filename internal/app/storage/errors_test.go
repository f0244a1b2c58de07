package storage

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapAndIs(t *testing.T) {
	cause := errors.New("constraint failed")
	err := Wrap("upsert constant", KindForeignKey, cause)

	assert.ErrorIs(t, err, ErrForeignKey)
	assert.NotErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "storage upsert constant: foreign_key: constraint failed", err.Error())

	wrapped := fmt.Errorf("service: %w", err)
	assert.ErrorIs(t, wrapped, ErrForeignKey)
	assert.Equal(t, KindForeignKey, Classify(wrapped))

	assert.NoError(t, Wrap("op", KindUnknown, nil))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"plain", errors.New("boom"), KindUnknown},
		{"bad conn", driver.ErrBadConn, KindUnavailable},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), KindUnavailable},
		{"classified", Wrap("op", KindUnavailable, errors.New("x")), KindUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "unavailable", KindUnavailable.String())
	assert.Equal(t, "unknown", Kind(42).String())
	assert.Equal(t, "storage: foreign_key", ErrForeignKey.Error())
}
