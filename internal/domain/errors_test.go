package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesSentinelOfSameKind(t *testing.T) {
	err := NewError(KindReadinessTimeout, "wait", context.DeadlineExceeded)

	assert.True(t, errors.Is(err, ErrReadinessTimeout))
	assert.False(t, errors.Is(err, ErrCaptureFailure))
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "cause must stay reachable")

	wrapped := fmt.Errorf("render: %w", err)
	assert.True(t, errors.Is(wrapped, ErrReadinessTimeout))
	assert.Equal(t, KindReadinessTimeout, KindOf(wrapped))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"typed", NewError(KindResourceMissing, "font", errors.New("nope")), KindResourceMissing},
		{"sentinel joined", errors.Join(errors.New("ctx"), ErrEngineLaunchFailure), KindEngineLaunchFailure},
		{"unknown", errors.New("boom"), KindCaptureFailure},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, KindOf(tc.err))
		})
	}
}

func TestError_MessageWithoutCause(t *testing.T) {
	err := NewError(KindCaptureFailure, "print", nil)
	assert.Equal(t, "print: page capture failed", err.Error())
}

func TestParseFontStrategy(t *testing.T) {
	for _, fs := range FontStrategies {
		got, err := ParseFontStrategy(string(fs))
		assert.NoError(t, err)
		assert.Equal(t, fs, got)
	}
	_, err := ParseFontStrategy("inline-svg")
	assert.Error(t, err)
}
