package reconcile

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, 0},
		{"plain", errors.New("x"), 0},
		{"invalid", InvalidArgument("fileName", "A", "missing"), KindInvalidArgument},
		{"wrapped store fault", fmt.Errorf("pull: %w", StoreFault("query", errors.New("x"))), KindStoreFault},
		{"path", PathNotFound("/tmp/a", "A", nil), KindPathNotFound},
		{"retry", RetryLater("A"), KindRetryLater},
		{"canceled", context.Canceled, KindStopRequested},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestShouldAbort(t *testing.T) {
	assert.True(t, ShouldAbort(StoreFault("update", errors.New("locked"))))
	assert.False(t, ShouldAbort(InvalidArgument("version", "A", "null")))
	assert.False(t, ShouldAbort(DentryFault("rename", "A", errors.New("x"))))
}

func TestError_Message(t *testing.T) {
	err := InvalidArgument("fileName", "A", "field missing")
	assert.Equal(t, "invalid_argument field=fileName cloud_id=A: field missing", err.Error())

	inner := errors.New("locked")
	assert.ErrorIs(t, StoreFault("insert", inner), inner)
}
