package gemini

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/custodia-labs/printdesk/internal/core/domain"
	"github.com/custodia-labs/printdesk/internal/core/ports/driven"
)

func TestNew_RequiresAPIKey(t *testing.T) {
	b, err := New(context.Background(), Config{})
	require.ErrorIs(t, err, ErrMissingAPIKey)
	assert.Nil(t, b)
}

func TestTaskType(t *testing.T) {
	assert.Equal(t, genai.TaskTypeRetrievalQuery, TaskType(driven.RoleQuery))
	assert.Equal(t, genai.TaskTypeRetrievalDocument, TaskType(driven.RoleDocument))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		code      codes.Code
		retriable bool
	}{
		{"quota", codes.ResourceExhausted, true},
		{"unavailable", codes.Unavailable, true},
		{"deadline", codes.DeadlineExceeded, true},
		{"bad key", codes.PermissionDenied, false},
		{"bad request", codes.InvalidArgument, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(status.Error(tt.code, "boom"))
			assert.Equal(t, tt.retriable, domain.IsRetriable(err))
		})
	}
}
