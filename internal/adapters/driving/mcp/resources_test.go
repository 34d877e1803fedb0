package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/printdesk/internal/core/domain"
)

func TestExtractModelID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{
			name:     "valid printer URI",
			uri:      "printdesk://printers/L3150",
			expected: "L3150",
		},
		{
			name:     "invalid prefix",
			uri:      "file://printers/L3150",
			expected: "",
		},
		{
			name:     "nested path",
			uri:      "printdesk://printers/L3150/manual",
			expected: "",
		},
		{
			name:     "empty URI",
			uri:      "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractModelID(tt.uri))
		})
	}
}

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handlePrintersResource(t *testing.T) {
	ctx := context.Background()

	t.Run("nil registry returns empty list", func(t *testing.T) {
		server, err := NewServer(&Ports{Search: &mockSearchService{}})
		require.NoError(t, err)

		result, err := server.handlePrintersResource(ctx, makeReadResourceRequest("printdesk://printers"))
		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})

	t.Run("lists registry entries", func(t *testing.T) {
		server, err := NewServer(newSeededPorts(t))
		require.NoError(t, err)

		result, err := server.handlePrintersResource(ctx, makeReadResourceRequest("printdesk://printers"))
		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)

		var models []domain.PrinterModel
		require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &models))
		assert.Len(t, models, 9)
	})
}

func TestServer_handlePrinterResource(t *testing.T) {
	ctx := context.Background()
	server, err := NewServer(newSeededPorts(t))
	require.NoError(t, err)

	t.Run("returns one printer", func(t *testing.T) {
		result, err := server.handlePrinterResource(ctx, makeReadResourceRequest("printdesk://printers/L5190"))
		require.NoError(t, err)

		var model domain.PrinterModel
		require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &model))
		assert.Equal(t, "L5190", model.ID)
		assert.True(t, model.HasFeature(domain.FeatureFax))
	})

	t.Run("unknown printer is not found", func(t *testing.T) {
		_, err := server.handlePrinterResource(ctx, makeReadResourceRequest("printdesk://printers/L9999"))
		assert.Error(t, err)
	})

	t.Run("malformed URI is not found", func(t *testing.T) {
		_, err := server.handlePrinterResource(ctx, makeReadResourceRequest("printdesk://models/L5190"))
		assert.Error(t, err)
	})

	t.Run("nil registry is not found", func(t *testing.T) {
		bare, err := NewServer(&Ports{Search: &mockSearchService{}})
		require.NoError(t, err)
		_, err = bare.handlePrinterResource(ctx, makeReadResourceRequest("printdesk://printers/L5190"))
		assert.Error(t, err)
	})
}
