package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/printdesk/internal/core/domain"
)

func TestServer_handleSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns search results", func(t *testing.T) {
		mockSearch := &mockSearchService{
			results: []domain.SearchResult{
				{
					Section: domain.Section{
						ID:           "L3150_troubleshooting_0",
						Title:        "Solução de problemas: papel atolado",
						Content:      "Remova o papel atolado com cuidado.",
						Type:         domain.SectionTroubleshooting,
						Keywords:     []string{"papel"},
						PrinterModel: "L3150",
					},
					Score:      82,
					Similarity: 0.82,
				},
			},
		}

		server, err := NewServer(&Ports{Search: mockSearch})
		require.NoError(t, err)

		input := SearchInput{Query: "papel atolado", Model: "l3150", TopK: 5}
		_, output, err := server.handleSearch(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, 1, output.Count)
		require.Len(t, output.Results, 1)
		got := output.Results[0]
		assert.Equal(t, "L3150_troubleshooting_0", got.SectionID)
		assert.Equal(t, "troubleshooting", got.Type)
		assert.Equal(t, "L3150", got.PrinterModel)
		assert.Equal(t, 82, got.Score)
		assert.Equal(t, []string{"papel"}, got.Keywords)

		assert.Equal(t, "l3150", mockSearch.lastOpts.ModelFilter)
		assert.Equal(t, 5, mockSearch.lastOpts.TopK)
		assert.Zero(t, mockSearch.lastOpts.MinSimilarity)
	})

	t.Run("relax disables the floor", func(t *testing.T) {
		mockSearch := &mockSearchService{}
		server, err := NewServer(&Ports{Search: mockSearch})
		require.NoError(t, err)

		_, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "wifi", Relax: true, Hybrid: true})

		require.NoError(t, err)
		assert.Equal(t, 0, output.Count)
		assert.Negative(t, mockSearch.lastOpts.MinSimilarity)
		assert.True(t, mockSearch.lastOpts.Hybrid)
	})

	t.Run("returns error on search failure", func(t *testing.T) {
		mockSearch := &mockSearchService{
			err: errors.New("search failed"),
		}

		server, err := NewServer(&Ports{Search: mockSearch})
		require.NoError(t, err)

		_, _, err = server.handleSearch(ctx, nil, SearchInput{Query: "test"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "search failed")
	})
}

func TestServer_handleResolve(t *testing.T) {
	ctx := context.Background()
	server, err := NewServer(newSeededPorts(t))
	require.NoError(t, err)

	t.Run("unique exact alias resolves", func(t *testing.T) {
		_, out, err := server.handleResolve(ctx, nil, ResolveInput{Text: "minha L3150 não liga"})
		require.NoError(t, err)
		assert.Equal(t, "resolved", out.Status)
		assert.Equal(t, "L3150", out.ModelID)
		require.NotEmpty(t, out.Candidates)
		assert.Equal(t, "exact_alias", out.Candidates[0].Kind)
		assert.Nil(t, out.Question)
	})

	t.Run("ambiguous text returns the first question", func(t *testing.T) {
		_, out, err := server.handleResolve(ctx, nil, ResolveInput{Text: "l3150 ou l4150"})
		require.NoError(t, err)
		assert.Equal(t, "pending", out.Status)
		assert.Equal(t, []string{"L3150", "L4150"}, out.Remaining)
		require.NotNil(t, out.Question)
		assert.Equal(t, "duplex", out.Question.ID)
		assert.Equal(t, "boolean", out.Question.Kind)
	})

	t.Run("answers finish the funnel", func(t *testing.T) {
		_, out, err := server.handleResolve(ctx, nil, ResolveInput{
			Text:    "l3150 ou l4150",
			Answers: map[string]string{"duplex": "sim"},
		})
		require.NoError(t, err)
		assert.Equal(t, "resolved", out.Status)
		assert.Equal(t, "L4150", out.ModelID)
	})

	t.Run("unknown model number is proposed", func(t *testing.T) {
		_, out, err := server.handleResolve(ctx, nil, ResolveInput{Text: "epson l8050"})
		require.NoError(t, err)
		require.NotNil(t, out.Proposed)
		assert.Equal(t, "L8050", out.Proposed.ID)
	})

	t.Run("missing resolver", func(t *testing.T) {
		bare, err := NewServer(&Ports{Search: &mockSearchService{}})
		require.NoError(t, err)
		_, _, err = bare.handleResolve(ctx, nil, ResolveInput{Text: "l3150"})
		assert.ErrorIs(t, err, ErrMissingResolver)
	})
}

func TestServer_handleListPrinters(t *testing.T) {
	server, err := NewServer(newSeededPorts(t))
	require.NoError(t, err)

	_, out, err := server.handleListPrinters(context.Background(), nil, ListPrintersInput{})
	require.NoError(t, err)
	assert.Equal(t, 9, out.Count)
	assert.Equal(t, "L1300", out.Printers[0].ID)
	assert.Contains(t, out.Printers[0].Features, "a3")
}
