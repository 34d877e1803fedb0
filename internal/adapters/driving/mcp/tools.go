package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/printdesk/internal/core/domain"
)

// plausibleThreshold is the minimum confidence of a candidate passed to the funnel.
const plausibleThreshold = 0.7

// SearchInput is the input schema for the search_manuals tool.
type SearchInput struct {
	Query  string `json:"query" jsonschema:"the problem or question, in Portuguese"`
	Model  string `json:"model,omitempty" jsonschema:"restrict results to this printer model ID, e.g. L3150"`
	TopK   int    `json:"top_k,omitempty" jsonschema:"number of nearest sections to consider (default 15)"`
	Hybrid bool   `json:"hybrid,omitempty" jsonschema:"blend keyword overlap into the score"`
	Relax  bool   `json:"relax,omitempty" jsonschema:"disable the minimum similarity floor"`
}

// SearchOutput is the output schema for the search_manuals tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single manual section.
type SearchResultOutput struct {
	SectionID    string   `json:"section_id"`
	Title        string   `json:"title"`
	Type         string   `json:"type"`
	PrinterModel string   `json:"printer_model"`
	Score        int      `json:"score"`
	Keywords     []string `json:"keywords,omitempty"`
	Content      string   `json:"content"`
}

// ResolveInput is the input schema for the resolve_printer tool.
type ResolveInput struct {
	Text    string            `json:"text" jsonschema:"the user's message mentioning a printer"`
	Answers map[string]string `json:"answers,omitempty" jsonschema:"answers to disambiguation questions keyed by question ID"`
}

// CandidateOutput is one matched printer model.
type CandidateOutput struct {
	ModelID    string  `json:"model_id"`
	Confidence float64 `json:"confidence"`
	Kind       string  `json:"kind"`
}

// QuestionOutput is the next disambiguation question to ask the user.
type QuestionOutput struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Kind    string   `json:"kind"`
	Options []string `json:"options,omitempty"`
}

// ResolveOutput is the output schema for the resolve_printer tool.
type ResolveOutput struct {
	Status     string            `json:"status"`
	ModelID    string            `json:"model_id,omitempty"`
	Candidates []CandidateOutput `json:"candidates"`
	Remaining  []string          `json:"remaining,omitempty"`
	Question   *QuestionOutput   `json:"question,omitempty"`
	Proposed   *PrinterOutput    `json:"proposed,omitempty"`
}

// PrinterOutput is one registry entry.
type PrinterOutput struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name"`
	Series      string   `json:"series,omitempty"`
	Features    []string `json:"features"`
	Description string   `json:"description,omitempty"`
}

// ListPrintersInput is the input schema for the list_printers tool.
type ListPrintersInput struct{}

// ListPrintersOutput is the output schema for the list_printers tool.
type ListPrintersOutput struct {
	Printers []PrinterOutput `json:"printers"`
	Count    int             `json:"count"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_manuals",
		Description: "Search the Epson printer manuals for sections relevant to a problem",
	}, s.handleSearch)

	if s.ports.Resolver != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name: "resolve_printer",
			Description: "Identify the printer model mentioned in a message. " +
				"Returns a question to ask the user when the model is ambiguous.",
		}, s.handleResolve)
	}

	if s.ports.Registry != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "list_printers",
			Description: "List the printer models known to the manual index",
		}, s.handleListPrinters)
	}
}

// handleSearch handles the search_manuals tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	opts := domain.SearchOptions{
		ModelFilter: input.Model,
		TopK:        input.TopK,
		Hybrid:      input.Hybrid,
	}
	if input.Relax {
		opts.MinSimilarity = -1
	}

	results, err := s.ports.Search.Search(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}

	for i := range results {
		sec := results[i].Section
		output.Results[i] = SearchResultOutput{
			SectionID:    sec.ID,
			Title:        sec.Title,
			Type:         string(sec.Type),
			PrinterModel: sec.PrinterModel,
			Score:        results[i].Score,
			Keywords:     sec.Keywords,
			Content:      sec.Content,
		}
	}

	return nil, output, nil
}

// handleResolve handles the resolve_printer tool invocation.
// Without answers it returns the first funnel question for an ambiguous
// text; with answers it runs the funnel to completion.
func (s *Server) handleResolve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ResolveInput,
) (*mcp.CallToolResult, ResolveOutput, error) {
	if s.ports.Resolver == nil {
		return nil, ResolveOutput{}, ErrMissingResolver
	}

	res, err := s.ports.Resolver.Resolve(ctx, input.Text)
	if err != nil {
		return nil, ResolveOutput{}, err
	}

	output := ResolveOutput{
		Candidates: make([]CandidateOutput, len(res.Candidates)),
	}
	for i, c := range res.Candidates {
		output.Candidates[i] = CandidateOutput{
			ModelID:    c.ModelID,
			Confidence: c.Confidence,
			Kind:       string(c.Kind),
		}
	}
	if res.Proposed != nil {
		p := printerOutput(*res.Proposed)
		output.Proposed = &p
	}

	if id, ok := res.Unique(); ok {
		output.Status = string(domain.FunnelResolved)
		output.ModelID = id
		return nil, output, nil
	}

	var ids []string
	for _, c := range res.Plausible(plausibleThreshold) {
		ids = append(ids, c.ModelID)
	}
	if len(ids) == 1 {
		output.Status = string(domain.FunnelResolved)
		output.ModelID = ids[0]
		return nil, output, nil
	}

	if len(input.Answers) > 0 {
		outcome, err := s.ports.Resolver.Disambiguate(ctx, ids, input.Answers)
		if err != nil {
			return nil, ResolveOutput{}, err
		}
		output.Status = string(outcome.Status)
		output.ModelID = outcome.ModelID
		output.Remaining = outcome.Remaining
		return nil, output, nil
	}

	session, err := s.ports.Resolver.StartFunnel(ctx, ids)
	if err != nil {
		return nil, ResolveOutput{}, err
	}
	outcome := session.Outcome()
	output.Status = string(outcome.Status)
	output.ModelID = outcome.ModelID
	output.Remaining = outcome.Remaining
	if q := session.Question(); q != nil {
		output.Question = &QuestionOutput{
			ID:      q.Stage.ID,
			Prompt:  q.Stage.Prompt,
			Kind:    string(q.Stage.Kind),
			Options: q.Options,
		}
	}
	return nil, output, nil
}

// handleListPrinters handles the list_printers tool invocation.
func (s *Server) handleListPrinters(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListPrintersInput,
) (*mcp.CallToolResult, ListPrintersOutput, error) {
	if s.ports.Registry == nil {
		return nil, ListPrintersOutput{}, errors.New("mcp: registry service is not configured")
	}

	models, err := s.ports.Registry.Models(ctx)
	if err != nil {
		return nil, ListPrintersOutput{}, fmt.Errorf("listing printers: %w", err)
	}

	output := ListPrintersOutput{
		Printers: make([]PrinterOutput, len(models)),
		Count:    len(models),
	}
	for i := range models {
		output.Printers[i] = printerOutput(models[i])
	}
	return nil, output, nil
}

func printerOutput(m domain.PrinterModel) PrinterOutput {
	features := make([]string, len(m.Features))
	for i, f := range m.Features {
		features[i] = string(f)
	}
	return PrinterOutput{
		ID:          m.ID,
		DisplayName: m.DisplayName,
		Series:      m.Series,
		Features:    features,
		Description: m.Description,
	}
}
