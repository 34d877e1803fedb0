package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/printdesk/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for printdesk resources.
	uriScheme = "printdesk://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for listing printers.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "printers",
		Name:        "printers",
		Description: "All printer models in the registry",
		MIMEType:    "application/json",
	}, s.handlePrintersResource)

	// Template for a single printer.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "printers/{modelId}",
		Name:        "printer",
		Description: "One printer model with its aliases and features",
		MIMEType:    "application/json",
	}, s.handlePrinterResource)
}

// handlePrintersResource returns every registry entry.
func (s *Server) handlePrintersResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Registry == nil {
		return jsonResource(req.Params.URI, "[]"), nil
	}

	models, err := s.ports.Registry.Models(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing printers: %w", err)
	}
	if models == nil {
		models = []domain.PrinterModel{}
	}

	data, err := json.MarshalIndent(models, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling printers: %w", err)
	}
	return jsonResource(req.Params.URI, string(data)), nil
}

// handlePrinterResource returns one registry entry.
func (s *Server) handlePrinterResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Registry == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	// Extract modelId from URI: printdesk://printers/{modelId}
	id := extractModelID(req.Params.URI)
	if id == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	model, err := s.ports.Registry.GetModel(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting printer: %w", err)
	}

	data, err := json.MarshalIndent(model, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling printer: %w", err)
	}
	return jsonResource(req.Params.URI, string(data)), nil
}

func jsonResource(uri, text string) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     text,
		}},
	}
}

// extractModelID extracts the model ID from a URI like printdesk://printers/{modelId}.
func extractModelID(uri string) string {
	const prefix = uriScheme + "printers/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
