package mcp

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Resource URIs.
const (
	MetricsResourceURI = "amansearch://metrics"
	StatusResourceURI  = "amansearch://status"
)

func (s *Server) registerResources() {
	if s.metrics != nil {
		s.mcp.AddResource(&mcp.Resource{
			Name:        "query_metrics",
			URI:         MetricsResourceURI,
			Description: "Search telemetry: query counts, latency distribution, provider failures and top terms",
			MIMEType:    "application/json",
		}, s.handleMetricsResource)
	}

	s.mcp.AddResource(&mcp.Resource{
		Name:        "search_status",
		URI:         StatusResourceURI,
		Description: "Provider availability, embedder, cache and routing table",
		MIMEType:    "application/json",
	}, s.handleStatusResource)
}

func (s *Server) handleMetricsResource(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	if s.metrics == nil {
		return nil, NewResourceNotFoundError(MetricsResourceURI)
	}
	return jsonResource(MetricsResourceURI, s.metrics.Snapshot())
}

func (s *Server) handleStatusResource(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return jsonResource(StatusResourceURI, s.currentBackend().Status(ctx))
}

// ReadResource reads a resource by URI without a transport.
func (s *Server) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	switch uri {
	case MetricsResourceURI:
		return s.handleMetricsResource(ctx, nil)
	case StatusResourceURI:
		return s.handleStatusResource(ctx, nil)
	default:
		return nil, NewResourceNotFoundError(uri)
	}
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, MapError(err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(data),
			},
		},
	}, nil
}
