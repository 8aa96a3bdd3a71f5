package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/regdocs/internal/core/domain"
)

func readRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: uri}}
}

func newResourceServer(t *testing.T) *Server {
	t.Helper()
	ingestion := &mockIngestionService{docs: map[string]*domain.Document{
		"doc-1": {ID: "doc-1", Title: "CO Rules", Jurisdiction: "CO", DocumentTypes: []string{"licensing"},
			Status: domain.StatusCompleted, Content: strPtr("Licenses renew yearly.")},
		"doc-2": {ID: "doc-2", Title: "Pending", Status: domain.StatusUploaded},
	}}
	server, err := NewServer(&Ports{Search: &mockSearchService{}, Ingestion: ingestion})
	require.NoError(t, err)
	return server
}

func TestServer_handleDocumentsResource(t *testing.T) {
	server := newResourceServer(t)

	res, err := server.handleDocumentsResource(context.Background(), readRequest("regdocs://documents"))

	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	var infos []documentInfo
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &infos))
	assert.Len(t, infos, 2)
	for _, info := range infos {
		assert.Equal(t, documentURI(info.ID), info.URI)
	}
}

func TestServer_handleDocumentContentResource(t *testing.T) {
	server := newResourceServer(t)
	ctx := context.Background()

	res, err := server.handleDocumentContentResource(ctx, readRequest("regdocs://documents/doc-1"))
	require.NoError(t, err)
	assert.Equal(t, "Licenses renew yearly.", res.Contents[0].Text)
	assert.Equal(t, "text/plain", res.Contents[0].MIMEType)

	for _, uri := range []string{"regdocs://documents/doc-2", "regdocs://documents/missing", "regdocs://other/doc-1"} {
		_, err := server.handleDocumentContentResource(ctx, readRequest(uri))
		assert.Error(t, err, uri)
	}
}

func TestExtractDocumentID(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"regdocs://documents/abc", "abc"},
		{"regdocs://documents/", ""},
		{"regdocs://documents/a/b", ""},
		{"files://documents/abc", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extractDocumentID(tt.uri), tt.uri)
	}
}
