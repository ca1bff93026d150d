package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// uploadDocumentTool returns the tool definition for upload_document
func uploadDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "upload_document",
		Description: "Upload a document to the searchable corpus. A document with the same filename is replaced atomically.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"filename": map[string]interface{}{
					"type":        "string",
					"description": "Unique name identifying the document",
				},
				"content": map[string]interface{}{
					"type":        "string",
					"description": "UTF-8 document content",
				},
				"format": map[string]interface{}{
					"type":        "string",
					"description": "Document format. Markdown is indexed verbatim; JSON contributes only its string leaves.",
					"enum":        []string{"txt", "md", "json"},
					"default":     "txt",
				},
			},
			Required: []string{"filename", "content"},
		},
	}
}

// searchTool returns the tool definition for search
func searchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search",
		Description: "Search the corpus with natural language or keyword queries",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or keywords)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     5,
					"minimum":     1,
					"maximum":     100,
				},
				"mode": map[string]interface{}{
					"type":        "string",
					"description": "Search strategy: hybrid (all strategies fused), dense (vector only), sparse (BM25 only), or trigram (fuzzy matching only)",
					"enum":        []string{"hybrid", "dense", "sparse", "trigram"},
					"default":     "hybrid",
				},
			},
			Required: []string{"query"},
		},
	}
}

// listDocumentsTool returns the tool definition for list_documents
func listDocumentsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_documents",
		Description: "List all documents in the corpus with their metadata",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// deleteDocumentTool returns the tool definition for delete_document
func deleteDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_document",
		Description: "Delete a document and all of its chunks by filename",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"filename": map[string]interface{}{
					"type":        "string",
					"description": "Filename of the document to delete",
				},
			},
			Required: []string{"filename"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Query corpus statistics and server health",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
