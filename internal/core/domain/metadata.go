package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Metadata keys stored with every chunk vector record.
const (
	MetaDocumentID        = "documentId"
	MetaChunkIndex        = "chunkIndex"
	MetaPageNumber        = "pageNumber"
	MetaSectionTitle      = "sectionTitle"
	MetaOriginalStartChar = "originalStartChar"
	MetaOriginalEndChar   = "originalEndChar"
	MetaTitle             = "title"
	MetaJurisdiction      = "jurisdiction"
	MetaDocumentTypes     = "documentTypes"
	MetaText              = "text"
	MetaContextBefore     = "contextBefore"
	MetaContextAfter      = "contextAfter"
)

// ChunkMetadata builds the vector record metadata for a chunk of doc.
func ChunkMetadata(doc *Document, c Chunk) map[string]any {
	types := make([]string, len(doc.DocumentTypes))
	copy(types, doc.DocumentTypes)
	return map[string]any{
		MetaDocumentID:        c.DocumentID,
		MetaChunkIndex:        c.Index,
		MetaPageNumber:        c.PageNumber,
		MetaSectionTitle:      c.SectionTitle,
		MetaOriginalStartChar: c.StartChar,
		MetaOriginalEndChar:   c.EndChar,
		MetaTitle:             doc.Title,
		MetaJurisdiction:      doc.Jurisdiction,
		MetaDocumentTypes:     types,
		MetaText:              c.Text,
		MetaContextBefore:     c.ContextBefore,
		MetaContextAfter:      c.ContextAfter,
	}
}

// ChunkFromMetadata reconstructs a chunk from vector record metadata.
// Backends round-trip numbers differently (int, float64, json.Number),
// so numeric fields are decoded leniently.
func ChunkFromMetadata(md map[string]any) (Chunk, error) {
	docID := MetaString(md, MetaDocumentID)
	if docID == "" {
		return Chunk{}, fmt.Errorf("%w: chunk metadata missing %s", ErrInvalidInput, MetaDocumentID)
	}
	return Chunk{
		DocumentID:    docID,
		Index:         MetaInt(md, MetaChunkIndex),
		Text:          MetaString(md, MetaText),
		StartChar:     MetaInt(md, MetaOriginalStartChar),
		EndChar:       MetaInt(md, MetaOriginalEndChar),
		ContextBefore: MetaString(md, MetaContextBefore),
		ContextAfter:  MetaString(md, MetaContextAfter),
		PageNumber:    MetaInt(md, MetaPageNumber),
		SectionTitle:  MetaString(md, MetaSectionTitle),
	}, nil
}

// MetaString returns md[key] as a string, or "" when absent.
func MetaString(md map[string]any, key string) string {
	if v, ok := md[key].(string); ok {
		return v
	}
	return ""
}

// MetaInt returns md[key] as an int, or 0 when absent or not numeric.
func MetaInt(md map[string]any, key string) int {
	switch v := md[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float32:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0
		}
		return int(n)
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// MetaStrings returns md[key] as a string slice. A single string is
// returned as a one-element slice.
func MetaStrings(md map[string]any, key string) []string {
	switch v := md[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}
