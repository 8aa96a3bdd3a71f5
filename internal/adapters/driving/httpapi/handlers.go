package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/custodia-labs/regdocs/internal/core/domain"
	"github.com/custodia-labs/regdocs/internal/core/ports/driving"
)

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// uploadDocument accepts either a multipart file upload or a JSON body
// naming a URL. The document is stored and ingestion starts in the
// background; clients poll the status route.
func (s *Server) uploadDocument(c echo.Context) error {
	ctx := c.Request().Context()
	user := c.Request().Header.Get(UserHeader)

	var req driving.UploadRequest
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		r, err := s.readMultipart(c)
		if err != nil {
			return err
		}
		req = r
	} else {
		var body urlUploadRequest
		if err := c.Bind(&body); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body")
		}
		if strings.TrimSpace(body.URL) == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "url is required")
		}
		req = driving.UploadRequest{
			URL:           strings.TrimSpace(body.URL),
			Title:         body.Title,
			Jurisdiction:  body.Jurisdiction,
			DocumentTypes: body.DocumentTypes,
		}
	}
	req.UserID = user

	doc, err := s.ports.Ingestion.Upload(ctx, req)
	if err != nil {
		return err
	}
	s.ports.Ingestion.Submit(ctx, doc.ID)
	return c.JSON(http.StatusAccepted, toDocumentDTO(doc))
}

func (s *Server) readMultipart(c echo.Context) (driving.UploadRequest, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return driving.UploadRequest{}, echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	if fh.Size > s.maxBytes {
		return driving.UploadRequest{}, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file is too large")
	}
	f, err := fh.Open()
	if err != nil {
		return driving.UploadRequest{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, s.maxBytes+1))
	if err != nil {
		return driving.UploadRequest{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(content)) > s.maxBytes {
		return driving.UploadRequest{}, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file is too large")
	}

	form, err := c.MultipartForm()
	if err != nil {
		return driving.UploadRequest{}, echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	return driving.UploadRequest{
		Title:         c.FormValue("title"),
		Filename:      fh.Filename,
		MIMEType:      fh.Header.Get(echo.HeaderContentType),
		Content:       content,
		Jurisdiction:  c.FormValue("jurisdiction"),
		DocumentTypes: splitList(form.Value["document_types"]),
	}, nil
}

func (s *Server) listDocuments(c echo.Context) error {
	docs, err := s.ports.Ingestion.List(c.Request().Context())
	if err != nil {
		return err
	}
	out := make([]documentDTO, len(docs))
	for i := range docs {
		out[i] = toDocumentDTO(&docs[i])
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) getDocument(c echo.Context) error {
	doc, err := s.ports.Ingestion.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toDocumentDTO(doc))
}

func (s *Server) documentStatus(c echo.Context) error {
	st, err := s.ports.Ingestion.Status(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toStatusDTO(st))
}

func (s *Server) deleteDocument(c echo.Context) error {
	if err := s.ports.Ingestion.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) reprocessDocument(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	if err := s.ports.Ingestion.Reprocess(ctx, id); err != nil {
		return err
	}
	st, err := s.ports.Ingestion.Status(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, toStatusDTO(st))
}

func (s *Server) search(c echo.Context) error {
	var body searchRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body")
	}
	resp, err := s.ports.Search.Search(c.Request().Context(), body.Query, domain.SearchOptions{
		TopK:          body.TopK,
		MinSimilarity: body.MinSimilarity,
		Jurisdictions: body.Jurisdictions,
		DocumentTypes: body.DocumentTypes,
		UserID:        c.Request().Header.Get(UserHeader),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSearchResponseDTO(resp))
}

func (s *Server) history(c echo.Context) error {
	kind := domain.HistoryKind(c.QueryParam("kind"))
	switch kind {
	case "", domain.HistoryKindSearch, domain.HistoryKindUpload, domain.HistoryKindBookmark:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unknown history kind")
	}
	entries, err := s.ports.History.Recent(c.Request().Context(), c.Param("user"), kind)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	return c.JSON(http.StatusOK, entries)
}

func (s *Server) bookmark(c echo.Context) error {
	var body bookmarkRequest
	if err := c.Bind(&body); err != nil || body.DocumentID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "document_id is required")
	}
	if err := s.ports.History.Bookmark(c.Request().Context(), c.Param("user"), body.DocumentID); err != nil {
		return err
	}
	return c.NoContent(http.StatusCreated)
}

func (s *Server) verticals(c echo.Context) error {
	v, err := s.ports.Reference.Verticals(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}

func (s *Server) documentTypes(c echo.Context) error {
	t, err := s.ports.Reference.DocumentTypes(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

// splitList accepts repeated values and comma separated lists.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
