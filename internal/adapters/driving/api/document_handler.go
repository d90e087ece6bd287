package api

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driving"
)

// DocumentHandler serves the /documents routes.
type DocumentHandler struct {
	ingest driving.IngestService
	docs   driving.DocumentService
	query  driving.QueryService

	// ingestRoot bounds POST /documents/ingest. Empty disables it.
	ingestRoot string
}

func NewDocumentHandler(ingest driving.IngestService, docs driving.DocumentService, query driving.QueryService, ingestRoot string) *DocumentHandler {
	return &DocumentHandler{
		ingest:     ingest,
		docs:       docs,
		query:      query,
		ingestRoot: ingestRoot,
	}
}

// HandleUpload accepts a multipart "file" with optional "format", a parser
// given as "parser" or "parser_plugin_id" (form field or query string)
// and a JSON "metadata" object. New uploads answer 202; a duplicate of an
// existing document answers 200 with that document.
func (h *DocumentHandler) HandleUpload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return ErrBadRequest("multipart field 'file' is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}

	var metadata map[string]any
	if raw := c.FormValue("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
			return NewValidationError(map[string]string{"metadata": "must be a JSON object"})
		}
	}

	return h.submit(c, driving.IngestRequest{
		Name:     fileHeader.Filename,
		Format:   firstOf(c.FormValue("format"), c.Query("format")),
		ParserID: firstOf(c.FormValue("parser"), c.FormValue("parser_plugin_id"), c.Query("parser_plugin_id")),
		Content:  data,
		Metadata: metadata,
	})
}

// HandleIngest reads a file from the server's ingest root. Paths are taken
// relative to the root; absolute paths must lie inside it.
func (h *DocumentHandler) HandleIngest(c *fiber.Ctx) error {
	if h.ingestRoot == "" {
		return NewError(fiber.StatusForbidden, "ingesting server paths is disabled")
	}

	var params IngestParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest("invalid JSON request")
	}
	if errs := validateStruct(&params); len(errs) > 0 {
		return NewValidationError(errs)
	}

	path, err := resolveUnder(h.ingestRoot, params.FilePath)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewError(fiber.StatusNotFound, "file not found: "+params.FilePath)
	}
	if err != nil {
		return err
	}

	return h.submit(c, driving.IngestRequest{
		Name:     filepath.Base(path),
		Format:   params.Format,
		ParserID: params.ParserPluginID,
		Content:  data,
		Metadata: params.Metadata,
	})
}

func (h *DocumentHandler) submit(c *fiber.Ctx, req driving.IngestRequest) error {
	ref, err := h.ingest.Ingest(c.UserContext(), req)
	if err != nil {
		return err
	}
	doc, err := h.docs.Get(c.UserContext(), ref.ID)
	if err != nil {
		return err
	}

	status := fiber.StatusAccepted
	if ref.Duplicate && doc.Status != domain.StatusPending {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(UploadResponse{
		DocumentResponse: newDocumentResponse(doc),
		Duplicate:        ref.Duplicate,
	})
}

// resolveUnder joins p onto root and rejects anything that escapes it.
func resolveUnder(root, p string) (string, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(root, p)
	}
	p = filepath.Clean(p)

	rel, err := filepath.Rel(root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", NewError(fiber.StatusForbidden, "path is outside the ingest root")
	}
	return p, nil
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (h *DocumentHandler) HandleList(c *fiber.Ctx) error {
	docs, err := h.docs.List(c.UserContext(), domain.ListFilter{Status: domain.Status(c.Query("status"))})
	if err != nil {
		return err
	}

	out := make([]DocumentResponse, len(docs))
	for i := range docs {
		out[i] = newDocumentResponse(&docs[i])
	}
	return c.JSON(fiber.Map{"documents": out, "total": len(out)})
}

func (h *DocumentHandler) HandleGet(c *fiber.Ctx) error {
	doc, err := h.docs.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(newDocumentResponse(doc))
}

func (h *DocumentHandler) HandleContent(c *fiber.Ctx) error {
	content, err := h.docs.GetContent(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.SendString(content)
}

func (h *DocumentHandler) HandleChunks(c *fiber.Ctx) error {
	chunks, err := h.docs.GetChunks(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}

	type chunkResponse struct {
		Index   int    `json:"index"`
		Content string `json:"content"`
		Start   int    `json:"start"`
		End     int    `json:"end"`
		Page    *int   `json:"page,omitempty"`
	}
	out := make([]chunkResponse, len(chunks))
	for i, ch := range chunks {
		out[i] = chunkResponse{Index: ch.Index, Content: ch.Content, Start: ch.Start, End: ch.End, Page: ch.Page}
	}
	return c.JSON(fiber.Map{"chunks": out, "total": len(out)})
}

func (h *DocumentHandler) HandleDelete(c *fiber.Ctx) error {
	if err := h.docs.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Document deleted successfully"})
}

func (h *DocumentHandler) HandleResubmit(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.docs.Resubmit(c.UserContext(), id); err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(RefResponse{ID: id, Status: string(domain.StatusPending)})
}

func (h *DocumentHandler) HandleSummary(c *fiber.Ctx) error {
	summary, err := h.query.Summarize(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(SummaryResponse{
		DocumentID:  summary.DocumentID,
		Summary:     summary.Summary,
		KeyPoints:   summary.KeyPoints,
		GeneratedAt: time.Now().UTC(),
	})
}

func (h *DocumentHandler) HandleAsk(c *fiber.Ctx) error {
	_, result, err := h.ask(c)
	if err != nil {
		return err
	}
	return c.JSON(NewQueryResponse(result))
}

// HandleQA answers like HandleAsk, with sources rendered as labels and a
// confidence in place of the full passages.
func (h *DocumentHandler) HandleQA(c *fiber.Ctx) error {
	params, result, err := h.ask(c)
	if err != nil {
		return err
	}
	return c.JSON(newQAResponse(params.Question, result))
}

func (h *DocumentHandler) ask(c *fiber.Ctx) (*AskParams, *domain.QueryResult, error) {
	var params AskParams
	if c.BodyParser(&params) != nil {
		return nil, nil, ErrBadRequest("invalid JSON request")
	}
	if errs := validateStruct(&params); len(errs) > 0 {
		return nil, nil, NewValidationError(errs)
	}

	result, err := h.query.Ask(c.UserContext(), c.Params("id"), params.Question)
	if err != nil {
		return nil, nil, err
	}
	return &params, result, nil
}
