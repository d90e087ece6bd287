package api

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/custodia-labs/sercha-docs/internal/core/ports/driving"
)

// QueryHandler serves question answering and search.
type QueryHandler struct {
	query driving.QueryService
}

func NewQueryHandler(query driving.QueryService) *QueryHandler {
	return &QueryHandler{query: query}
}

func (h *QueryHandler) HandleQuery(c *fiber.Ctx) error {
	params, err := parseQueryParams(c)
	if err != nil {
		return err
	}

	result, err := h.query.Query(c.UserContext(), params.toRequest())
	if err != nil {
		return err
	}
	return c.JSON(NewQueryResponse(result))
}

// HandleSearch takes a JSON body, or with an empty body the query string
// parameters query, limit and document_ids.
func (h *QueryHandler) HandleSearch(c *fiber.Ctx) error {
	var (
		params *QueryParams
		err    error
	)
	if len(c.Body()) == 0 {
		params, err = searchQueryParams(c)
	} else {
		params, err = parseQueryParams(c)
	}
	if err != nil {
		return err
	}

	sources, err := h.query.Search(c.UserContext(), params.toRequest())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"query":   params.Query,
		"results": NewSearchResults(sources),
		"total":   len(sources),
	})
}

func (h *QueryHandler) HandleFormats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"formats": h.query.ListSupportedFormats()})
}

func (h *QueryHandler) HandlePlugins(c *fiber.Ctx) error {
	plugins := h.query.ListParsers()
	out := make([]PluginResponse, len(plugins))
	for i, p := range plugins {
		out[i] = PluginResponse{Name: p.ID, SupportedFormats: p.Formats, Loaded: true}
	}
	return c.JSON(fiber.Map{
		"plugins":           out,
		"total":             len(out),
		"supported_formats": h.query.ListSupportedFormats(),
	})
}

func (h *QueryHandler) HandlePlugin(c *fiber.Ctx) error {
	name := c.Params("name")
	for _, p := range h.query.ListParsers() {
		if p.ID == name {
			return c.JSON(PluginResponse{Name: p.ID, SupportedFormats: p.Formats, Loaded: true})
		}
	}
	return NewError(fiber.StatusNotFound, fmt.Sprintf("Plugin not found: %s", name))
}

func (h *QueryHandler) HandleParsers(c *fiber.Ctx) error {
	type parserResponse struct {
		ID      string   `json:"id"`
		Formats []string `json:"formats"`
	}
	plugins := h.query.ListParsers()
	out := make([]parserResponse, len(plugins))
	for i, p := range plugins {
		out[i] = parserResponse{ID: p.ID, Formats: p.Formats}
	}
	return c.JSON(fiber.Map{"parsers": out})
}

func parseQueryParams(c *fiber.Ctx) (*QueryParams, error) {
	var params QueryParams
	if c.BodyParser(&params) != nil {
		return nil, ErrBadRequest("invalid JSON request")
	}
	if errs := validateStruct(&params); len(errs) > 0 {
		return nil, NewValidationError(errs)
	}
	return &params, nil
}

// defaultSearchLimit applies to query string searches without a limit.
const defaultSearchLimit = 10

func searchQueryParams(c *fiber.Ctx) (*QueryParams, error) {
	params := QueryParams{Query: c.Query("query"), TopK: defaultSearchLimit}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return nil, NewValidationError(map[string]string{"limit": "must be an integer"})
		}
		params.TopK = limit
	}
	for _, raw := range c.Context().QueryArgs().PeekMulti("document_ids") {
		for _, id := range strings.Split(string(raw), ",") {
			params.DocumentIDs = append(params.DocumentIDs, strings.TrimSpace(id))
		}
	}
	if errs := validateStruct(&params); len(errs) > 0 {
		if reason, ok := errs["top_k"]; ok {
			delete(errs, "top_k")
			errs["limit"] = reason
		}
		return nil, NewValidationError(errs)
	}
	return &params, nil
}
