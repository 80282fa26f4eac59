package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/clide7029/MagicProxyAPp/internal/deckparse"
	"github.com/clide7029/MagicProxyAPp/internal/models"
	"github.com/clide7029/MagicProxyAPp/internal/services"
)

// DeckGenerator creates decks and idea versions (implemented by services.DeckGenerator)
type DeckGenerator interface {
	Generate(ctx context.Context, req models.GenerateRequest) (*models.GenerateResult, error)
	Reroll(ctx context.Context, req models.RerollRequest) (*models.ProxyIdea, error)
}

// DeckLoader reads stored decks (implemented by services.DeckStore)
type DeckLoader interface {
	LoadDeck(ctx context.Context, id string) (*models.Deck, error)
}

// DeckViewer turns stored decks into client views (implemented by services.DeckEnricher)
type DeckViewer interface {
	Enrich(ctx context.Context, deck *models.Deck) *models.DeckView
}

type DeckHandler struct {
	generator DeckGenerator
	decks     DeckLoader
	viewer    DeckViewer
	logger    *zap.Logger
}

func NewDeckHandler(generator DeckGenerator, decks DeckLoader, viewer DeckViewer, logger *zap.Logger) *DeckHandler {
	return &DeckHandler{
		generator: generator,
		decks:     decks,
		viewer:    viewer,
		logger:    logger,
	}
}

func (h *DeckHandler) Generate(c *gin.Context) {
	var req models.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.generator.Generate(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, "generate", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *DeckHandler) Reroll(c *gin.Context) {
	var req models.RerollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	idea, err := h.generator.Reroll(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, "reroll", err)
		return
	}
	c.JSON(http.StatusOK, idea)
}

// GetDeck serves the enriched deck. Optional query parameters: sort
// (type, cmc, name, nickname) and v.<cardId>=<version> to pick the idea
// version used for nickname sorting.
func (h *DeckHandler) GetDeck(c *gin.Context) {
	view, ok := h.loadView(c)
	if !ok {
		return
	}
	if by := c.Query("sort"); by != "" {
		services.SortCards(view.Cards, by, selectedVersions(c))
	}
	c.JSON(http.StatusOK, view)
}

// ExportDeck sends the deck as a csv or json attachment. CSV rows honour the
// same v.<cardId>=<version> selections as GetDeck.
func (h *DeckHandler) ExportDeck(c *gin.Context) {
	format := c.DefaultQuery("format", "json")
	if format != "csv" && format != "json" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv or json"})
		return
	}

	view, ok := h.loadView(c)
	if !ok {
		return
	}

	var (
		data        []byte
		err         error
		contentType string
	)
	if format == "csv" {
		data, err = services.ExportCSV(view, selectedVersions(c))
		contentType = "text/csv; charset=utf-8"
	} else {
		data, err = services.ExportJSON(view)
		contentType = "application/json"
	}
	if err != nil {
		h.writeError(c, "export", err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+services.ExportFilename(view.Name, format))
	c.Data(http.StatusOK, contentType, data)
}

type parseRequest struct {
	DeckText string `json:"deckText" binding:"required"`
}

// ParseDeck splits deck text into lines without resolving any cards
func (h *DeckHandler) ParseDeck(c *gin.Context) {
	var req parseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lines := deckparse.Parse(req.DeckText)
	resp := gin.H{"parsedLines": lines}
	if err := deckparse.Validate(lines); err != nil {
		resp["warning"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *DeckHandler) loadView(c *gin.Context) (*models.DeckView, bool) {
	deck, err := h.decks.LoadDeck(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, "load deck", err)
		return nil, false
	}
	return h.viewer.Enrich(c.Request.Context(), deck), true
}

// writeError maps service errors to statuses: invalid input 400, missing
// rows 404, everything else 500 with the error text
func (h *DeckHandler) writeError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	default:
		h.logger.Error(op+" failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func selectedVersions(c *gin.Context) map[string]int {
	selected := make(map[string]int)
	for key, values := range c.Request.URL.Query() {
		cardID, ok := strings.CutPrefix(key, "v.")
		if !ok || len(values) == 0 {
			continue
		}
		if v, err := strconv.Atoi(values[0]); err == nil {
			selected[cardID] = v
		}
	}
	return selected
}
