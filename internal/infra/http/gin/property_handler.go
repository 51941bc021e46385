package ginserver

import (
	"context"
	"net/http"
	"strconv"

	gin "github.com/gin-gonic/gin"

	"rentverse/internal/app/dto"
	propertysvc "rentverse/internal/app/services/property"
)

const defaultCatalogLimit = 50

type PropertyHandler struct {
	Service *propertysvc.Service
}

func (h PropertyHandler) Catalog(c *gin.Context) {
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "property service unavailable"})
		return
	}
	limit := defaultCatalogLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}
	collection, err := h.Service.ListPublished(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, collection)
}

func (h PropertyHandler) Get(c *gin.Context) {
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "property service unavailable"})
		return
	}
	view, err := h.Service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type LandlordPropertyHandler struct {
	Service *propertysvc.Service
}

type createPropertyRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Line1       string `json:"line1"`
	Line2       string `json:"line2"`
	City        string `json:"city"`
	Country     string `json:"country"`
	MonthlyRate int64  `json:"monthly_rate"`
	Currency    string `json:"currency"`
	Bedrooms    int    `json:"bedrooms"`
}

type updatePropertyRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	MonthlyRate int64  `json:"monthly_rate"`
	Currency    string `json:"currency"`
}

func (h LandlordPropertyHandler) List(c *gin.Context) {
	p, ok := requireRole(c, "landlord")
	if !ok {
		return
	}
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "property service unavailable"})
		return
	}
	collection, err := h.Service.ListForLandlord(c.Request.Context(), p.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, collection)
}

func (h LandlordPropertyHandler) Create(c *gin.Context) {
	p, ok := requireRole(c, "landlord")
	if !ok {
		return
	}
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "property service unavailable"})
		return
	}
	var req createPropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	view, err := h.Service.Create(c.Request.Context(), propertysvc.CreateParams{
		LandlordID:  p.ID,
		Title:       req.Title,
		Description: req.Description,
		Line1:       req.Line1,
		Line2:       req.Line2,
		City:        req.City,
		Country:     req.Country,
		MonthlyRate: req.MonthlyRate,
		Currency:    req.Currency,
		Bedrooms:    req.Bedrooms,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h LandlordPropertyHandler) Update(c *gin.Context) {
	p, ok := requireRole(c, "landlord")
	if !ok {
		return
	}
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "property service unavailable"})
		return
	}
	var req updatePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	view, err := h.Service.Update(c.Request.Context(), propertysvc.UpdateParams{
		PropertyID:  c.Param("id"),
		LandlordID:  p.ID,
		Title:       req.Title,
		Description: req.Description,
		MonthlyRate: req.MonthlyRate,
		Currency:    req.Currency,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h LandlordPropertyHandler) Publish(c *gin.Context) {
	h.transition(c, h.Service.Publish)
}

func (h LandlordPropertyHandler) Unpublish(c *gin.Context) {
	h.transition(c, h.Service.Unpublish)
}

func (h LandlordPropertyHandler) UploadPhoto(c *gin.Context) {
	p, ok := requireRole(c, "landlord")
	if !ok {
		return
	}
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "property service unavailable"})
		return
	}
	file, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo file is required"})
		return
	}
	reader, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo file is unreadable"})
		return
	}
	defer reader.Close()
	view, err := h.Service.UploadPhoto(c.Request.Context(), propertysvc.PhotoParams{
		PropertyID:  c.Param("id"),
		LandlordID:  p.ID,
		FileName:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Reader:      reader,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h LandlordPropertyHandler) transition(c *gin.Context, apply func(ctx context.Context, propertyID, landlordID string) (*dto.PropertyView, error)) {
	p, ok := requireRole(c, "landlord")
	if !ok {
		return
	}
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "property service unavailable"})
		return
	}
	view, err := apply(c.Request.Context(), c.Param("id"), p.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

var (
	_ PropertyHTTP         = PropertyHandler{}
	_ LandlordPropertyHTTP = LandlordPropertyHandler{}
)
