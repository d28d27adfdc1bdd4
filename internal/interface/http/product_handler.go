package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-storefront/internal/application"
	"github.com/oksasatya/go-ddd-storefront/pkg/response"
)

type ProductHandler struct {
	Svc    *application.CatalogService
	Logger *logrus.Logger
}

func NewProductHandler(svc *application.CatalogService, logger *logrus.Logger) *ProductHandler {
	return &ProductHandler{Svc: svc, Logger: logger}
}

type updateProductRequest struct {
	Name         *string          `json:"name"`
	Price        *decimal.Decimal `json:"price"`
	Description  *string          `json:"description"`
	Image        *string          `json:"image"`
	Brand        *string          `json:"brand"`
	Category     *string          `json:"category"`
	CountInStock *int             `json:"countInStock"`
}

type reviewRequest struct {
	Rating  int    `json:"rating" binding:"required,rating"`
	Comment string `json:"comment" binding:"required"`
}

// List GET /api/products?keyword=&pageNumber=
func (h *ProductHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("pageNumber"))
	res, err := h.Svc.List(c.Request.Context(), c.Query("keyword"), page)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"products": toProductDTOs(res.Products),
		"page":     res.Page,
		"pages":    res.Pages,
	}, "products", nil)
}

// Top GET /api/products/top?limit=
func (h *ProductHandler) Top(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	items, err := h.Svc.Top(c.Request.Context(), limit)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, toProductDTOs(items), "top products", nil)
}

func (h *ProductHandler) Get(c *gin.Context) {
	p, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, toProductDTO(p), "product", nil)
}

func (h *ProductHandler) Create(c *gin.Context) {
	p, err := h.Svc.Create(c.Request.Context(), principal(c))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, toProductDTO(p), "product created", nil)
}

func (h *ProductHandler) Update(c *gin.Context) {
	var req updateProductRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.Svc.Update(c.Request.Context(), principal(c), c.Param("id"), application.ProductUpdate{
		Name:         req.Name,
		Price:        req.Price,
		Description:  req.Description,
		Image:        req.Image,
		Brand:        req.Brand,
		Category:     req.Category,
		CountInStock: req.CountInStock,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, toProductDTO(p), "product updated", nil)
}

func (h *ProductHandler) Delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), principal(c), c.Param("id")); err != nil {
		response.Fail(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "product deleted", nil)
}

// AddReview POST /api/products/:id/reviews
func (h *ProductHandler) AddReview(c *gin.Context) {
	var req reviewRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.Svc.AddReview(c.Request.Context(), principal(c), c.Param("id"), req.Rating, req.Comment)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"rating": p.Rating, "numReviews": p.NumReviews}, "review added", nil)
}
