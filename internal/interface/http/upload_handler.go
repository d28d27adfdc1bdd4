package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-storefront/internal/application"
	"github.com/oksasatya/go-ddd-storefront/pkg/apperror"
	"github.com/oksasatya/go-ddd-storefront/pkg/response"
)

type UploadHandler struct {
	Svc    *application.UploadService
	Logger *logrus.Logger
}

func NewUploadHandler(svc *application.UploadService, logger *logrus.Logger) *UploadHandler {
	return &UploadHandler{Svc: svc, Logger: logger}
}

// Upload POST /api/upload, multipart field "image".
func (h *UploadHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, application.MaxUploadBytes+(1<<20))
	fh, err := c.FormFile("image")
	if err != nil {
		response.Fail(c, apperror.InvalidInput("image file is required"))
		return
	}
	if fh.Size > application.MaxUploadBytes {
		response.Fail(c, apperror.InvalidInput("image is too large"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.Fail(c, apperror.InvalidInput("could not read image"))
		return
	}
	defer func() { _ = f.Close() }()

	path, err := h.Svc.UploadImage(c.Request.Context(), fh.Filename, f)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"image": path}, "Image uploaded successfully", nil)
}
