package application

import (
	"bufio"
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-storefront/pkg/apperror"
	"github.com/oksasatya/go-ddd-storefront/pkg/helpers"
)

const MaxUploadBytes = 5 << 20

var allowedImages = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

type UploadService struct {
	Store  ImageStore
	Logger *logrus.Logger
}

func NewUploadService(store ImageStore, logger *logrus.Logger) *UploadService {
	return &UploadService{Store: store, Logger: logger}
}

// UploadImage accepts a jpg, jpeg or png whose content matches its extension.
func (s *UploadService) UploadImage(ctx context.Context, filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	want, ok := allowedImages[ext]
	if !ok {
		return "", apperror.InvalidInput("Images only!")
	}

	br := bufio.NewReaderSize(r, 3072)
	head, _ := br.Peek(3072)
	if got := mimetype.Detect(head); !got.Is(want) {
		return "", apperror.InvalidInput("Images only!")
	}

	name := uuid.NewString() + ext
	url, err := s.Store.Save(ctx, name, want, io.LimitReader(br, MaxUploadBytes))
	if err != nil {
		helpers.LogError(s.Logger, "image upload failed", err, logrus.Fields{"name": name})
		return "", apperror.Upstream("could not store image", err)
	}
	return url, nil
}
