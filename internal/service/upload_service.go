package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Eursukkul/rental-marketplace/internal/models"
	"github.com/Eursukkul/rental-marketplace/internal/repository"
	"github.com/Eursukkul/rental-marketplace/pkg/logger"
	"github.com/Eursukkul/rental-marketplace/pkg/storage"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var allowedUploadTypes = []string{"image/jpeg", "image/png", "image/webp", "application/pdf"}

// sniffLen is how many leading bytes are inspected for the content type.
const sniffLen = 3072

type UploadService interface {
	Upload(ctx context.Context, actor models.Actor, filename string, r io.Reader) (*models.Upload, error)
	Get(ctx context.Context, id uint) (*models.Upload, error)
	Open(ctx context.Context, id uint) (*models.Upload, io.ReadCloser, error)
	Delete(ctx context.Context, actor models.Actor, id uint) error
	// Purge removes the object and its record without an ownership check.
	Purge(ctx context.Context, id uint) error
	URL(upload *models.Upload) string
}

type uploadService struct {
	repo     repository.UploadRepository
	store    storage.ObjectStore
	maxBytes int64
	baseURL  string
}

func NewUploadService(repo repository.UploadRepository, store storage.ObjectStore, maxBytes int64, baseURL string) UploadService {
	return &uploadService{
		repo:     repo,
		store:    store,
		maxBytes: maxBytes,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

func (s *uploadService) Upload(ctx context.Context, actor models.Actor, filename string, r io.Reader) (*models.Upload, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return nil, ErrUnsupportedFileType
	}

	mtype := mimetype.Detect(head)
	if !mimetype.EqualsAny(mtype.String(), allowedUploadTypes...) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, mtype.String())
	}

	objectID := uuid.NewString() + mtype.Extension()
	body := io.LimitReader(io.MultiReader(bytes.NewReader(head), r), s.maxBytes+1)

	size, err := s.store.Put(ctx, objectID, filepath.Base(filename), mtype.String(), body)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}
	if size > s.maxBytes {
		if err := s.store.Delete(ctx, objectID); err != nil {
			logger.Log.WithError(err).WithField("object_id", objectID).Warn("Failed to remove oversized upload")
		}
		return nil, ErrFileTooLarge
	}

	upload := &models.Upload{
		OwnerID:     actor.UserID,
		ObjectID:    objectID,
		Filename:    filepath.Base(filename),
		ContentType: mtype.String(),
		Size:        size,
	}
	if err := s.repo.Create(ctx, upload); err != nil {
		_ = s.store.Delete(ctx, objectID)
		return nil, fmt.Errorf("create upload: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"upload_id":    upload.ID,
		"content_type": upload.ContentType,
		"size":         upload.Size,
	}).Info("File uploaded")
	return upload, nil
}

func (s *uploadService) Get(ctx context.Context, id uint) (*models.Upload, error) {
	upload, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUploadNotFound
		}
		return nil, err
	}
	return upload, nil
}

func (s *uploadService) Open(ctx context.Context, id uint) (*models.Upload, io.ReadCloser, error) {
	upload, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.store.Open(ctx, upload.ObjectID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, ErrUploadNotFound
		}
		return nil, nil, err
	}
	return upload, rc, nil
}

func (s *uploadService) Delete(ctx context.Context, actor models.Actor, id uint) error {
	upload, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if upload.OwnerID != actor.UserID && !actor.IsAdmin() {
		return ErrForbidden
	}
	return s.remove(ctx, upload)
}

func (s *uploadService) Purge(ctx context.Context, id uint) error {
	upload, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.remove(ctx, upload)
}

func (s *uploadService) remove(ctx context.Context, upload *models.Upload) error {
	if err := s.repo.Delete(ctx, upload.ID); err != nil {
		return fmt.Errorf("delete upload: %w", err)
	}
	if err := s.store.Delete(ctx, upload.ObjectID); err != nil {
		logger.Log.WithError(err).WithField("object_id", upload.ObjectID).Warn("Failed to delete stored object")
	}
	return nil
}

func (s *uploadService) URL(upload *models.Upload) string {
	return s.baseURL + "/api/v1/uploads/" + strconv.FormatUint(uint64(upload.ID), 10)
}
