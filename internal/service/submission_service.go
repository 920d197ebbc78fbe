package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/lumenclass/lms-api/internal/dto"
	"github.com/lumenclass/lms-api/internal/models"
	"github.com/lumenclass/lms-api/internal/repository"
)

// ErrAssignmentClosed indicates the assignment no longer accepts
// submissions, either because the deadline passed or because grading of
// the first submission already started.
var ErrAssignmentClosed = errors.New("assignment no longer accepts submissions")

// FileUploader abstracts uploading binary data and returning a URL.
type FileUploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// SubmissionService orchestrates submission intake and reads.
type SubmissionService interface {
	List(ctx context.Context, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error)
	Get(ctx context.Context, id uint) (dto.SubmissionResponse, error)
	Create(ctx context.Context, payload dto.SubmissionCreateRequest, file *multipart.FileHeader) (dto.SubmissionResponse, error)
}

type submissionService struct {
	submissions repository.SubmissionRepository
	assignments repository.AssignmentRepository
	validator   *validator.Validate
	uploader    FileUploader
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSubmissionService constructs a SubmissionService instance.
func NewSubmissionService(subRepo repository.SubmissionRepository, assignmentRepo repository.AssignmentRepository, validate *validator.Validate, uploader FileUploader, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		submissions: subRepo,
		assignments: assignmentRepo,
		validator:   validate,
		uploader:    uploader,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
	}
}

func (s *submissionService) List(ctx context.Context, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, err
	}

	repoFilter := repository.SubmissionFilter{
		AssignmentID: filter.AssignmentID,
		StudentID:    filter.StudentID,
		Status:       filter.Status,
	}

	submissions, err := s.submissions.List(ctx, repoFilter)
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(submissions), nil
}

func (s *submissionService) Get(ctx context.Context, id uint) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) Create(ctx context.Context, payload dto.SubmissionCreateRequest, file *multipart.FileHeader) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	content := strings.TrimSpace(s.sanitizer.Sanitize(payload.Content))
	if content == "" && file == nil {
		return dto.SubmissionResponse{}, fmt.Errorf("submission requires text content or a file")
	}

	assignment, err := s.assignments.GetByID(ctx, payload.AssignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrAssignmentNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	if !assignment.AcceptsSubmissions(s.now()) {
		return dto.SubmissionResponse{}, ErrAssignmentClosed
	}

	var fileURL string
	if file != nil {
		fileURL, err = s.storeFile(ctx, file)
		if err != nil {
			return dto.SubmissionResponse{}, err
		}
	}

	submittedAt := s.now()
	submission := models.Submission{
		AssignmentID: payload.AssignmentID,
		StudentID:    payload.StudentID,
		Content:      content,
		FileURL:      fileURL,
		Status:       models.SubmissionStatusSubmitted,
		Version:      1,
		SubmittedAt:  &submittedAt,
	}

	if err := s.submissions.Create(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	// Reload with associations
	created, err := s.submissions.GetByID(ctx, submission.ID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.logger.Info().
		Uint("submission_id", created.ID).
		Uint("assignment_id", created.AssignmentID).
		Msg("submission created")

	return dto.NewSubmissionResponse(created), nil
}

func (s *submissionService) storeFile(ctx context.Context, file *multipart.FileHeader) (string, error) {
	if err := validateFileType(file); err != nil {
		return "", err
	}

	reader, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	if s.uploader == nil {
		return "", fmt.Errorf("file uploads are not configured")
	}

	uploadURL, err := s.uploader.Upload(ctx, file.Filename, reader)
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}

	return uploadURL, nil
}

func validateFileType(file *multipart.FileHeader) error {
	reader, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	mime, err := mimetype.DetectReader(reader)
	if err != nil {
		return fmt.Errorf("failed to detect file type: %w", err)
	}

	allowed := []string{"application/pdf", "application/zip", "application/x-zip-compressed", "text/plain"}
	for _, a := range allowed {
		if mime.Is(a) {
			return nil
		}
	}

	return fmt.Errorf("unsupported file type: %s", mime.String())
}
