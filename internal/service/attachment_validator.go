package service

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// DefaultAttachmentMaxBytes is the 2 MiB per-file limit.
const DefaultAttachmentMaxBytes int64 = 2 * 1024 * 1024

// AttachmentInput describes one submitted file.
type AttachmentInput struct {
	RealName string
	Size     int64
}

// AttachmentValidator enforces the per-file size limit and names stored files.
type AttachmentValidator struct {
	maxBytes int64
	token    func() string
}

// NewAttachmentValidator constructs the validator.
func NewAttachmentValidator(maxBytes int64) *AttachmentValidator {
	if maxBytes <= 0 {
		maxBytes = DefaultAttachmentMaxBytes
	}
	return &AttachmentValidator{maxBytes: maxBytes, token: func() string {
		return strings.ReplaceAll(uuid.NewString(), "-", "")
	}}
}

// Validate checks every file before any is accepted, so one oversized file rejects the batch.
// The returned attachments are not yet persisted.
func (v *AttachmentValidator) Validate(trackID string, inputs []AttachmentInput) ([]domain.Attachment, error) {
	for _, in := range inputs {
		if in.Size > v.maxBytes {
			return nil, apperrors.NewPayloadTooLarge(
				"Attachment "+in.RealName+" exceeds the size limit of 2MB.",
				map[string]any{"real_name": in.RealName, "size": in.Size, "max_bytes": v.maxBytes})
		}
		if in.Size < 0 {
			return nil, apperrors.NewValidationError("invalid attachment size", map[string]any{"real_name": in.RealName})
		}
	}

	attachments := make([]domain.Attachment, 0, len(inputs))
	for _, in := range inputs {
		attachments = append(attachments, domain.Attachment{
			TrackID:   trackID,
			SavedName: v.savedName(trackID, in.RealName),
			RealName:  in.RealName,
			Size:      in.Size,
			Type:      domain.AttachmentTypeSubmission,
		})
	}
	return attachments, nil
}

func (v *AttachmentValidator) savedName(trackID, realName string) string {
	name := trackID + "_" + v.token()
	if ext := strings.TrimPrefix(filepath.Ext(filepath.Base(realName)), "."); ext != "" {
		name += "." + ext
	}
	return name
}
