package dto

import "github.com/noah-isme/curriculum-qa-api/internal/models"

// ContentPayload is the wire form of a generated content item.
type ContentPayload struct {
	ID          string                 `json:"id"`
	ContentType models.ContentType     `json:"content_type" validate:"required,oneof=SLIDES QUIZ WORKSHEET INSTRUCTOR_NOTES ACTIVITY_GUIDE"`
	Title       string                 `json:"title" validate:"max=300"`
	Content     string                 `json:"content" validate:"required"`
	Metadata    models.ContentMetadata `json:"metadata"`
}

// ToModel converts the payload into the domain record.
func (p ContentPayload) ToModel() models.GeneratedContent {
	return models.GeneratedContent{
		ID:          p.ID,
		ContentType: p.ContentType,
		Title:       p.Title,
		Content:     p.Content,
		Metadata:    p.Metadata,
	}
}
