package models

// ContentType enumerates the curriculum material kinds produced by the generator.
type ContentType string

const (
	ContentTypeSlides          ContentType = "SLIDES"
	ContentTypeQuiz            ContentType = "QUIZ"
	ContentTypeWorksheet       ContentType = "WORKSHEET"
	ContentTypeInstructorNotes ContentType = "INSTRUCTOR_NOTES"
	ContentTypeActivityGuide   ContentType = "ACTIVITY_GUIDE"
)

// AllContentTypes lists every supported content type in declaration order.
func AllContentTypes() []ContentType {
	return []ContentType{
		ContentTypeSlides,
		ContentTypeQuiz,
		ContentTypeWorksheet,
		ContentTypeInstructorNotes,
		ContentTypeActivityGuide,
	}
}

// Valid reports whether t is a known content type.
func (t ContentType) Valid() bool {
	for _, known := range AllContentTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// ContentMetadata carries generator-supplied statistics about a content item.
type ContentMetadata struct {
	WordCount         int    `json:"word_count"`
	EstimatedDuration string `json:"estimated_duration,omitempty"`
	DifficultyLevel   string `json:"difficulty_level,omitempty"`
}

// GeneratedContent is one piece of curriculum material.
type GeneratedContent struct {
	ID          string          `json:"id,omitempty"`
	ContentType ContentType     `json:"content_type"`
	Title       string          `json:"title"`
	Content     string          `json:"content"`
	Metadata    ContentMetadata `json:"metadata"`
}
