package domain

import "time"

type ArtifactStatus string

const (
	ArtifactStatusPending    ArtifactStatus = "pending"
	ArtifactStatusProcessing ArtifactStatus = "processing"
	ArtifactStatusCompleted  ArtifactStatus = "completed"
	ArtifactStatusFailed     ArtifactStatus = "failed"
)

func (s ArtifactStatus) Valid() bool {
	switch s {
	case ArtifactStatusPending, ArtifactStatusProcessing, ArtifactStatusCompleted, ArtifactStatusFailed:
		return true
	}
	return false
}

// Artifact is the product of an accepted debit. Once completed only the
// view counter may change.
type Artifact struct {
	ID               int64          `json:"id"`
	AccountID        int64          `json:"userId"`
	Title            string         `json:"title"`
	Content          string         `json:"content"`
	Status           ArtifactStatus `json:"status"`
	ImageURL         *string        `json:"imageUrl"`
	AudioURL         *string        `json:"audioUrl"`
	VideoURL         *string        `json:"videoUrl"`
	ShareID          string         `json:"shareId"`
	IsPublic         bool           `json:"isPublic"`
	ViewCount        int64          `json:"viewCount"`
	GenerationTimeMs *int64         `json:"generationTimeMs"`
	ErrorMessage     string         `json:"errorMessage,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
	CompletedAt      *time.Time     `json:"completedAt"`
}

type NewArtifact struct {
	AccountID        int64
	Title            string
	Content          string
	Status           ArtifactStatus
	ShareID          string
	IsPublic         bool
	GenerationTimeMs int64
	CompletedAt      *time.Time
}
