package dto

type CreateTranscriptionRequest struct {
	AudioURL string `json:"audioUrl" binding:"required"`
}

type ListTranscriptionsRequest struct {
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
	Status string `form:"status"`
	Sort   string `form:"sort"`
	Search string `form:"search"`
	From   string `form:"from"` // RFC 3339
	To     string `form:"to"`   // RFC 3339
}

type TranscriptionDTO struct {
	ID            string `json:"id"`
	AudioURL      string `json:"audioUrl"`
	Status        string `json:"status"`
	Transcription string `json:"transcription,omitempty"`
	FilePath      string `json:"filePath,omitempty"`
	Attempts      int    `json:"attempts"`
	Error         string `json:"error,omitempty"`
	CreatedAt     string `json:"createdAt"`
	UpdatedAt     string `json:"updatedAt"`
}

type ListTranscriptionsResponse struct {
	Items []TranscriptionDTO `json:"items"`
	Total int                `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}
