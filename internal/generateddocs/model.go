package generateddocs

import "time"

// GenerationRecord is the durable history row for one CV generation.
// CVKey and LetterKey are object-store keys, empty when that PDF was not produced.
type GenerationRecord struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"session_id"`
	UserID         string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	JobDescription string    `json:"job_description"`
	Language       string    `json:"language"`
	Template       string    `json:"template"`
	CVKey          string    `json:"-"`
	LetterKey      string    `json:"-"`
}

// HasCV reports whether a durable CV copy exists.
func (g GenerationRecord) HasCV() bool { return g.CVKey != "" }

// HasLetter reports whether a durable letter copy exists.
func (g GenerationRecord) HasLetter() bool { return g.LetterKey != "" }
