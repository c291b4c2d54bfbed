package profile

import "time"

// Profile is the canonical candidate record produced by every import path.
type Profile struct {
	FullName       string          `json:"full_name"`
	Headline       string          `json:"headline"`
	Summary        string          `json:"summary"`
	Email          string          `json:"email"`
	Phone          string          `json:"phone"`
	Address        string          `json:"address"`
	LinkedInURL    string          `json:"linkedin_url"`
	PhotoBase64    string          `json:"photo_base64"`
	Experience     []Experience    `json:"experience"`
	Education      []Education     `json:"education"`
	Skills         []string        `json:"skills"`
	Certifications []Certification `json:"certifications"`
	Languages      []string        `json:"languages"`
}

// Experience is one position. Dates are kept as the source wrote them.
type Experience struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Description string `json:"description"`
	Location    string `json:"location"`
}

type Education struct {
	School      string `json:"school"`
	Degree      string `json:"degree"`
	Field       string `json:"field"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Description string `json:"description"`
}

type Certification struct {
	Name      string `json:"name"`
	Authority string `json:"authority"`
	Date      string `json:"date"`
	URL       string `json:"url"`
}

// Normalize replaces nil slices with empty ones so absent data marshals as [] instead of null.
func (p Profile) Normalize() Profile {
	if p.Experience == nil {
		p.Experience = []Experience{}
	}
	if p.Education == nil {
		p.Education = []Education{}
	}
	if p.Skills == nil {
		p.Skills = []string{}
	}
	if p.Certifications == nil {
		p.Certifications = []Certification{}
	}
	if p.Languages == nil {
		p.Languages = []string{}
	}
	return p
}

// Clone returns a deep copy so snapshots cannot be mutated through shared slices.
func (p Profile) Clone() Profile {
	out := p
	out.Experience = append([]Experience(nil), p.Experience...)
	out.Education = append([]Education(nil), p.Education...)
	out.Skills = append([]string(nil), p.Skills...)
	out.Certifications = append([]Certification(nil), p.Certifications...)
	out.Languages = append([]string(nil), p.Languages...)
	return out.Normalize()
}

// StoredProfile is the per-user persisted profile plus generation preferences.
type StoredProfile struct {
	UserID             string
	Profile            Profile
	AdditionalURLs     []string
	PersonalSummary    string
	OnboardingComplete bool
	// SourceKey is the object-store key of the last imported file, if any.
	SourceKey string
	UpdatedAt time.Time
}
