package health

// Check reports whether an optional dependency is usable.
type Check func() bool

// Service builds the health payload.
type Service struct {
	AIConfigured Check
}

// NewService constructs a health service. aiConfigured may be nil.
func NewService(aiConfigured Check) *Service {
	return &Service{AIConfigured: aiConfigured}
}

// Status returns the health payload. The process is up whenever this runs;
// openaiConfigured tells clients whether generation can succeed.
func (s *Service) Status() map[string]bool {
	configured := false
	if s != nil && s.AIConfigured != nil {
		configured = s.AIConfigured()
	}
	return map[string]bool{"ok": true, "openaiConfigured": configured}
}
