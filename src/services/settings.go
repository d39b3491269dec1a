package services

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// APISettings holds runtime-adjustable settings exposed to administrators.
type APISettings struct {
	mu      sync.RWMutex
	baseURL string
}

func NewAPISettings(baseURL string) *APISettings {
	return &APISettings{baseURL: baseURL}
}

func (s *APISettings) BaseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.baseURL
}

// SetBaseURL accepts absolute http(s) URLs only.
func (s *APISettings) SetBaseURL(raw string) error {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("base URL must be an absolute http(s) URL, got %q", raw)
	}
	s.mu.Lock()
	s.baseURL = raw
	s.mu.Unlock()
	return nil
}
