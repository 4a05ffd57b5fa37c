// Package catalog holds the billable service list and the room registry.
package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Service is a billable clinic service. Code is immutable after creation;
// names and descriptions are kept in the three interface languages.
type Service struct {
	ID              uuid.UUID `json:"id"`
	Code            string    `json:"code"`
	NameEN          string    `json:"name_en"`
	NameRU          string    `json:"name_ru"`
	NameKK          string    `json:"name_kk"`
	DescriptionEN   string    `json:"description_en"`
	DescriptionRU   string    `json:"description_ru"`
	DescriptionKK   string    `json:"description_kk"`
	DurationMinutes int       `json:"duration_minutes"`
	PriceCents      int64     `json:"price_cents"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// LocalizedName resolves the service name for a language tag, falling back
// to English when the localized name is empty or the tag is unknown.
func (s *Service) LocalizedName(lang string) string {
	var name string
	switch lang {
	case "ru":
		name = s.NameRU
	case "kk":
		name = s.NameKK
	default:
		name = s.NameEN
	}
	if name == "" {
		return s.NameEN
	}
	return name
}

// Room is a physical cabinet. Deleting one detaches it from appointments
// instead of blocking.
type Room struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Floor     *int      `json:"floor,omitempty"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
