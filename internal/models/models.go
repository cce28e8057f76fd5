package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleMusician Role = "musician"
	RoleAgent    Role = "agent"
)

type EventType string

const (
	EventTypePublic  EventType = "public"
	EventTypePrivate EventType = "private"
)

type EventStatus string

const (
	EventStatusPending EventStatus = "pending"
	EventStatusMatched EventStatus = "matched"
	EventStatusClosed  EventStatus = "closed"
)

type NotificationStatus string

const (
	NotificationUnread    NotificationStatus = "unread"
	NotificationApplied   NotificationStatus = "applied"
	NotificationDismissed NotificationStatus = "dismissed"
)

const (
	DefaultSearchRadiusMiles = 100.0
	MinSearchRadiusMiles     = 1.0
	MaxSearchRadiusMiles     = 200.0

	MaxExtraInfoChars = 500
)

type GeoPoint struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Ward    string  `json:"ward,omitempty"`
	Region  string  `json:"region,omitempty"`
	Country string  `json:"country,omitempty"`
}

// IsZero reports whether the point was never resolved. (0, 0) is open ocean,
// never a UK postcode.
func (p GeoPoint) IsZero() bool {
	return p.Lat == 0 && p.Lng == 0
}

type UserProfile struct {
	ID                uuid.UUID `json:"id"`
	Role              Role      `json:"role"`
	FirstName         string    `json:"firstName"`
	LastName          string    `json:"lastName,omitempty"`
	Postcode          string    `json:"postcode,omitempty"`
	Location          *GeoPoint `json:"location,omitempty"`
	Instruments       []string  `json:"instruments,omitempty"`
	SearchRadiusMiles float64   `json:"searchRadiusMiles"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

type Event struct {
	ID                uuid.UUID   `json:"id"`
	PosterID          uuid.UUID   `json:"posterId"`
	EventType         EventType   `json:"eventType"`
	Postcode          string      `json:"postcode"`
	Location          GeoPoint    `json:"location"`
	Date              time.Time   `json:"date"`
	InstrumentsNeeded []string    `json:"instrumentsNeeded"`
	BudgetPence       int64       `json:"budgetPence"`
	ExtraInfo         string      `json:"extraInfo,omitempty"`
	Status            EventStatus `json:"status"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`
}

type MatchResult struct {
	UserID        uuid.UUID `json:"userId"`
	DistanceMiles float64   `json:"distanceMiles"`
}

type Notification struct {
	ID            uuid.UUID          `json:"id"`
	EventID       uuid.UUID          `json:"eventId"`
	UserID        uuid.UUID          `json:"userId"`
	DistanceMiles float64            `json:"distanceMiles"`
	Status        NotificationStatus `json:"status"`
	CreatedAt     time.Time          `json:"createdAt"`
}

type Application struct {
	EventID   uuid.UUID `json:"eventId"`
	UserID    uuid.UUID `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

type Review struct {
	ID             uuid.UUID `json:"id"`
	ReviewerID     uuid.UUID `json:"reviewerId"`
	ReviewedUserID uuid.UUID `json:"reviewedUserId"`
	ReviewerName   string    `json:"reviewerName,omitempty"`
	Rating         int       `json:"rating"`
	Comment        string    `json:"comment,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

type ReviewSummary struct {
	Count      int     `json:"count"`
	MeanRating float64 `json:"meanRating"`
}

type MatchJob struct {
	ID        int64     `json:"id"`
	EventID   uuid.UUID `json:"eventId"`
	RunAt     time.Time `json:"runAt"`
	Status    string    `json:"status"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"lastError,omitempty"`
}
