package board

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// GoldAmount is a non-negative quantity of the in-game currency.
type GoldAmount int64

// PlayerName identifies the player a request was filed under.
type PlayerName struct {
	value string
}

// RequestID identifies an unlock request.
type RequestID struct {
	value string
}

// SectionKey is the composite natural key of a map section.
type SectionKey struct {
	X      int
	Y      int
	Width  int
	Height int
}

// RequestStatus defines the request lifecycle.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

// ReviewAction is an admin decision on a pending request.
type ReviewAction string

const (
	ReviewActionApprove ReviewAction = "approve"
	ReviewActionReject  ReviewAction = "reject"
)

// Section is a rectangular map region, either fogged or unlocked.
type Section struct {
	Key        SectionKey
	Unlocked   bool
	UnlockedAt *time.Time
}

// Player holds a gold balance that approvals debit against.
type Player struct {
	ID          int64
	Name        string
	GoldBalance GoldAmount
}

// LegendEntry is a symbol/label/description triple shown as a map key.
type LegendEntry struct {
	ID          int64
	Symbol      string
	Label       string
	Description string
}

// Request is a player's petition to unlock a section, priced at creation time.
type Request struct {
	ID         RequestID
	PlayerName string
	PlayerID   *int64
	Message    string
	Key        SectionKey
	GoldCost   GoldAmount
	Status     RequestStatus
	CreatedAt  time.Time
}

// NewPlayerName validates and normalizes a player name.
func NewPlayerName(raw string) (PlayerName, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return PlayerName{}, fmt.Errorf("%w: empty value", ErrInvalidPlayerName)
	}
	return PlayerName{value: trimmed}, nil
}

// String returns the normalized name.
func (name PlayerName) String() string {
	return name.value
}

// NewRequestID validates and normalizes a request id.
func NewRequestID(raw string) (RequestID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return RequestID{}, fmt.Errorf("%w: empty value", ErrInvalidRequestID)
	}
	return RequestID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id RequestID) String() string {
	return id.value
}

// NewSectionKey validates a section key, defaulting absent dimensions to 1.
func NewSectionKey(x int, y int, width int, height int) (SectionKey, error) {
	if width == 0 {
		width = 1
	}
	if height == 0 {
		height = 1
	}
	if width < 0 || height < 0 {
		return SectionKey{}, fmt.Errorf("%w: dimensions must be positive", ErrInvalidSectionKey)
	}
	return SectionKey{X: x, Y: y, Width: width, Height: height}, nil
}

// SizeKey returns the pricing key for the section dimensions, e.g. "2x2".
func (key SectionKey) SizeKey() string {
	return fmt.Sprintf("%dx%d", key.Width, key.Height)
}

// NewGoldAmount validates an amount and ensures it is not negative.
func NewGoldAmount(raw int64) (GoldAmount, error) {
	if raw < 0 {
		return 0, fmt.Errorf("%w: must not be negative", ErrInvalidGoldAmount)
	}
	return GoldAmount(raw), nil
}

// Int64 returns the raw amount.
func (amount GoldAmount) Int64() int64 {
	return int64(amount)
}

// ParseRequestStatus validates a stored status value.
func ParseRequestStatus(raw string) (RequestStatus, error) {
	switch RequestStatus(raw) {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected:
		return RequestStatus(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRequestStatus, raw)
}

// String returns the stored representation.
func (status RequestStatus) String() string {
	return string(status)
}

// ParseReviewAction validates an admin action value.
func ParseReviewAction(raw string) (ReviewAction, error) {
	switch ReviewAction(raw) {
	case ReviewActionApprove, ReviewActionReject:
		return ReviewAction(raw), nil
	}
	return "", fmt.Errorf("%w: got %q", ErrInvalidAction, raw)
}

// String returns the stored representation.
func (action ReviewAction) String() string {
	return string(action)
}

// RequestInput carries the fields of a new unlock request.
type RequestInput struct {
	PlayerName PlayerName
	Message    string
	Key        SectionKey
}

// Store is the persistence contract used by Service.
// (gormstore and pgstore implement this.)
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error

	UpsertUnlockedSection(ctx context.Context, key SectionKey, unlockedAt time.Time) (Section, error)
	ListUnlockedSections(ctx context.Context) ([]Section, error)

	GetSetting(ctx context.Context, key string) (string, error)
	PutSetting(ctx context.Context, key string, value string) error

	InsertRequest(ctx context.Context, request Request) (Request, error)
	GetRequest(ctx context.Context, id RequestID) (Request, error)
	ListRequests(ctx context.Context) ([]Request, error)
	UpdateRequestStatus(ctx context.Context, id RequestID, from RequestStatus, to RequestStatus) error

	FindPlayerByName(ctx context.Context, name string) (Player, bool, error)
	GetPlayer(ctx context.Context, id int64) (Player, error)
	ListPlayers(ctx context.Context) ([]Player, error)
	InsertPlayer(ctx context.Context, name string, balance GoldAmount) (Player, error)
	SetPlayerGold(ctx context.Context, id int64, balance GoldAmount) (Player, error)
	DebitPlayerGold(ctx context.Context, id int64, amount GoldAmount) error

	ListLegendEntries(ctx context.Context) ([]LegendEntry, error)
	GetLegendEntry(ctx context.Context, id int64) (LegendEntry, error)
	InsertLegendEntry(ctx context.Context, entry LegendEntry) (LegendEntry, error)
	UpdateLegendEntry(ctx context.Context, entry LegendEntry) (LegendEntry, error)
	DeleteLegendEntry(ctx context.Context, id int64) error
}
