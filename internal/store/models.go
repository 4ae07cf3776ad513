package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when the target row does not exist.
var ErrNotFound = errors.New("not found")

// ErrUnavailable is returned when the backing store cannot be reached.
// Callers should treat the collection as empty and surface a warning
// rather than crash.
var ErrUnavailable = errors.New("store unavailable")

// ErrConstraint is returned when the store rejects a write (malformed or
// incomplete input). The local cache must not be mutated in that case.
var ErrConstraint = errors.New("constraint violation")

// Status values observed in production. The schema does not enforce
// closure; free-text values pass through untouched.
const (
	StatusFinished    = "จบ"
	StatusNotFinished = "ไม่จบ"
)

// Resolution ("resus") categories for case disposition.
const (
	ResusCured   = "CURED"
	ResusDR      = "DR"
	ResusRepo    = "REPO"
	ResusTapDeng = "ตบเด้ง"
)

// Work groups: the two servicing portfolios.
const (
	WorkGroup6090 = "6090"
	WorkGroupNPL  = "NPL"
)

// Customer is one tracked account. ID and CreatedAt are assigned by the
// store on creation and never change afterwards. AccountNumber is the
// natural key used for de-duplication on bulk import; the store does not
// enforce it unique.
type Customer struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	AccountNumber     string    `json:"accountNumber"`
	GroupCode         string    `json:"groupCode"`
	Branch            string    `json:"branch"`
	Principal         float64   `json:"principal"`
	Status            string    `json:"status"`
	Brand             string    `json:"brand"`
	Model             string    `json:"model"`
	LicensePlate      string    `json:"licensePlate"`
	Resus             string    `json:"resus"`
	AuthorizationDate string    `json:"authorizationDate"`
	Commission        float64   `json:"commission"`
	RegistrationID    string    `json:"registrationId"`
	WorkGroup         string    `json:"workGroup"`
	FieldTeam         string    `json:"fieldTeam"`
	Installment       float64   `json:"installment"`
	InitialBucket     string    `json:"initialBucket"`
	CurrentBucket     string    `json:"currentBucket"`
	CycleDay          string    `json:"cycleDay"`
	EngineNumber      string    `json:"engineNumber"`
	BlueBookPrice     float64   `json:"blueBookPrice"`
	Address           string    `json:"address"`
	Latitude          float64   `json:"latitude"`
	Longitude         float64   `json:"longitude"`
	HubCode           string    `json:"hubCode"`
	WorkStatus        string    `json:"workStatus"`
	LastVisitResult   string    `json:"lastVisitResult"`
	Team              string    `json:"team"`
	CreatedAt         time.Time `json:"createdAt"`
}

// PerformanceReport is one persisted per-team performance snapshot,
// the normalized row shape shared by every consumer.
type PerformanceReport struct {
	ID             string    `json:"id"`
	Team           string    `json:"team"`
	WorkGroup      string    `json:"workGroup"`
	TotalAssigned  int       `json:"totalAssigned"`
	TotalCompleted int       `json:"totalCompleted"`
	TotalCured     int       `json:"totalCured"`
	TotalDR        int       `json:"totalDr"`
	TotalRepo      int       `json:"totalRepo"`
	TotalTapDeng   int       `json:"totalTapDeng"`
	ReportDate     string    `json:"reportDate"` // YYYY-MM-DD
	CreatedAt      time.Time `json:"createdAt"`
}
