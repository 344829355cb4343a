package types

import "time"

// VisitDetails is the contact and purpose snapshot taken at each entry.
type VisitDetails struct {
	KnownAs                      string `json:"known_as"`
	Address                      string `json:"address"`
	PhoneNumber                  string `json:"phone_number"`
	Unit                         string `json:"unit"`
	ReasonForVisit               string `json:"reason_for_visit"`
	VisitorType                  string `json:"type"`
	CompanyName                  string `json:"company_name"`
	MandatoryAcknowledgmentTaken bool   `json:"mandatory_acknowledgment_taken"`
}

// PlaceholderDetails fills a back-dated visit for a visitor with no prior visit.
func PlaceholderDetails() VisitDetails {
	return VisitDetails{
		KnownAs:        "--",
		Address:        "--",
		PhoneNumber:    "--",
		Unit:           "--",
		ReasonForVisit: "--",
		VisitorType:    "Visitor",
		CompanyName:    "--",
	}
}

type Dependent struct {
	FullName string `json:"full_name"`
	Age      *int   `json:"age"`
}

type Visitor struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	PhotoPath string    `json:"-"`
	PhotoURL  string    `json:"photo_url,omitempty"`
	IsBanned  bool      `json:"is_banned"`
	CreatedAt time.Time `json:"created_at"`
}

type Visit struct {
	ID        int64      `json:"id"`
	VisitorID int64      `json:"visitor_id"`
	EntryTime time.Time  `json:"entry_time"`
	ExitTime  *time.Time `json:"exit_time"`
	VisitDetails
}

// VisitRecord is the flat row returned by the roster, search and history
// reads: a visitor joined with one of their visits and that visit's
// dependents. VisitID is zero for a visitor who has never visited.
type VisitRecord struct {
	VisitorID int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	PhotoPath string `json:"-"`
	PhotoURL  string `json:"photo_url"`
	IsBanned  bool   `json:"is_banned"`

	VisitID   int64      `json:"visit_id,omitempty"`
	EntryTime *time.Time `json:"entry_time"`
	ExitTime  *time.Time `json:"exit_time"`
	VisitDetails

	Dependents []Dependent `json:"dependents"`
}

// SignInResult is the visitor, their new visit and its copied dependents.
type SignInResult struct {
	Visitor    Visitor     `json:"visitor"`
	Visit      Visit       `json:"visit"`
	Dependents []Dependent `json:"dependents"`
}

type RegisterResult struct {
	VisitorID int64 `json:"id"`
	VisitID   int64 `json:"visitId"`
}

type MissedVisitResult struct {
	VisitID int64     `json:"visitId"`
	Entry   time.Time `json:"entry"`
	Exit    time.Time `json:"exit"`
}
