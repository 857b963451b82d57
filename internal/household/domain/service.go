package domain

import "context"

type CreateRequest struct {
	CustomerID string `json:"customer_id"`
	HHName     string `json:"hh_name"`
	Hamlet     string `json:"hamlet"`
	State      string `json:"state"`
	District   string `json:"district"`
	Block      string `json:"block"`
	GP         string `json:"gp"`
	Village    string `json:"village"`
	VECName    string `json:"vec_name"`
	MeterNum   string `json:"meter_num"`
}

// ImportRow is one household line of a bulk upload.
type ImportRow = CreateRequest

type SubmitRequest struct {
	CustomerID string
	Submission Submission
	// DraftIndex promotes the draft at that index when set.
	DraftIndex *int
}

type EditRequest struct {
	CustomerID string
	Index      int
	Submission Submission
}

type DraftRequest struct {
	CustomerID string
	// Index selects an existing draft to replace; nil appends.
	Index *int
	Draft Submission
}

// Form holds the defaults for a new reading.
type Form struct {
	ReadDate string `json:"read_date"`
	PrevRead string `json:"prev_read"`
	PastDue  string `json:"past_due"`
	BillID   string `json:"bill_id"`
	// Locked marks prev_read and past_due as carried forward.
	Locked bool `json:"locked"`
}

type Stats struct {
	Count int64 `json:"count"`
}

type ImportResult struct {
	Count    int   `json:"count"`
	Inserted int64 `json:"inserted"`
}

type Service interface {
	Get(ctx context.Context, customerID string) (Household, error)
	List(ctx context.Context, hamlet string) ([]Household, error)
	ListSummaries(ctx context.Context, hamlet string) ([]Summary, error)
	Form(ctx context.Context, customerID string) (Form, error)

	Create(ctx context.Context, req CreateRequest) (Household, error)
	Delete(ctx context.Context, customerID string) error
	Clear(ctx context.Context) (int64, error)
	Import(ctx context.Context, rows []ImportRow) (ImportResult, error)
	Stats(ctx context.Context) (Stats, error)

	SaveDraft(ctx context.Context, req DraftRequest) (int, Submission, error)
	DeleteDraft(ctx context.Context, customerID string, index int) error
	Submit(ctx context.Context, req SubmitRequest) (int, Submission, error)
	Edit(ctx context.Context, req EditRequest) (Submission, error)
	RemoveSubmission(ctx context.Context, customerID string, index int) error
}

const (
	MsgNotFound = "Household not found"
	MsgExists   = "Household already exists"
)
