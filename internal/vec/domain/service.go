package domain

import "context"

type CreateRequest struct {
	Hamlet      string `json:"hamlet"`
	VECName     string `json:"vec_name"`
	State       string `json:"state"`
	District    string `json:"district"`
	Block       string `json:"block"`
	GP          string `json:"gp"`
	Village     string `json:"village"`
	MicrogridID string `json:"microgrid_id"`
}

type ImportRow = CreateRequest

type SubmitRequest struct {
	Hamlet     string
	Submission Submission
	DraftIndex *int
}

type EditRequest struct {
	Hamlet     string
	Index      int
	Submission Submission
}

type DraftRequest struct {
	Hamlet string
	Index  *int
	Draft  Submission
}

// Form holds the defaults for a new report.
type Form struct {
	SubmissionDate  string `json:"submission_date"`
	AmountCollected string `json:"amount_collected_for_the_Month"`
	TotalSavings    string `json:"total_savings"`
	// Locked marks total_savings as computed from earlier reports.
	Locked bool `json:"locked"`
}

type Collection struct {
	Hamlet          string `json:"hamlet"`
	Month           string `json:"month"`
	AmountCollected string `json:"amount_collected_for_the_Month"`
}

type Stats struct {
	Count int64 `json:"count"`
	// Pending counts households with at least one submission.
	Pending int64 `json:"pending"`
}

type ImportResult struct {
	Count    int   `json:"count"`
	Inserted int64 `json:"inserted"`
}

type Service interface {
	Get(ctx context.Context, hamlet string) (VEC, error)
	List(ctx context.Context, hamlet string) ([]VEC, error)
	Form(ctx context.Context, hamlet string) (Form, error)
	Collection(ctx context.Context, hamlet, month string) (Collection, error)

	Create(ctx context.Context, req CreateRequest) (VEC, error)
	Delete(ctx context.Context, hamlet string) error
	Clear(ctx context.Context) (int64, error)
	Import(ctx context.Context, rows []ImportRow) (ImportResult, error)
	Stats(ctx context.Context) (Stats, error)

	SaveDraft(ctx context.Context, req DraftRequest) (int, Submission, error)
	DeleteDraft(ctx context.Context, hamlet string, index int) error
	Submit(ctx context.Context, req SubmitRequest) (int, Submission, error)
	Edit(ctx context.Context, req EditRequest) (Submission, error)
	RemoveSubmission(ctx context.Context, hamlet string, index int) error
}

const (
	MsgNotFound = "VEC not found"
	MsgExists   = "VEC already exists"
)
