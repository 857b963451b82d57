package domain

import (
	"context"
	"time"
)

// ClaimInput is a claim as entered. Attachments are nil when no file was
// uploaded.
type ClaimInput struct {
	ClaimRefNumber        string  `json:"claim_ref_number"`
	ClaimDate             string  `json:"claim_date"`
	ClaimingFor           string  `json:"claiming_for"`
	ClaimApplicationPhoto *string `json:"claim_application_photo"`
	ClaimingForImage      *string `json:"claiming_for_image"`
}

type DraftRequest struct {
	Hamlet string
	Claim  ClaimInput
}

type SubmitRequest struct {
	Hamlet     string
	Claim      ClaimInput
	DraftIndex *int
}

type HamletClaims struct {
	Hamlet      string  `json:"hamlet"`
	Submissions []Claim `json:"submissions"`
	Drafts      []Claim `json:"drafts"`
}

type Service interface {
	GetHamlet(ctx context.Context, hamlet string) (HamletClaims, error)
	SaveDraft(ctx context.Context, req DraftRequest) (Claim, error)
	Submit(ctx context.Context, req SubmitRequest) (Claim, error)
	DeleteDraft(ctx context.Context, hamlet string, index int) error
	ListAll(ctx context.Context, status string) ([]ClaimView, error)
	NextRefNumber(ctx context.Context, hamlet string, date time.Time) (string, error)
}

const (
	MsgRefRequired = "Claim reference number is required"
	MsgRefExists   = "Claim reference number already exists"
)
