package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
)

// Claim is one insurance claim raised for a hamlet, either a draft or a
// submitted claim.
type Claim struct {
	ID                    snowflake.ID `gorm:"column:id;primaryKey" json:"id"`
	Hamlet                string       `gorm:"column:hamlet;type:varchar(128);not null" json:"hamlet"`
	HamletKey             string       `gorm:"column:hamlet_key;type:varchar(128);not null;index:idx_claims_hamlet_ref" json:"-"`
	ClaimRefNumber        string       `gorm:"column:claim_ref_number;type:varchar(128);index:idx_claims_hamlet_ref" json:"claim_ref_number"`
	ClaimDate             string       `gorm:"column:claim_date;type:varchar(32)" json:"claim_date"`
	ClaimingFor           string       `gorm:"column:claiming_for;type:text" json:"claiming_for"`
	ClaimApplicationPhoto *string      `gorm:"column:claim_application_photo;type:text" json:"claim_application_photo"`
	ClaimingForImage      *string      `gorm:"column:claiming_for_image;type:text" json:"claiming_for_image"`
	Status                string       `gorm:"column:status;type:varchar(16);not null;default:'draft';index" json:"status"`
	CreatedAt             time.Time    `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt             time.Time    `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (Claim) TableName() string { return "insurance_claims" }

// ClaimView is a claim joined with its hamlet's committee geography.
type ClaimView struct {
	Claim
	State       string `json:"state"`
	District    string `json:"district"`
	Block       string `json:"block"`
	GP          string `json:"gp"`
	Village     string `json:"village"`
	VECName     string `json:"vec_name"`
	MicrogridID string `json:"microgrid_id"`
}

func Key(hamlet string) string {
	return strings.ToLower(strings.TrimSpace(hamlet))
}
