package domain

import (
	"strings"
	"time"

	"github.com/smallbiznis/microgrid/internal/billing"
	"github.com/smallbiznis/microgrid/internal/money"
	"gorm.io/datatypes"
)

// VEC is a village energy committee, one per hamlet. HamletKey is the
// lower-cased hamlet and carries the uniqueness.
type VEC struct {
	HamletKey   string `gorm:"column:hamlet_key;primaryKey;type:varchar(128)" json:"-"`
	Hamlet      string `gorm:"column:hamlet;type:varchar(128);not null" json:"hamlet"`
	VECName     string `gorm:"column:vec_name;type:text" json:"vec_name"`
	State       string `gorm:"column:state;type:text" json:"state"`
	District    string `gorm:"column:district;type:text" json:"district"`
	Block       string `gorm:"column:block;type:text" json:"block"`
	GP          string `gorm:"column:gp;type:text" json:"gp"`
	Village     string `gorm:"column:village;type:text" json:"village"`
	MicrogridID string `gorm:"column:microgrid_id;type:text" json:"microgrid_id"`

	Submissions datatypes.JSONSlice[Submission] `gorm:"column:submissions" json:"submissions"`
	Drafts      datatypes.JSONSlice[Submission] `gorm:"column:drafts" json:"drafts"`

	SubmissionCount int `gorm:"column:submission_count;not null;default:0" json:"-"`
	DraftCount      int `gorm:"column:draft_count;not null;default:0" json:"-"`

	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (VEC) TableName() string { return "vecs" }

func Key(hamlet string) string {
	return strings.ToLower(strings.TrimSpace(hamlet))
}

// Submission is a committee's monthly collection and savings report.
type Submission struct {
	SubmissionDate    string         `json:"submission_date"`
	GeneralIssues     billing.Issues `json:"general_issues"`
	AmountCollected   money.Text     `json:"amount_collected_for_the_Month"`
	AmountOtherSource money.Text     `json:"amount_other_source"`
	TotalCollected    money.Text     `json:"total_amount_collected_for_the_Month"`
	Expenditure       money.Text     `json:"expenditure_for_the_Month"`
	SavingsMonth      money.Text     `json:"savings_for_this_month"`
	TotalSavings      money.Text     `json:"total_savings"`
	AmountBank        money.Text     `json:"amount_bank"`
	AmountHand        money.Text     `json:"amount_hand"`
	IssueImg          *string        `json:"issue_img"`
}

func (s Submission) MonthDate() string          { return strings.TrimSpace(s.SubmissionDate) }
func (s Submission) RunningSavings() money.Text { return s.TotalSavings }
