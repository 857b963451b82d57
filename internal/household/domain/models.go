package domain

import (
	"strings"
	"time"

	"github.com/smallbiznis/microgrid/internal/billing"
	"github.com/smallbiznis/microgrid/internal/money"
	"gorm.io/datatypes"
)

// Household is a billed electricity customer. Its submissions and drafts
// are ordered lists stored with the row.
type Household struct {
	CustomerID string `gorm:"column:customer_id;primaryKey;type:varchar(128)" json:"customer_id"`
	HHName     string `gorm:"column:hh_name;type:text" json:"hh_name"`
	Hamlet     string `gorm:"column:hamlet;type:varchar(128);index" json:"hamlet"`
	State      string `gorm:"column:state;type:text" json:"state"`
	District   string `gorm:"column:district;type:text" json:"district"`
	Block      string `gorm:"column:block;type:text" json:"block"`
	GP         string `gorm:"column:gp;type:text" json:"gp"`
	Village    string `gorm:"column:village;type:text" json:"village"`
	VECName    string `gorm:"column:vec_name;type:text" json:"vec_name"`
	MeterNum   string `gorm:"column:meter_num;type:text" json:"meter_num"`

	Submissions datatypes.JSONSlice[Submission] `gorm:"column:submissions" json:"submissions"`
	Drafts      datatypes.JSONSlice[Submission] `gorm:"column:drafts" json:"drafts"`

	SubmissionCount int `gorm:"column:submission_count;not null;default:0;index" json:"-"`
	DraftCount      int `gorm:"column:draft_count;not null;default:0" json:"-"`

	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (Household) TableName() string { return "households" }

// Summary is the short list form of a household.
type Summary struct {
	CustomerID string `json:"customer_id"`
	HHName     string `json:"hh_name"`
}

// Submission is one monthly meter reading and bill. Drafts share the shape.
type Submission struct {
	ReadDate         string         `json:"read_date"`
	IndividualIssues billing.Issues `json:"individual_issues"`
	MeterRead        money.Text     `json:"meter_read"`
	PrevRead         money.Text     `json:"prev_read"`
	NetConsumed      money.Text     `json:"net_consumed"`
	CurrentBill      money.Text     `json:"current_bill"`
	PastDue          money.Text     `json:"past_due"`
	TotalDue         money.Text     `json:"total_due"`
	AmountPaid       money.Text     `json:"amount_paid"`
	AmountBalance    money.Text     `json:"amount_balance"`
	BillID           string         `json:"bill_id"`
	IssueImg         *string        `json:"issue_img"`
	MeterImage       *string        `json:"meter_image"`
}

func (s Submission) MonthDate() string          { return strings.TrimSpace(s.ReadDate) }
func (s Submission) ClosingReading() money.Text { return s.MeterRead }
func (s Submission) ClosingBalance() money.Text { return s.AmountBalance }
func (s Submission) PaidAmount() money.Text     { return s.AmountPaid }

// Closed reports whether amount_paid has been filled in. Any value,
// "0" included, closes the submission.
func (s Submission) Closed() bool {
	return !s.AmountPaid.Empty()
}
