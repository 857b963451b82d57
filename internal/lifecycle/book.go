package lifecycle

import "strings"

// MonthKey returns the billing month of an ISO date: its first seven
// characters (YYYY-MM). Shorter input is returned trimmed.
func MonthKey(date string) string {
	date = strings.TrimSpace(date)
	if len(date) < 7 {
		return date
	}
	return date[:7]
}

// Record is an entry whose date field determines its billing month.
type Record interface {
	MonthDate() string
}

// Book holds an entity's ordered submissions and drafts. Indices are
// positions in insertion order and shift on delete.
type Book[T Record] struct {
	Submissions []T
	Drafts      []T

	// Closed reports whether a submission may no longer be edited or
	// deleted. Nil means never.
	Closed func(T) bool
}

func NewBook[T Record](submissions, drafts []T) *Book[T] {
	if submissions == nil {
		submissions = []T{}
	}
	if drafts == nil {
		drafts = []T{}
	}
	return &Book[T]{Submissions: submissions, Drafts: drafts}
}

// HasMonth reports whether a submission other than the one at except
// occupies month. An empty month never conflicts.
func (b *Book[T]) HasMonth(month string, except int) bool {
	if month == "" {
		return false
	}
	for i, sub := range b.Submissions {
		if i == except {
			continue
		}
		if MonthKey(sub.MonthDate()) == month {
			return true
		}
	}
	return false
}

func (b *Book[T]) Submission(index int) (T, error) {
	var zero T
	if index < 0 || index >= len(b.Submissions) {
		return zero, NotFound("Invalid submission index")
	}
	return b.Submissions[index], nil
}

func (b *Book[T]) Draft(index int) (T, error) {
	var zero T
	if index < 0 || index >= len(b.Drafts) {
		return zero, NotFound("Draft not found")
	}
	return b.Drafts[index], nil
}

// AddDraft appends a draft without any month check.
func (b *Book[T]) AddDraft(draft T) int {
	b.Drafts = append(b.Drafts, draft)
	return len(b.Drafts) - 1
}

func (b *Book[T]) UpdateDraft(index int, draft T) error {
	if _, err := b.Draft(index); err != nil {
		return err
	}
	b.Drafts[index] = draft
	return nil
}

func (b *Book[T]) DeleteDraft(index int) (T, error) {
	removed, err := b.Draft(index)
	if err != nil {
		return removed, err
	}
	b.Drafts = append(b.Drafts[:index], b.Drafts[index+1:]...)
	return removed, nil
}

// Submit appends a submission if its month is free.
func (b *Book[T]) Submit(sub T) (int, error) {
	if b.HasMonth(MonthKey(sub.MonthDate()), -1) {
		return -1, Conflict(MsgMonthExists)
	}
	b.Submissions = append(b.Submissions, sub)
	return len(b.Submissions) - 1, nil
}

// Promote moves the draft at draftIndex into the submission list as sub.
// Nothing changes when the draft index is invalid or the month is taken.
func (b *Book[T]) Promote(draftIndex int, sub T) (int, error) {
	if draftIndex < 0 || draftIndex >= len(b.Drafts) {
		return -1, NotFound("Invalid draft index")
	}
	if b.HasMonth(MonthKey(sub.MonthDate()), -1) {
		return -1, Conflict(MsgMonthExists)
	}
	b.Drafts = append(b.Drafts[:draftIndex], b.Drafts[draftIndex+1:]...)
	b.Submissions = append(b.Submissions, sub)
	return len(b.Submissions) - 1, nil
}

// Editable returns the submission at index if it may still be edited.
func (b *Book[T]) Editable(index int) (T, error) {
	current, err := b.Submission(index)
	if err != nil {
		return current, err
	}
	if b.closed(current) {
		return current, Immutable("This submission cannot be edited because payment has already been recorded")
	}
	return current, nil
}

// Edit replaces the submission at index in place.
func (b *Book[T]) Edit(index int, sub T) error {
	if _, err := b.Editable(index); err != nil {
		return err
	}
	if b.HasMonth(MonthKey(sub.MonthDate()), index) {
		return Conflict(MsgMonthExists)
	}
	b.Submissions[index] = sub
	return nil
}

// DeleteSubmission removes the submission at index; later entries shift
// down by one.
func (b *Book[T]) DeleteSubmission(index int) (T, error) {
	current, err := b.Submission(index)
	if err != nil {
		return current, err
	}
	if b.closed(current) {
		return current, Immutable("This submission cannot be removed because payment has already been recorded")
	}
	b.Submissions = append(b.Submissions[:index], b.Submissions[index+1:]...)
	return current, nil
}

func (b *Book[T]) closed(sub T) bool {
	return b.Closed != nil && b.Closed(sub)
}
