package lifecycle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Date string
	Paid bool
	Tag  string
}

func (e entry) MonthDate() string { return e.Date }

func months(b *Book[entry]) []string {
	out := make([]string, 0, len(b.Submissions))
	for _, s := range b.Submissions {
		out = append(out, MonthKey(s.Date))
	}
	return out
}

func TestMonthKey(t *testing.T) {
	assert.Equal(t, "2024-03", MonthKey("2024-03-15"))
	assert.Equal(t, "2024-03", MonthKey(" 2024-03 "))
	assert.Equal(t, "2024", MonthKey("2024"))
	assert.Equal(t, "", MonthKey(""))
}

func TestBookSubmitEnforcesMonthUniqueness(t *testing.T) {
	b := NewBook[entry](nil, nil)

	idx, err := b.Submit(entry{Date: "2024-01-10"})
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	_, err = b.Submit(entry{Date: "2024-01-28"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConflict))
	assert.Equal(t, MsgMonthExists, err.Error())
	assert.Len(t, b.Submissions, 1)

	_, err = b.Submit(entry{Date: "2024-02-01"})
	require.NoError(t, err)

	// entries without a date never collide
	_, err = b.Submit(entry{})
	require.NoError(t, err)
	_, err = b.Submit(entry{})
	require.NoError(t, err)
	assert.Len(t, b.Submissions, 4)
}

func TestBookPromoteMovesExactlyOneEntry(t *testing.T) {
	b := NewBook[entry]([]entry{{Date: "2024-01-05"}}, nil)
	b.AddDraft(entry{Date: "2024-02-05", Tag: "a"})
	b.AddDraft(entry{Date: "2024-03-05", Tag: "b"})

	beforeSubs, beforeDrafts := len(b.Submissions), len(b.Drafts)
	_, err := b.Promote(0, entry{Date: "2024-02-05", Tag: "a"})
	require.NoError(t, err)
	assert.Equal(t, beforeSubs+1, len(b.Submissions))
	assert.Equal(t, beforeDrafts-1, len(b.Drafts))
	assert.Equal(t, "b", b.Drafts[0].Tag)

	t.Run("conflicting month leaves both lists untouched", func(t *testing.T) {
		_, err := b.Promote(0, entry{Date: "2024-01-20"})
		assert.True(t, errors.Is(err, ErrConflict))
		assert.Len(t, b.Submissions, 2)
		assert.Len(t, b.Drafts, 1)
	})

	t.Run("invalid draft index", func(t *testing.T) {
		_, err := b.Promote(5, entry{Date: "2024-09-01"})
		assert.True(t, errors.Is(err, ErrNotFound))
		assert.Len(t, b.Submissions, 2)
	})
}

func TestBookEditExcludesOwnIndex(t *testing.T) {
	b := NewBook[entry]([]entry{{Date: "2024-01-05"}, {Date: "2024-02-05"}}, nil)

	require.NoError(t, b.Edit(0, entry{Date: "2024-01-25", Tag: "edited"}))
	assert.Equal(t, "edited", b.Submissions[0].Tag)

	err := b.Edit(0, entry{Date: "2024-02-11"})
	assert.True(t, errors.Is(err, ErrConflict))
	assert.Equal(t, []string{"2024-01", "2024-02"}, months(b))

	err = b.Edit(2, entry{Date: "2024-05-01"})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestBookClosedSubmissionsRejectChanges(t *testing.T) {
	b := NewBook[entry]([]entry{{Date: "2024-01-05", Paid: true}, {Date: "2024-02-05"}}, nil)
	b.Closed = func(e entry) bool { return e.Paid }

	err := b.Edit(0, entry{Date: "2024-01-05"})
	assert.True(t, errors.Is(err, ErrImmutable))

	_, err = b.DeleteSubmission(0)
	assert.True(t, errors.Is(err, ErrImmutable))
	assert.Len(t, b.Submissions, 2)

	_, err = b.DeleteSubmission(1)
	require.NoError(t, err)
	assert.Len(t, b.Submissions, 1)
}

func TestBookDeleteShiftsLaterEntries(t *testing.T) {
	b := NewBook[entry]([]entry{
		{Date: "2024-01-01", Tag: "0"},
		{Date: "2024-02-01", Tag: "1"},
		{Date: "2024-03-01", Tag: "2"},
		{Date: "2024-04-01", Tag: "3"},
	}, nil)

	removed, err := b.DeleteSubmission(1)
	require.NoError(t, err)
	assert.Equal(t, "1", removed.Tag)
	assert.Len(t, b.Submissions, 3)
	assert.Equal(t, "2", b.Submissions[1].Tag)
	assert.Equal(t, "3", b.Submissions[2].Tag)
}

func TestBookDrafts(t *testing.T) {
	b := NewBook[entry](nil, nil)
	b.AddDraft(entry{Date: "2024-01-01"})
	b.AddDraft(entry{Date: "2024-01-01"})
	assert.Len(t, b.Drafts, 2, "drafts skip the month check")

	require.NoError(t, b.UpdateDraft(1, entry{Date: "2024-01-02", Tag: "x"}))
	assert.Equal(t, "x", b.Drafts[1].Tag)

	_, err := b.DeleteDraft(3)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "Draft not found", err.Error())

	removed, err := b.DeleteDraft(0)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", removed.Date)
	assert.Len(t, b.Drafts, 1)
}

func TestStoreErrorIsDistinct(t *testing.T) {
	err := Store(errors.New("database is locked"))
	assert.True(t, errors.Is(err, ErrStore))
	assert.False(t, errors.Is(err, ErrValidation))

	passthrough := Store(Validation("read_date", "read_date is required"))
	assert.True(t, errors.Is(passthrough, ErrValidation))
	assert.Nil(t, Store(nil))
}

func TestBookEditable(t *testing.T) {
	b := NewBook[entry]([]entry{{Date: "2024-01-05", Paid: true}, {Date: "2024-02-05"}}, nil)
	b.Closed = func(e entry) bool { return e.Paid }

	_, err := b.Editable(0)
	assert.True(t, errors.Is(err, ErrImmutable))

	current, err := b.Editable(1)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-05", current.Date)

	_, err = b.Editable(-1)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "Invalid submission index", err.Error())
}
