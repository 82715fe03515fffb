package csvimport

import (
	"github.com/dukerupert/papertrail/internal/domain"
)

// MsgEmailRequired is reported for rows without a client email.
const MsgEmailRequired = "Client email is required"

// Group is every row for one client email, folded into a single draft.
type Group struct {
	Email string
	Draft domain.InvoiceDraft

	// Lines lists the source rows in file order.
	Lines []int
}

// Result is the output of grouping.
type Result struct {
	// Groups are ordered by first appearance of each email.
	Groups    []Group
	RowErrors []domain.BatchError
}

// Drafts returns the drafts in group order.
func (r Result) Drafts() []domain.InvoiceDraft {
	drafts := make([]domain.InvoiceDraft, len(r.Groups))
	for i, g := range r.Groups {
		drafts[i] = g.Draft
	}
	return drafts
}

// GroupRows folds rows into one group per client email.
//
// The first row seen for an email fixes the client details, due date and
// notes for that group; later rows only add a line item. Rows without an
// email are reported in RowErrors and skipped.
func GroupRows(rows []Row) Result {
	var res Result
	index := make(map[string]int)

	for _, row := range rows {
		if row.Email == "" {
			res.RowErrors = append(res.RowErrors, domain.BatchError{
				Row:     row.Line,
				Message: MsgEmailRequired,
			})
			continue
		}

		i, ok := index[row.Email]
		if !ok {
			i = len(res.Groups)
			index[row.Email] = i
			res.Groups = append(res.Groups, Group{
				Email: row.Email,
				Draft: domain.InvoiceDraft{
					Client:  row.Client,
					DueDate: row.DueDate,
					Notes:   row.Notes,
				},
			})
		}

		g := &res.Groups[i]
		g.Draft.Items = append(g.Draft.Items, row.Item)
		g.Lines = append(g.Lines, row.Line)
	}

	return res
}
