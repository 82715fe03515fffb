package service

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/dukerupert/papertrail/internal/csvimport"
	"github.com/dukerupert/papertrail/internal/domain"
)

// ImportCSV parses a bulk upload file, groups it by client email and runs
// the groups through bulk. Rows without an email come first in Errors and
// are not counted as failed, since they never formed an invoice.
func ImportCSV(ctx context.Context, bulk domain.BulkUploadService, ownerID uuid.UUID, templateID int, r io.Reader) (*domain.BatchResult, error) {
	rows, err := csvimport.Parse(r)
	if err != nil {
		return nil, err
	}

	grouped := csvimport.GroupRows(rows)
	result, err := bulk.Process(ctx, ownerID, templateID, grouped.Drafts())
	if err != nil {
		return nil, err
	}

	if len(grouped.RowErrors) > 0 {
		result.Errors = append(grouped.RowErrors, result.Errors...)
	}
	return result, nil
}
