package expenses

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

var csvHeader = []string{"Date", "Amount", "Category", "Note"}

// ExportCSV writes ownerID's expenses as CSV, in list order, and returns the
// number of data rows written. The header row is always present.
func (s *Service) ExportCSV(ctx context.Context, ownerID int64, w io.Writer) (int, error) {
	list, err := s.List(ctx, ownerID)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return 0, fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range list {
		record := []string{e.Date, strconv.FormatFloat(e.Amount, 'f', -1, 64), e.Category, e.Note}
		if err := cw.Write(record); err != nil {
			return 0, fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("flush csv: %w", err)
	}
	return len(list), nil
}
