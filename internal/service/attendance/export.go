package attendance

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/aulaiot/attendance-backend/internal/domain/attendance"
)

const exportPageSize = 1000

var exportHeader = []string{"name", "identity", "role", "classroom_id", "type", "date", "time", "status"}

// ExportCSV implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) ExportCSV(ctx context.Context, filter attendance.RecordFilter, w io.Writer) error {
	filter.Page = 1
	filter.Limit = exportPageSize
	if err := filter.Validate(); err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(exportHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for {
		records, total, err := a.LedgerRepository.List(ctx, filter)
		if err != nil {
			return dependency("list records", err)
		}

		for _, rec := range records {
			row := a.mapRecordToResponse(rec)
			if err := writer.Write([]string{
				deref(row.PersonName),
				deref(row.PersonIdentity),
				row.Role,
				row.ClassroomID,
				row.Type,
				row.Date,
				row.Time,
				row.Status,
			}); err != nil {
				return fmt.Errorf("failed to write csv row: %w", err)
			}
		}

		if len(records) == 0 || int64(filter.Page*filter.Limit) >= total {
			break
		}
		filter.Page++
	}

	writer.Flush()
	return writer.Error()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
