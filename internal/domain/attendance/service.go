package attendance

import (
	"context"
	"io"
	"time"
)

// AttendanceService defines business logic for scan attendance
type AttendanceService interface {
	// SubmitScan decodes a device payload and classifies it at the current time
	SubmitScan(ctx context.Context, req ScanRequest) (ScanResult, error)

	// Classify decides what record a scan by identity at now produces
	Classify(ctx context.Context, identity string, now time.Time) (Record, error)

	// CloseSession is the explicit teacher exit for a classroom
	CloseSession(ctx context.Context, req CloseSessionRequest, now time.Time) (ScanResult, error)

	// GetWindow returns the classroom's marking window state
	GetWindow(ctx context.Context, classroomID string, now time.Time) (WindowResponse, error)

	ListRecords(ctx context.Context, filter RecordFilter) (ListRecordResponse, error)
	GetRecord(ctx context.Context, id string) (RecordResponse, error)

	// JustifyRecord marks an entry as justified (the only post-creation change)
	JustifyRecord(ctx context.Context, req JustifyRequest) (RecordResponse, error)

	// ExportCSV writes the filtered ledger as CSV
	ExportCSV(ctx context.Context, filter RecordFilter, w io.Writer) error

	// SweepExpiredWindows reconciles classrooms whose window expired without a teacher exit
	SweepExpiredWindows(ctx context.Context, now time.Time) (int, error)
}
