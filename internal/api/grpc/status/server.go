package status

import (
	"context"
	"strconv"
	"time"

	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/redalert/internal/domain/report"
)

// Field names of the status document.
const (
	FieldAlarm           = "alarm"
	FieldAlarmChangedAt  = "alarm_changed_at"
	FieldLastAlertID     = "last_alert_id"
	FieldLastAlertTitle  = "last_alert_title"
	FieldBroker          = "broker"
	FieldBrokerConnected = "broker_connected"
	FieldCycles          = "cycles"
	FieldLastCycleAt     = "last_cycle_at"
	FieldLastError       = "last_error"
	FieldSinks           = "sinks"
	FieldFeed            = "feed"
)

// Server implements MonitorServiceServer on top of a report.Reporter.
type Server struct {
	reporter report.Reporter
}

var _ MonitorServiceServer = (*Server)(nil)

// NewServer wires the reporter into a gRPC handler.
func NewServer(reporter report.Reporter) *Server {
	return &Server{
		reporter: reporter,
	}
}

// GetStatus returns the current report.
func (s *Server) GetStatus(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	document, err := Encode(s.reporter.Report())
	if err != nil {
		return nil, grpcstatus.Error(codes.Internal, "unable to encode status")
	}

	return document, nil
}

// Encode converts a report into the status document.
// Alert ids are strings because they exceed the exact range of JSON numbers.
func Encode(r report.Report) (*structpb.Struct, error) {
	fields := map[string]any{
		FieldAlarm:           r.Alarm.Status.String(),
		FieldAlarmChangedAt:  formatTime(r.Alarm.Timestamp),
		FieldLastAlertID:     "",
		FieldLastAlertTitle:  r.Alarm.LastAlertTitle,
		FieldBroker:          r.Broker,
		FieldBrokerConnected: r.BrokerConnected,
		FieldCycles:          float64(r.Cycles),
		FieldLastCycleAt:     formatTime(r.LastCycleAt),
		FieldLastError:       r.LastError,
		FieldSinks:           float64(r.Sinks),
		FieldFeed:            r.Feed,
	}

	if r.Alarm.LastAlertID != 0 {
		fields[FieldLastAlertID] = strconv.FormatInt(r.Alarm.LastAlertID, 10)
	}

	return structpb.NewStruct(fields)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.UTC().Format(time.RFC3339)
}
