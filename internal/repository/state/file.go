package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/redalert/internal/config"
	"github.com/oshokin/redalert/internal/domain/alarm"
)

// Snapshot is what the monitor persists between runs.
type Snapshot struct {
	// Alarm is the alarm state at save time.
	Alarm *alarm.State
	// SeenIDs lists dispatched alert ids, oldest first.
	SeenIDs []int64
}

// Repository defines persistence operations for the monitor snapshot.
type Repository interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snapshot *Snapshot) error
}

// FileRepository persists the snapshot as a JSON document on disk.
// The document is a protobuf Struct rendered with protojson; alert ids are
// stored as strings because they exceed the float64 range of JSON numbers.
type FileRepository struct {
	path string
	// mu serializes access to the state file.
	mu sync.Mutex
}

// ErrNotFound is returned when the state file does not exist yet.
var ErrNotFound = errors.New("state not found")

// Field names of the persisted document.
const (
	fieldStatus     = "status"
	fieldChangedAt  = "changed_at"
	fieldLastID     = "last_alert_id"
	fieldLastTitle  = "last_alert_title"
	fieldSeen       = "seen"
	statusActive    = "active"
	statusInactive  = "inactive"
	timestampLayout = time.RFC3339Nano
)

// NewFileRepository creates a repository that reads and writes path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the snapshot from disk.
func (r *FileRepository) Load(_ context.Context) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read state file: %w", err)
	}

	var document structpb.Struct
	if err = protojson.Unmarshal(contents, &document); err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}

	return fromStruct(&document)
}

// Save writes the snapshot to disk, replacing the previous file atomically.
func (r *FileRepository) Save(_ context.Context, snapshot *Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	document, err := toStruct(snapshot)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	data, err := protojson.MarshalOptions{Multiline: true}.Marshal(document)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	tmp := r.path + ".tmp"
	if err = os.WriteFile(tmp, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}

	if err = os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}

	return nil
}

// toStruct converts the snapshot into a protobuf Struct.
func toStruct(snapshot *Snapshot) (*structpb.Struct, error) {
	if snapshot == nil {
		snapshot = new(Snapshot)
	}

	st := snapshot.Alarm
	if st == nil {
		st = &alarm.State{Status: alarm.Inactive}
	}

	status := statusInactive
	if st.IsActive() {
		status = statusActive
	}

	seen := make([]any, 0, len(snapshot.SeenIDs))
	for _, id := range snapshot.SeenIDs {
		seen = append(seen, strconv.FormatInt(id, 10))
	}

	fields := map[string]any{
		fieldStatus:    status,
		fieldLastID:    strconv.FormatInt(st.LastAlertID, 10),
		fieldLastTitle: st.LastAlertTitle,
		fieldSeen:      seen,
	}

	if !st.Timestamp.IsZero() {
		fields[fieldChangedAt] = st.Timestamp.UTC().Format(timestampLayout)
	}

	return structpb.NewStruct(fields)
}

// fromStruct converts a protobuf Struct back into a snapshot.
func fromStruct(document *structpb.Struct) (*Snapshot, error) {
	fields := document.GetFields()

	st := &alarm.State{Status: alarm.Inactive}
	if fields[fieldStatus].GetStringValue() == statusActive {
		st.Status = alarm.Active
	}

	st.LastAlertTitle = fields[fieldLastTitle].GetStringValue()

	if raw := fields[fieldLastID].GetStringValue(); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode last alert id: %w", err)
		}

		st.LastAlertID = id
	}

	if raw := fields[fieldChangedAt].GetStringValue(); raw != "" {
		ts, err := time.Parse(timestampLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("decode change time: %w", err)
		}

		st.Timestamp = ts
	}

	values := fields[fieldSeen].GetListValue().GetValues()
	seen := make([]int64, 0, len(values))

	for _, value := range values {
		id, err := strconv.ParseInt(value.GetStringValue(), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode seen id: %w", err)
		}

		seen = append(seen, id)
	}

	return &Snapshot{
		Alarm:   st,
		SeenIDs: seen,
	}, nil
}
