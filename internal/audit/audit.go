// Package audit records significant events such as jackpot awards, large
// wins and rejected machine definitions.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/alexbotov/slotsrv/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event types
const (
	EventJackpotAwarded       = "jackpot_awarded"
	EventLargeWin             = "large_win"
	EventConfigurationError   = "configuration_error"
	EventConfigurationSaved   = "configuration_saved"
	EventConfigurationRetired = "configuration_deactivated"
	EventRNGHealthCheck       = "rng_health_check"
	EventGamingDisabled       = "gaming_disabled"
	EventGamingEnabled        = "gaming_enabled"
	EventMachineDisabled      = "machine_disabled"
	EventMachineEnabled       = "machine_enabled"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Service provides audit logging functionality. Events always go to the
// logger and are also stored when a database is configured.
type Service struct {
	db  *sql.DB
	log *zap.Logger
}

// New creates a new audit service. db may be nil.
func New(db *sql.DB, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, log: log.Named("audit")}
}

// LogEvent records a significant event
func (s *Service) LogEvent(ctx context.Context, event *domain.AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Component == "" {
		event.Component = "slotsrv"
	}

	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("type", event.Type),
		zap.String("severity", string(event.Severity)),
		zap.String("component", event.Component),
	}
	if event.PlayerID != nil {
		fields = append(fields, zap.String("player_id", *event.PlayerID))
	}
	if event.MachineID != nil {
		fields = append(fields, zap.String("machine_id", *event.MachineID))
	}
	if event.IPAddress != "" {
		fields = append(fields, zap.String("ip", event.IPAddress))
	}
	if len(event.Data) > 0 {
		fields = append(fields, zap.ByteString("data", event.Data))
	}
	switch event.Severity {
	case domain.SeverityError, domain.SeverityCritical:
		s.log.Error(event.Description, fields...)
	case domain.SeverityWarning:
		s.log.Warn(event.Description, fields...)
	default:
		s.log.Info(event.Description, fields...)
	}

	if s.db == nil {
		return nil
	}

	var data any
	if len(event.Data) > 0 {
		data = string(event.Data)
	}
	query, args, err := psql.Insert("audit_events").
		Columns("id", "type", "severity", "timestamp", "player_id", "machine_id", "description", "data", "ip_address", "component").
		Values(event.ID, event.Type, event.Severity, event.Timestamp, event.PlayerID, event.MachineID,
			event.Description, data, event.IPAddress, event.Component).
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

// Log is a convenience method for logging events
func (s *Service) Log(ctx context.Context, eventType string, severity domain.EventSeverity, description string, data interface{}, opts ...EventOption) error {
	event := &domain.AuditEvent{
		ID:          uuid.New().String(),
		Type:        eventType,
		Severity:    severity,
		Timestamp:   time.Now().UTC(),
		Description: description,
		Component:   "slotsrv",
	}

	if data != nil {
		jsonData, err := json.Marshal(data)
		if err == nil {
			event.Data = jsonData
		}
	}

	for _, opt := range opts {
		opt(event)
	}

	return s.LogEvent(ctx, event)
}

// EventOption is a functional option for configuring audit events
type EventOption func(*domain.AuditEvent)

// WithPlayer sets the player ID for the event
func WithPlayer(playerID string) EventOption {
	return func(e *domain.AuditEvent) {
		if playerID != "" {
			e.PlayerID = &playerID
		}
	}
}

// WithMachine sets the machine ID for the event
func WithMachine(machineID string) EventOption {
	return func(e *domain.AuditEvent) {
		e.MachineID = &machineID
	}
}

// WithIP sets the IP address for the event
func WithIP(ip string) EventOption {
	return func(e *domain.AuditEvent) {
		e.IPAddress = ip
	}
}

// WithComponent sets the component for the event
func WithComponent(component string) EventOption {
	return func(e *domain.AuditEvent) {
		e.Component = component
	}
}

// GetEvents retrieves audit events with optional filtering. Without a
// database it returns nothing.
func (s *Service) GetEvents(ctx context.Context, filter *EventFilter) ([]*domain.AuditEvent, error) {
	if s.db == nil {
		return nil, nil
	}

	q := psql.Select("id", "type", "severity", "timestamp", "player_id", "machine_id", "description",
		"COALESCE(data::text, '')", "COALESCE(ip_address, '')", "component").
		From("audit_events").
		OrderBy("timestamp DESC")

	limit := uint64(100)
	if filter != nil {
		if filter.PlayerID != "" {
			q = q.Where(sq.Eq{"player_id": filter.PlayerID})
		}
		if filter.Type != "" {
			q = q.Where(sq.Eq{"type": filter.Type})
		}
		if !filter.From.IsZero() {
			q = q.Where(sq.GtOrEq{"timestamp": filter.From})
		}
		if !filter.To.IsZero() {
			q = q.Where(sq.LtOrEq{"timestamp": filter.To})
		}
		if filter.Limit > 0 {
			limit = uint64(filter.Limit)
		}
	}

	query, args, err := q.Limit(limit).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.AuditEvent
	for rows.Next() {
		var event domain.AuditEvent
		var playerID, machineID sql.NullString
		var data string

		err := rows.Scan(&event.ID, &event.Type, &event.Severity, &event.Timestamp,
			&playerID, &machineID, &event.Description, &data, &event.IPAddress, &event.Component)
		if err != nil {
			return nil, err
		}

		if playerID.Valid {
			event.PlayerID = &playerID.String
		}
		if machineID.Valid {
			event.MachineID = &machineID.String
		}
		if data != "" {
			event.Data = json.RawMessage(data)
		}

		events = append(events, &event)
	}

	return events, rows.Err()
}

// EventFilter defines criteria for filtering audit events
type EventFilter struct {
	PlayerID string
	Type     string
	From     time.Time
	To       time.Time
	Limit    int
}
