// Package control lets an operator stop play system-wide or per machine.
//
// Every state change is audited. With a database the switches survive a
// restart through LoadState; without one they live in memory only.
package control

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/alexbotov/slotsrv/internal/audit"
	"github.com/alexbotov/slotsrv/internal/domain"
)

var (
	ErrGamingDisabled  = errors.New("gaming is currently disabled")
	ErrMachineDisabled = errors.New("machine is currently disabled")
)

// allMachines is the machine_controls key of the system-wide switch.
const allMachines = "*"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Switch describes why something was disabled.
type Switch struct {
	MachineID  string    `json:"machine_id,omitempty"`
	Reason     string    `json:"reason"`
	DisabledAt time.Time `json:"disabled_at"`
	DisabledBy string    `json:"disabled_by"`
}

// Status is a snapshot of every active switch.
type Status struct {
	GamingEnabled    bool     `json:"gaming_enabled"`
	Gaming           *Switch  `json:"gaming,omitempty"`
	DisabledMachines []Switch `json:"disabled_machines"`
}

// Service holds the operator switches
type Service struct {
	db    *sql.DB
	audit *audit.Service
	now   func() time.Time

	mu       sync.RWMutex
	gaming   *Switch
	machines map[string]Switch
}

// New creates a new control service. db may be nil.
func New(db *sql.DB, auditSvc *audit.Service) *Service {
	if auditSvc == nil {
		auditSvc = audit.New(db, nil)
	}
	return &Service{
		db:       db,
		audit:    auditSvc,
		now:      func() time.Time { return time.Now().UTC() },
		machines: make(map[string]Switch),
	}
}

// DisableAllGaming stops every spin until EnableAllGaming.
func (s *Service) DisableAllGaming(ctx context.Context, reason, authorizedBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sw := Switch{Reason: reason, DisabledAt: s.now(), DisabledBy: authorizedBy}
	if err := s.persist(ctx, allMachines, sw); err != nil {
		return err
	}
	s.gaming = &sw

	s.audit.Log(ctx, audit.EventGamingDisabled, domain.SeverityCritical,
		fmt.Sprintf("All gaming disabled: %s", reason),
		map[string]interface{}{
			"authorized_by": authorizedBy,
			"reason":        reason,
		},
		audit.WithComponent("control"))
	return nil
}

// EnableAllGaming resumes play. Machine switches stay in place.
func (s *Service) EnableAllGaming(ctx context.Context, authorizedBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.remove(ctx, allMachines); err != nil {
		return err
	}
	s.gaming = nil

	s.audit.Log(ctx, audit.EventGamingEnabled, domain.SeverityInfo,
		"All gaming enabled",
		map[string]interface{}{"authorized_by": authorizedBy},
		audit.WithComponent("control"))
	return nil
}

// DisableMachine stops spins on one machine.
func (s *Service) DisableMachine(ctx context.Context, machineID, reason, authorizedBy string) error {
	if machineID == "" || machineID == allMachines {
		return fmt.Errorf("invalid machine id %q", machineID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sw := Switch{MachineID: machineID, Reason: reason, DisabledAt: s.now(), DisabledBy: authorizedBy}
	if err := s.persist(ctx, machineID, sw); err != nil {
		return err
	}
	s.machines[machineID] = sw

	s.audit.Log(ctx, audit.EventMachineDisabled, domain.SeverityWarning,
		fmt.Sprintf("Machine disabled: %s - %s", machineID, reason),
		map[string]interface{}{
			"reason":        reason,
			"authorized_by": authorizedBy,
		},
		audit.WithMachine(machineID), audit.WithComponent("control"))
	return nil
}

// EnableMachine lifts a machine switch.
func (s *Service) EnableMachine(ctx context.Context, machineID, authorizedBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.remove(ctx, machineID); err != nil {
		return err
	}
	delete(s.machines, machineID)

	s.audit.Log(ctx, audit.EventMachineEnabled, domain.SeverityInfo,
		fmt.Sprintf("Machine enabled: %s", machineID),
		map[string]interface{}{"authorized_by": authorizedBy},
		audit.WithMachine(machineID), audit.WithComponent("control"))
	return nil
}

// IsGamingEnabled checks the system-wide switch
func (s *Service) IsGamingEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gaming == nil
}

// IsMachineEnabled checks a machine switch, ignoring the system-wide one
func (s *Service) IsMachineEnabled(machineID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, off := s.machines[machineID]
	return !off
}

// CheckAccess reports whether machineID may be played right now. A nil
// Service allows everything.
func (s *Service) CheckAccess(machineID string) error {
	if s == nil {
		return nil
	}
	if !s.IsGamingEnabled() {
		return ErrGamingDisabled
	}
	if !s.IsMachineEnabled(machineID) {
		return ErrMachineDisabled
	}
	return nil
}

// Status returns the active switches, machines ordered by id.
func (s *Service) Status() *Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := &Status{GamingEnabled: s.gaming == nil, DisabledMachines: make([]Switch, 0, len(s.machines))}
	if s.gaming != nil {
		g := *s.gaming
		st.Gaming = &g
	}
	for _, sw := range s.machines {
		st.DisabledMachines = append(st.DisabledMachines, sw)
	}
	sort.Slice(st.DisabledMachines, func(i, j int) bool {
		return st.DisabledMachines[i].MachineID < st.DisabledMachines[j].MachineID
	})
	return st
}

// LoadState loads persisted switches on startup
func (s *Service) LoadState(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	query, args, err := psql.Select("machine_id", "COALESCE(reason, '')", "disabled_at", "disabled_by").
		From("machine_controls").
		ToSql()
	if err != nil {
		return err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to load machine controls: %w", err)
	}
	defer rows.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.gaming = nil
	s.machines = make(map[string]Switch)
	for rows.Next() {
		var sw Switch
		if err := rows.Scan(&sw.MachineID, &sw.Reason, &sw.DisabledAt, &sw.DisabledBy); err != nil {
			return err
		}
		if sw.MachineID == allMachines {
			sw.MachineID = ""
			s.gaming = &sw
			continue
		}
		s.machines[sw.MachineID] = sw
	}
	return rows.Err()
}

func (s *Service) persist(ctx context.Context, key string, sw Switch) error {
	if s.db == nil {
		return nil
	}
	query, args, err := psql.Insert("machine_controls").
		Columns("machine_id", "reason", "disabled_at", "disabled_by").
		Values(key, sw.Reason, sw.DisabledAt, sw.DisabledBy).
		Suffix("ON CONFLICT (machine_id) DO UPDATE SET reason = EXCLUDED.reason, disabled_at = EXCLUDED.disabled_at, disabled_by = EXCLUDED.disabled_by").
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to persist control state: %w", err)
	}
	return nil
}

func (s *Service) remove(ctx context.Context, key string) error {
	if s.db == nil {
		return nil
	}
	query, args, err := psql.Delete("machine_controls").Where(sq.Eq{"machine_id": key}).ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to persist control state: %w", err)
	}
	return nil
}
