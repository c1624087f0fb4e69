package app

import (
	"context"
	"fmt"

	"reminder_service/internal/domain/reminder"
)

// Custom application-level errors for operator commands
var ErrAdminNotAuthorized = fmt.Errorf("performing user is not authorized as an admin")

// StateReporter exposes the orchestrator state of each domain.
type StateReporter interface {
	States() map[reminder.Domain]string
}

// DomainStatus is the operator view of one domain.
type DomainStatus struct {
	Domain reminder.Domain `json:"domain"`
	State  string          `json:"state"`
}

// OpsService backs the manual "run now" and reminder toggle commands used by
// the Telegram bot, the HTTP ops API and the CLI.
type OpsService struct {
	scanners        map[reminder.Domain]*Scanner
	store           reminder.Store
	states          StateReporter
	adminTelegramID int64
}

func NewOpsService(scanners []*Scanner, store reminder.Store, states StateReporter, adminID int64) *OpsService {
	byDomain := make(map[reminder.Domain]*Scanner, len(scanners))
	for _, sc := range scanners {
		byDomain[sc.Domain()] = sc
	}
	return &OpsService{
		scanners:        byDomain,
		store:           store,
		states:          states,
		adminTelegramID: adminID,
	}
}

// RunNow performs an immediate scan of domain as of the scanner's clock.
func (s *OpsService) RunNow(ctx context.Context, domain reminder.Domain) (Summary, error) {
	sc, ok := s.scanners[domain]
	if !ok {
		return Summary{}, fmt.Errorf("%w: %q", reminder.ErrUnknownDomain, domain)
	}
	return sc.Scan(ctx, sc.clock.Now())
}

// RunNowAsAdmin is RunNow guarded by the configured admin Telegram ID.
func (s *OpsService) RunNowAsAdmin(ctx context.Context, performingAdminID int64, domain reminder.Domain) (Summary, error) {
	if s.adminTelegramID == 0 || performingAdminID != s.adminTelegramID {
		return Summary{}, ErrAdminNotAuthorized
	}
	return s.RunNow(ctx, domain)
}

// SetReminderEnabled toggles reminders for one entity. Re-enabling clears
// embedded markers so thresholds can fire again.
func (s *OpsService) SetReminderEnabled(ctx context.Context, domain reminder.Domain, entityID string, enabled bool) error {
	if _, ok := s.scanners[domain]; !ok {
		return fmt.Errorf("%w: %q", reminder.ErrUnknownDomain, domain)
	}
	if err := s.store.SetReminderEnabled(ctx, domain, entityID, enabled); err != nil {
		return fmt.Errorf("failed to set reminder flag for %s %s: %w", domain, entityID, err)
	}
	return nil
}

// Status lists every configured domain with its orchestrator state.
func (s *OpsService) Status() []DomainStatus {
	var states map[reminder.Domain]string
	if s.states != nil {
		states = s.states.States()
	}
	out := make([]DomainStatus, 0, len(s.scanners))
	for _, d := range reminder.Domains {
		if _, ok := s.scanners[d]; !ok {
			continue
		}
		st := states[d]
		if st == "" {
			st = "unscheduled"
		}
		out = append(out, DomainStatus{Domain: d, State: st})
	}
	return out
}
