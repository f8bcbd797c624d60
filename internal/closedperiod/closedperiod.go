package closedperiod

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/timetrack/internal"
	"github.com/frahmantamala/timetrack/internal/auth"
	"github.com/frahmantamala/timetrack/internal/core/common/validation"
	"github.com/frahmantamala/timetrack/internal/core/policy"
	"github.com/frahmantamala/timetrack/internal/metrics"
	"github.com/frahmantamala/timetrack/internal/timeentry"
)

const (
	SettingKey = "closed_period_date"
	policyName = "closed_period"
)

var (
	ErrClosedPeriod    = errors.New("date falls within the closed period")
	ErrMalformedCutoff = errors.New("malformed closed period cutoff")
)

// cutoff values written by older tooling use the other layouts
var cutoffLayouts = []string{validation.DateLayout, "02.01.2006", time.RFC3339}

// SettingsStore is the key/value settings table.
type SettingsStore interface {
	Get(ctx context.Context, name string) (string, bool, error)
	Set(ctx context.Context, name, value string) error
	Delete(ctx context.Context, name string) error
}

type Policy struct {
	store  SettingsStore
	logger *slog.Logger
}

func NewPolicy(store SettingsStore, logger *slog.Logger) *Policy {
	return &Policy{store: store, logger: logger}
}

// ParseCutoff parses a stored cutoff value into a calendar date.
func ParseCutoff(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range cutoffLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return dateOf(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedCutoff, value)
}

// Cutoff returns the configured cutoff date, or nil when none is set. A malformed
// value counts as no cutoff.
func (p *Policy) Cutoff(ctx context.Context) (*time.Time, error) {
	raw, ok, err := p.store.Get(ctx, SettingKey)
	if err != nil {
		return nil, fmt.Errorf("load closed period setting: %w", err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	cutoff, err := ParseCutoff(raw)
	if err != nil {
		p.logger.Warn("ignoring malformed closed period cutoff",
			"setting", SettingKey,
			"value", raw,
			"code", internal.ErrCodeMalformedInput)
		return nil, nil
	}
	return &cutoff, nil
}

// ValidateNotInClosedPeriod fails when the entry's effective date is on or before
// the cutoff. It applies to every actor.
func (p *Policy) ValidateNotInClosedPeriod(ctx context.Context, entry *timeentry.TimeEntry) error {
	cutoff, err := p.Cutoff(ctx)
	if err != nil {
		return internal.NewInternalError("failed to load closed period", err)
	}
	if cutoff == nil {
		return nil
	}

	effective := dateOf(entry.EffectiveDate())
	if effective.After(*cutoff) {
		metrics.RecordDecision(policyName, true, "")
		return nil
	}

	metrics.RecordDecision(policyName, false, string(policy.ReasonClosedPeriod))
	p.logger.Warn("time entry write inside closed period",
		"time_entry_id", entry.ID,
		"project_id", entry.ProjectID,
		"effective_date", effective.Format(validation.DateLayout),
		"cutoff", cutoff.Format(validation.DateLayout))

	msg := fmt.Sprintf("%s (closed through %s)", policy.Message(policy.ReasonClosedPeriod), cutoff.Format(validation.DateLayout))
	return internal.NewClosedPeriodError(msg).WithCause(ErrClosedPeriod)
}

// Current returns the cutoff for display. Malformed values come back as nil.
func (p *Policy) Current(ctx context.Context) (*CutoffResponse, error) {
	cutoff, err := p.Cutoff(ctx)
	if err != nil {
		return nil, internal.NewInternalError("failed to load closed period", err)
	}
	resp := &CutoffResponse{}
	if cutoff != nil {
		s := cutoff.Format(validation.DateLayout)
		resp.Date = &s
	}
	return resp, nil
}

// SetCutoff stores a new cutoff; an empty date clears it. Administrators only.
func (p *Policy) SetCutoff(ctx context.Context, actor *auth.Actor, dto UpdateCutoffDTO) (*CutoffResponse, error) {
	if !actor.IsAdmin() {
		return nil, internal.ErrAdminRequired
	}
	if appErr := validation.Struct(dto); appErr != nil {
		return nil, appErr
	}

	date, appErr := validation.ParseDate("date", dto.Date)
	if appErr != nil {
		return nil, appErr
	}

	if date == nil {
		if err := p.store.Delete(ctx, SettingKey); err != nil {
			return nil, internal.NewInternalError("failed to clear closed period", err)
		}
		p.logger.Info("closed period cleared", "actor_id", actor.ID)
		return &CutoffResponse{}, nil
	}

	value := date.Format(validation.DateLayout)
	if err := p.store.Set(ctx, SettingKey, value); err != nil {
		return nil, internal.NewInternalError("failed to save closed period", err)
	}
	p.logger.Info("closed period updated", "actor_id", actor.ID, "cutoff", value)
	return &CutoffResponse{Date: &value}, nil
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
