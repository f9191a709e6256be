// Package courier answers operator questions about the courier fleet by
// joining the platform's courier directory with live presence.
package courier

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"delivery-tracking/internal/apperr"
	"delivery-tracking/internal/domain"
)

// Entry is one courier as seen by operators.
type Entry struct {
	ID          string        `json:"id"`
	Role        domain.Role   `json:"role"`
	Listed      bool          `json:"listed"`
	Connected   bool          `json:"connected"`
	IsAvailable bool          `json:"isAvailable"`
	Location    *domain.Point `json:"location"`
	UpdatedAt   *time.Time    `json:"updatedAt,omitempty"`
}

// Service coordinates the roster queries.
type Service struct {
	directory        directory
	presence         presenceView
	operationTimeout time.Duration
}

// NewService creates a courier Service.
func NewService(dir directory, presence presenceView, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Service{directory: dir, presence: presence, operationTimeout: timeout}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.operationTimeout)
}

// Online lists the couriers the directory reports for role, merged with live
// presence. Connected couriers missing from the directory are appended with
// Listed=false. Only administrators may call it.
func (s *Service) Online(ctx context.Context, actor domain.Identity, role string) ([]Entry, error) {
	if !actor.IsAdmin {
		return nil, fmt.Errorf("list couriers: %w", apperr.ErrUnauthorized)
	}
	r, err := parseRole(role)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	users, err := s.directory.ListAvailableCouriers(ctx, r)
	if err != nil {
		if errors.Is(err, apperr.ErrUpstreamUnavailable) {
			return nil, fmt.Errorf("list couriers: %w", err)
		}
		return nil, fmt.Errorf("list couriers: %w: %w", apperr.ErrUpstreamUnavailable, err)
	}

	live := make(map[string]domain.Presence)
	for _, p := range s.presence.Online() {
		live[p.CourierID] = p
	}

	out := make([]Entry, 0, len(users))
	seen := make(map[string]struct{}, len(users))
	for _, u := range users {
		if u.ID == "" {
			continue
		}
		seen[u.ID] = struct{}{}
		e := Entry{ID: u.ID, Role: u.Role, Listed: true}
		if e.Role == "" {
			e.Role = r
		}
		if p, ok := live[u.ID]; ok {
			attach(&e, p)
		}
		out = append(out, e)
	}
	if r == domain.RoleCourier {
		for id, p := range live {
			if _, ok := seen[id]; ok {
				continue
			}
			e := Entry{ID: id, Role: domain.RoleCourier}
			attach(&e, p)
			out = append(out, e)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func attach(e *Entry, p domain.Presence) {
	e.Connected = true
	e.IsAvailable = p.IsAvailable
	e.Location = p.Position
	if !p.UpdatedAt.IsZero() {
		at := p.UpdatedAt
		e.UpdatedAt = &at
	}
}

func parseRole(raw string) (domain.Role, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return domain.RoleCourier, nil
	}
	switch r := domain.Role(raw); r {
	case domain.RoleCourier, domain.RoleRestaurant, domain.RoleCustomer, domain.RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q: %w", raw, apperr.ErrValidation)
}
