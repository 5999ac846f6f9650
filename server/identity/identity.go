// Package identity turns an authenticated principal into the current user
// descriptor every access decision is made against.
package identity

import (
	"context"
	"errors"
	"fmt"

	"taskflow/server/models"
)

// Organization is the caller's organization affiliation.
type Organization struct {
	ID     int64                     `json:"id"`
	Status models.OrganizationStatus `json:"status"`
}

// CurrentUser describes the caller of one request. Organization is set if and
// only if Kind is not KindSuperAdmin.
type CurrentUser struct {
	ID           int64             `json:"id"`
	Kind         models.UserKind   `json:"kind"`
	Organization *Organization     `json:"organization,omitempty"`
	Status       models.UserStatus `json:"status"`
}

func (u CurrentUser) IsSuperAdmin() bool { return u.Kind == models.KindSuperAdmin }

func (u CurrentUser) IsOrganizationAdmin() bool { return u.Kind == models.KindOrganizationAdmin }

func (u CurrentUser) IsEmployee() bool { return u.Kind == models.KindEmployee }

// BelongsTo reports whether the user is affiliated with the organization.
func (u CurrentUser) BelongsTo(organizationID int64) bool {
	return u.Organization != nil && u.Organization.ID == organizationID
}

// Active reports whether both the user and, when present, its organization are active.
func (u CurrentUser) Active() bool {
	if u.Status != models.UserActive {
		return false
	}
	if u.Organization != nil && u.Organization.Status != models.OrganizationActive {
		return false
	}
	return true
}

// Principal is what the authentication layer vouches for.
type Principal struct {
	UserID int64
	Method string
}

// ProfileSource loads user profiles. The store implements it.
type ProfileSource interface {
	UserProfile(ctx context.Context, userID int64) (models.Profile, error)
}

// ErrInconsistentProfile is returned for profiles that break the CurrentUser invariant.
var ErrInconsistentProfile = errors.New("inconsistent user profile")

// Resolver resolves principals into CurrentUser values.
type Resolver struct {
	profiles ProfileSource
}

func NewResolver(profiles ProfileSource) *Resolver {
	return &Resolver{profiles: profiles}
}

// Resolve returns the CurrentUser for p. It fails with models.ErrUnauthenticated
// when p is empty or does not map to a usable profile.
func (r *Resolver) Resolve(ctx context.Context, p Principal) (CurrentUser, error) {
	if p.UserID <= 0 {
		return CurrentUser{}, models.ErrUnauthenticated
	}
	prof, err := r.profiles.UserProfile(ctx, p.UserID)
	if errors.Is(err, models.ErrNotFound) {
		return CurrentUser{}, models.ErrUnauthenticated
	}
	if err != nil {
		return CurrentUser{}, fmt.Errorf("load profile %d: %w", p.UserID, err)
	}
	u, err := FromProfile(prof)
	if err != nil {
		return CurrentUser{}, fmt.Errorf("%w: %w", models.ErrUnauthenticated, err)
	}
	return u, nil
}

// FromProfile builds a CurrentUser from a stored profile.
func FromProfile(p models.Profile) (CurrentUser, error) {
	u := CurrentUser{ID: p.ID, Kind: p.Kind, Status: p.Status}
	switch p.Kind {
	case models.KindSuperAdmin:
		if p.OrganizationID != nil {
			return CurrentUser{}, fmt.Errorf("%w: super-admin %d has an organization", ErrInconsistentProfile, p.ID)
		}
	case models.KindOrganizationAdmin, models.KindEmployee:
		if p.OrganizationID == nil || p.OrganizationStatus == nil {
			return CurrentUser{}, fmt.Errorf("%w: user %d has no organization", ErrInconsistentProfile, p.ID)
		}
		u.Organization = &Organization{ID: *p.OrganizationID, Status: *p.OrganizationStatus}
	default:
		return CurrentUser{}, fmt.Errorf("%w: unknown kind %q", ErrInconsistentProfile, p.Kind)
	}
	return u, nil
}
