package schema

import (
	"context"
	"fmt"

	"github.com/auroraseo/clinicgraph/internal/domain/page"
	"github.com/auroraseo/clinicgraph/internal/domain/schemadoc"
)

// ErrTierBlocked is returned when the effective tier forbids generation for
// a page type.
var ErrTierBlocked = fmt.Errorf("schema tier blocks generation")

// EffectiveTier resolves the generation tier for a page type: the account's
// override when present, the built-in default otherwise.
func (s *Service) EffectiveTier(ctx context.Context, accountID string, pt page.Type) (schemadoc.Tier, error) {
	overrides, err := s.schemas.ListTierOverrides(ctx, accountID)
	if err != nil {
		return "", err
	}
	for _, ov := range overrides {
		if ov.PageType == pt {
			return ov.Tier, nil
		}
	}
	if tier, ok := schemadoc.DefaultTiers[pt]; ok {
		return tier, nil
	}
	return schemadoc.TierLow, nil
}

// SetTier stores a per-account tier override.
func (s *Service) SetTier(ctx context.Context, accountID string, pt page.Type, tier schemadoc.Tier) (schemadoc.TierOverride, error) {
	if _, ok := page.ParseType(string(pt)); !ok {
		return schemadoc.TierOverride{}, fmt.Errorf("unknown page type %q", pt)
	}
	if !schemadoc.ValidTier(tier) {
		return schemadoc.TierOverride{}, fmt.Errorf("unknown tier %q", tier)
	}
	ov, err := s.schemas.SetTierOverride(ctx, schemadoc.TierOverride{
		AccountID: accountID,
		PageType:  pt,
		Tier:      tier,
	})
	if err != nil {
		return schemadoc.TierOverride{}, err
	}
	s.log.WithField("account", accountID).Infof("tier for %s set to %s", pt, tier)
	return ov, nil
}

// ClearTier removes a per-account override, restoring the default.
func (s *Service) ClearTier(ctx context.Context, accountID string, pt page.Type) error {
	return s.schemas.DeleteTierOverride(ctx, accountID, pt)
}

// Tiers returns the full effective tier table for an account.
func (s *Service) Tiers(ctx context.Context, accountID string) (map[page.Type]schemadoc.Tier, error) {
	overrides, err := s.schemas.ListTierOverrides(ctx, accountID)
	if err != nil {
		return nil, err
	}
	table := make(map[page.Type]schemadoc.Tier, len(schemadoc.DefaultTiers))
	for pt, tier := range schemadoc.DefaultTiers {
		table[pt] = tier
	}
	for _, ov := range overrides {
		table[ov.PageType] = ov.Tier
	}
	return table, nil
}
