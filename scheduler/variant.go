package scheduler

import (
	"hash/fnv"

	"github.com/conversagent/core/store"
)

// AssignVariant deterministically assigns customerID to one of a
// campaign's active variants via FNV-1a hash modulo the active-variant
// count, per spec.md §4.13. Variants with zero AssignedCustomers
// capacity are still eligible; "active" here means present in
// variants (a campaign that wants to exclude a variant from further
// assignment should not pass it in).
//
// Resolves SPEC_FULL.md's open question on variant-assignment
// stability: the hash is computed over the customer id alone (not
// customer id + campaign id), so a customer consistently lands in the
// same named variant across campaigns that share variant names (e.g.
// always "control" vs "promo-20off") rather than reshuffling every
// campaign. This matches the plain reading of "a deterministic hash of
// customer id modulo the number of active variants" in spec.md §4.13,
// which does not mention campaign id as a hash input.
func AssignVariant(customerID string, variants []store.CampaignVariant) (store.CampaignVariant, bool) {
	if len(variants) == 0 {
		return store.CampaignVariant{}, false
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(customerID))
	idx := int(h.Sum32()) % len(variants)
	if idx < 0 {
		idx += len(variants)
	}
	return variants[idx], true
}

// ExpandCampaign produces one ScheduledMessage per recipient id, with
// each recipient assigned a variant deterministically, per spec.md
// §4.13's "Campaigns expand into per-recipient ScheduledMessages at
// start."
func ExpandCampaign(campaign *store.MessageCampaign, recipientIDs []string) []*store.ScheduledMessage {
	out := make([]*store.ScheduledMessage, 0, len(recipientIDs))
	for _, customerID := range recipientIDs {
		variant, ok := AssignVariant(customerID, campaign.Variants)
		content := campaign.DefaultContent
		variantName := ""
		if ok {
			content = variant.Content
			variantName = variant.Name
		}
		out = append(out, &store.ScheduledMessage{
			TenantID:    campaign.TenantID,
			CustomerID:  customerID,
			Content:     content,
			ScheduledAt: campaign.ScheduledAt,
			Status:      store.ScheduledPending,
			MessageType: store.MessageScheduledPromotional,
			CampaignID:  campaign.ID,
			Variant:     variantName,
		})
	}
	return out
}
