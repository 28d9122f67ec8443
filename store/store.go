package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/conversagent/core/internal/cache"
	"github.com/conversagent/core/internal/profile"
)

// Store provides database access to every entity, wrapping a Driver with
// process-local, versioned-key caching for read-mostly lookups (tenant,
// agent configuration) per §5's shared-resource policy: a write bumps the
// subject's version rather than scanning the cache for matching keys.
type Store struct {
	profile *profile.Profile
	driver  Driver

	tenantVer   *cache.VersionCounter
	tenantCache *cache.LRUCache[string, *Tenant]
	configCache *cache.LRUCache[string, *AgentConfiguration]
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:      driver,
		profile:     profile,
		tenantVer:   cache.NewVersionCounter(),
		tenantCache: cache.New[string, *Tenant](512, 10*time.Minute),
		configCache: cache.New[string, *AgentConfiguration](512, 10*time.Minute),
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) IsInitialized(ctx context.Context) (bool, error) {
	return s.driver.IsInitialized(ctx)
}

// GetTenantCached returns a Tenant, serving from the version-keyed cache
// when possible. Call InvalidateTenant after any write that should
// invalidate cached reads.
func (s *Store) GetTenantCached(ctx context.Context, tenantID string) (*Tenant, error) {
	key := s.tenantVer.Key(tenantID)
	if t, ok := s.tenantCache.Get(key); ok {
		return t, nil
	}
	t, err := s.driver.GetTenant(ctx, &FindTenant{ID: &tenantID})
	if err != nil {
		return nil, err
	}
	s.tenantCache.Set(key, t, 0)
	return t, nil
}

// InvalidateTenant bumps the tenant's cache version, making every
// previously cached entry for it unreachable.
func (s *Store) InvalidateTenant(tenantID string) {
	s.tenantVer.Bump(tenantID)
	slog.Debug("store: tenant cache invalidated", "tenant_id", tenantID)
}

// GetAgentConfigurationCached returns the AgentConfiguration for a
// tenant, serving from cache when possible.
func (s *Store) GetAgentConfigurationCached(ctx context.Context, tenantID string) (*AgentConfiguration, error) {
	key := s.tenantVer.Key(tenantID, "config")
	if c, ok := s.configCache.Get(key); ok {
		return c, nil
	}
	c, err := s.driver.GetAgentConfiguration(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	s.configCache.Set(key, c, 0)
	return c, nil
}

// UpsertAgentConfigurationInvalidate writes through the driver and bumps
// the tenant's config cache version so the next read is fresh.
func (s *Store) UpsertAgentConfigurationInvalidate(ctx context.Context, upsert *UpsertAgentConfiguration) (*AgentConfiguration, error) {
	c, err := s.driver.UpsertAgentConfiguration(ctx, upsert)
	if err != nil {
		return nil, err
	}
	s.tenantVer.Bump(upsert.Config.TenantID)
	return c, nil
}

// Tenant
func (s *Store) CreateTenant(ctx context.Context, t *Tenant) (*Tenant, error) {
	return s.driver.CreateTenant(ctx, t)
}
func (s *Store) GetTenant(ctx context.Context, find *FindTenant) (*Tenant, error) {
	return s.driver.GetTenant(ctx, find)
}
func (s *Store) UpdateTenant(ctx context.Context, update *UpdateTenant) (*Tenant, error) {
	t, err := s.driver.UpdateTenant(ctx, update)
	if err == nil {
		s.InvalidateTenant(update.ID)
	}
	return t, err
}
func (s *Store) AddAPIKey(ctx context.Context, tenantID string, key APIKey) error {
	err := s.driver.AddAPIKey(ctx, tenantID, key)
	if err == nil {
		s.InvalidateTenant(tenantID)
	}
	return err
}
func (s *Store) RevokeAPIKey(ctx context.Context, tenantID, keyID string) error {
	err := s.driver.RevokeAPIKey(ctx, tenantID, keyID)
	if err == nil {
		s.InvalidateTenant(tenantID)
	}
	return err
}
func (s *Store) ListAPIKeys(ctx context.Context, tenantID string) ([]APIKey, error) {
	return s.driver.ListAPIKeys(ctx, tenantID)
}

// AgentConfiguration
func (s *Store) GetAgentConfiguration(ctx context.Context, tenantID string) (*AgentConfiguration, error) {
	return s.driver.GetAgentConfiguration(ctx, tenantID)
}
func (s *Store) UpsertAgentConfiguration(ctx context.Context, upsert *UpsertAgentConfiguration) (*AgentConfiguration, error) {
	return s.UpsertAgentConfigurationInvalidate(ctx, upsert)
}

// Customer
func (s *Store) CreateCustomer(ctx context.Context, create *CreateCustomer) (*Customer, error) {
	return s.driver.CreateCustomer(ctx, create)
}
func (s *Store) FindCustomer(ctx context.Context, find *FindCustomer) (*Customer, error) {
	return s.driver.FindCustomer(ctx, find)
}
func (s *Store) ListCustomers(ctx context.Context, tenantID string, limit, offset int) ([]*Customer, error) {
	return s.driver.ListCustomers(ctx, tenantID, limit, offset)
}
func (s *Store) UpdateCustomer(ctx context.Context, update *UpdateCustomer) (*Customer, error) {
	return s.driver.UpdateCustomer(ctx, update)
}

// CustomerPreferences / ConsentEvent
func (s *Store) GetCustomerPreferences(ctx context.Context, tenantID, customerID string) (*CustomerPreferences, error) {
	return s.driver.GetCustomerPreferences(ctx, tenantID, customerID)
}
func (s *Store) UpdateConsent(ctx context.Context, tenantID, customerID string, kind ConsentKind, newVal bool, source ConsentSource, reason, changedBy string) (*CustomerPreferences, error) {
	return s.driver.UpdateConsent(ctx, tenantID, customerID, kind, newVal, source, reason, changedBy)
}
func (s *Store) ListConsentEvents(ctx context.Context, tenantID, customerID string) ([]*ConsentEvent, error) {
	return s.driver.ListConsentEvents(ctx, tenantID, customerID)
}

// Conversation
func (s *Store) CreateConversation(ctx context.Context, create *CreateConversation) (*Conversation, error) {
	return s.driver.CreateConversation(ctx, create)
}
func (s *Store) GetConversation(ctx context.Context, tenantID, id string) (*Conversation, error) {
	return s.driver.GetConversation(ctx, tenantID, id)
}
func (s *Store) ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error) {
	return s.driver.ListConversations(ctx, find)
}
func (s *Store) TransitionConversationState(ctx context.Context, update *UpdateConversationState) (*Conversation, error) {
	return s.driver.TransitionConversationState(ctx, update)
}
func (s *Store) IncrementLowConfidence(ctx context.Context, tenantID, conversationID string) (int, error) {
	return s.driver.IncrementLowConfidence(ctx, tenantID, conversationID)
}
func (s *Store) ResetLowConfidence(ctx context.Context, tenantID, conversationID string) error {
	return s.driver.ResetLowConfidence(ctx, tenantID, conversationID)
}
func (s *Store) UpdateConversationIntent(ctx context.Context, tenantID, conversationID, intent string, confidence float64) error {
	return s.driver.UpdateConversationIntent(ctx, tenantID, conversationID, intent, confidence)
}
func (s *Store) SoftDeleteConversation(ctx context.Context, tenantID, id string) error {
	return s.driver.SoftDeleteConversation(ctx, tenantID, id)
}

// Message
func (s *Store) AppendMessage(ctx context.Context, append *AppendMessage) (*Message, error) {
	return s.driver.AppendMessage(ctx, append)
}
func (s *Store) ListRecentMessages(ctx context.Context, find *FindMessages) ([]*Message, error) {
	return s.driver.ListRecentMessages(ctx, find)
}
func (s *Store) UpdateMessageDeliveryState(ctx context.Context, tenantID, messageID string, status DeliveryStatus, at time.Time, errMsg string) error {
	return s.driver.UpdateMessageDeliveryState(ctx, tenantID, messageID, status, at, errMsg)
}

// MessageQueue
func (s *Store) EnqueueMessage(ctx context.Context, enqueue *EnqueueMessage) (*MessageQueueEntry, error) {
	return s.driver.EnqueueMessage(ctx, enqueue)
}
func (s *Store) TransitionQueueToProcessing(ctx context.Context, tenantID, conversationID string, olderThan time.Time) ([]*MessageQueueEntry, error) {
	return s.driver.TransitionQueueToProcessing(ctx, tenantID, conversationID, olderThan)
}
func (s *Store) MarkQueueProcessed(ctx context.Context, ids []string) error {
	return s.driver.MarkQueueProcessed(ctx, ids)
}
func (s *Store) MarkQueueFailed(ctx context.Context, ids []string, errMsg string) error {
	return s.driver.MarkQueueFailed(ctx, ids, errMsg)
}

// ConversationContext
func (s *Store) GetConversationContext(ctx context.Context, tenantID, conversationID string) (*ConversationContext, error) {
	return s.driver.GetConversationContext(ctx, tenantID, conversationID)
}
func (s *Store) UpsertConversationContext(ctx context.Context, upsert *UpsertConversationContext) (*ConversationContext, error) {
	return s.driver.UpsertConversationContext(ctx, upsert)
}

// KnowledgeEntry
func (s *Store) CreateKnowledgeEntry(ctx context.Context, create *CreateKnowledgeEntry) (*KnowledgeEntry, error) {
	return s.driver.CreateKnowledgeEntry(ctx, create)
}
func (s *Store) UpdateKnowledgeEntry(ctx context.Context, update *UpdateKnowledgeEntry) (*KnowledgeEntry, error) {
	return s.driver.UpdateKnowledgeEntry(ctx, update)
}
func (s *Store) SoftDeleteKnowledgeEntry(ctx context.Context, tenantID, id string) error {
	return s.driver.SoftDeleteKnowledgeEntry(ctx, tenantID, id)
}
func (s *Store) ListKnowledgeEntries(ctx context.Context, find *FindKnowledge) ([]*KnowledgeEntry, error) {
	return s.driver.ListKnowledgeEntries(ctx, find)
}
func (s *Store) SearchKnowledge(ctx context.Context, tenantID string, queryEmbedding []float32, kinds []KnowledgeKind, limit int, minSimilarity float64) ([]KnowledgeMatch, error) {
	return s.driver.SearchKnowledge(ctx, tenantID, queryEmbedding, kinds, limit, minSimilarity)
}

// Catalog / history
func (s *Store) ListProducts(ctx context.Context, filter *CatalogFilter) ([]*Product, error) {
	return s.driver.ListProducts(ctx, filter)
}
func (s *Store) ListServices(ctx context.Context, filter *CatalogFilter) ([]*Service, error) {
	return s.driver.ListServices(ctx, filter)
}
func (s *Store) ListRecentOrders(ctx context.Context, tenantID, customerID string, limit int) ([]*Order, error) {
	return s.driver.ListRecentOrders(ctx, tenantID, customerID, limit)
}
func (s *Store) ListRecentAppointments(ctx context.Context, tenantID, customerID string, limit int) ([]*Appointment, error) {
	return s.driver.ListRecentAppointments(ctx, tenantID, customerID, limit)
}
func (s *Store) AggregateSpend(ctx context.Context, tenantID, customerID string) (float64, error) {
	return s.driver.AggregateSpend(ctx, tenantID, customerID)
}

// AgentInteraction / ProviderUsage
func (s *Store) CreateAgentInteraction(ctx context.Context, create *CreateAgentInteraction) (*AgentInteraction, error) {
	return s.driver.CreateAgentInteraction(ctx, create)
}
func (s *Store) CreateProviderUsage(ctx context.Context, create *CreateProviderUsage) (*ProviderUsage, error) {
	return s.driver.CreateProviderUsage(ctx, create)
}

// ScheduledMessage / MessageCampaign
func (s *Store) CreateScheduledMessage(ctx context.Context, create *CreateScheduledMessage) (*ScheduledMessage, error) {
	return s.driver.CreateScheduledMessage(ctx, create)
}
func (s *Store) ListDueScheduledMessages(ctx context.Context, find *FindDueScheduledMessages) ([]*ScheduledMessage, error) {
	return s.driver.ListDueScheduledMessages(ctx, find)
}
func (s *Store) TransitionScheduledMessage(ctx context.Context, tenantID, id string, from, to ScheduledMessageStatus) (bool, error) {
	return s.driver.TransitionScheduledMessage(ctx, tenantID, id, from, to)
}
func (s *Store) MarkScheduledMessageSent(ctx context.Context, tenantID, id, messageID string, sentAt time.Time) error {
	return s.driver.MarkScheduledMessageSent(ctx, tenantID, id, messageID, sentAt)
}
func (s *Store) MarkScheduledMessageFailed(ctx context.Context, tenantID, id, errMsg string) error {
	return s.driver.MarkScheduledMessageFailed(ctx, tenantID, id, errMsg)
}
func (s *Store) RescheduleMessage(ctx context.Context, tenantID, id string, newTime time.Time) error {
	return s.driver.RescheduleMessage(ctx, tenantID, id, newTime)
}
func (s *Store) CancelScheduledMessage(ctx context.Context, tenantID, id string) error {
	return s.driver.CancelScheduledMessage(ctx, tenantID, id)
}
func (s *Store) CreateMessageCampaign(ctx context.Context, create *CreateMessageCampaign) (*MessageCampaign, error) {
	return s.driver.CreateMessageCampaign(ctx, create)
}
func (s *Store) GetMessageCampaign(ctx context.Context, tenantID, id string) (*MessageCampaign, error) {
	return s.driver.GetMessageCampaign(ctx, tenantID, id)
}
func (s *Store) UpdateCampaignStatus(ctx context.Context, tenantID, id string, status CampaignStatus) error {
	return s.driver.UpdateCampaignStatus(ctx, tenantID, id, status)
}
func (s *Store) IncrementCampaignCounter(ctx context.Context, tenantID, id string, counter CampaignCounter, delta int64) error {
	return s.driver.IncrementCampaignCounter(ctx, tenantID, id, counter, delta)
}

// Security audit trail
func (s *Store) AppendSecurityAuditLog(ctx context.Context, create *CreateSecurityAuditLog) error {
	return s.driver.AppendSecurityAuditLog(ctx, create)
}
func (s *Store) ListSecurityAuditLog(ctx context.Context, tenantID string, limit, offset int) ([]*SecurityAuditLog, error) {
	return s.driver.ListSecurityAuditLog(ctx, tenantID, limit, offset)
}
