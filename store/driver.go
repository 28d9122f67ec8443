package store

import (
	"context"
	"database/sql"
	"time"
)

// Driver is the seam between the Store facade and a concrete backend
// (store/db/postgres, store/db/sqlite). Every method is tenant-scoped
// where the entity demands it; callers never need to add a tenant filter
// themselves.
type Driver interface {
	Close() error
	IsInitialized(ctx context.Context) (bool, error)
	GetDB() *sql.DB

	// Tenant
	CreateTenant(ctx context.Context, t *Tenant) (*Tenant, error)
	GetTenant(ctx context.Context, find *FindTenant) (*Tenant, error)
	UpdateTenant(ctx context.Context, update *UpdateTenant) (*Tenant, error)
	AddAPIKey(ctx context.Context, tenantID string, key APIKey) error
	RevokeAPIKey(ctx context.Context, tenantID, keyID string) error
	ListAPIKeys(ctx context.Context, tenantID string) ([]APIKey, error)

	// AgentConfiguration
	GetAgentConfiguration(ctx context.Context, tenantID string) (*AgentConfiguration, error)
	UpsertAgentConfiguration(ctx context.Context, upsert *UpsertAgentConfiguration) (*AgentConfiguration, error)

	// Customer
	CreateCustomer(ctx context.Context, create *CreateCustomer) (*Customer, error)
	FindCustomer(ctx context.Context, find *FindCustomer) (*Customer, error)
	ListCustomers(ctx context.Context, tenantID string, limit, offset int) ([]*Customer, error)
	UpdateCustomer(ctx context.Context, update *UpdateCustomer) (*Customer, error)

	// CustomerPreferences + ConsentEvent
	GetCustomerPreferences(ctx context.Context, tenantID, customerID string) (*CustomerPreferences, error)
	UpdateConsent(ctx context.Context, tenantID, customerID string, kind ConsentKind, newVal bool, source ConsentSource, reason, changedBy string) (*CustomerPreferences, error)
	ListConsentEvents(ctx context.Context, tenantID, customerID string) ([]*ConsentEvent, error)

	// Conversation
	CreateConversation(ctx context.Context, create *CreateConversation) (*Conversation, error)
	GetConversation(ctx context.Context, tenantID, id string) (*Conversation, error)
	ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error)
	TransitionConversationState(ctx context.Context, update *UpdateConversationState) (*Conversation, error)
	IncrementLowConfidence(ctx context.Context, tenantID, conversationID string) (int, error)
	ResetLowConfidence(ctx context.Context, tenantID, conversationID string) error
	UpdateConversationIntent(ctx context.Context, tenantID, conversationID, intent string, confidence float64) error
	SoftDeleteConversation(ctx context.Context, tenantID, id string) error

	// Message
	AppendMessage(ctx context.Context, append *AppendMessage) (*Message, error)
	ListRecentMessages(ctx context.Context, find *FindMessages) ([]*Message, error)
	UpdateMessageDeliveryState(ctx context.Context, tenantID, messageID string, status DeliveryStatus, at time.Time, errMsg string) error

	// MessageQueue (burst harmonization, C5)
	EnqueueMessage(ctx context.Context, enqueue *EnqueueMessage) (*MessageQueueEntry, error)
	TransitionQueueToProcessing(ctx context.Context, tenantID, conversationID string, olderThan time.Time) ([]*MessageQueueEntry, error)
	MarkQueueProcessed(ctx context.Context, ids []string) error
	MarkQueueFailed(ctx context.Context, ids []string, errMsg string) error

	// ConversationContext
	GetConversationContext(ctx context.Context, tenantID, conversationID string) (*ConversationContext, error)
	UpsertConversationContext(ctx context.Context, upsert *UpsertConversationContext) (*ConversationContext, error)

	// KnowledgeEntry
	CreateKnowledgeEntry(ctx context.Context, create *CreateKnowledgeEntry) (*KnowledgeEntry, error)
	UpdateKnowledgeEntry(ctx context.Context, update *UpdateKnowledgeEntry) (*KnowledgeEntry, error)
	SoftDeleteKnowledgeEntry(ctx context.Context, tenantID, id string) error
	ListKnowledgeEntries(ctx context.Context, find *FindKnowledge) ([]*KnowledgeEntry, error)
	SearchKnowledge(ctx context.Context, tenantID string, queryEmbedding []float32, kinds []KnowledgeKind, limit int, minSimilarity float64) ([]KnowledgeMatch, error)

	// Catalog / history (C4)
	ListProducts(ctx context.Context, filter *CatalogFilter) ([]*Product, error)
	ListServices(ctx context.Context, filter *CatalogFilter) ([]*Service, error)
	ListRecentOrders(ctx context.Context, tenantID, customerID string, limit int) ([]*Order, error)
	ListRecentAppointments(ctx context.Context, tenantID, customerID string, limit int) ([]*Appointment, error)
	AggregateSpend(ctx context.Context, tenantID, customerID string) (float64, error)

	// AgentInteraction / ProviderUsage (C14)
	CreateAgentInteraction(ctx context.Context, create *CreateAgentInteraction) (*AgentInteraction, error)
	CreateProviderUsage(ctx context.Context, create *CreateProviderUsage) (*ProviderUsage, error)

	// ScheduledMessage / MessageCampaign (C13)
	CreateScheduledMessage(ctx context.Context, create *CreateScheduledMessage) (*ScheduledMessage, error)
	ListDueScheduledMessages(ctx context.Context, find *FindDueScheduledMessages) ([]*ScheduledMessage, error)
	TransitionScheduledMessage(ctx context.Context, tenantID, id string, from, to ScheduledMessageStatus) (bool, error)
	MarkScheduledMessageSent(ctx context.Context, tenantID, id, messageID string, sentAt time.Time) error
	MarkScheduledMessageFailed(ctx context.Context, tenantID, id, errMsg string) error
	RescheduleMessage(ctx context.Context, tenantID, id string, newTime time.Time) error
	CancelScheduledMessage(ctx context.Context, tenantID, id string) error

	CreateMessageCampaign(ctx context.Context, create *CreateMessageCampaign) (*MessageCampaign, error)
	GetMessageCampaign(ctx context.Context, tenantID, id string) (*MessageCampaign, error)
	UpdateCampaignStatus(ctx context.Context, tenantID, id string, status CampaignStatus) error
	IncrementCampaignCounter(ctx context.Context, tenantID, id string, counter CampaignCounter, delta int64) error

	// Security audit trail
	AppendSecurityAuditLog(ctx context.Context, create *CreateSecurityAuditLog) error
	ListSecurityAuditLog(ctx context.Context, tenantID string, limit, offset int) ([]*SecurityAuditLog, error)
}
