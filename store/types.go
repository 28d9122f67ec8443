// Package store defines the persistence shape of the orchestration engine:
// plain entity structs, paired Find/Create/Update request structs, and the
// store.Driver seam implemented by store/db/postgres and store/db/sqlite.
package store

import "time"

// ConsentKind enumerates the three independent consent flags on
// CustomerPreferences.
type ConsentKind string

const (
	ConsentTransactional ConsentKind = "transactional"
	ConsentReminder      ConsentKind = "reminder"
	ConsentPromotional   ConsentKind = "promotional"
)

// ConsentSource records who originated a consent change.
type ConsentSource string

const (
	ConsentSourceCustomer ConsentSource = "customer"
	ConsentSourceTenant   ConsentSource = "tenant"
	ConsentSourceSystem   ConsentSource = "system"
)

// ConversationState is the lifecycle state of a Conversation.
type ConversationState string

const (
	ConversationOpen      ConversationState = "open"
	ConversationBotHandled ConversationState = "bot-handled"
	ConversationHandedOff ConversationState = "handed-off"
	ConversationClosed    ConversationState = "closed"
	ConversationDormant   ConversationState = "dormant"
)

// MessageDirection is inbound or outbound.
type MessageDirection string

const (
	DirectionIn  MessageDirection = "in"
	DirectionOut MessageDirection = "out"
)

// MessageType enumerates the kinds of message this module emits or ingests.
type MessageType string

const (
	MessageCustomerInbound       MessageType = "customer-inbound"
	MessageBotResponse           MessageType = "bot-response"
	MessageAutomatedTransactional MessageType = "automated-transactional"
	MessageAutomatedReminder     MessageType = "automated-reminder"
	MessageAutomatedReengagement MessageType = "automated-reengagement"
	MessageScheduledPromotional  MessageType = "scheduled-promotional"
	MessageManualOutbound        MessageType = "manual-outbound"
)

// DeliveryStatus is the provider-reported delivery state of a Message.
type DeliveryStatus string

const (
	DeliveryNone      DeliveryStatus = ""
	DeliverySent      DeliveryStatus = "sent"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryRead      DeliveryStatus = "read"
	DeliveryFailed    DeliveryStatus = "failed"
)

// QueueStatus is the state of a MessageQueue entry used for burst
// harmonization.
type QueueStatus string

const (
	QueueQueued     QueueStatus = "queued"
	QueueProcessing QueueStatus = "processing"
	QueueProcessed  QueueStatus = "processed"
	QueueFailed     QueueStatus = "failed"
)

// KnowledgeKind enumerates KnowledgeEntry categories.
type KnowledgeKind string

const (
	KnowledgeFAQ         KnowledgeKind = "faq"
	KnowledgePolicy      KnowledgeKind = "policy"
	KnowledgeProductInfo KnowledgeKind = "product-info"
	KnowledgeServiceInfo KnowledgeKind = "service-info"
	KnowledgeProcedure   KnowledgeKind = "procedure"
	KnowledgeGeneral     KnowledgeKind = "general"
)

// ScheduledMessageStatus is the lifecycle state of a ScheduledMessage.
type ScheduledMessageStatus string

const (
	ScheduledPending    ScheduledMessageStatus = "pending"
	ScheduledProcessing ScheduledMessageStatus = "processing"
	ScheduledSent       ScheduledMessageStatus = "sent"
	ScheduledFailed     ScheduledMessageStatus = "failed"
	ScheduledCanceled   ScheduledMessageStatus = "canceled"
)

// CampaignStatus is the lifecycle state of a MessageCampaign.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignScheduled CampaignStatus = "scheduled"
	CampaignSending   CampaignStatus = "sending"
	CampaignCompleted CampaignStatus = "completed"
	CampaignCanceled  CampaignStatus = "canceled"
)

// FeedbackFrequency controls how often the agent asks for feedback.
type FeedbackFrequency string

const (
	FeedbackNever     FeedbackFrequency = "never"
	FeedbackSometimes FeedbackFrequency = "sometimes"
	FeedbackAlways    FeedbackFrequency = "always"
)

// ReplyShape describes the rendering shape of a generated reply.
type ReplyShape string

const (
	ReplyText   ReplyShape = "text"
	ReplyButton ReplyShape = "button"
	ReplyList   ReplyShape = "list"
	ReplyMedia  ReplyShape = "media"
)

// APIKey is an issued tenant API key record. The full key is never
// persisted; only its SHA-256 hash and an 8-char display prefix are.
type APIKey struct {
	CreatedAt  time.Time
	LastUsedAt *time.Time
	ID         string
	HashSHA256 string
	Prefix     string
	Label      string
	CreatedBy  string
}

// Tenant is the root of isolation for every other entity.
type Tenant struct {
	ID                 string
	ChannelIdentity    string
	ChannelCredentials map[string]string // opaque blobs, keyed by credential name
	APIKeys            []APIKey
	AllowedLanguages   []string
	QuietHoursStart    string // "HH:MM" in tenant-local time
	QuietHoursEnd      string
	MonthlyMessageBudget int
	MaxCatalogSize       int
	CampaignQuota        int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type FindTenant struct {
	ID              *string
	ChannelIdentity *string
}

type UpdateTenant struct {
	ID                   string
	ChannelIdentity      *string
	AllowedLanguages     *[]string
	QuietHoursStart      *string
	QuietHoursEnd        *string
	MonthlyMessageBudget *int
	MaxCatalogSize       *int
	CampaignQuota        *int
}

// AgentConfiguration is 1:1 with Tenant.
type AgentConfiguration struct {
	TenantID                 string
	DisplayName              string
	PersonaTraits            map[string]string
	Tone                     string // professional | friendly | casual | formal
	DefaultModelID           string
	FallbackModelIDs         []string
	Temperature              float64
	MaxReplyLength           int
	BehaviouralRestrictions  []string
	RequiredDisclaimers      []string
	ConfidenceThreshold      float64
	AutoHandoffTopics        []string
	MaxLowConfidenceAttempts int
	EnableProactiveSuggestions bool
	EnableSpellingCorrection   bool
	EnableRichMessages         bool
	EnableDocumentRetrieval    bool
	EnableDatabaseRetrieval    bool
	EnableInternetRetrieval    bool
	EnableSourceAttribution    bool
	EnableFeedbackCollection   bool
	FeedbackFrequency          FeedbackFrequency
	AgentCanDo                 string
	AgentCannotDo              string
	PerSourceRetrievalCaps     map[string]int
	Version                    int
	UpdatedAt                  time.Time
}

type UpsertAgentConfiguration struct {
	Config *AgentConfiguration
}

// Customer is identified by normalised phone number within a tenant.
type Customer struct {
	ID          string
	TenantID    string
	Phone       string
	DisplayName string
	Locale      string
	Tags        []string
	FirstSeenAt time.Time
	LastSeenAt  time.Time
}

type FindCustomer struct {
	TenantID string
	ID       *string
	Phone    *string
}

type CreateCustomer struct {
	TenantID    string
	Phone       string
	DisplayName string
	Locale      string
}

type UpdateCustomer struct {
	TenantID    string
	ID          string
	DisplayName *string
	Locale      *string
	Tags        *[]string
	LastSeenAt  *time.Time
}

// CustomerPreferences is 1:1 with Customer.
type CustomerPreferences struct {
	CustomerID           string
	TenantID             string
	TransactionalEnabled bool // default true, cannot be revoked
	ReminderEnabled      bool // default true, may be revoked
	PromotionalEnabled   bool // default false, requires explicit opt-in
	UpdatedAt            time.Time
}

// ConsentEvent is an append-only audit record of a CustomerPreferences
// change.
type ConsentEvent struct {
	ID          string
	TenantID    string
	CustomerID  string
	Kind        ConsentKind
	PreviousVal bool
	NewVal      bool
	Source      ConsentSource
	Reason      string
	ChangedBy   string
	CreatedAt   time.Time
}

// Conversation owns a sequence of Messages.
type Conversation struct {
	ID                     string
	TenantID               string
	CustomerID             string
	Channel                string
	State                  ConversationState
	LastIntent             string
	LastConfidence         float64
	LowConfidenceCounter   int
	LastAssignedAgentID    string
	HandoffAt              *time.Time
	HandoffReason          string
	Metadata               map[string]any
	CreatedAt              time.Time
	UpdatedAt              time.Time
	LastActivityAt         time.Time
	Deleted                bool
}

type FindConversation struct {
	TenantID   string
	ID         *string
	CustomerID *string
	State      *ConversationState
	Limit      int
	Offset     int
}

type CreateConversation struct {
	TenantID   string
	CustomerID string
	Channel    string
}

type UpdateConversationState struct {
	TenantID  string
	ID        string
	State     ConversationState
	Reason    string
	Metadata  map[string]any
}

// Message belongs to one Conversation and is append-only.
type Message struct {
	ID                string
	TenantID          string
	ConversationID    string
	Direction         MessageDirection
	Type              MessageType
	Text              string
	ProviderMessageID string
	DeliveryStatus    DeliveryStatus
	SentAt            *time.Time
	DeliveredAt       *time.Time
	ReadAt            *time.Time
	FailedAt          *time.Time
	Error             string
	CreatedAt         time.Time
	Seq               int64 // monotonic per-conversation sequence number
}

type AppendMessage struct {
	TenantID          string
	ConversationID    string
	Direction         MessageDirection
	Type              MessageType
	Text              string
	ProviderMessageID string
}

type FindMessages struct {
	TenantID       string
	ConversationID string
	Limit          int // most recent N, chronological order on return
}

// MessageQueueEntry is a buffer slot for burst harmonization (C5).
type MessageQueueEntry struct {
	ID             string
	TenantID       string
	ConversationID string
	MessageID      string
	Text           string
	Status         QueueStatus
	QueuedAt       time.Time
	ProcessedAt    *time.Time
	Error          string
}

type EnqueueMessage struct {
	TenantID       string
	ConversationID string
	MessageID      string
	Text           string
}

// ConversationContext is 1:1 with Conversation; long-lived soft memory.
type ConversationContext struct {
	ConversationID      string
	TenantID            string
	CurrentTopic        string
	KeyFacts            []string
	Summary             string
	LastProductViewed   string
	LastServiceViewed   string
	ExpiresAt           time.Time
	UpdatedAt           time.Time
}

type UpsertConversationContext struct {
	Context *ConversationContext
}

// KnowledgeEntry is tenant-scoped content searched by C3.
type KnowledgeEntry struct {
	ID         string
	TenantID   string
	Kind       KnowledgeKind
	Title      string
	Content    string
	Category   string
	Keywords   string // comma-separated
	Embedding  []float32
	Metadata   map[string]any
	Priority   int
	Active     bool
	Version    int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type CreateKnowledgeEntry struct {
	TenantID  string
	Kind      KnowledgeKind
	Title     string
	Content   string
	Category  string
	Keywords  string
	Embedding []float32
	Metadata  map[string]any
	Priority  int
}

type UpdateKnowledgeEntry struct {
	TenantID  string
	ID        string
	Title     *string
	Content   *string
	Category  *string
	Keywords  *string
	Embedding *[]float32
	Metadata  *map[string]any
	Priority  *int
}

type FindKnowledge struct {
	TenantID string
	Kinds    []KnowledgeKind
	Limit    int
}

// KnowledgeMatch pairs a KnowledgeEntry with a search similarity score.
type KnowledgeMatch struct {
	Entry      *KnowledgeEntry
	Similarity float64
}

// Product is a read-side catalog view item (C4).
type Product struct {
	ID          string
	TenantID    string
	Name        string
	Description string
	Price       float64
	Currency    string
	InStock     bool
	StockCount  int
	Active      bool
}

// Service is a read-side catalog view item (C4).
type Service struct {
	ID            string
	TenantID      string
	Name          string
	Description   string
	Price         float64
	Currency      string
	Active        bool
	NextAvailable *time.Time
}

// Order is a read-side customer history item (C4).
type Order struct {
	ID         string
	TenantID   string
	CustomerID string
	Total      float64
	Currency   string
	CreatedAt  time.Time
}

// Appointment is a read-side customer history item (C4).
type Appointment struct {
	ID          string
	TenantID    string
	CustomerID  string
	ServiceID   string
	ScheduledAt time.Time
	Status      string
}

type CatalogFilter struct {
	TenantID string
	Text     string
	Cursor   string
	Limit    int
}

// AgentInteraction is a per-turn audit record (C14).
type AgentInteraction struct {
	ID                string
	TenantID          string
	ConversationID    string
	CustomerMessage   string
	DetectedIntents   []string
	ModelID           string
	ContextTokens     int
	ProcessingTimeMS  int64
	GeneratedReply    string
	Confidence        float64
	HandoffTriggered  bool
	HandoffReason     string
	ReplyShape        ReplyShape
	PromptTokens      int
	CompletionTokens  int
	TotalTokens       int
	EstimatedCost     float64
	PrimaryUsageID    string
	CreatedAt         time.Time
}

type CreateAgentInteraction struct {
	Interaction *AgentInteraction
}

// ProviderUsage is a per provider-call ledger entry (C14).
type ProviderUsage struct {
	ID              string
	TenantID        string
	Provider        string
	Model           string
	InputTokens     int
	OutputTokens    int
	TotalTokens     int
	EstimatedCost   float64
	LatencyMS       int64
	Success         bool
	FinishReason    string
	Failover        bool
	RoutingReason   string
	ComplexityScore float64
	InteractionID   string
	CreatedAt       time.Time
}

type CreateProviderUsage struct {
	Usage *ProviderUsage
}

// ScheduledMessage is a time-based or broadcast outbound message (C13).
type ScheduledMessage struct {
	ID               string
	TenantID         string
	CustomerID       string // empty = broadcast
	Content          string
	Template         string
	TemplateContext  map[string]any
	ScheduledAt      time.Time
	Status           ScheduledMessageStatus
	RecipientCriteria string
	MessageType      MessageType
	SentAt           *time.Time
	FailedAt         *time.Time
	Error            string
	MessageID        string
	CampaignID       string
	Variant          string
	CreatedAt        time.Time
}

type CreateScheduledMessage struct {
	Message *ScheduledMessage
}

type FindDueScheduledMessages struct {
	Now   time.Time
	Limit int
}

// MessageCampaign is a broadcast orchestration record (C13).
type CampaignVariant struct {
	Name              string
	Content           string
	AssignedCustomers []string
	Delivered         int64
	Failed            int64
	Read              int64
	Responses         int64
}

type MessageCampaign struct {
	ID                string
	TenantID          string
	TargetCriteria    string
	DefaultContent    string
	Variants          []CampaignVariant
	Status            CampaignStatus
	ScheduledAt       time.Time
	DeliveredCount    int64
	DeliveredOKCount  int64
	FailedCount       int64
	ReadCount         int64
	ResponseCount     int64
	ConversionCount   int64
	StartedAt         *time.Time
	CompletedAt       *time.Time
	CreatedBy         string
	CreatedAt         time.Time
}

type CreateMessageCampaign struct {
	Campaign *MessageCampaign
}

// CampaignCounter names an atomically-incremented MessageCampaign field.
type CampaignCounter string

const (
	CampaignCounterDelivered  CampaignCounter = "delivered"
	CampaignCounterDeliveredOK CampaignCounter = "delivered_ok"
	CampaignCounterFailed     CampaignCounter = "failed"
	CampaignCounterRead       CampaignCounter = "read"
	CampaignCounterResponse   CampaignCounter = "response"
	CampaignCounterConversion CampaignCounter = "conversion"
)

// SecurityAuditLog is an append-only record of sensitive operations
// (API key lifecycle, scope-check failures).
type SecurityAuditLog struct {
	ID        string
	TenantID  string
	Actor     string
	Action    string
	Detail    string
	RiskLevel string
	CreatedAt time.Time
}

type CreateSecurityAuditLog struct {
	Log *SecurityAuditLog
}
