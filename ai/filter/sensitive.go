// Package filter masks the PII surface of a conversational-commerce
// chat turn (phone number, email, payment card number, internal order
// reference) out of text before it lands in an AgentInteraction row.
package filter

import (
	"regexp"
	"sync"
	"time"
)

// FilterType defines the type of sensitive information to filter.
type FilterType int

const (
	// Phone filters E.164-style phone numbers, the format
	// store.Customer.Phone and the WhatsApp JID both use.
	Phone FilterType = iota

	// Email filters email addresses (order receipts, account recovery).
	Email

	// PaymentCard filters payment/debit/credit card numbers a customer
	// pastes into chat when asked to confirm a purchase.
	PaymentCard

	// OrderReference filters the UUIDs store.Order/store.Conversation
	// hand out as IDs, which an agent reply may echo back verbatim.
	OrderReference

	// All filters all known sensitive types.
	All
)

// FilterConfig configures the sensitive information filter.
type FilterConfig struct {
	// Enabled filter types.
	Enabled []FilterType

	// MaskChar is the character used for masking.
	MaskChar rune

	// PreserveLength determines whether to preserve original length.
	PreserveLength bool

	// KeepFirstN keeps first N characters unmasked.
	KeepFirstN int

	// KeepLastN keeps last N characters unmasked.
	KeepLastN int
}

// DefaultConfig returns default filter configuration.
func DefaultConfig() FilterConfig {
	return FilterConfig{
		Enabled:        []FilterType{Phone, Email, PaymentCard, OrderReference},
		MaskChar:       '*',
		PreserveLength: true,
		KeepFirstN:     3,
		KeepLastN:      4,
	}
}

// Filter filters sensitive information from text.
type Filter struct {
	config    FilterConfig
	regexes   map[FilterType]*regexp.Regexp
	mu        sync.RWMutex
	matchPool *sync.Pool
	stats     *filterStats
}

type filterStats struct {
	totalFiltered       int64
	totalMatches        int64
	phoneMatches        int64
	emailMatches        int64
	paymentCardMatches  int64
	orderRefMatches     int64
	totalNs             int64
}

// NewFilter creates a new sensitive information filter.
func NewFilter(cfg FilterConfig) *Filter {
	if len(cfg.Enabled) == 0 {
		cfg.Enabled = []FilterType{Phone, Email, PaymentCard, OrderReference}
	}

	f := &Filter{
		config:  cfg,
		regexes: make(map[FilterType]*regexp.Regexp),
		matchPool: &sync.Pool{
			New: func() interface{} {
				return make([]Match, 0, 16)
			},
		},
		stats: &filterStats{},
	}

	f.compileRegexes()

	return f
}

// DefaultFilter creates a filter with default configuration.
func DefaultFilter() *Filter {
	return NewFilter(DefaultConfig())
}

// compileRegexes compiles regex patterns for enabled filter types.
func (f *Filter) compileRegexes() {
	f.mu.Lock()
	defer f.mu.Unlock()

	types := make([]FilterType, 0, len(f.config.Enabled))
	for _, ft := range f.config.Enabled {
		if ft == All {
			types = append(types, Phone, Email, PaymentCard, OrderReference)
			continue
		}
		types = append(types, ft)
	}

	for _, ft := range types {
		if _, exists := f.regexes[ft]; exists {
			continue
		}

		pattern := getPattern(ft)
		if pattern != "" {
			f.regexes[ft] = regexp.MustCompile(pattern)
		}
	}
}

// getPattern returns the regex pattern for a filter type.
func getPattern(ft FilterType) string {
	switch ft {
	case Phone:
		// E.164-ish: optional +, 7-12 digits total, short of payment
		// card length so the two patterns never compete for the same run
		return `\b\+?[1-9]\d{6,11}\b`
	case Email:
		return `\b[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}\b`
	case PaymentCard:
		// 13-19 digits, optionally grouped by spaces or dashes in 4s
		return `\b(?:\d[ -]?){13,19}\b`
	case OrderReference:
		// store.Order/store.Conversation IDs are google/uuid v4 strings
		return `\b[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}\b`
	default:
		return ""
	}
}

// Match represents a single match found in text.
type Match struct {
	Type     FilterType
	Start    int
	End      int
	Original string
	Replaced string
}

// FilterText filters sensitive information from text.
func (f *Filter) FilterText(text string) string {
	matches := f.FindMatches(text)
	if len(matches) == 0 {
		return text
	}

	// Sort matches by start position in reverse order so replacement
	// from end to start never shifts an earlier match's offsets.
	for i := 0; i < len(matches)-1; i++ {
		for j := i + 1; j < len(matches); j++ {
			if matches[i].Start < matches[j].Start {
				matches[i], matches[j] = matches[j], matches[i]
			}
		}
	}

	result := text
	for _, match := range matches {
		prefix := result[:match.Start]
		suffix := result[match.End:]
		result = prefix + match.Replaced + suffix
	}

	return result
}

// FindMatches finds all sensitive information matches in text.
func (f *Filter) FindMatches(text string) []Match {
	start := time.Now()
	defer func() {
		f.recordStats(len(f.regexes), time.Since(start))
	}()

	v := f.matchPool.Get()
	matches, ok := v.([]Match)
	if !ok {
		matches = make([]Match, 0, 16)
	} else {
		matches = matches[:0]
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	for ft, re := range f.regexes {
		foundMatches := re.FindAllStringIndex(text, -1)
		for _, match := range foundMatches {
			original := text[match[0]:match[1]]
			matches = append(matches, Match{
				Type:     ft,
				Start:    match[0],
				End:      match[1],
				Original: original,
				Replaced: f.maskString(original, ft),
			})

			f.recordMatch(ft)
		}
	}

	result := make([]Match, len(matches))
	copy(result, matches)

	return result
}

// maskString masks a sensitive string according to configuration.
func (f *Filter) maskString(s string, ft FilterType) string {
	// Special handling for email - preserve @ and domain structure
	if ft == Email {
		return maskEmail(s, f.config.KeepFirstN, f.config.KeepLastN, f.config.MaskChar)
	}

	runes := []rune(s)
	length := len(runes)

	if length <= f.config.KeepFirstN+f.config.KeepLastN {
		return s // Too short to meaningfully mask
	}

	for i := f.config.KeepFirstN; i < length-f.config.KeepLastN; i++ {
		runes[i] = f.config.MaskChar
	}

	return string(runes)
}

// maskEmail masks an email address while preserving @ and domain structure.
func maskEmail(email string, keepFirst, keepLast int, maskChar rune) string {
	runes := []rune(email)
	length := len(runes)

	atPos := -1
	for i, r := range runes {
		if r == '@' {
			atPos = i
			break
		}
	}

	if atPos == -1 {
		for i := keepFirst; i < length-keepLast; i++ {
			if i >= 0 && i < len(runes) {
				runes[i] = maskChar
			}
		}
		return string(runes)
	}

	for i := keepFirst; i < atPos; i++ {
		if i >= 0 && i < len(runes) {
			runes[i] = maskChar
		}
	}

	dotPos := -1
	for i := length - 1; i > atPos; i-- {
		if runes[i] == '.' {
			dotPos = i
			break
		}
	}

	if dotPos != -1 {
		for i := atPos + 1; i < dotPos; i++ {
			if i >= 0 && i < len(runes) {
				runes[i] = maskChar
			}
		}
	} else {
		for i := atPos + 1; i < length-keepLast; i++ {
			if i >= 0 && i < len(runes) {
				runes[i] = maskChar
			}
		}
	}

	return string(runes)
}

// FilterWithOptions filters text with custom options.
func (f *Filter) FilterWithOptions(text string, keepFirst, keepLast int, maskChar rune) string {
	oldFirst := f.config.KeepFirstN
	oldLast := f.config.KeepLastN
	oldChar := f.config.MaskChar

	f.config.KeepFirstN = keepFirst
	f.config.KeepLastN = keepLast
	f.config.MaskChar = maskChar

	result := f.FilterText(text)

	f.config.KeepFirstN = oldFirst
	f.config.KeepLastN = oldLast
	f.config.MaskChar = oldChar

	return result
}

// Validate checks if text contains any unfiltered sensitive information.
func (f *Filter) Validate(text string) bool {
	matches := f.FindMatches(text)
	return len(matches) == 0
}

// GetStats returns filter statistics.
func (f *Filter) GetStats() *FilterStats {
	f.mu.RLock()
	defer f.mu.RUnlock()

	total := f.stats.totalMatches
	if total == 0 {
		return &FilterStats{}
	}

	avgNs := f.stats.totalNs / total

	return &FilterStats{
		TotalFiltered:      f.stats.totalFiltered,
		TotalMatches:       total,
		PhoneMatches:       f.stats.phoneMatches,
		EmailMatches:       f.stats.emailMatches,
		PaymentCardMatches: f.stats.paymentCardMatches,
		OrderRefMatches:    f.stats.orderRefMatches,
		AverageLatency:     time.Duration(avgNs),
	}
}

// FilterStats contains filter statistics.
type FilterStats struct {
	TotalFiltered      int64
	TotalMatches       int64
	PhoneMatches       int64
	EmailMatches       int64
	PaymentCardMatches int64
	OrderRefMatches    int64
	AverageLatency     time.Duration
}

func (f *Filter) recordMatch(ft FilterType) {
	switch ft {
	case Phone:
		f.stats.phoneMatches++
	case Email:
		f.stats.emailMatches++
	case PaymentCard:
		f.stats.paymentCardMatches++
	case OrderReference:
		f.stats.orderRefMatches++
	}
	f.stats.totalMatches++
}

func (f *Filter) recordStats(matchCount int, duration time.Duration) {
	f.stats.totalFiltered++
	f.stats.totalNs += duration.Nanoseconds()
}

// ValidatePhone checks if a string is a valid E.164-ish phone number.
func ValidatePhone(s string) bool {
	re := regexp.MustCompile(`^\+?[1-9]\d{6,11}$`)
	return re.MatchString(s)
}

// ValidateEmail checks if a string is a valid email address.
func ValidateEmail(s string) bool {
	re := regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	return re.MatchString(s)
}

// ValidatePaymentCard checks if a string is a plausible payment card number.
func ValidatePaymentCard(s string) bool {
	re := regexp.MustCompile(`^(?:\d[ -]?){13,19}$`)
	return re.MatchString(s)
}

// ValidateOrderReference checks if a string is a UUID-shaped order/
// conversation reference.
func ValidateOrderReference(s string) bool {
	re := regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	return re.MatchString(s)
}
