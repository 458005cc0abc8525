package chat

import (
	"context"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/artisanhub/artisanhub/internal/listing"
	"github.com/artisanhub/artisanhub/pkg/common"
	"github.com/artisanhub/artisanhub/pkg/metrics"
)

const (
	SourceIntent  = "intent"
	SourceAI      = "ai"
	SourceDefault = "default"

	// MaxHistory bounds the turns replayed to the model
	MaxHistory = 8
	// MaxMessageLength bounds a single visitor message
	MaxMessageLength = 1000
)

const DefaultReply = "Thanks for your message! I can help with buying, selling, shipping, returns and events. " +
	"For anything else, write to support@artisanhub.local and a human will get back to you."

const systemPrompt = "You are the friendly help assistant of ArtisanHub, a marketplace for handmade goods. " +
	"Answer in at most three sentences. If you do not know, point the visitor to support@artisanhub.local."

type Intent struct {
	Name     string
	Keywords []string
	Reply    string
}

var intents = []Intent{
	{
		Name:     "greeting",
		Keywords: []string{"hello", "hi", "hey", "good morning", "good evening"},
		Reply:    "Hi there! Welcome to ArtisanHub. Are you looking to buy something handmade or to start selling?",
	},
	{
		Name:     "shipping",
		Keywords: []string{"shipping", "delivery", "ship", "deliver", "track", "tracking"},
		Reply:    "Each artisan ships their own items. Delivery times and costs are shown on the listing, and you get a tracking link once the order is on its way.",
	},
	{
		Name:     "returns",
		Keywords: []string{"return", "returns", "refund", "exchange", "broken", "damaged"},
		Reply:    "You can request a return within 14 days of delivery. Contact the artisan from your order page; damaged items are always refunded.",
	},
	{
		Name:     "selling",
		Keywords: []string{"sell", "selling", "seller", "artisan account", "open a shop", "list my"},
		Reply:    "To sell, register with the artisan role, then create a listing from your dashboard. Listings start as drafts until you publish them.",
	},
	{
		Name:     "generator",
		Keywords: []string{"ai", "generate", "generator", "description", "write my listing"},
		Reply:    "Our listing assistant can write a title, description, features and tags for you. Open a draft and press \"Generate with AI\".",
	},
	{
		Name:     "events",
		Keywords: []string{"event", "events", "workshop", "fair", "webinar", "meetup"},
		Reply:    "We host fairs, workshops and online sessions. See the Events page for dates and to reserve a spot.",
	},
	{
		Name:     "payment",
		Keywords: []string{"pay", "payment", "card", "paypal", "price", "cost"},
		Reply:    "Prices are set by each artisan and shown in the listing currency. We accept major cards at checkout.",
	},
	{
		Name:     "contact",
		Keywords: []string{"contact", "support", "human", "email", "help desk"},
		Reply:    "You can reach our team at support@artisanhub.local. We usually answer within one business day.",
	},
}

type Reply struct {
	Message string `json:"message"`
	Intent  string `json:"intent,omitempty"`
	Source  string `json:"source"`
}

// Assistant answers chat widget messages from canned intents, asking the
// language model only when no intent matches.
type Assistant struct {
	llm     listing.ChatCompleter
	timeout time.Duration
}

func NewAssistant(llm listing.ChatCompleter, timeout time.Duration) *Assistant {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Assistant{llm: llm, timeout: timeout}
}

func tokenize(text string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// MatchIntent returns the intent with the most keyword hits
func MatchIntent(message string) (Intent, bool) {
	lower := strings.ToLower(message)
	words := tokenize(message)
	best, bestScore := Intent{}, 0
	for _, in := range intents {
		score := 0
		for _, kw := range in.Keywords {
			if strings.Contains(kw, " ") {
				if strings.Contains(lower, kw) {
					score += 2
				}
				continue
			}
			if _, ok := words[kw]; ok {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = in, score
		}
	}
	return best, bestScore > 0
}

func (a *Assistant) Reply(ctx context.Context, message string, history []listing.Turn) Reply {
	metrics.Incr(metrics.ChatMessages)
	message = common.Truncate(strings.TrimSpace(message), MaxMessageLength)

	if in, ok := MatchIntent(message); ok {
		return Reply{Message: in.Reply, Intent: in.Name, Source: SourceIntent}
	}
	if a.llm == nil {
		return Reply{Message: DefaultReply, Source: SourceDefault}
	}

	if len(history) > MaxHistory {
		history = history[len(history)-MaxHistory:]
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	answer, err := a.llm.Chat(ctx, systemPrompt, history, message)
	if err != nil || strings.TrimSpace(answer) == "" {
		zap.L().Warn("chat assistant model reply failed", zap.String("model", a.llm.Name()), zap.Error(err))
		return Reply{Message: DefaultReply, Source: SourceDefault}
	}
	return Reply{Message: answer, Source: SourceAI}
}
