package listing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/artisanhub/artisanhub/pkg/metrics"
)

const (
	SourceAI       = "ai"
	SourceFallback = "fallback"
)

var ErrIncompleteListing = errors.New("generated listing is missing required fields")

// Request describes the product an artisan wants copy for
type Request struct {
	Name      string  `json:"name" validate:"required,min=2,max=200"`
	Category  string  `json:"category" validate:"omitempty,max=50"`
	Materials string  `json:"materials" validate:"omitempty,max=500"`
	Price     float64 `json:"price" validate:"omitempty,min=0"`
	Notes     string  `json:"notes" validate:"omitempty,max=2000"`
	Tone      string  `json:"tone" validate:"omitempty,oneof=warm playful elegant rustic minimal"`
}

// Listing is the marketing copy attached to a product
type Listing struct {
	Title            string            `json:"title" mapstructure:"title"`
	ShortDescription string            `json:"shortDescription" mapstructure:"shortDescription"`
	Features         []string          `json:"features" mapstructure:"features"`
	Specs            map[string]string `json:"specs" mapstructure:"specs"`
	Tags             []string          `json:"tags" mapstructure:"tags"`
	Story            string            `json:"story" mapstructure:"story"`
}

type Result struct {
	Listing
	Source string `json:"source"`
	Model  string `json:"model,omitempty"`
}

// Completer sends one prompt to a language model and returns the raw reply
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
	Name() string
}

// Generator produces listing copy, falling back to templates whenever the
// model is unavailable or its reply cannot be used.
type Generator struct {
	llm     Completer
	timeout time.Duration
}

func NewGenerator(llm Completer, timeout time.Duration) *Generator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Generator{llm: llm, timeout: timeout}
}

// Enabled reports whether a model is configured
func (g *Generator) Enabled() bool {
	return g != nil && g.llm != nil
}

func (g *Generator) Generate(ctx context.Context, req Request) Result {
	req.normalize()
	if !g.Enabled() {
		metrics.Incr(metrics.ListingFallback)
		return Result{Listing: Fallback(req), Source: SourceFallback}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	listing, err := g.generate(ctx, req)
	if err != nil {
		zap.L().Warn("listing generation failed, using fallback copy",
			zap.String("model", g.llm.Name()),
			zap.String("product", req.Name),
			zap.Error(err))
		metrics.Incr(metrics.ListingFallback)
		return Result{Listing: Fallback(req), Source: SourceFallback}
	}
	metrics.Incr(metrics.ListingGenerated)
	return Result{Listing: listing, Source: SourceAI, Model: g.llm.Name()}
}

func (g *Generator) generate(ctx context.Context, req Request) (Listing, error) {
	reply, err := g.llm.Complete(ctx, systemPrompt, BuildPrompt(req))
	if err != nil {
		return Listing{}, errors.Wrap(err, "llm completion")
	}
	doc, err := ExtractJSON(reply)
	if err != nil {
		return Listing{}, err
	}
	listing, err := decodeListing(doc)
	if err != nil {
		return Listing{}, err
	}
	listing.fillGaps(Fallback(req))
	return listing, nil
}

func decodeListing(doc map[string]interface{}) (Listing, error) {
	var listing Listing
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &listing,
		MatchName: func(mapKey, fieldName string) bool {
			return strings.EqualFold(strings.ReplaceAll(mapKey, "_", ""), fieldName)
		},
	})
	if err != nil {
		return listing, err
	}
	if err := decoder.Decode(doc); err != nil {
		return listing, errors.Wrap(err, "decode listing")
	}
	listing.Title = strings.TrimSpace(listing.Title)
	listing.ShortDescription = strings.TrimSpace(listing.ShortDescription)
	if listing.Title == "" || listing.ShortDescription == "" {
		return listing, ErrIncompleteListing
	}
	return listing, nil
}

// fillGaps keeps model output but borrows optional sections from the fallback
func (l *Listing) fillGaps(fb Listing) {
	if len(l.Features) == 0 {
		l.Features = fb.Features
	}
	if len(l.Specs) == 0 {
		l.Specs = fb.Specs
	}
	if len(l.Tags) == 0 {
		l.Tags = fb.Tags
	}
	if strings.TrimSpace(l.Story) == "" {
		l.Story = fb.Story
	}
}

func (r *Request) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Category = strings.TrimSpace(r.Category)
	r.Materials = strings.TrimSpace(r.Materials)
	r.Notes = strings.TrimSpace(r.Notes)
	if r.Tone == "" {
		r.Tone = "warm"
	}
}

const systemPrompt = "You write product listings for an online marketplace of handmade goods. " +
	"Reply with a single JSON object and nothing else."

// BuildPrompt renders the user prompt for a request
func BuildPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a %s listing for a handmade product.\n", req.Tone)
	fmt.Fprintf(&b, "Product name: %s\n", req.Name)
	if req.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", req.Category)
	}
	if req.Materials != "" {
		fmt.Fprintf(&b, "Materials: %s\n", req.Materials)
	}
	if req.Price > 0 {
		fmt.Fprintf(&b, "Price: %.2f\n", req.Price)
	}
	if req.Notes != "" {
		fmt.Fprintf(&b, "Maker notes: %s\n", req.Notes)
	}
	b.WriteString(`Return JSON with keys: "title" (max 80 chars), "shortDescription" (1-2 sentences), ` +
		`"features" (3-5 strings), "specs" (object of string values), "tags" (5-8 lowercase strings), ` +
		`"story" (a short paragraph about the making).`)
	return b.String()
}
