package messages

import (
	"strings"

	"github.com/goliatone/go-forms/pkg/params"
)

// Level classifies a message.
type Level string

const (
	Error   Level = "error"
	Info    Level = "info"
	Success Level = "success"
	Warning Level = "warning"
)

// Levels lists every level in display order.
var Levels = []Level{Error, Info, Success, Warning}

// ParseLevel maps a level name to a Level. Unknown names report false.
func ParseLevel(name string) (Level, bool) {
	switch Level(strings.ToLower(strings.TrimSpace(name))) {
	case Error:
		return Error, true
	case Info:
		return Info, true
	case Success:
		return Success, true
	case Warning:
		return Warning, true
	}
	return "", false
}

// Message is one leveled notice. Context scopes it, for example
// {"field": "email"} for a field error.
type Message struct {
	Level   Level             `json:"level"`
	Text    string            `json:"message"`
	Context map[string]string `json:"context,omitempty"`
}

// Bag accumulates messages for a single form lifecycle. It is not safe for
// concurrent use.
type Bag struct {
	items []Message
}

// New returns an empty bag.
func New() *Bag {
	return &Bag{}
}

// Log records text at level. Blank messages are dropped.
func (b *Bag) Log(level Level, text string, context map[string]string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	var ctx map[string]string
	if len(context) > 0 {
		ctx = make(map[string]string, len(context))
		for key, value := range context {
			ctx[key] = value
		}
	}
	b.items = append(b.items, Message{Level: level, Text: text, Context: ctx})
}

func (b *Bag) Error(text string, context ...map[string]string) {
	b.Log(Error, text, first(context))
}

func (b *Bag) Info(text string, context ...map[string]string) {
	b.Log(Info, text, first(context))
}

func (b *Bag) Success(text string, context ...map[string]string) {
	b.Log(Success, text, first(context))
}

func (b *Bag) Warning(text string, context ...map[string]string) {
	b.Log(Warning, text, first(context))
}

// Count returns the number of recorded messages.
func (b *Bag) Count() int {
	return len(b.items)
}

// Exists reports whether a message exists at any of levels (any level when
// none is given).
func (b *Bag) Exists(levels ...Level) bool {
	for _, item := range b.items {
		if matchLevel(item.Level, levels) {
			return true
		}
	}
	return false
}

// ExistsForContext reports whether a message whose context includes every
// entry of context exists at any of levels.
func (b *Bag) ExistsForContext(context map[string]string, levels ...Level) bool {
	return len(b.ForContext(context, levels...)) > 0
}

// ForContext returns messages matching context and levels.
func (b *Bag) ForContext(context map[string]string, levels ...Level) []Message {
	var out []Message
	for _, item := range b.items {
		if !matchLevel(item.Level, levels) {
			continue
		}
		if !matchContext(item.Context, context) {
			continue
		}
		out = append(out, item)
	}
	return out
}

// All returns messages grouped by level.
func (b *Bag) All() map[Level][]Message {
	out := make(map[Level][]Message)
	for _, item := range b.items {
		out[item.Level] = append(out[item.Level], item)
	}
	return out
}

// Fetch returns the trimmed, de-duplicated texts per level for the requested
// levels. Levels without messages are omitted.
func (b *Bag) Fetch(levels ...Level) map[string][]string {
	if len(levels) == 0 {
		levels = Levels
	}
	out := make(map[string][]string)
	grouped := b.All()
	for _, level := range levels {
		texts := make([]string, 0, len(grouped[level]))
		for _, item := range grouped[level] {
			texts = append(texts, item.Text)
		}
		if normalized := Normalize(texts); len(normalized) > 0 {
			out[string(level)] = normalized
		}
	}
	return out
}

// Export converts the bag to session friendly values: level name to a list
// of {"message", "context"} maps.
func (b *Bag) Export() map[string]any {
	out := make(map[string]any)
	for level, items := range b.All() {
		list := make([]any, 0, len(items))
		for _, item := range items {
			entry := map[string]any{"message": item.Text}
			if len(item.Context) > 0 {
				ctx := make(map[string]any, len(item.Context))
				for key, value := range item.Context {
					ctx[key] = value
				}
				entry["context"] = ctx
			}
			list = append(list, entry)
		}
		out[string(level)] = list
	}
	return out
}

// Import records messages previously produced by Export. Values that went
// through a JSON round trip are accepted.
func (b *Bag) Import(raw any) {
	for name, items := range params.Map(raw) {
		level, ok := ParseLevel(name)
		if !ok {
			continue
		}
		for _, item := range params.List(items) {
			entry := params.Map(item)
			if entry == nil {
				b.Log(level, params.String(item), nil)
				continue
			}
			var ctx map[string]string
			if rawCtx := params.Map(entry["context"]); len(rawCtx) > 0 {
				ctx = make(map[string]string, len(rawCtx))
				for key, value := range rawCtx {
					ctx[key] = params.String(value)
				}
			}
			b.Log(level, params.String(entry["message"]), ctx)
		}
	}
}

// Normalize trims, drops blanks and removes duplicates while keeping order.
func Normalize(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}

	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))

	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

func first(context []map[string]string) map[string]string {
	if len(context) == 0 {
		return nil
	}
	return context[0]
}

func matchLevel(level Level, levels []Level) bool {
	if len(levels) == 0 {
		return true
	}
	for _, candidate := range levels {
		if candidate == level {
			return true
		}
	}
	return false
}

func matchContext(have, want map[string]string) bool {
	for key, value := range want {
		if have[key] != value {
			return false
		}
	}
	return true
}
