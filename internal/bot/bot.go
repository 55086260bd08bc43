// Package bot provides the bots that commands in issue comments can be
// addressed to.
package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/itchyny/gojq"

	"github.com/simplesurance/github-comment/internal/cfg"
	"github.com/simplesurance/github-comment/internal/webhook"
)

// Bot is a name that comments can mention to address commands to it.
// Optionally a jq filter query can be defined, commands for the bot are only
// relayed if the query evaluates to true for the webhook document.
type Bot struct {
	name        string
	filterQuery *gojq.Query
}

// New returns a Bot. If jqQuery is empty, all events match.
func New(name, jqQuery string) (*Bot, error) {
	if name == "" {
		return nil, errors.New("bot name is empty")
	}

	b := Bot{name: name}

	if jqQuery != "" {
		query, err := gojq.Parse(jqQuery)
		if err != nil {
			return nil, fmt.Errorf("bot %s: parsing filter_query failed: %w", name, err)
		}

		b.filterQuery = query
	}

	return &b, nil
}

func (b *Bot) Name() string {
	return b.name
}

func goJQIterToSlice(iter gojq.Iter) ([]any, []error) {
	var result []any
	var errors []error

	for {
		res, ok := iter.Next()
		if !ok {
			return result, errors
		}

		if err, isErr := res.(error); isErr {
			errors = append(errors, err)
			continue
		}

		result = append(result, res)
	}
}

func errString(errs []error) string {
	var result strings.Builder

	for i, err := range errs {
		if i > 0 {
			result.WriteString("; ")
		}

		result.WriteString(fmt.Sprintf("error %d: %s", i, err))
	}

	return result.String()
}

// Match returns Match if the bot has no filter query or the query evaluates
// to true for the JSON document of the event.
func (b *Bot) Match(ctx context.Context, ev *webhook.Event) (MatchResult, error) {
	var evUn any

	if b.filterQuery == nil {
		return Match, nil
	}

	if len(ev.JSON) == 0 {
		return MatchResultUndefined, errors.New("json field of event is empty")
	}

	err := json.Unmarshal(ev.JSON, &evUn)
	if err != nil {
		return MatchResultUndefined, fmt.Errorf("unmarshaling json failed: %w", err)
	}

	result, errs := goJQIterToSlice(b.filterQuery.RunWithContext(ctx, evUn))
	if len(errs) != 0 {
		return MatchResultUndefined, fmt.Errorf("json query returned errors, query: %q, errors: %s", b.filterQuery.String(), errString(errs))
	}

	if len(result) == 0 {
		return MatchResultUndefined, fmt.Errorf("json query returned 0 results, expected 1, query: %q", b.filterQuery.String())
	}

	if len(result) > 1 {
		return MatchResultUndefined, fmt.Errorf("json query returned multiple results, expected 1, query: %q, result: '%+v'", b.filterQuery.String(), result)
	}

	val, ok := result[0].(bool)
	if !ok {
		return MatchResultUndefined, fmt.Errorf(
			"json query returned non-bool result: %+v (%T), query: %q",
			result[0], result[0], b.filterQuery.String(),
		)
	}

	if val {
		return Match, nil
	}

	return FilterMismatch, nil
}

func (b *Bot) String() string {
	return b.name
}

func (b *Bot) DetailedString() string {
	if b.filterQuery == nil {
		return fmt.Sprintf("Name: %s\n", b.name)
	}

	return fmt.Sprintf("Name: %s\nFilterQuery: %s\n", b.name, b.filterQuery)
}

// indent prefixes each non-empty line of str with prefix.
func indent(str, prefix string) string {
	var result strings.Builder

	for _, line := range strings.SplitAfter(str, "\n") {
		if line == "" {
			continue
		}

		result.WriteString(prefix)
		result.WriteString(line)
	}

	return result.String()
}

// Bots is an ordered list of bots.
type Bots []*Bot

// Names returns the names of the bots in their order.
func (bb Bots) Names() []string {
	result := make([]string, 0, len(bb))

	for _, b := range bb {
		result = append(result, b.name)
	}

	return result
}

// Get returns the bot with the given name, nil if it does not exist.
func (bb Bots) Get(name string) *Bot {
	for _, b := range bb {
		if b.name == name {
			return b
		}
	}

	return nil
}

func (bb Bots) String() string {
	var result strings.Builder

	for i, b := range bb {
		result.WriteString(indent(b.DetailedString(), "  "))
		if i < len(bb)-1 {
			result.WriteRune('\n')
		}
	}

	return result.String()
}

// FromCfg returns the bots defined in the configuration followed by bots
// with the names in extraNames.
// Names that are already defined are skipped, the first definition wins.
func FromCfg(botsCfg []*cfg.Bot, extraNames []string) (Bots, error) {
	result := make(Bots, 0, len(botsCfg)+len(extraNames))
	seen := make(map[string]struct{}, cap(result))

	for _, bc := range botsCfg {
		if _, exists := seen[bc.Name]; exists {
			return nil, fmt.Errorf("bot %q is defined multiple times in the configuration", bc.Name)
		}

		b, err := New(bc.Name, bc.FilterQuery)
		if err != nil {
			return nil, err
		}

		seen[bc.Name] = struct{}{}
		result = append(result, b)
	}

	for _, name := range extraNames {
		if _, exists := seen[name]; exists {
			continue
		}

		b, err := New(name, "")
		if err != nil {
			return nil, err
		}

		seen[name] = struct{}{}
		result = append(result, b)
	}

	return result, nil
}
