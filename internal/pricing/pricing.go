package pricing

import (
	"fmt"
	"math"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Entry is the USD price per one million tokens for every model whose name
// starts with Prefix.
type Entry struct {
	Prefix string  `yaml:"prefix" json:"prefix"`
	Input  float64 `yaml:"input" json:"input_price_per_million"`
	Output float64 `yaml:"output" json:"output_price_per_million"`
}

// DefaultEntries are the list prices in effect when no override is loaded.
var DefaultEntries = []Entry{
	// OpenAI
	{Prefix: "gpt-4o", Input: 2.50, Output: 10.00},
	{Prefix: "gpt-4o-mini", Input: 0.15, Output: 0.60},
	{Prefix: "gpt-4-turbo", Input: 10.00, Output: 30.00},
	{Prefix: "gpt-4", Input: 30.00, Output: 60.00},
	{Prefix: "o1", Input: 15.00, Output: 60.00},
	{Prefix: "o1-mini", Input: 3.00, Output: 12.00},
	{Prefix: "o1-pro", Input: 150.00, Output: 600.00},
	{Prefix: "o3", Input: 10.00, Output: 40.00},
	{Prefix: "o3-mini", Input: 1.10, Output: 4.40},
	{Prefix: "o4-mini", Input: 1.10, Output: 4.40},
	// Anthropic
	{Prefix: "claude-opus-4", Input: 15.00, Output: 75.00},
	{Prefix: "claude-sonnet-4", Input: 3.00, Output: 15.00},
	{Prefix: "claude-3-5-sonnet", Input: 3.00, Output: 15.00},
	{Prefix: "claude-3-5-haiku", Input: 0.80, Output: 4.00},
	{Prefix: "claude-haiku-4", Input: 0.80, Output: 4.00},
	{Prefix: "claude-3-opus", Input: 15.00, Output: 75.00},
}

type Table struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewTable(entries []Entry) *Table {
	t := &Table{}
	t.Replace(entries)
	return t
}

func Default() *Table {
	return NewTable(DefaultEntries)
}

// Replace swaps the whole table. Entries are not merged with the previous
// contents.
func (t *Table) Replace(entries []Entry) {
	m := make(map[string]Entry, len(entries))
	for _, e := range entries {
		m[e.Prefix] = e
	}
	t.mu.Lock()
	t.entries = m
	t.mu.Unlock()
}

func (t *Table) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	return out
}

// Lookup finds the entry for model: exact key first, then the longest key
// that is a literal prefix of model.
func (t *Table) Lookup(model string) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if e, ok := t.entries[model]; ok {
		return e, true
	}

	var best Entry
	bestLen := 0
	for prefix, e := range t.entries {
		if len(prefix) > bestLen && strings.HasPrefix(model, prefix) {
			best = e
			bestLen = len(prefix)
		}
	}
	return best, bestLen > 0
}

// Cost returns the USD cost of a call rounded to 6 decimal places, or 0 when
// no entry matches the model.
func (t *Table) Cost(model string, inputTokens, outputTokens int) float64 {
	e, ok := t.Lookup(model)
	if !ok {
		return 0
	}
	in := float64(max(inputTokens, 0))
	out := float64(max(outputTokens, 0))
	cost := in*e.Input/1_000_000 + out*e.Output/1_000_000
	return math.Round(cost*1e6) / 1e6
}

// LoadFile reads a YAML list of entries and returns a table holding exactly
// those entries.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pricing file: %w", err)
	}
	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse pricing file: %w", err)
	}
	for i, e := range entries {
		if e.Prefix == "" {
			return nil, fmt.Errorf("pricing entry %d has no prefix", i)
		}
		if e.Input < 0 || e.Output < 0 {
			return nil, fmt.Errorf("pricing entry %q has a negative price", e.Prefix)
		}
	}
	return NewTable(entries), nil
}
