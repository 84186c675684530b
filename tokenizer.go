package main

import (
	"fmt"
	"strings"
	"unicode/utf8"

	tiktoken "github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog/log"
	hf "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// Counter is the pluggable token counting strategy. The aggregator only ever
// aggregates whatever a Counter returns for a text blob; it never assumes a
// particular tokenizer's behavior.
type Counter interface {
	CountTokens(text string) int
	Close()
}

// --- Tiktoken ---

type TiktokenCounter struct {
	ttk *tiktoken.Tiktoken
}

func (c *TiktokenCounter) CountTokens(text string) int {
	if c.ttk == nil || text == "" {
		return 0
	}
	return len(c.ttk.EncodeOrdinary(text))
}

func (c *TiktokenCounter) Close() {}

// --- HuggingFace (sugarme) ---

type HFCounter struct {
	htk *hf.Tokenizer
}

func (c *HFCounter) CountTokens(text string) int {
	if c.htk == nil {
		return 0
	}
	en, err := c.htk.EncodeSingle(text)
	if err != nil {
		log.Warn().Err(err).Msg("hf tokenizer failed to encode text")
		return 0
	}
	return len(en.Tokens)
}

func (c *HFCounter) Close() {}

// --- Whitespace words ---

// WordCounter counts whitespace-separated words. "hello world" is 2 tokens.
type WordCounter struct{}

func (WordCounter) CountTokens(text string) int { return len(strings.Fields(text)) }

func (WordCounter) Close() {}

// --- Rune heuristic ---

// RuneCounter estimates roughly 4 characters per token, rounding up. Useful
// when no model encoding is available.
type RuneCounter struct{}

func (RuneCounter) CountTokens(text string) int {
	runes := utf8.RuneCountInString(text)
	if runes == 0 {
		return 0
	}
	return (runes + 3) / 4
}

func (RuneCounter) Close() {}

// --- Factory ---

const defaultTiktokenModel = "gpt-4o"
const fallbackEncoding = "cl100k_base"
const defaultHFModel = "gpt2"

// newCounter builds a Counter from the tokenizer type, optional model name,
// and optional local tokenizer file.
func newCounter(kind, model, file string) (Counter, error) {
	switch strings.ToLower(kind) {
	case "tiktoken":
		return loadTiktoken(model)
	case "huggingface":
		return loadHuggingFace(model, file)
	case "words":
		return WordCounter{}, nil
	case "chars":
		return RuneCounter{}, nil
	default:
		return nil, fmt.Errorf("unsupported tokenizer type %q: use tiktoken, huggingface, words or chars", kind)
	}
}

func loadTiktoken(model string) (Counter, error) {
	if model == "" {
		model = defaultTiktokenModel
	}
	tke, err := tiktoken.EncodingForModel(model)
	if err != nil {
		log.Warn().Str("model", model).Err(err).Msgf("tiktoken model not found, falling back to %s", fallbackEncoding)
		tke, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, fmt.Errorf("failed to get tiktoken encoding %q: %w", fallbackEncoding, err)
		}
	}
	return &TiktokenCounter{ttk: tke}, nil
}

func loadHuggingFace(model, file string) (Counter, error) {
	if file != "" {
		ttk, err := pretrained.FromFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load tokenizer from file %s: %w", file, err)
		}
		return &HFCounter{htk: ttk}, nil
	}
	if model == "" {
		model = defaultHFModel
	}
	log.Info().Str("model", model).Msg("loading huggingface tokenizer (this may download files)")
	configPath, err := hf.CachedPath(model, "tokenizer.json")
	if err != nil {
		return nil, fmt.Errorf("failed to get cache path for model %s: %w", model, err)
	}
	ttk, err := pretrained.FromFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load pretrained tokenizer for model %s: %w", model, err)
	}
	return &HFCounter{htk: ttk}, nil
}
