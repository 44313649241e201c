package hydrate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/goliatone/go-metadata"
)

// Context carries identifiers tied to a stored value.
type Context struct {
	Subject string
	Strand  string
	Key     string
}

// PreHook lets callers mutate or normalise the raw text before decoding.
type PreHook func(Context, string) (string, error)

// PostHook lets callers adjust or validate the hydrated value after decoding.
type PostHook func(Context, any) (any, error)

// KindDecoder replaces the default decoding for one value kind.
type KindDecoder func(Context, string) (any, error)

// CodecOption configures a Codec instance.
type CodecOption func(*Codec)

// Codec converts stored value text into typed Go values and back, driven by
// the key's declared value kind.
type Codec struct {
	preHooks  []PreHook
	postHooks []PostHook
	custom    map[metadata.ValueKind]KindDecoder
	useNumber bool
}

// WithPreHook applies hook prior to decoding.
func WithPreHook(hook PreHook) CodecOption {
	return func(c *Codec) {
		c.preHooks = append(c.preHooks, hook)
	}
}

// WithPostHook applies hook after decoding completes.
func WithPostHook(hook PostHook) CodecOption {
	return func(c *Codec) {
		c.postHooks = append(c.postHooks, hook)
	}
}

// WithKindDecoder replaces the default decoding for kind.
func WithKindDecoder(kind metadata.ValueKind, decoder KindDecoder) CodecOption {
	return func(c *Codec) {
		if decoder == nil {
			return
		}
		if c.custom == nil {
			c.custom = map[metadata.ValueKind]KindDecoder{}
		}
		c.custom[kind] = decoder
	}
}

// WithUseNumber decodes JSON numbers as json.Number instead of float64.
func WithUseNumber() CodecOption {
	return func(c *Codec) {
		c.useNumber = true
	}
}

func NewCodec(opts ...CodecOption) *Codec {
	c := &Codec{}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Decode converts raw stored text into the typed value for kind, applying
// configured hooks.
func (c *Codec) Decode(ctx Context, kind metadata.ValueKind, raw string) (any, error) {
	current := raw
	for _, hook := range c.preHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("hydrate: pre-hook for %q failed: %w", ctx.Key, err)
		}
		current = next
	}

	var result any
	var err error
	if decoder, ok := c.custom[kind]; ok {
		result, err = decoder(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("hydrate: custom decoder for %q failed: %w", ctx.Key, err)
		}
	} else {
		result, err = c.decodeKind(ctx, kind, current)
		if err != nil {
			return nil, err
		}
	}

	for _, hook := range c.postHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, result)
		if err != nil {
			return nil, fmt.Errorf("hydrate: post-hook for %q failed: %w", ctx.Key, err)
		}
		result = next
	}

	return result, nil
}

// Encode converts a typed value into the stored text form for kind.
func (c *Codec) Encode(ctx Context, kind metadata.ValueKind, value any) (string, error) {
	switch kind {
	case metadata.KindText, metadata.KindImage:
		text, ok := value.(string)
		if !ok {
			return "", fmt.Errorf("hydrate: key %q expects a string value, got %T", ctx.Key, value)
		}
		return text, nil
	case metadata.KindBool:
		flag, ok := value.(bool)
		if !ok {
			return "", fmt.Errorf("hydrate: key %q expects a bool value, got %T", ctx.Key, value)
		}
		return strconv.FormatBool(flag), nil
	case metadata.KindNumber, metadata.KindJSON:
		buffer, err := json.Marshal(value)
		if err != nil {
			return "", fmt.Errorf("hydrate: encode key %q: %w", ctx.Key, err)
		}
		return string(buffer), nil
	default:
		return "", fmt.Errorf("hydrate: key %q has unsupported kind %q", ctx.Key, kind)
	}
}

func (c *Codec) decodeKind(ctx Context, kind metadata.ValueKind, raw string) (any, error) {
	switch kind {
	case metadata.KindText, metadata.KindImage:
		return raw, nil
	case metadata.KindBool:
		flag, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("hydrate: decode key %q as bool: %w", ctx.Key, err)
		}
		return flag, nil
	case metadata.KindNumber:
		if c.useNumber {
			return json.Number(raw), nil
		}
		number, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("hydrate: decode key %q as number: %w", ctx.Key, err)
		}
		return number, nil
	case metadata.KindJSON:
		decoder := json.NewDecoder(bytes.NewReader([]byte(raw)))
		if c.useNumber {
			decoder.UseNumber()
		}
		var result any
		if err := decoder.Decode(&result); err != nil {
			return nil, fmt.Errorf("hydrate: decode key %q as json: %w", ctx.Key, err)
		}
		return result, nil
	default:
		return nil, fmt.Errorf("hydrate: key %q has unsupported kind %q", ctx.Key, kind)
	}
}
