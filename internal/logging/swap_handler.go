package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// handlerSlot holds the handler chain a module currently writes through.
// Initialize replaces it when the output format changes, so loggers handed
// out earlier keep working without being recreated.
type handlerSlot struct {
	current atomic.Pointer[slog.Handler]
}

func newHandlerSlot(h slog.Handler) *handlerSlot {
	s := &handlerSlot{}
	s.set(h)
	return s
}

func (s *handlerSlot) set(h slog.Handler) {
	s.current.Store(&h)
}

func (s *handlerSlot) load() slog.Handler {
	return *s.current.Load()
}

// resolved caches the slot handler with attrs and groups applied.
type resolved struct {
	base    slog.Handler
	handler slog.Handler
}

// swapHandler forwards to whatever handler its slot holds, replaying the
// attrs and groups added through With and WithGroup.
type swapHandler struct {
	slot  *handlerSlot
	ops   []func(slog.Handler) slog.Handler
	cache atomic.Pointer[resolved]
}

func newSwapHandler(slot *handlerSlot) *swapHandler {
	return &swapHandler{slot: slot}
}

func (h *swapHandler) resolve() slog.Handler {
	base := h.slot.load()
	if c := h.cache.Load(); c != nil && c.base == base {
		return c.handler
	}
	handler := base
	for _, op := range h.ops {
		handler = op(handler)
	}
	h.cache.Store(&resolved{base: base, handler: handler})
	return handler
}

// Enabled implements slog.Handler.
func (h *swapHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.resolve().Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *swapHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.resolve().Handle(ctx, r)
}

// WithAttrs implements slog.Handler.
func (h *swapHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return h.with(func(next slog.Handler) slog.Handler {
		return next.WithAttrs(attrs)
	})
}

// WithGroup implements slog.Handler.
func (h *swapHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.with(func(next slog.Handler) slog.Handler {
		return next.WithGroup(name)
	})
}

func (h *swapHandler) with(op func(slog.Handler) slog.Handler) *swapHandler {
	ops := make([]func(slog.Handler) slog.Handler, len(h.ops), len(h.ops)+1)
	copy(ops, h.ops)
	return &swapHandler{slot: h.slot, ops: append(ops, op)}
}
