package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// InterruptHandler cancels an interactive entry on SIGINT/SIGTERM and tells
// the operator what was left unsaved.
type InterruptHandler struct {
	writer      io.Writer
	cancelFunc  context.CancelFunc
	pending     func() int
	interrupted bool
	mu          sync.Mutex
}

// NewInterruptHandler creates a handler writing to writer, stdout when nil.
func NewInterruptHandler(writer io.Writer) *InterruptHandler {
	if writer == nil {
		writer = os.Stdout
	}
	return &InterruptHandler{writer: writer}
}

// HandleInterrupts returns a context canceled on the first signal. pending,
// when set, reports how many invoice lines are still unsaved.
func (h *InterruptHandler) HandleInterrupts(ctx context.Context, pending func() int) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	h.mu.Lock()
	h.cancelFunc = cancel
	h.pending = pending
	h.mu.Unlock()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case <-sigChan:
			h.interrupt()
		case <-ctx.Done():
		}
	}()

	return ctx
}

func (h *InterruptHandler) interrupt() {
	h.mu.Lock()
	first := !h.interrupted
	h.interrupted = true
	cancel := h.cancelFunc
	h.mu.Unlock()

	if first {
		h.showInterruptMessage()
	}
	if cancel != nil {
		cancel()
	}
}

func (h *InterruptHandler) showInterruptMessage() {
	msg := "\n\n" + FormatWarning("Captura interrumpida")

	if h.pending != nil {
		if n := h.pending(); n > 0 {
			msg += "\n" + FormatInfo(fmt.Sprintf("%d línea(s) sin guardar: la factura no se registró", n))
		}
	}

	msg += "\n" + FormatInfo("Hasta luego "+AppIcon) + "\n"

	if _, err := fmt.Fprint(h.writer, msg); err != nil {
		fmt.Fprintf(os.Stderr, "write interrupt message: %v\n", err)
	}
}

// WasInterrupted reports whether a signal arrived.
func (h *InterruptHandler) WasInterrupted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.interrupted
}
