package types

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gosuri/uilive"
)

// TERMINAL PRINTER

// TerminalPrinter refreshes one terminal line per running experiment
type TerminalPrinter struct {
	outputs       []*ParallelOutput
	ctx           context.Context
	printerCtx    context.Context
	printerCancel context.CancelFunc
	frequency     int

	writer  *uilive.Writer
	writers []io.Writer
	flushMu sync.Mutex
	once    sync.Once
}

func NewTerminalPrinter(ctx context.Context, outputs []*ParallelOutput, frequency int) *TerminalPrinter {
	printerCtx, cancel := context.WithCancel(ctx)
	writer := uilive.New()
	writers := make([]io.Writer, len(outputs))
	if len(outputs) > 0 {
		writers[0] = writer
	}
	for i := 1; i < len(outputs); i++ {
		writers[i] = writer.Newline()
	}

	return &TerminalPrinter{
		outputs:       outputs,
		ctx:           ctx,
		printerCtx:    printerCtx,
		printerCancel: cancel,
		frequency:     frequency,

		writer:  writer,
		writers: writers,
	}
}

func (p *TerminalPrinter) Start() {
	go func() {
		for {
			select {
			case <-p.printerCtx.Done():
				return
			case <-time.After(time.Duration(p.frequency) * time.Second):
				p.Flush()
			}
		}
	}()
}

func (p *TerminalPrinter) Stop() {
	p.once.Do(func() {
		p.printerCancel()
	})
}

// Flush writes the current status of every running experiment
func (p *TerminalPrinter) Flush() {
	p.flushMu.Lock()
	defer p.flushMu.Unlock()
	for i, output := range p.outputs {
		if !output.IsRunning() {
			continue
		}
		fmt.Fprint(p.writers[i], output.Get()+"\n")
	}
	p.writer.Flush()
}

// PARALLEL OUTPUT

// used to update and print experiment outputs
type ParallelOutput struct {
	mu        sync.Mutex
	printable string
	running   bool
}

func NewParallelOutput() *ParallelOutput {
	return &ParallelOutput{}
}

func (p *ParallelOutput) SetRunning(running bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = running
}

func (p *ParallelOutput) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Set the output string (blocking)
func (p *ParallelOutput) Set(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.printable = s
}

// Try to set the output string (non-blocking)
func (p *ParallelOutput) TrySet(s string) bool {
	if p.mu.TryLock() {
		defer p.mu.Unlock()
		p.printable = s
		return true
	}
	return false
}

// Get the output string (blocking)
func (p *ParallelOutput) Get() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.printable
}
