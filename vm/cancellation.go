package vm

import "context"

// ---------------------------------------------------------------------------
// Cancellation: context integration for host-driven interruption
// ---------------------------------------------------------------------------

// RunContext executes a chunk under a context. When the context is cancelled
// the VM stops at the next instruction boundary and the run reports a
// Cancelled error; IsCancelled distinguishes it from script failures.
func (m *VM) RunContext(ctx context.Context, chunk *Chunk) (Value, *RuntimeError) {
	if ctx.Done() == nil {
		return m.Run(chunk)
	}

	watchDone := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(watchDone)
		select {
		case <-ctx.Done():
			m.Interrupt()
		case <-finished:
		}
	}()

	result, err := m.Run(chunk)
	close(finished)
	<-watchDone

	if err != nil && err.IsCancelled() {
		m.ResetInterrupt()
	}
	return result, err
}
