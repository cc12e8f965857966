package vm

// ---------------------------------------------------------------------------
// Generators: suspended-frame iterators
// ---------------------------------------------------------------------------

// generatorCore drives a generator function as an iterator. The generator's
// frame lives on a private fiber that shares the VM's globals, which lets
// the frame stay suspended between advances while the caller keeps running
// on its own fiber.
type generatorCore struct {
	fiber *fiber
	done  bool
}

// newGeneratorIterator primes a generator call without executing any of its
// body. The arity policy applies at call time, same as a plain call.
func newGeneratorIterator(m *VM, fn *Function, args []Value) (*Iterator, *RuntimeError) {
	f := newFiber(m)
	if err := f.pushCallFrame(fn, args); err != nil {
		return nil, err
	}
	return NewIterator(&generatorCore{fiber: f}), nil
}

// Next resumes the generator until its next yield. A return (explicit or
// implicit) ends the stream; the returned value is discarded. An error
// inside the body ends the stream and propagates to the consumer.
func (c *generatorCore) Next() (Value, bool, *RuntimeError) {
	if c.done {
		return nil, true, nil
	}
	result, yielded, err := c.fiber.run()
	if err != nil {
		c.done = true
		return nil, false, err
	}
	if yielded {
		return result, false, nil
	}
	c.done = true
	return nil, true, nil
}
