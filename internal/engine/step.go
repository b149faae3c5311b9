package engine

// step makes one public operation all-or-nothing. Every mutation registers
// its inverse; a failure at any later stage runs the inverses in reverse
// order, restoring the pre-step state. Inverses are operations that cannot
// fail (credits, or debits of amounts the step itself just credited), so
// rollback always completes.
type step struct {
	undos []func()
}

func (s *step) add(undo func()) {
	s.undos = append(s.undos, undo)
}

func (s *step) rollback() {
	for i := len(s.undos) - 1; i >= 0; i-- {
		s.undos[i]()
	}
	s.undos = nil
}
