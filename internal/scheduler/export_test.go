package scheduler

// ExportedPrune exposes prune for testing.
func (s *Scheduler) ExportedPrune() {
	s.prune()
}
