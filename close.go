package vecscan

// Close releases the backend. Operations after Close fail with ErrClosed.
// Closing twice is a no-op.
func (s *Store) Close() error {
	if s == nil || !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := s.backend.Close(); err != nil {
		return opError("close", "", backendFailure(err))
	}
	return nil
}
