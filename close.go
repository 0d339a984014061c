package remotetag

// Close drops the cached data. The stream must not be used afterwards.
func (s *Stream) Close() error {
	s.logf("stream: closing %s, %d bytes cached, %d fetches", s.url, s.cache.Len(), s.stats.Fetches)
	s.cache.Reset()
	s.cursor = 0
	return nil
}
