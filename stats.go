package remotetag

// Stats counts the work done by a Stream.
type Stats struct {
	Fetches      int   // range fetches issued
	FetchErrors  int   // range fetches that failed
	CacheHits    int   // ReadBlock calls served from the cache
	BytesFetched int64 // bytes received from the network
}

// Stats returns a snapshot of the stream counters.
func (s *Stream) Stats() Stats {
	return s.stats
}
