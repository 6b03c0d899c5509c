package service

import "context"

// DashboardStats are the derived aggregates the UI dashboard renders. They
// are computed from the cached lists and memoized under their own key.
type DashboardStats struct {
	Products     int            `json:"products"`
	Events       int            `json:"events"`
	Participants int            `json:"participants"`
	// EventsByType counts events per display label ("Quality Check", ...).
	EventsByType map[string]int `json:"events_by_type"`
	// LastEventAt is the newest event timestamp in milliseconds, 0 when the
	// feed is empty.
	LastEventAt int64 `json:"last_event_at"`
	// ProductsWithEvents counts products whose trace is non-empty.
	ProductsWithEvents int `json:"products_with_events"`
}

// Stats computes the dashboard aggregates. Like the lists it derives from,
// it degrades to partial data: a failing event feed still yields product
// counts.
func (s *Service) Stats(ctx context.Context) (DashboardStats, error) {
	if v, ok := s.cache.get(cacheKeyStats); ok {
		return v.(DashboardStats), nil
	}

	products, err := s.ListProducts(ctx)
	if err != nil {
		return DashboardStats{}, err
	}

	stats := DashboardStats{
		Products:     len(products),
		EventsByType: make(map[string]int),
	}

	events, err := s.AllEvents(ctx)
	if err != nil {
		// Product list alone is still a usable dashboard.
		s.logger.Warn("stats computed without event feed")
		s.cache.put(cacheKeyStats, stats)
		return stats, nil
	}

	withEvents := make(map[string]struct{})
	for _, e := range events {
		stats.EventsByType[e.EventType.Label()]++
		if e.Timestamp > stats.LastEventAt {
			stats.LastEventAt = e.Timestamp
		}
		withEvents[e.ProductID] = struct{}{}
	}
	stats.Events = len(events)
	stats.ProductsWithEvents = len(withEvents)

	if parts, perr := s.Participants(ctx); perr == nil {
		stats.Participants = len(parts)
	}

	s.cache.put(cacheKeyStats, stats)
	return stats, nil
}
