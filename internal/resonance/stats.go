package resonance

// SpecialistStats summarizes one specialist.
type SpecialistStats struct {
	ID             string  `json:"id"`
	Executions     int     `json:"executions"`
	SuccessRate    float64 `json:"success_rate"`
	AverageQuality float64 `json:"average_quality"`
	Specialization float64 `json:"specialization"`
	HistoryLen     int     `json:"history_len"`
}

// Stats summarizes the specialist pool.
type Stats struct {
	TotalSpecialists int               `json:"total_specialists"`
	Capacity         int               `json:"capacity"`
	Vigilance        float64           `json:"vigilance"`
	Specialists      []SpecialistStats `json:"specialists,omitempty"`
}

// Stats returns a summary of every specialist ordered by ID.
func (r *Router) Stats() Stats {
	profiles := r.registry.List()
	stats := Stats{
		TotalSpecialists: len(profiles),
		Capacity:         r.registry.Capacity(),
		Vigilance:        r.Vigilance(),
		Specialists:      make([]SpecialistStats, 0, len(profiles)),
	}
	for i := range profiles {
		p := &profiles[i]
		stats.Specialists = append(stats.Specialists, SpecialistStats{
			ID:             p.ID,
			Executions:     p.TotalExecutions(),
			SuccessRate:    p.SuccessRate(),
			AverageQuality: p.AverageQuality,
			Specialization: p.SpecializationStrength,
			HistoryLen:     len(p.History),
		})
	}
	return stats
}
