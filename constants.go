package iqpipeline

// Common RTL-SDR sample rates for convenience.
const (
	// Rate250k is the lowest gapless RTL-SDR rate.
	Rate250k = 250000

	// Rate1M024 divides evenly from the 28.8 MHz reference.
	Rate1M024 = 1024000

	// Rate2M048 is twice Rate1M024.
	Rate2M048 = 2048000

	// Rate2M4 is the most common RTL-SDR capture rate.
	Rate2M4 = 2400000

	// Rate3M2 is the maximum RTL-SDR rate (lossy on most hosts).
	Rate3M2 = 3200000
)
