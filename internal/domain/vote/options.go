package vote

import "time"

// Option configures a Service.
type Option func(*Service)

// WithLeaseTTL sets how long a cast attempt owns its intent. It should exceed
// the ledger guard's worst-case latency.
func WithLeaseTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.leaseTTL = d
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithNonceSource overrides NewNonce.
func WithNonceSource(fn func() (string, error)) Option {
	return func(s *Service) {
		s.nonce = fn
	}
}
