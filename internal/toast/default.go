package toast

import "sync"

var (
	defaultMu  sync.Mutex
	defaultSvc *Service
)

// Default returns the process-wide service. The first call without a prior
// SetDefault starts one with DefaultConfig; every later call returns the same
// instance.
func Default() *Service {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultSvc == nil {
		defaultSvc = Start(DefaultConfig(), nil)
	}
	return defaultSvc
}

// SetDefault installs the service owned by the startup sequence. It returns
// false, leaving the existing instance in place, if one is already set.
func SetDefault(s *Service) bool {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultSvc != nil {
		return false
	}
	defaultSvc = s
	return true
}
