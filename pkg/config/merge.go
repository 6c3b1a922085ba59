package config

import "time"

// Effective is the per-call view of GlobalConfig with RuntimeConfig applied.
// It is recomputed for every call and never stored.
type Effective struct {
	APIKey       string
	APIURL       string
	Synchronous  bool
	SyncTimeout  time.Duration
	AsyncTimeout time.Duration
	// Timeout is the runtime override, nil when the call did not set one.
	Timeout *time.Duration
}

// Merge lets every field present in runtime win over global. It has no side
// effects; runtime was validated when it was built.
func Merge(global *GlobalConfig, runtime *RuntimeConfig) Effective {
	var eff Effective
	if global != nil {
		eff = Effective{
			APIKey:       global.APIKey(),
			APIURL:       global.APIURL(),
			Synchronous:  global.Synchronous(),
			SyncTimeout:  global.DefaultSyncTimeout(),
			AsyncTimeout: global.DefaultAsyncTimeout(),
		}
	}
	if synchronous, ok := runtime.Synchronous(); ok {
		eff.Synchronous = synchronous
	}
	if timeout, ok := runtime.Timeout(); ok {
		eff.Timeout = &timeout
	}
	return eff
}

// RequestTimeout is the explicit override when present, otherwise the sync or
// async default depending on the effective mode.
func (e Effective) RequestTimeout() time.Duration {
	if e.Timeout != nil {
		return *e.Timeout
	}
	if e.Synchronous {
		return e.SyncTimeout
	}
	return e.AsyncTimeout
}
