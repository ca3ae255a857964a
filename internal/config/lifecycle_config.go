package config

import (
	"time"
)

// LifecycleConfig holds the reconciliation periods for the session
// lifecycle timers.
type LifecycleConfig interface {
	GetReconcileInterval() time.Duration
	GetRevalidateInterval() time.Duration
}

type Lifecycle struct{}

var _ LifecycleConfig = Lifecycle{}

func (Lifecycle) GetReconcileInterval() time.Duration {
	return durationEnv("RECONCILE_INTERVAL", 10*time.Second)
}

func (Lifecycle) GetRevalidateInterval() time.Duration {
	return durationEnv("REVALIDATE_INTERVAL", 30*time.Second)
}

func durationEnv(envVar string, defaultValue time.Duration) time.Duration {
	value := GetEnv(envVar, "")
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
