package settings

import (
	"errors"
	"sync"
)

// ErrNotInitialised is returned by Default before Init succeeded.
var ErrNotInitialised = errors.New("settings not initialised")

var (
	defaultMu   sync.RWMutex
	defaultMgr  *Manager
	defaultOpts Options
)

// Init creates the process-wide manager.
func Init(opts Options) (*Manager, error) {
	m, err := New(opts)
	if err != nil {
		return nil, err
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultMgr = m
	defaultOpts = opts
	return m, nil
}

// Default returns the process-wide manager.
func Default() (*Manager, error) {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	if defaultMgr == nil {
		return nil, ErrNotInitialised
	}
	return defaultMgr, nil
}

// Refresh recreates the process-wide manager with the options of the last
// Init, re-reading everything from disk.
func Refresh() (*Manager, error) {
	defaultMu.RLock()
	opts := defaultOpts
	initialised := defaultMgr != nil
	defaultMu.RUnlock()

	if !initialised {
		return nil, ErrNotInitialised
	}
	return Init(opts)
}

// Get reads key from the process-wide manager, returning def when it is
// not initialised or the key is unset.
func Get(key string, def any) any {
	m, err := Default()
	if err != nil {
		return def
	}
	return m.Get(key, def)
}
