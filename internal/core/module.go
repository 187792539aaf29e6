// Package core provides the module system recall is assembled from.
// Backends (providers, embedders) and transports (the HTTP gateway) are
// modules: they register themselves at init time, receive their YAML
// section through Configure, and find each other through the per-app
// service map.
package core

import "strings"

// ModuleID is a dotted module identifier such as "provider.anthropic".
// The part before the first dot is the namespace.
type ModuleID string

// Namespace returns the part of the ID before the first dot.
func (id ModuleID) Namespace() string {
	ns, _, _ := strings.Cut(string(id), ".")
	return ns
}

// Name returns the part of the ID after the first dot, or the whole ID
// when it has no namespace.
func (id ModuleID) Name() string {
	_, name, found := strings.Cut(string(id), ".")
	if !found {
		return string(id)
	}
	return name
}

// Module is implemented by every recall module.
type Module interface {
	ModuleInfo() ModuleInfo
}

// ModuleInfo describes a registered module.
type ModuleInfo struct {
	ID ModuleID

	// New returns a fresh, unconfigured instance.
	New func() Module
}
