package core

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
)

var (
	modules   = make(map[string]ModuleInfo)
	modulesMu sync.RWMutex
)

// Load stages by namespace. Embedders come first because the knowledge
// bases are built on them, providers next, transports last so they start
// after everything they serve and stop first.
const (
	StageEmbedder = iota
	StageProvider
	StageDefault
	StageTransport
)

var namespaceStages = map[string]int{
	"embedder": StageEmbedder,
	"provider": StageProvider,
	"gateway":  StageTransport,
}

// LoadStage returns the load stage of id, StageDefault for namespaces
// without one.
func LoadStage(id ModuleID) int {
	if stage, ok := namespaceStages[id.Namespace()]; ok {
		return stage
	}
	return StageDefault
}

// compareLoadOrder orders by stage, then by ID.
func compareLoadOrder(a, b ModuleID) int {
	if c := cmp.Compare(LoadStage(a), LoadStage(b)); c != 0 {
		return c
	}
	return cmp.Compare(a, b)
}

// SortForLoad sorts ids in place into load order.
func SortForLoad(ids []string) {
	slices.SortFunc(ids, func(a, b string) int {
		return compareLoadOrder(ModuleID(a), ModuleID(b))
	})
}

// RegisterModule records a module for lookup by ID. It panics on an empty
// ID, a nil constructor or a duplicate ID; modules call it from init.
func RegisterModule(instance Module) {
	info := instance.ModuleInfo()
	if info.ID == "" {
		panic("core: module ID must not be empty")
	}
	if info.New == nil {
		panic(fmt.Sprintf("core: module %s has no constructor", info.ID))
	}

	modulesMu.Lock()
	defer modulesMu.Unlock()

	id := string(info.ID)
	if _, exists := modules[id]; exists {
		panic(fmt.Sprintf("core: module %s registered twice", id))
	}
	modules[id] = info
}

// GetModule returns the ModuleInfo for the given ID, or false if not found.
func GetModule(id string) (ModuleInfo, bool) {
	modulesMu.RLock()
	defer modulesMu.RUnlock()
	info, ok := modules[id]
	return info, ok
}

// GetModules returns every registered module in load order.
func GetModules() []ModuleInfo {
	return filterModules(func(ModuleInfo) bool { return true })
}

// GetModulesByNamespace returns the modules of one namespace in load
// order ("provider" matches "provider.anthropic", not a bare "provider").
func GetModulesByNamespace(namespace string) []ModuleInfo {
	return filterModules(func(info ModuleInfo) bool {
		return info.ID.Namespace() == namespace && info.ID.Name() != string(info.ID)
	})
}

func filterModules(keep func(ModuleInfo) bool) []ModuleInfo {
	modulesMu.RLock()
	defer modulesMu.RUnlock()

	var result []ModuleInfo
	for _, info := range modules {
		if keep(info) {
			result = append(result, info)
		}
	}
	slices.SortFunc(result, func(a, b ModuleInfo) int {
		return compareLoadOrder(a.ID, b.ID)
	})
	return result
}

// resetRegistry clears the registry. Only for testing.
func resetRegistry() {
	modulesMu.Lock()
	defer modulesMu.Unlock()
	modules = make(map[string]ModuleInfo)
}
