package disksystem

import (
	"sync"

	"github.com/diskdevmgr/ddm/ddmerrors"
)

// entry pairs a loaded DiskSystem with its id and nestable load
// counter (spec §4.4: "load()/unload() are nestable and refcounted;
// the first load binds the module ... the last unload releases it").
type entry struct {
	id          int32
	system      DiskSystem
	loadCounter int
}

// Registry is the manager's id→DiskSystem map (spec's
// `disk_systems: id→system` container, §4.7).
type Registry struct {
	mu      sync.Mutex
	nextID  int32
	byID    map[int32]*entry
	byName  map[string]int32
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[int32]*entry),
		byName: make(map[string]int32),
	}
}

// Register adds system under a freshly allocated id, or returns the
// existing id if a system of the same Name is already registered
// (rescan_disk_systems is idempotent per module path).
func (r *Registry) Register(system DiskSystem) int32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byName[system.Name()]; ok {
		return id
	}

	r.nextID++
	id := r.nextID
	r.byID[id] = &entry{id: id, system: system}
	r.byName[system.Name()] = id

	return id
}

// Get returns the DiskSystem registered under id.
func (r *Registry) Get(id int32) (DiskSystem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok {
		return nil, ddmerrors.New(ddmerrors.NotFound, "no disk system with id %d", id)
	}
	return e.system, nil
}

// FindByName returns the id registered for name.
func (r *Registry) FindByName(name string) (int32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byName[name]
	if !ok {
		return -1, ddmerrors.New(ddmerrors.NotFound, "no disk system named %q", name)
	}
	return id, nil
}

// List returns every registered id, in registration order.
func (r *Registry) List() []int32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]int32, 0, len(r.byID))
	for id := int32(1); id <= r.nextID; id++ {
		if _, ok := r.byID[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Load increments id's load counter, binding the module on the first
// call.
func (r *Registry) Load(id int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok {
		return ddmerrors.New(ddmerrors.NotFound, "no disk system with id %d", id)
	}
	e.loadCounter++
	return nil
}

// Unload decrements id's load counter, releasing the module when it
// reaches zero. Unloading an already-unloaded system is a BadValue.
func (r *Registry) Unload(id int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok {
		return ddmerrors.New(ddmerrors.NotFound, "no disk system with id %d", id)
	}
	if e.loadCounter == 0 {
		return ddmerrors.New(ddmerrors.BadValue, "disk system %d is not loaded", id)
	}
	e.loadCounter--
	return nil
}

// LoadCount reports id's current load counter, for diagnostics.
func (r *Registry) LoadCount(id int32) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.byID[id]; ok {
		return e.loadCounter
	}
	return 0
}
