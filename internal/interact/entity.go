// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package interact

import "sync"

// Interactable is anything a subject can interact with.
type Interactable interface {
	Name() string
	// Tags lists the entity's type tags, most specific first, e.g.
	// ["npc", "mob", "entity"].
	Tags() []string
}

// Facer is implemented by entities that turn toward the other party of an
// interaction.
type Facer interface {
	Face(other Interactable)
}

// Entity is a plain Interactable with script-visible properties. In scripts
// its methods are lower-cased: target.name(), target.get("met").
type Entity struct {
	name string
	tags []string

	mu     sync.Mutex
	props  map[string]interface{}
	facing string
}

// NewEntity creates an entity with the given name and type tags.
func NewEntity(name string, tags ...string) *Entity {
	return &Entity{
		name:  name,
		tags:  tags,
		props: make(map[string]interface{}),
	}
}

func (e *Entity) Name() string { return e.name }

func (e *Entity) Tags() []string {
	out := make([]string, len(e.tags))
	copy(out, e.tags)
	return out
}

// Get returns a property, or nil when unset.
func (e *Entity) Get(key string) interface{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.props[key]
}

func (e *Entity) Set(key string, value interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.props[key] = value
}

// Face records the entity this one is turned toward.
func (e *Entity) Face(other Interactable) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if other == nil {
		e.facing = ""
		return
	}
	e.facing = other.Name()
}

// Facing returns the name of the entity this one faces, or "".
func (e *Entity) Facing() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.facing
}

func (e *Entity) String() string { return e.name }

var (
	_ Interactable = (*Entity)(nil)
	_ Facer        = (*Entity)(nil)
)
