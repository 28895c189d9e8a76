package ecs

import (
	"fmt"
	"reflect"
)

// GameObject is the capability set an externally supplied object must
// implement to live in a World. Init is called exactly once, at promotion;
// Update once per tick while the object is live.
type GameObject interface {
	Init() error
	Update(dt float64) error
}

// Labeled lets an object declare its own type label. Objects that don't
// implement it are labeled by their Go type name.
type Labeled interface {
	TypeLabel() string
}

// LabelOf derives the type label of obj at staging time.
func LabelOf(obj GameObject) string {
	if l, ok := obj.(Labeled); ok {
		if label := l.TypeLabel(); label != "" {
			return label
		}
	}
	t := reflect.TypeOf(obj)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if name := t.Name(); name != "" {
		return name
	}
	return t.String()
}

// Hook names a GameObject lifecycle callback.
type Hook string

const (
	HookInit   Hook = "init"
	HookUpdate Hook = "update"
)

// HookError reports a failure raised by an object's Init or Update. The tick
// that observed it is aborted; the World itself stays consistent.
type HookError struct {
	ID    ObjectID
	Label string
	Hook  Hook
	Err   error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("object %d (%s) %s: %v", e.ID, e.Label, e.Hook, e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }

// callHook runs fn, converting a panic into an error so that a misbehaving
// object cannot unwind through the scheduler.
func callHook(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = fmt.Errorf("panic: %w", e)
				return
			}
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
