package event

import (
	"sync"
)

// Type represents the type of event
type Type string

// Common event types
const (
	WorldComposed   Type = "world_composed"
	LoopStarted     Type = "loop_started"
	LoopStopped     Type = "loop_stopped"
	TextureLoaded   Type = "texture_loaded"
	TextureFailed   Type = "texture_failed"
	ViewportResized Type = "viewport_resized"
)

// Event is the base interface for all events
type Event interface {
	GetType() Type
	GetSource() interface{}
}

// BaseEvent provides common functionality for all events
type BaseEvent struct {
	EventType Type
	Source    interface{}
}

// GetType returns the event type
func (e *BaseEvent) GetType() Type {
	return e.EventType
}

// GetSource returns the event source
func (e *BaseEvent) GetSource() interface{} {
	return e.Source
}

// Handler is a function that handles events
type Handler func(Event)

// SubscriptionID identifies one registered handler.
type SubscriptionID uint64

// Subscription is returned by Subscribe. Cancel removes the handler and is safe
// to call more than once.
type Subscription struct {
	ID     SubscriptionID
	Type   Type
	Cancel func()
}

type registeredHandler struct {
	id      SubscriptionID
	handler Handler
}

// Bus manages event subscriptions and dispatching
type Bus struct {
	handlers map[Type][]registeredHandler
	nextID   SubscriptionID
	mu       sync.RWMutex
}

// NewEventBus creates a new event bus
func NewEventBus() *Bus {
	return &Bus{
		handlers: make(map[Type][]registeredHandler),
		nextID:   1,
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType Type, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[eventType] = append(b.handlers[eventType], registeredHandler{id: id, handler: handler})

	return &Subscription{
		ID:     id,
		Type:   eventType,
		Cancel: func() { b.unsubscribe(eventType, id) },
	}
}

func (b *Bus) unsubscribe(eventType Type, id SubscriptionID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	handlers := b.handlers[eventType]
	for i, h := range handlers {
		if h.id == id {
			// Copy so a Publish iterating the old slice is not disturbed.
			remaining := make([]registeredHandler, 0, len(handlers)-1)
			remaining = append(remaining, handlers[:i]...)
			remaining = append(remaining, handlers[i+1:]...)
			if len(remaining) == 0 {
				delete(b.handlers, eventType)
			} else {
				b.handlers[eventType] = remaining
			}
			return
		}
	}
}

// Publish sends an event to all subscribed handlers. A nil bus drops the event.
func (b *Bus) Publish(event Event) {
	if b == nil || event == nil {
		return
	}

	b.mu.RLock()
	handlers := b.handlers[event.GetType()]
	b.mu.RUnlock()

	for _, h := range handlers {
		h.handler(event)
	}
}

// Specific event implementations

// WorldEvent reports the node counts of a freshly composed world.
type WorldEvent struct {
	BaseEvent
	Planets int
	Moons   int
}

// NewWorldEvent creates a new world event
func NewWorldEvent(source interface{}, planets, moons int) *WorldEvent {
	return &WorldEvent{
		BaseEvent: BaseEvent{
			EventType: WorldComposed,
			Source:    source,
		},
		Planets: planets,
		Moons:   moons,
	}
}

// LoopEvent contains information about frame loop transitions
type LoopEvent struct {
	BaseEvent
	Frames uint64
	Reason string
}

// NewLoopEvent creates a new loop event
func NewLoopEvent(eventType Type, source interface{}, frames uint64, reason string) *LoopEvent {
	return &LoopEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		Frames: frames,
		Reason: reason,
	}
}

// TextureEvent contains information about a texture load result
type TextureEvent struct {
	BaseEvent
	Path string
	Err  error
}

// NewTextureEvent creates a new texture event. A nil err yields TextureLoaded.
func NewTextureEvent(source interface{}, path string, err error) *TextureEvent {
	eventType := TextureLoaded
	if err != nil {
		eventType = TextureFailed
	}
	return &TextureEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		Path: path,
		Err:  err,
	}
}

// ResizeEvent contains the new viewport size
type ResizeEvent struct {
	BaseEvent
	Width  int
	Height int
}

// NewResizeEvent creates a new resize event
func NewResizeEvent(source interface{}, width, height int) *ResizeEvent {
	return &ResizeEvent{
		BaseEvent: BaseEvent{
			EventType: ViewportResized,
			Source:    source,
		},
		Width:  width,
		Height: height,
	}
}
