package event

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// TestNewEventBus tests the creation of a new event bus
func TestNewEventBus_Creation_ReturnsInitializedBus(t *testing.T) {
	bus := NewEventBus()

	if bus == nil {
		t.Fatal("NewEventBus() returned nil")
	}

	if bus.handlers == nil {
		t.Error("handlers map not initialized")
	}

	if bus.nextID != 1 {
		t.Errorf("expected nextID to be 1, got %d", bus.nextID)
	}
}

// TestBaseEvent tests the BaseEvent functionality
func TestBaseEvent_GetType_ReturnsCorrectType(t *testing.T) {
	tests := []struct {
		name      string
		eventType Type
		source    interface{}
	}{
		{
			name:      "TextureLoaded event",
			eventType: TextureLoaded,
			source:    "test_source",
		},
		{
			name:      "WorldComposed event",
			eventType: WorldComposed,
			source:    123,
		},
		{
			name:      "Empty source",
			eventType: LoopStarted,
			source:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := &BaseEvent{
				EventType: tt.eventType,
				Source:    tt.source,
			}

			if event.GetType() != tt.eventType {
				t.Errorf("GetType() = %v, want %v", event.GetType(), tt.eventType)
			}

			if event.GetSource() != tt.source {
				t.Errorf("GetSource() = %v, want %v", event.GetSource(), tt.source)
			}
		})
	}
}

// TestBusSubscribe tests event subscription functionality
func TestBusSubscribe_SingleHandler_ReturnsValidSubscription(t *testing.T) {
	bus := NewEventBus()

	handler := func(e Event) {
		// Handler for testing subscription
	}

	sub := bus.Subscribe(TextureLoaded, handler)

	if sub == nil {
		t.Fatal("Subscribe() returned nil subscription")
	}

	if sub.ID == 0 {
		t.Error("subscription ID should not be 0")
	}

	if sub.Cancel == nil {
		t.Error("subscription Cancel function should not be nil")
	}

	// Verify handler was registered
	bus.mu.RLock()
	handlers := bus.handlers[TextureLoaded]
	bus.mu.RUnlock()

	if len(handlers) != 1 {
		t.Errorf("expected 1 handler, got %d", len(handlers))
	}
}

// TestBusSubscribe_MultipleHandlers tests multiple subscriptions
func TestBusSubscribe_MultipleHandlers_AllRegistered(t *testing.T) {
	bus := NewEventBus()
	var callCount int

	handler1 := func(e Event) { callCount++ }
	handler2 := func(e Event) { callCount++ }
	handler3 := func(e Event) { callCount++ }

	sub1 := bus.Subscribe(TextureLoaded, handler1)
	sub2 := bus.Subscribe(TextureLoaded, handler2)
	_ = bus.Subscribe(WorldComposed, handler3)

	// Check unique IDs
	if sub1.ID == sub2.ID {
		t.Error("subscriptions should have unique IDs")
	}

	// Check handlers count
	bus.mu.RLock()
	textureHandlers := bus.handlers[TextureLoaded]
	worldHandlers := bus.handlers[WorldComposed]
	bus.mu.RUnlock()

	if len(textureHandlers) != 2 {
		t.Errorf("expected 2 handlers for TextureLoaded, got %d", len(textureHandlers))
	}

	if len(worldHandlers) != 1 {
		t.Errorf("expected 1 handler for WorldComposed, got %d", len(worldHandlers))
	}
}

// TestBusPublish tests event publishing functionality
func TestBusPublish_WithSubscribers_CallsAllHandlers(t *testing.T) {
	bus := NewEventBus()
	var callCount int
	var receivedEvents []Event

	handler1 := func(e Event) {
		callCount++
		receivedEvents = append(receivedEvents, e)
	}

	handler2 := func(e Event) {
		callCount++
		receivedEvents = append(receivedEvents, e)
	}

	bus.Subscribe(TextureLoaded, handler1)
	bus.Subscribe(TextureLoaded, handler2)

	event := &BaseEvent{
		EventType: TextureLoaded,
		Source:    "test",
	}

	bus.Publish(event)

	if callCount != 2 {
		t.Errorf("expected 2 handler calls, got %d", callCount)
	}

	if len(receivedEvents) != 2 {
		t.Errorf("expected 2 received events, got %d", len(receivedEvents))
	}

	for _, e := range receivedEvents {
		if e.GetType() != TextureLoaded {
			t.Errorf("expected event type %v, got %v", TextureLoaded, e.GetType())
		}
	}
}

// TestBusPublish_NoSubscribers tests publishing without subscribers
func TestBusPublish_NoSubscribers_NoError(t *testing.T) {
	bus := NewEventBus()

	event := &BaseEvent{
		EventType: TextureLoaded,
		Source:    "test",
	}

	// Should not panic or error
	bus.Publish(event)
}

// TestBusPublish_WrongEventType tests publishing to non-subscribed event type
func TestBusPublish_WrongEventType_HandlersNotCalled(t *testing.T) {
	bus := NewEventBus()
	handlerCalled := false

	handler := func(e Event) {
		handlerCalled = true
	}

	bus.Subscribe(TextureLoaded, handler)

	event := &BaseEvent{
		EventType: WorldComposed,
		Source:    "test",
	}

	bus.Publish(event)

	if handlerCalled {
		t.Error("handler should not have been called for different event type")
	}
}

// TestSubscriptionCancel tests canceling subscriptions
func TestSubscriptionCancel_ValidSubscription_RemovesHandler(t *testing.T) {
	bus := NewEventBus()
	handlerCalled := false

	handler := func(e Event) {
		handlerCalled = true
	}

	sub := bus.Subscribe(TextureLoaded, handler)

	// Verify handler is registered
	bus.mu.RLock()
	handlersBefore := len(bus.handlers[TextureLoaded])
	bus.mu.RUnlock()

	if handlersBefore != 1 {
		t.Errorf("expected 1 handler before cancel, got %d", handlersBefore)
	}

	// Cancel subscription
	sub.Cancel()

	// Verify handler is removed
	bus.mu.RLock()
	handlersAfter := len(bus.handlers[TextureLoaded])
	bus.mu.RUnlock()

	if handlersAfter != 0 {
		t.Errorf("expected 0 handlers after cancel, got %d", handlersAfter)
	}

	// Verify handler is not called after cancellation
	event := &BaseEvent{
		EventType: TextureLoaded,
		Source:    "test",
	}

	bus.Publish(event)

	if handlerCalled {
		t.Error("handler should not be called after cancellation")
	}
}

// TestConcurrentAccess tests thread safety
func TestBusSubscribe_ConcurrentAccess_ThreadSafe(t *testing.T) {
	bus := NewEventBus()
	var wg sync.WaitGroup
	handlerCount := 0
	var mu sync.Mutex

	handler := func(e Event) {
		mu.Lock()
		handlerCount++
		mu.Unlock()
	}

	// Start multiple goroutines to subscribe concurrently
	numGoroutines := 10
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			bus.Subscribe(TextureLoaded, handler)
		}()
	}

	wg.Wait()

	// Verify all subscriptions were registered
	bus.mu.RLock()
	handlers := bus.handlers[TextureLoaded]
	bus.mu.RUnlock()

	if len(handlers) != numGoroutines {
		t.Errorf("expected %d handlers, got %d", numGoroutines, len(handlers))
	}

	// Test concurrent publishing
	event := &BaseEvent{
		EventType: TextureLoaded,
		Source:    "test",
	}

	// Publish concurrently
	wg.Add(3)
	for i := 0; i < 3; i++ {
		go func() {
			defer wg.Done()
			bus.Publish(event)
		}()
	}

	wg.Wait()

	// Give handlers time to execute
	time.Sleep(10 * time.Millisecond)

	mu.Lock()
	expectedCalls := numGoroutines * 3
	if handlerCount != expectedCalls {
		t.Errorf("expected %d handler calls, got %d", expectedCalls, handlerCount)
	}
	mu.Unlock()
}

// TestNewWorldEvent tests world event creation
func TestNewWorldEvent_ValidParameters_ReturnsCorrectEvent(t *testing.T) {
	source := "composer"

	event := NewWorldEvent(source, 5, 3)

	if event.GetType() != WorldComposed {
		t.Errorf("GetType() = %v, want %v", event.GetType(), WorldComposed)
	}
	if event.GetSource() != source {
		t.Errorf("GetSource() = %v, want %v", event.GetSource(), source)
	}
	if event.Planets != 5 || event.Moons != 3 {
		t.Errorf("counts = %d/%d, want 5/3", event.Planets, event.Moons)
	}
}

// TestNewLoopEvent tests loop event creation
func TestNewLoopEvent_ValidParameters_ReturnsCorrectEvent(t *testing.T) {
	tests := []struct {
		name      string
		eventType Type
		frames    uint64
		reason    string
	}{
		{name: "started", eventType: LoopStarted, frames: 0, reason: ""},
		{name: "stopped by condition", eventType: LoopStopped, frames: 600, reason: "stop"},
		{name: "stopped by context", eventType: LoopStopped, frames: 12, reason: "context canceled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := NewLoopEvent(tt.eventType, nil, tt.frames, tt.reason)

			if event.GetType() != tt.eventType {
				t.Errorf("GetType() = %v, want %v", event.GetType(), tt.eventType)
			}
			if event.Frames != tt.frames {
				t.Errorf("Frames = %v, want %v", event.Frames, tt.frames)
			}
			if event.Reason != tt.reason {
				t.Errorf("Reason = %q, want %q", event.Reason, tt.reason)
			}
		})
	}
}

// TestNewTextureEvent tests that the error decides the event type
func TestNewTextureEvent_ErrorSelectsType(t *testing.T) {
	loaded := NewTextureEvent("loader", "2k_earth_daymap.jpg", nil)
	if loaded.GetType() != TextureLoaded {
		t.Errorf("GetType() = %v, want %v", loaded.GetType(), TextureLoaded)
	}

	failed := NewTextureEvent("loader", "2k_mars.jpg", errors.New("missing"))
	if failed.GetType() != TextureFailed {
		t.Errorf("GetType() = %v, want %v", failed.GetType(), TextureFailed)
	}
	if failed.Path != "2k_mars.jpg" || failed.Err == nil {
		t.Errorf("unexpected event %+v", failed)
	}
}

// TestNewResizeEvent tests resize event creation
func TestNewResizeEvent_ValidParameters_ReturnsCorrectEvent(t *testing.T) {
	event := NewResizeEvent(nil, 800, 600)

	if event.GetType() != ViewportResized {
		t.Errorf("GetType() = %v, want %v", event.GetType(), ViewportResized)
	}
	if event.Width != 800 || event.Height != 600 {
		t.Errorf("size = %dx%d, want 800x600", event.Width, event.Height)
	}
}

// TestEventTypes tests that all event type constants are properly defined
func TestEventTypes_Constants_AllDefined(t *testing.T) {
	expectedTypes := []Type{
		WorldComposed,
		LoopStarted,
		LoopStopped,
		TextureLoaded,
		TextureFailed,
		ViewportResized,
	}

	seen := make(map[Type]bool)
	for _, eventType := range expectedTypes {
		if string(eventType) == "" {
			t.Errorf("event type %v is empty", eventType)
		}
		if seen[eventType] {
			t.Errorf("event type %v is duplicated", eventType)
		}
		seen[eventType] = true
	}
}

// TestSubscriptionCancel_Twice tests that a second Cancel is a no-op
func TestSubscriptionCancel_Twice_NoPanic(t *testing.T) {
	bus := NewEventBus()
	calls := 0
	sub := bus.Subscribe(LoopStopped, func(Event) {})
	_ = bus.Subscribe(LoopStopped, func(Event) { calls++ })

	sub.Cancel()
	sub.Cancel()

	bus.Publish(&BaseEvent{EventType: LoopStopped})
	if calls != 1 {
		t.Errorf("expected remaining handler to run once, got %d", calls)
	}
}

// TestNilBusPublish tests that publishing on a nil bus is ignored
func TestNilBusPublish_NoPanic(t *testing.T) {
	var bus *Bus
	bus.Publish(&BaseEvent{EventType: LoopStarted})
}

// TestCancelMultipleSubscriptions tests canceling multiple subscriptions
func TestCancelMultipleSubscriptions_DifferentTypes_OnlyTargetRemoved(t *testing.T) {
	bus := NewEventBus()

	handler1Called := false
	handler2Called := false
	handler3Called := false

	handler1 := func(e Event) { handler1Called = true }
	handler2 := func(e Event) { handler2Called = true }
	handler3 := func(e Event) { handler3Called = true }

	sub1 := bus.Subscribe(TextureLoaded, handler1)
	_ = bus.Subscribe(TextureLoaded, handler2)
	_ = bus.Subscribe(WorldComposed, handler3)

	// Cancel only the first subscription
	sub1.Cancel()

	// Publish TextureLoaded event
	textureEvent := &BaseEvent{EventType: TextureLoaded, Source: "test"}
	bus.Publish(textureEvent)

	// Publish WorldComposed event
	worldEvent := &BaseEvent{EventType: WorldComposed, Source: "test"}
	bus.Publish(worldEvent)

	if handler1Called {
		t.Error("handler1 should not be called after cancellation")
	}

	if !handler2Called {
		t.Error("handler2 should be called")
	}

	if !handler3Called {
		t.Error("handler3 should be called")
	}
}
