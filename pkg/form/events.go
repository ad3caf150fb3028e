package form

import (
	"sort"
	"sync"

	"github.com/goliatone/go-forms/pkg/params"
)

// EventPrefix scopes every form event name.
const EventPrefix = "form.factory.events"

// Event is handed to listeners. Args carry the values the event exposes;
// pointers among them may be rewritten by listeners.
type Event struct {
	Name string
	Form *Form
	Args []any
}

// Arg returns the i-th argument or nil.
func (e *Event) Arg(i int) any {
	if i < 0 || i >= len(e.Args) {
		return nil
	}
	return e.Args[i]
}

// Listener reacts to a dispatched event.
type Listener func(*Event)

type listenerEntry struct {
	listener Listener
	priority int
}

// Dispatcher is a process wide listener registry. Higher priorities run
// first; listeners sharing a priority run in registration order.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners map[string][]listenerEntry
}

// NewDispatcher returns an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{listeners: make(map[string][]listenerEntry)}
}

// On registers listener for name.
func (d *Dispatcher) On(name string, listener Listener, priority int) {
	if listener == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	entries := append(d.listeners[name], listenerEntry{listener: listener, priority: priority})
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].priority > entries[j].priority
	})
	d.listeners[name] = entries
}

// HasListeners reports whether name has at least one listener.
func (d *Dispatcher) HasListeners(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.listeners[name]) > 0
}

// Dispatch runs the listeners of ev.Name. The listener list is copied first
// so listeners may register further listeners.
func (d *Dispatcher) Dispatch(ev *Event) {
	for _, entry := range d.entries(ev.Name) {
		entry.listener(ev)
	}
}

func (d *Dispatcher) entries(name string) []listenerEntry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]listenerEntry(nil), d.listeners[name]...)
}

// EventsFactory scopes events to one form. Listeners declared by the form
// live with the form; the shared dispatcher carries application listeners.
type EventsFactory struct {
	form   *Form
	shared *Dispatcher
	local  *Dispatcher
	booted bool
}

func newEventsFactory(shared *Dispatcher) *EventsFactory {
	if shared == nil {
		shared = NewDispatcher()
	}
	return &EventsFactory{shared: shared, local: NewDispatcher()}
}

// Boot registers the listeners declared in the form "events" param. A value
// is either a Listener or a {call, priority} map. Declared listeners miss
// events.booting since it fires before they are registered.
func (f *EventsFactory) Boot() error {
	if f.booted {
		return nil
	}
	if f.form == nil {
		return missingForm("events factory")
	}
	f.Trigger("events.booting", f)

	declared := params.Map(f.form.params.Get("events"))
	names := make([]string, 0, len(declared))
	for name := range declared {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		listener, priority := parseListener(declared[name])
		if listener != nil {
			f.On(name, listener, priority)
		}
	}

	f.booted = true
	f.Trigger("events.booted", f)
	return nil
}

// IsBooted reports whether Boot ran.
func (f *EventsFactory) IsBooted() bool { return f.booted }

// On registers listener for the form scoped event name on this form only.
func (f *EventsFactory) On(name string, listener Listener, priority int) {
	f.local.On(f.scoped(name), listener, priority)
}

// Trigger dispatches the form scoped event name to the shared and the form
// listeners, merged by priority.
func (f *EventsFactory) Trigger(name string, args ...any) {
	ev := &Event{Name: f.scoped(name), Form: f.form, Args: args}
	entries := append(f.shared.entries(ev.Name), f.local.entries(ev.Name)...)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].priority > entries[j].priority
	})
	for _, entry := range entries {
		entry.listener(ev)
	}
}

func (f *EventsFactory) scoped(name string) string {
	alias := ""
	if f.form != nil {
		alias = f.form.alias
	}
	return EventName(alias, name)
}

// EventName returns the dispatcher key of event name for form alias.
func EventName(alias, name string) string {
	return EventPrefix + "." + alias + "." + name
}

func parseListener(raw any) (Listener, int) {
	switch v := raw.(type) {
	case Listener:
		return v, 0
	case func(*Event):
		return v, 0
	}
	entry := params.Map(raw)
	if entry == nil {
		return nil, 0
	}
	listener, _ := parseListener(entry["call"])
	return listener, params.Int(entry["priority"])
}
