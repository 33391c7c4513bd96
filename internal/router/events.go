package router

import "context"

// Event is the closed union of inbound chat events the router consumes.
// The platform adapter translates gateway payloads into exactly these
// three kinds; anything else is dropped at the boundary.
type Event interface {
	isEvent()
}

// Command is a plain-text message.
type Command struct {
	UserID    string
	ChannelID string
	Text      string
}

// ControlActivated is a UI control activation. Value is set for
// multi-select controls and empty for plain buttons.
type ControlActivated struct {
	ControlID string
	Value     string
}

// FormSubmitted carries a completed form. The UI layer enforces required
// fields before delivery, so registered fields are present.
type FormSubmitted struct {
	FormID string
	Fields map[string]string
}

func (Command) isEvent()          {}
func (ControlActivated) isEvent() {}
func (FormSubmitted) isEvent()    {}

// Control is a button rendered alongside a message. ID is an opaque
// correlation token minted by the router.
type Control struct {
	ID    string
	Label string
}

// FormField is a single text input in a form.
type FormField struct {
	ID          string
	Label       string
	Placeholder string
	Required    bool
}

// Form is a modal opened in response to a control activation. ID is the
// correlation token matched against the later FormSubmitted event.
type Form struct {
	ID     string
	Title  string
	Fields []FormField
}

// Interaction is the reply surface for one inbound event. The platform
// adapter hands the router an implementation bound to the originating
// message or interaction; the router never talks to the chat platform
// directly.
//
// Acknowledge sends the provisional "working" reply for a form
// submission. Every acknowledged interaction must be finalized exactly
// once via Finalize, which replaces the provisional reply with final
// text.
type Interaction interface {
	SendMessage(ctx context.Context, text string, controls []Control) error
	OpenForm(ctx context.Context, form Form) error
	Acknowledge(ctx context.Context) error
	Finalize(ctx context.Context, text string) error
}
