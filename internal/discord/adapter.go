// Package discord binds the platform-agnostic router to the Discord
// gateway. It translates gateway payloads into the router's event union
// and implements the reply surface on top of discordgo: message sends
// with button rows, modal opens, deferred ephemeral replies, and reply
// edits.
package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/smmvend/vendbot/internal/router"
)

// errUnsupportedReply guards reply methods that make no sense for the
// originating event kind (e.g. opening a modal from a plain message).
var errUnsupportedReply = errors.New("reply kind not supported for this event")

// Adapter owns the Discord session and forwards events to the router.
type Adapter struct {
	session *discordgo.Session
	router  *router.Router
	log     *zap.Logger
}

// New creates the adapter and registers its gateway handlers. The session
// is not opened until Open is called.
func New(token string, r *router.Router, log *zap.Logger) (*Adapter, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMessages |
		discordgo.IntentMessageContent

	a := &Adapter{
		session: session,
		router:  r,
		log:     log,
	}
	session.AddHandler(a.onReady)
	session.AddHandler(a.onMessageCreate)
	session.AddHandler(a.onInteractionCreate)
	return a, nil
}

// Open connects to the gateway.
func (a *Adapter) Open() error {
	if err := a.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	return nil
}

// Close disconnects from the gateway.
func (a *Adapter) Close() error {
	return a.session.Close()
}

func (a *Adapter) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	a.log.Info("discord session ready", zap.String("user", r.User.String()))
}

func (a *Adapter) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	ev := router.Command{
		UserID:    m.Author.ID,
		ChannelID: m.ChannelID,
		Text:      m.Content,
	}
	ix := &messageReply{session: s, msg: m.Message}
	if err := a.router.Dispatch(context.Background(), ev, ix); err != nil {
		a.log.Error("command dispatch failed", zap.String("user", m.Author.ID), zap.Error(err))
	}
}

func (a *Adapter) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	var ev router.Event

	switch i.Type {
	case discordgo.InteractionMessageComponent:
		data := i.MessageComponentData()
		var value string
		if len(data.Values) > 0 {
			value = data.Values[0]
		}
		ev = router.ControlActivated{ControlID: data.CustomID, Value: value}
	case discordgo.InteractionModalSubmit:
		data := i.ModalSubmitData()
		ev = router.FormSubmitted{FormID: data.CustomID, Fields: modalFields(data)}
	default:
		return
	}

	ix := &interactionReply{session: s, interaction: i.Interaction}
	if err := a.router.Dispatch(context.Background(), ev, ix); err != nil {
		a.log.Error("interaction dispatch failed", zap.Error(err))
	}
}

// modalFields flattens a submitted modal into field ID -> value.
func modalFields(data discordgo.ModalSubmitInteractionData) map[string]string {
	fields := make(map[string]string)
	for _, component := range data.Components {
		row, ok := component.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, inner := range row.Components {
			if input, ok := inner.(*discordgo.TextInput); ok {
				fields[input.CustomID] = input.Value
			}
		}
	}
	return fields
}

// buttonRows lays controls out as primary buttons, five per action row
// (the Discord per-row limit).
func buttonRows(controls []router.Control) []discordgo.MessageComponent {
	const perRow = 5

	var rows []discordgo.MessageComponent
	for start := 0; start < len(controls); start += perRow {
		end := min(start+perRow, len(controls))
		row := discordgo.ActionsRow{}
		for _, c := range controls[start:end] {
			row.Components = append(row.Components, discordgo.Button{
				Label:    c.Label,
				Style:    discordgo.PrimaryButton,
				CustomID: c.ID,
			})
		}
		rows = append(rows, row)
	}
	return rows
}

// formComponents lays form fields out as short text inputs, one per row.
func formComponents(form router.Form) []discordgo.MessageComponent {
	components := make([]discordgo.MessageComponent, 0, len(form.Fields))
	for _, f := range form.Fields {
		components = append(components, discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.TextInput{
					CustomID:    f.ID,
					Label:       f.Label,
					Style:       discordgo.TextInputShort,
					Placeholder: f.Placeholder,
					Required:    f.Required,
				},
			},
		})
	}
	return components
}

// messageReply is the reply surface for plain-text commands.
type messageReply struct {
	session *discordgo.Session
	msg     *discordgo.Message
}

func (r *messageReply) SendMessage(_ context.Context, text string, controls []router.Control) error {
	_, err := r.session.ChannelMessageSendComplex(r.msg.ChannelID, &discordgo.MessageSend{
		Content:    text,
		Components: buttonRows(controls),
		Reference:  r.msg.Reference(),
	})
	if err != nil {
		return fmt.Errorf("send channel message: %w", err)
	}
	return nil
}

func (r *messageReply) OpenForm(context.Context, router.Form) error {
	return errUnsupportedReply
}

func (r *messageReply) Acknowledge(context.Context) error {
	return errUnsupportedReply
}

func (r *messageReply) Finalize(context.Context, string) error {
	return errUnsupportedReply
}

// interactionReply is the reply surface for component and modal events.
type interactionReply struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction
}

func (r *interactionReply) SendMessage(context.Context, string, []router.Control) error {
	return errUnsupportedReply
}

func (r *interactionReply) OpenForm(_ context.Context, form router.Form) error {
	err := r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID:   form.ID,
			Title:      form.Title,
			Components: formComponents(form),
		},
	})
	if err != nil {
		return fmt.Errorf("open modal: %w", err)
	}
	return nil
}

func (r *interactionReply) Acknowledge(_ context.Context) error {
	err := r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		return fmt.Errorf("defer reply: %w", err)
	}
	return nil
}

func (r *interactionReply) Finalize(_ context.Context, text string) error {
	_, err := r.session.InteractionResponseEdit(r.interaction, &discordgo.WebhookEdit{
		Content: &text,
	})
	if err != nil {
		return fmt.Errorf("edit deferred reply: %w", err)
	}
	return nil
}
