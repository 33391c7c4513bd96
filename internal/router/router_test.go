package router

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smmvend/vendbot/internal/catalog"
	"github.com/smmvend/vendbot/internal/smm"
)

// fakeInteraction records every reply the router issues through it.
type fakeInteraction struct {
	mu       sync.Mutex
	messages []string
	controls [][]Control
	forms    []Form
	acks     int
	finals   []string

	finalCh chan string
}

func newFakeInteraction() *fakeInteraction {
	return &fakeInteraction{finalCh: make(chan string, 4)}
}

func (f *fakeInteraction) SendMessage(_ context.Context, text string, controls []Control) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, text)
	f.controls = append(f.controls, controls)
	return nil
}

func (f *fakeInteraction) OpenForm(_ context.Context, form Form) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forms = append(f.forms, form)
	return nil
}

func (f *fakeInteraction) Acknowledge(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks++
	return nil
}

func (f *fakeInteraction) Finalize(_ context.Context, text string) error {
	f.mu.Lock()
	f.finals = append(f.finals, text)
	f.mu.Unlock()
	f.finalCh <- text
	return nil
}

func (f *fakeInteraction) snapshot() (messages []string, forms []Form, acks int, finals []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...),
		append([]Form(nil), f.forms...),
		f.acks,
		append([]string(nil), f.finals...)
}

func (f *fakeInteraction) waitFinal(t *testing.T) string {
	t.Helper()
	select {
	case text := <-f.finalCh:
		return text
	case <-time.After(2 * time.Second):
		t.Fatal("no finalization within 2s")
		return ""
	}
}

// fakeOrderPlacer returns a canned result, optionally blocking or
// panicking for specific links.
type fakeOrderPlacer struct {
	mu       sync.Mutex
	requests []smm.OrderRequest

	result    smm.OrderResult
	blockLink string        // requests for this link wait on gate
	gate      chan struct{} // closed to release blocked requests
	panicMsg  string        // non-empty: panic instead of returning
}

func (p *fakeOrderPlacer) PlaceOrder(_ context.Context, req smm.OrderRequest) smm.OrderResult {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	blockLink, gate, panicMsg := p.blockLink, p.gate, p.panicMsg
	p.mu.Unlock()

	if panicMsg != "" {
		panic(panicMsg)
	}
	if blockLink != "" && req.Link == blockLink {
		<-gate
	}
	return p.result
}

func (p *fakeOrderPlacer) recorded() []smm.OrderRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]smm.OrderRequest(nil), p.requests...)
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]catalog.Entry{
		{Label: "Instagram Likes x100", ServiceID: "1", UnitPrice: decimal.RequireFromString("1.50")},
		{Label: "YouTube Views x100", ServiceID: "77", UnitPrice: decimal.RequireFromString("0.90")},
	})
	require.NoError(t, err)
	return c
}

func newTestRouter(t *testing.T, placer OrderPlacer) *Router {
	t.Helper()
	return New(testCatalog(t), placer, zap.NewNop())
}

// driveToForm walks one interaction through command and selection,
// returning the form token the router issued.
func driveToForm(t *testing.T, r *Router, ix *fakeInteraction) string {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, r.Dispatch(ctx, Command{UserID: "u1", Text: TriggerCommand}, ix))

	ix.mu.Lock()
	require.NotEmpty(t, ix.controls)
	controlID := ix.controls[len(ix.controls)-1][0].ID
	ix.mu.Unlock()

	require.NoError(t, r.Dispatch(ctx, ControlActivated{ControlID: controlID}, ix))

	ix.mu.Lock()
	require.NotEmpty(t, ix.forms)
	formID := ix.forms[len(ix.forms)-1].ID
	ix.mu.Unlock()
	return formID
}

func TestHandleCommand_ListsCatalog(t *testing.T) {
	r := newTestRouter(t, &fakeOrderPlacer{})
	ix := newFakeInteraction()

	err := r.Dispatch(context.Background(), Command{UserID: "u1", Text: TriggerCommand}, ix)
	require.NoError(t, err)

	messages, _, _, _ := ix.snapshot()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "Instagram Likes x100")
	assert.Contains(t, messages[0], "YouTube Views x100")

	ix.mu.Lock()
	defer ix.mu.Unlock()
	require.Len(t, ix.controls[0], 2)
	assert.NotEmpty(t, ix.controls[0][0].ID)
	assert.NotEqual(t, ix.controls[0][0].ID, ix.controls[0][1].ID)
	assert.Equal(t, "Instagram Likes x100", ix.controls[0][0].Label)
}

func TestHandleCommand_IgnoresOtherText(t *testing.T) {
	r := newTestRouter(t, &fakeOrderPlacer{})
	ix := newFakeInteraction()

	require.NoError(t, r.Dispatch(context.Background(), Command{Text: "hello"}, ix))

	messages, _, _, _ := ix.snapshot()
	assert.Empty(t, messages)
}

func TestHandleControl_OpensForm(t *testing.T) {
	r := newTestRouter(t, &fakeOrderPlacer{})
	ix := newFakeInteraction()

	formID := driveToForm(t, r, ix)
	require.NotEmpty(t, formID)

	_, forms, _, _ := ix.snapshot()
	require.Len(t, forms, 1)
	assert.Contains(t, forms[0].Title, "Instagram Likes x100")
	require.Len(t, forms[0].Fields, 1)
	assert.Equal(t, FieldURL, forms[0].Fields[0].ID)
	assert.True(t, forms[0].Fields[0].Required)
}

func TestHandleControl_UnknownTokenIgnored(t *testing.T) {
	r := newTestRouter(t, &fakeOrderPlacer{})
	ix := newFakeInteraction()

	err := r.Dispatch(context.Background(), ControlActivated{ControlID: "never-issued"}, ix)
	require.NoError(t, err)

	_, forms, _, _ := ix.snapshot()
	assert.Empty(t, forms)
}

func TestHandleControl_TokenConsumed(t *testing.T) {
	r := newTestRouter(t, &fakeOrderPlacer{})
	ix := newFakeInteraction()

	require.NoError(t, r.Dispatch(context.Background(), Command{Text: TriggerCommand}, ix))
	ix.mu.Lock()
	controlID := ix.controls[0][0].ID
	ix.mu.Unlock()

	require.NoError(t, r.Dispatch(context.Background(), ControlActivated{ControlID: controlID}, ix))
	require.NoError(t, r.Dispatch(context.Background(), ControlActivated{ControlID: controlID}, ix))

	_, forms, _, _ := ix.snapshot()
	assert.Len(t, forms, 1, "second activation of a consumed token must be ignored")
}

func TestHandleForm_PlacesOrderAndFinalizes(t *testing.T) {
	placer := &fakeOrderPlacer{result: smm.Succeeded("12345")}
	r := newTestRouter(t, placer)
	ix := newFakeInteraction()

	formID := driveToForm(t, r, ix)
	err := r.Dispatch(context.Background(), FormSubmitted{
		FormID: formID,
		Fields: map[string]string{FieldURL: "https://www.instagram.com/p/abc"},
	}, ix)
	require.NoError(t, err)

	final := ix.waitFinal(t)
	assert.Contains(t, final, "12345")

	r.Wait()
	_, _, acks, finals := ix.snapshot()
	assert.Equal(t, 1, acks)
	assert.Len(t, finals, 1, "exactly one finalization per acknowledgment")

	reqs := placer.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, "1", reqs[0].ServiceID)
	assert.Equal(t, "https://www.instagram.com/p/abc", reqs[0].Link)
	assert.Equal(t, smm.DefaultQuantity, reqs[0].Quantity)
}

func TestHandleForm_FailureSurfacedVerbatim(t *testing.T) {
	placer := &fakeOrderPlacer{result: smm.Failed("Invalid link")}
	r := newTestRouter(t, placer)
	ix := newFakeInteraction()

	formID := driveToForm(t, r, ix)
	require.NoError(t, r.Dispatch(context.Background(), FormSubmitted{
		FormID: formID,
		Fields: map[string]string{FieldURL: "https://example.com"},
	}, ix))

	assert.Contains(t, ix.waitFinal(t), "Invalid link")
	r.Wait()
}

func TestHandleForm_UnknownTagIgnored(t *testing.T) {
	r := newTestRouter(t, &fakeOrderPlacer{result: smm.Succeeded("1")})
	ix := newFakeInteraction()

	err := r.Dispatch(context.Background(), FormSubmitted{
		FormID: "never-issued",
		Fields: map[string]string{FieldURL: "https://example.com"},
	}, ix)
	require.NoError(t, err)

	r.Wait()
	_, _, acks, finals := ix.snapshot()
	assert.Zero(t, acks, "unmatched submission must produce no outbound message")
	assert.Empty(t, finals)
}

func TestHandleForm_TokenConsumedOnce(t *testing.T) {
	r := newTestRouter(t, &fakeOrderPlacer{result: smm.Succeeded("9")})
	ix := newFakeInteraction()

	formID := driveToForm(t, r, ix)
	fields := map[string]string{FieldURL: "https://example.com"}

	require.NoError(t, r.Dispatch(context.Background(), FormSubmitted{FormID: formID, Fields: fields}, ix))
	ix.waitFinal(t)
	r.Wait()

	// Replay of the same form token.
	require.NoError(t, r.Dispatch(context.Background(), FormSubmitted{FormID: formID, Fields: fields}, ix))
	r.Wait()

	_, _, acks, finals := ix.snapshot()
	assert.Equal(t, 1, acks)
	assert.Len(t, finals, 1)
}

func TestRunOrder_PanicStillFinalizes(t *testing.T) {
	placer := &fakeOrderPlacer{panicMsg: "boom"}
	r := newTestRouter(t, placer)
	ix := newFakeInteraction()

	formID := driveToForm(t, r, ix)
	require.NoError(t, r.Dispatch(context.Background(), FormSubmitted{
		FormID: formID,
		Fields: map[string]string{FieldURL: "https://example.com"},
	}, ix))

	final := ix.waitFinal(t)
	assert.Contains(t, final, smm.ReasonUnspecified)

	r.Wait()
	_, _, _, finals := ix.snapshot()
	assert.Len(t, finals, 1)
}

func TestConcurrentOrders_DoNotBlock(t *testing.T) {
	placer := &fakeOrderPlacer{
		result:    smm.Succeeded("77"),
		blockLink: "https://example.com/a",
		gate:      make(chan struct{}),
	}
	r := newTestRouter(t, placer)
	ctx := context.Background()

	ixA := newFakeInteraction()
	formA := driveToForm(t, r, ixA)
	require.NoError(t, r.Dispatch(ctx, FormSubmitted{
		FormID: formA,
		Fields: map[string]string{FieldURL: "https://example.com/a"},
	}, ixA))

	// A is acknowledged and stuck in its remote call; B must still run
	// start to finish.
	ixB := newFakeInteraction()
	formB := driveToForm(t, r, ixB)
	require.NoError(t, r.Dispatch(ctx, FormSubmitted{
		FormID: formB,
		Fields: map[string]string{FieldURL: "https://example.com/b"},
	}, ixB))

	ixB.waitFinal(t)

	_, _, acksA, finalsA := ixA.snapshot()
	assert.Equal(t, 1, acksA)
	assert.Empty(t, finalsA, "A must still be pending while blocked")

	close(placer.gate)
	ixA.waitFinal(t)
	r.Wait()
}

type unknownEvent struct{}

func (unknownEvent) isEvent() {}

func TestDispatch_UnknownEventKind(t *testing.T) {
	r := newTestRouter(t, &fakeOrderPlacer{})
	ix := newFakeInteraction()

	require.NoError(t, r.Dispatch(context.Background(), unknownEvent{}, ix))

	messages, forms, acks, finals := ix.snapshot()
	assert.Empty(t, messages)
	assert.Empty(t, forms)
	assert.Zero(t, acks)
	assert.Empty(t, finals)
}
