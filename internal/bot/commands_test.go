package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"market-listing-alerts/internal/exchange"
	"market-listing-alerts/internal/market"
	"market-listing-alerts/internal/notify"
	"market-listing-alerts/internal/state"
)

const (
	vendorChannel = "vendor-chan"
	otherChannel  = "client-chan"
)

type fakeStore struct {
	codes  map[string]struct {
		feed state.Feed
		id   int64
	}
	margin    decimal.Decimal
	marginErr error
	setTo     *decimal.Decimal
}

func (f *fakeStore) ResolveCode(code string) (state.Feed, int64, bool) {
	entry, ok := f.codes[code]
	return entry.feed, entry.id, ok
}

func (f *fakeStore) Margin() decimal.Decimal { return f.margin }

func (f *fakeStore) SetMargin(margin decimal.Decimal) error {
	if f.marginErr != nil {
		return f.marginErr
	}
	f.setTo = &margin
	f.margin = margin
	return nil
}

type fakeDetailer struct {
	detail *market.ItemDetail
	err    error
}

func (f *fakeDetailer) FetchItem(ctx context.Context, itemID int64) (*market.ItemDetail, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.detail, nil
}

type fakePreviews struct {
	image []byte
	err   error
}

func (f *fakePreviews) Generate(ctx context.Context, skinIDs []string) ([]byte, error) {
	return f.image, f.err
}

type recordingTransport struct {
	texts  []string
	embeds []*discordgo.MessageEmbed
	images [][]byte
}

func (r *recordingTransport) SendText(ctx context.Context, channelID, content string) error {
	r.texts = append(r.texts, content)
	return nil
}

func (r *recordingTransport) SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed, image []byte, imageName string) error {
	r.embeds = append(r.embeds, embed)
	r.images = append(r.images, image)
	return nil
}

func newTestCommands(store *fakeStore, detailer *fakeDetailer, previews *fakePreviews, transport *recordingTransport) *Commands {
	rate := &exchange.Rate{}
	rate.Set(decimal.NewFromInt(5))
	dispatcher := notify.NewDispatcher(transport, zerolog.Nop())
	return NewCommands(store, detailer, previews, dispatcher, rate, transport, vendorChannel, "/", zerolog.Nop())
}

func mappedStore(code string) *fakeStore {
	return &fakeStore{codes: map[string]struct {
		feed state.Feed
		id   int64
	}{code: {feed: state.FeedDomestic, id: 4242}}}
}

func sampleDetail() *market.ItemDetail {
	return &market.ItemDetail{
		ItemID:        4242,
		Title:         "Immortal stacked account",
		Price:         30,
		PriceCurrency: "USD",
		Region:        "BR",
		Inventory: &market.Inventory{
			WeaponSkins: []string{"a", "b"},
			KnifeSkins:  []string{"c"},
		},
	}
}

func lastText(t *testing.T, transport *recordingTransport) string {
	t.Helper()
	if len(transport.texts) == 0 {
		t.Fatal("expected a text reply")
	}
	return transport.texts[len(transport.texts)-1]
}

func TestHandleIgnoresNonCommandContent(t *testing.T) {
	transport := &recordingTransport{}
	cmds := newTestCommands(&fakeStore{}, &fakeDetailer{}, &fakePreviews{}, transport)

	cmds.Handle(context.Background(), vendorChannel, "hello there")
	cmds.Handle(context.Background(), vendorChannel, "/unknowncmd arg")
	cmds.Handle(context.Background(), vendorChannel, "/")

	if len(transport.texts) != 0 || len(transport.embeds) != 0 {
		t.Fatalf("non-commands must be silent, got %v", transport.texts)
	}
}

func TestHandleRejectsOutsideVendorChannel(t *testing.T) {
	transport := &recordingTransport{}
	cmds := newTestCommands(mappedStore("ABC123"), &fakeDetailer{detail: sampleDetail()}, &fakePreviews{}, transport)

	cmds.Handle(context.Background(), otherChannel, "/lookup ABC123")

	if got := lastText(t, transport); got != "This command can only be used in the vendor channel." {
		t.Fatalf("unexpected rejection reply %q", got)
	}
	if len(transport.embeds) != 0 {
		t.Fatal("no vendor view may leak outside the vendor channel")
	}
}

func TestLookupUnknownCode(t *testing.T) {
	transport := &recordingTransport{}
	cmds := newTestCommands(&fakeStore{}, &fakeDetailer{}, &fakePreviews{}, transport)

	cmds.Handle(context.Background(), vendorChannel, "/lookup NOPE99")

	if got := lastText(t, transport); got != "❌ No account found with ID NOPE99." {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestLookupUppercasesCode(t *testing.T) {
	transport := &recordingTransport{}
	cmds := newTestCommands(mappedStore("ABC123"), &fakeDetailer{detail: sampleDetail()}, &fakePreviews{image: []byte{1}}, transport)

	cmds.Handle(context.Background(), vendorChannel, "/lookup abc123")

	if got := lastText(t, transport); !strings.Contains(got, "ABC123") || !strings.HasPrefix(got, "✅") {
		t.Fatalf("lowercase input must resolve, got %q", got)
	}
	if len(transport.embeds) != 1 {
		t.Fatalf("expected one vendor embed, got %d", len(transport.embeds))
	}
}

func TestLookupDegradedReplyWhenDetailFetchFails(t *testing.T) {
	transport := &recordingTransport{}
	detailer := &fakeDetailer{err: errors.New("upstream down")}
	cmds := newTestCommands(mappedStore("ABC123"), detailer, &fakePreviews{}, transport)

	cmds.Handle(context.Background(), vendorChannel, "/lookup ABC123")

	got := lastText(t, transport)
	if !strings.Contains(got, "Real ID: 4242") {
		t.Fatalf("degraded reply must carry the real ID, got %q", got)
	}
	if len(transport.embeds) != 0 {
		t.Fatal("no embed may be sent when details are unavailable")
	}
}

func TestLookupInternationalMentionsRegion(t *testing.T) {
	transport := &recordingTransport{}
	store := &fakeStore{codes: map[string]struct {
		feed state.Feed
		id   int64
	}{"ABC123": {feed: state.FeedInternational, id: 4242}}}
	detail := sampleDetail()
	detail.Region = "EU"
	cmds := newTestCommands(store, &fakeDetailer{detail: detail}, &fakePreviews{image: []byte{1}}, transport)

	cmds.Handle(context.Background(), vendorChannel, "/lookup ABC123")

	if got := lastText(t, transport); got != "✅ International account (EU) found! Client ID: ABC123" {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestLookupAttachesPreviewImage(t *testing.T) {
	transport := &recordingTransport{}
	cmds := newTestCommands(mappedStore("ABC123"), &fakeDetailer{detail: sampleDetail()}, &fakePreviews{image: []byte{9, 9}}, transport)

	cmds.Handle(context.Background(), vendorChannel, "/lookup ABC123")

	if len(transport.images) != 1 || len(transport.images[0]) == 0 {
		t.Fatal("expected preview bytes alongside the embed")
	}
	if transport.embeds[0].Image == nil {
		t.Fatal("embed must reference the attached preview")
	}
}

func TestLookupPlaceholderWhenPreviewFails(t *testing.T) {
	transport := &recordingTransport{}
	previews := &fakePreviews{err: errors.New("pipeline down")}
	cmds := newTestCommands(mappedStore("ABC123"), &fakeDetailer{detail: sampleDetail()}, previews, transport)

	cmds.Handle(context.Background(), vendorChannel, "/lookup ABC123")

	if len(transport.embeds) != 1 {
		t.Fatalf("expected the embed despite preview failure, got %d", len(transport.embeds))
	}
	embed := transport.embeds[0]
	found := false
	for _, f := range embed.Fields {
		if strings.Contains(f.Value, "Preview generation failed.") {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a preview-failure placeholder field")
	}
	if len(transport.images[0]) != 0 {
		t.Fatal("no image bytes expected when generation fails")
	}
}

func TestLookupPlaceholderWhenNoSkins(t *testing.T) {
	transport := &recordingTransport{}
	detail := sampleDetail()
	detail.Inventory = nil
	cmds := newTestCommands(mappedStore("ABC123"), &fakeDetailer{detail: detail}, &fakePreviews{}, transport)

	cmds.Handle(context.Background(), vendorChannel, "/lookup ABC123")

	embed := transport.embeds[0]
	found := false
	for _, f := range embed.Fields {
		if strings.Contains(f.Value, "No skins listed to preview.") {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a no-skins placeholder field")
	}
}

func TestLookupUsage(t *testing.T) {
	transport := &recordingTransport{}
	cmds := newTestCommands(&fakeStore{}, &fakeDetailer{}, &fakePreviews{}, transport)

	cmds.Handle(context.Background(), vendorChannel, "/lookup")

	if got := lastText(t, transport); !strings.HasPrefix(got, "Usage:") {
		t.Fatalf("expected usage reply, got %q", got)
	}
}

func TestSetMargin(t *testing.T) {
	transport := &recordingTransport{}
	store := &fakeStore{}
	cmds := newTestCommands(store, &fakeDetailer{}, &fakePreviews{}, transport)

	cmds.Handle(context.Background(), vendorChannel, "/setmargin 12.5")

	if store.setTo == nil || !store.setTo.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("expected margin 12.5 stored, got %v", store.setTo)
	}
	if got := lastText(t, transport); !strings.Contains(got, "12.5%") {
		t.Fatalf("confirmation must echo the margin, got %q", got)
	}
}

func TestSetMarginRejectsGarbage(t *testing.T) {
	transport := &recordingTransport{}
	store := &fakeStore{}
	cmds := newTestCommands(store, &fakeDetailer{}, &fakePreviews{}, transport)

	cmds.Handle(context.Background(), vendorChannel, "/setmargin lots")

	if store.setTo != nil {
		t.Fatal("invalid input must not mutate the margin")
	}
	if got := lastText(t, transport); !strings.Contains(got, "not a valid percentage") {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestSetMarginRejectsNegative(t *testing.T) {
	transport := &recordingTransport{}
	store := &fakeStore{marginErr: state.ErrNegativeMargin}
	cmds := newTestCommands(store, &fakeDetailer{}, &fakePreviews{}, transport)

	cmds.Handle(context.Background(), vendorChannel, "/setmargin -5")

	if got := lastText(t, transport); got != "❌ Margin cannot be negative." {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestGetMargin(t *testing.T) {
	transport := &recordingTransport{}
	store := &fakeStore{margin: decimal.RequireFromString("7.5")}
	cmds := newTestCommands(store, &fakeDetailer{}, &fakePreviews{}, transport)

	cmds.Handle(context.Background(), vendorChannel, "/getmargin")

	if got := lastText(t, transport); got != fmt.Sprintf("📊 Current price margin is **%s%%**.", "7.5") {
		t.Fatalf("unexpected reply %q", got)
	}
}
