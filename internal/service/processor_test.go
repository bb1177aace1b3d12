package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shayennn/ptm-noti/internal/api"
	"github.com/Shayennn/ptm-noti/internal/config"
	"github.com/Shayennn/ptm-noti/internal/domain/ticket"
	"github.com/Shayennn/ptm-noti/internal/state"
)

// fakeStorage records uploads and hands out predictable access refs.
type fakeStorage struct {
	attachable bool
	uploads    map[string][]byte
	failUpload bool
}

func newFakeStorage(attachable bool) *fakeStorage {
	return &fakeStorage{attachable: attachable, uploads: map[string][]byte{}}
}

func (f *fakeStorage) Upload(_ context.Context, filename string, data []byte) error {
	if f.failUpload {
		return assert.AnError
	}
	f.uploads[filename] = data
	return nil
}

func (f *fakeStorage) Access(_ context.Context, filename string) (string, error) {
	if f.attachable {
		return filepath.Join("/images", filename), nil
	}
	return "https://bucket.example.com/" + filename + "?signed", nil
}

func (f *fakeStorage) Attachable() bool { return f.attachable }

type sentNotification struct {
	message     string
	attachments []string
}

// fakeNotifier records sends; onSend lets a test observe state at the
// moment of notification.
type fakeNotifier struct {
	sent   []sentNotification
	onSend func()
}

func (f *fakeNotifier) Send(_ context.Context, message string, attachments []string) {
	f.sent = append(f.sent, sentNotification{message: message, attachments: attachments})
	if f.onSend != nil {
		f.onSend()
	}
}

type archivedTicket struct {
	info   ticket.Info
	images []string
}

type fakeArchive struct {
	saved []archivedTicket
}

func (f *fakeArchive) SaveProcessed(_ context.Context, info ticket.Info, images []string, _ []byte) error {
	f.saved = append(f.saved, archivedTicket{info: info, images: images})
	return nil
}

// fixture drives the fake PTM server. Details and evidences are keyed
// by ticket number.
type fixture struct {
	ticketsPayload map[string]any
	details        map[string]map[string]any
	evidences      map[string]map[string]any
	detailStatus   map[string]string
}

func newFixture() *fixture {
	return &fixture{
		details:      map[string]map[string]any{},
		evidences:    map[string]map[string]any{},
		detailStatus: map[string]string{},
	}
}

func (fx *fixture) addTicket(no, dateHappen string, images map[int]string) {
	tickets := []map[string]string{}
	if fx.ticketsPayload != nil {
		tickets = fx.ticketsPayload["tickets"].([]map[string]string)
	}
	tickets = append(tickets, map[string]string{"ticketNo": no})
	fx.ticketsPayload = map[string]any{"status": "000", "msgEn": "Success", "tickets": tickets}

	fx.details[no] = map[string]any{
		"ticketNo":    no,
		"dateHappen":  dateHappen,
		"fineAmount":  "500",
		"plate":       "1กข234",
		"road":        "Rama IV",
		"accuse1Desc": "speeding",
	}

	evidence := map[string]any{"status": "000"}
	for i, data := range images {
		evidence["upImage"+strconv.Itoa(i)] = data
	}
	fx.evidences[no] = evidence
}

func (fx *fixture) serve(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/allTickets", func(w http.ResponseWriter, r *http.Request) {
		payload := fx.ticketsPayload
		if payload == nil {
			payload = map[string]any{"status": "204", "msgEn": "Not found Ticket"}
		}
		writeEnvelope(t, w, payload)
	})
	mux.HandleFunc("/ticketDetail", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		no := body["ticketNo"]
		if status, ok := fx.detailStatus[no]; ok {
			writeEnvelope(t, w, map[string]any{"status": status, "msgEn": "Internal Error"})
			return
		}
		writeEnvelope(t, w, map[string]any{"status": "000", "ticketDetail": fx.details[no]})
	})
	mux.HandleFunc("/imageevidence", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeEnvelope(t, w, fx.evidences[body["ticketNo"]])
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeEnvelope(t *testing.T, w http.ResponseWriter, payload map[string]any) {
	t.Helper()
	inner, err := json.Marshal(payload)
	require.NoError(t, err)
	outer, err := json.Marshal(map[string]string{"value": string(inner)})
	require.NoError(t, err)
	w.Write(outer)
}

func newTestProcessor(t *testing.T, fx *fixture, stor *fakeStorage, notifier *fakeNotifier, archive Archive) (*Processor, *state.Store) {
	t.Helper()
	srv := fx.serve(t)

	cfg := &config.Config{Citizen: "1234567890123"}
	cfg.Endpoints.AllTickets = srv.URL + "/allTickets"
	cfg.Endpoints.TicketDetail = srv.URL + "/ticketDetail"
	cfg.Endpoints.ImageEvidence = srv.URL + "/imageevidence"

	store := state.NewStore(filepath.Join(t.TempDir(), "state.json"), zerolog.Nop())
	client := api.NewClient(cfg, zerolog.Nop())
	return NewProcessor(client, store, stor, notifier, archive, zerolog.Nop()), store
}

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func TestProcess_EndToEnd_SingleTicket(t *testing.T) {
	fx := newFixture()
	fx.addTicket("T1", "01/12/2024", map[int]string{1: b64("png-bytes")})

	stor := newFakeStorage(true)
	notifier := &fakeNotifier{}
	archive := &fakeArchive{}
	p, store := newTestProcessor(t, fx, stor, notifier, archive)

	require.NoError(t, p.Process(context.Background(), "tok"))

	require.Len(t, stor.uploads, 1)
	assert.Equal(t, []byte("png-bytes"), stor.uploads["20241201_T1_1.png"])

	st := store.Load()
	assert.Equal(t, []string{"T1"}, st.ProcessedTickets)

	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0].message, "- Ticket No: T1")
	assert.Contains(t, notifier.sent[0].message, "- Images: 1")

	require.Len(t, archive.saved, 1)
	assert.Equal(t, "T1", archive.saved[0].info.TicketNo)
	assert.Equal(t, []string{"20241201_T1_1.png"}, archive.saved[0].images)
}

func TestProcess_LocalBackend_NotificationHasAttachments(t *testing.T) {
	fx := newFixture()
	fx.addTicket("T1", "01/12/2024", map[int]string{1: b64("a"), 2: b64("b")})

	stor := newFakeStorage(true)
	notifier := &fakeNotifier{}
	p, _ := newTestProcessor(t, fx, stor, notifier, nil)

	require.NoError(t, p.Process(context.Background(), "tok"))

	require.Len(t, notifier.sent, 1)
	sent := notifier.sent[0]
	assert.Equal(t, []string{
		filepath.Join("/images", "20241201_T1_1.png"),
		filepath.Join("/images", "20241201_T1_2.png"),
	}, sent.attachments)
	assert.NotContains(t, sent.message, "https://")
}

func TestProcess_RemoteBackend_NotificationInlinesURLs(t *testing.T) {
	fx := newFixture()
	fx.addTicket("T1", "01/12/2024", map[int]string{1: b64("a")})

	stor := newFakeStorage(false)
	notifier := &fakeNotifier{}
	p, _ := newTestProcessor(t, fx, stor, notifier, nil)

	require.NoError(t, p.Process(context.Background(), "tok"))

	require.Len(t, notifier.sent, 1)
	sent := notifier.sent[0]
	assert.Empty(t, sent.attachments)
	assert.Contains(t, sent.message, "https://bucket.example.com/20241201_T1_1.png?signed")
}

func TestProcess_NoTickets_IsNoOp(t *testing.T) {
	fx := newFixture() // empty fixture means "Not found Ticket"

	stor := newFakeStorage(true)
	notifier := &fakeNotifier{}
	p, store := newTestProcessor(t, fx, stor, notifier, nil)

	require.NoError(t, p.Process(context.Background(), "tok"))
	assert.Empty(t, stor.uploads)
	assert.Empty(t, notifier.sent)
	assert.Empty(t, store.Load().ProcessedTickets)
}

func TestProcess_SecondRunIsIdempotent(t *testing.T) {
	fx := newFixture()
	fx.addTicket("T1", "01/12/2024", map[int]string{1: b64("a")})

	stor := newFakeStorage(true)
	notifier := &fakeNotifier{}
	p, store := newTestProcessor(t, fx, stor, notifier, nil)

	require.NoError(t, p.Process(context.Background(), "tok"))
	require.Len(t, stor.uploads, 1)
	require.Len(t, notifier.sent, 1)

	// Same remote list again: nothing new to do.
	require.NoError(t, p.Process(context.Background(), "tok"))
	assert.Len(t, stor.uploads, 1)
	assert.Len(t, notifier.sent, 1)
	assert.Equal(t, []string{"T1"}, store.Load().ProcessedTickets)
}

func TestProcess_StateCommittedBeforeNotification(t *testing.T) {
	fx := newFixture()
	fx.addTicket("T1", "01/12/2024", map[int]string{1: b64("a")})

	stor := newFakeStorage(true)
	notifier := &fakeNotifier{}
	p, store := newTestProcessor(t, fx, stor, notifier, nil)

	notifier.onSend = func() {
		assert.True(t, store.Load().IsProcessed("T1"), "state must be committed before the notification is attempted")
	}

	require.NoError(t, p.Process(context.Background(), "tok"))
	require.Len(t, notifier.sent, 1)
}

func TestProcess_FailingTicketAbortsRun(t *testing.T) {
	fx := newFixture()
	fx.addTicket("T1", "01/12/2024", map[int]string{1: b64("a")})
	fx.addTicket("T2", "02/12/2024", map[int]string{1: b64("b")})
	fx.detailStatus["T1"] = "500"

	stor := newFakeStorage(true)
	notifier := &fakeNotifier{}
	p, store := newTestProcessor(t, fx, stor, notifier, nil)

	err := p.Process(context.Background(), "tok")
	require.ErrorIs(t, err, api.ErrAPI)

	// The first ticket failed, so the second was never reached.
	assert.Empty(t, stor.uploads)
	assert.Empty(t, notifier.sent)
	assert.Empty(t, store.Load().ProcessedTickets)
}

func TestProcess_CompletedTicketsSurviveMidRunFailure(t *testing.T) {
	fx := newFixture()
	fx.addTicket("T1", "01/12/2024", map[int]string{1: b64("a")})
	fx.addTicket("T2", "02/12/2024", map[int]string{1: b64("b")})
	fx.detailStatus["T2"] = "500"

	stor := newFakeStorage(true)
	notifier := &fakeNotifier{}
	p, store := newTestProcessor(t, fx, stor, notifier, nil)

	err := p.Process(context.Background(), "tok")
	require.Error(t, err)

	// T1 completed and stays committed; T2 will be retried next run.
	assert.Equal(t, []string{"T1"}, store.Load().ProcessedTickets)
	require.Len(t, notifier.sent, 1)
}

func TestProcess_UploadFailureAbortsBeforeCommit(t *testing.T) {
	fx := newFixture()
	fx.addTicket("T1", "01/12/2024", map[int]string{1: b64("a")})

	stor := newFakeStorage(true)
	stor.failUpload = true
	notifier := &fakeNotifier{}
	p, store := newTestProcessor(t, fx, stor, notifier, nil)

	require.Error(t, p.Process(context.Background(), "tok"))
	assert.Empty(t, store.Load().ProcessedTickets)
	assert.Empty(t, notifier.sent)
}

func TestFormatMessage(t *testing.T) {
	limit := "90"
	speed := "112"
	division := "Highway Police"
	info := ticket.Info{
		TicketNo:      "T1",
		DateHappen:    "01/12/2024 10:00",
		LimitSpeed:    &limit,
		Speed:         &speed,
		OrderDivision: &division,
	}

	msg := formatMessage(info, 2)
	assert.Contains(t, msg, "New ticket processed:")
	assert.Contains(t, msg, "- Ticket No: T1")
	assert.Contains(t, msg, "- Order Division: Highway Police")
	assert.Contains(t, msg, "- Speed Limit: 90 km/h")
	assert.Contains(t, msg, "- Speed: 112 km/h")
	assert.Contains(t, msg, "- Images: 2")
}

func TestFormatMessage_OmitsOptionalLines(t *testing.T) {
	info := ticket.Info{TicketNo: "T1", DateHappen: "01/12/2024"}

	msg := formatMessage(info, 0)
	assert.NotContains(t, msg, "Order Division")
	assert.NotContains(t, msg, "Speed Limit")
	assert.NotContains(t, msg, "- Lane:")
	assert.Contains(t, msg, "- Images: 0")
}
