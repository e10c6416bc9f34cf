package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurvcrm/kurv/internal/channel"
	"github.com/kurvcrm/kurv/internal/contacts"
	"github.com/kurvcrm/kurv/internal/conversation"
	"github.com/kurvcrm/kurv/internal/db/memstore"
	"github.com/kurvcrm/kurv/internal/delivery"
	"github.com/kurvcrm/kurv/internal/ingest"
	"github.com/kurvcrm/kurv/internal/ledger"
	"github.com/kurvcrm/kurv/internal/logger"
	"github.com/kurvcrm/kurv/internal/message"
	"github.com/kurvcrm/kurv/internal/outbound"
	"github.com/kurvcrm/kurv/internal/server"
	"github.com/kurvcrm/kurv/internal/transport"
	"github.com/kurvcrm/kurv/internal/transport/mailgun"
)

type stubTransport struct {
	name string
	ch   channel.Type
	err  error
	mu   sync.Mutex
	sent []transport.Message
}

func (s *stubTransport) Name() string          { return s.name }
func (s *stubTransport) Channel() channel.Type { return s.ch }

func (s *stubTransport) Send(_ context.Context, msg transport.Message) (transport.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return transport.Receipt{}, s.err
	}
	s.sent = append(s.sent, msg)
	return transport.Receipt{ID: "SM" + strconv.Itoa(len(s.sent)), Status: "queued"}, nil
}

const mailgunKey = "mg-signing-key"

type apiFixture struct {
	store *memstore.Store
	wa    *stubTransport
	mail  *stubTransport
	e     *echo.Echo
}

func newAPI(t *testing.T, secret string, mode string) *apiFixture {
	t.Helper()
	log := logger.Nop()
	store := memstore.New()
	locker := memstore.NewLocker(store)

	ledgerSvc := ledger.NewService(log, store)
	contactSvc := contacts.NewService(log, store, locker)
	conversationSvc := conversation.NewService(log, store, locker)
	messageSvc := message.NewService(log, store)
	pipeline := ingest.NewPipeline(log, ledgerSvc, contactSvc, conversationSvc, messageSvc)

	wa := &stubTransport{name: "twilio", ch: channel.WhatsApp}
	mail := &stubTransport{name: "mailgun", ch: channel.Email}
	sender := outbound.NewService(log, contactSvc, conversationSvc, messageSvc, wa, mail)
	reconciler := delivery.NewReconciler(log, store, ledgerSvc, "twilio", delivery.Policy{
		Mode:        mode,
		AuthToken:   "tok",
		CallbackURL: "https://crm.example.com/api/twilio/status",
	})

	srv := server.NewServer(log, server.Options{},
		NewPingHandler(log, conversationSvc),
		NewIngestHandler(log, pipeline, secret, mailgun.Verifier{SigningKey: mailgunKey}),
		NewSendHandler(log, sender),
		NewStatusHandler(log, reconciler),
		NewConversationsHandler(log, conversationSvc, contactSvc, messageSvc, sender),
	)
	return &apiFixture{store: store, wa: wa, mail: mail, e: srv.Echo()}
}

func (f *apiFixture) do(t *testing.T, req *http.Request) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	var body map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	}
	return rec.Code, body
}

func formRequest(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return req
}

func jsonRequest(path string, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func whatsAppForm(sid string) url.Values {
	return url.Values{
		"MessageSid":  {sid},
		"From":        {"whatsapp:+15550000"},
		"To":          {"whatsapp:+15559999"},
		"Body":        {"hi"},
		"ProfileName": {"Ann"},
	}
}

func TestIngestWhatsAppThenDuplicate(t *testing.T) {
	f := newAPI(t, "", delivery.SignatureLog)

	code, body := f.do(t, formRequest("/api/ingest/whatsapp", whatsAppForm("SM1")))
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, true, body["ok"])
	assert.Nil(t, body["dedup"])
	assert.NotEmpty(t, body["conversationId"])

	code, body = f.do(t, formRequest("/api/ingest/whatsapp", whatsAppForm("SM1")))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["dedup"])

	msgs := f.store.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Body)
	contactsRows := f.store.Contacts()
	require.Len(t, contactsRows, 1)
	assert.Equal(t, []string{"+15550000"}, contactsRows[0].Phones)
	assert.Equal(t, "Ann", contactsRows[0].Name.String)

	events := f.store.SourceEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "SM1", events[0].ID)
	assert.Contains(t, string(events[0].Payload), `"ProfileName":"Ann"`)
}

func TestIngestWhatsAppValidation(t *testing.T) {
	f := newAPI(t, "", delivery.SignatureLog)
	form := whatsAppForm("")
	code, body := f.do(t, formRequest("/api/ingest/whatsapp", form))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, false, body["ok"])
	assert.Empty(t, f.store.Messages())

	code, _ = f.do(t, httptest.NewRequest(http.MethodGet, "/api/ingest/whatsapp", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, code)
}

func TestIngestSharedSecret(t *testing.T) {
	f := newAPI(t, "s3cret", delivery.SignatureLog)

	code, body := f.do(t, jsonRequest("/api/ingest/voice", `{"callSid":"CA1","from":"+15550000"}`))
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, false, body["ok"])

	req := jsonRequest("/api/ingest/voice", `{"callSid":"CA1","from":"+15550000"}`)
	req.Header.Set(IngestSecretHeader, "s3cret")
	code, _ = f.do(t, req)
	assert.Equal(t, http.StatusOK, code)

	check := httptest.NewRequest(http.MethodGet, "/api/ingest/voice", nil)
	check.Header.Set(IngestSecretHeader, "s3cret")
	code, body = f.do(t, check)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "voice", body["route"])
}

func TestIngestVoiceUsesPlaceholder(t *testing.T) {
	f := newAPI(t, "", delivery.SignatureLog)
	code, _ := f.do(t, jsonRequest("/api/ingest/voice", `{"callId":"CA1","from":"+15550000","recordingUrl":"https://rec/1"}`))
	require.Equal(t, http.StatusOK, code)

	msgs := f.store.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, channel.VoicePlaceholder, msgs[0].Body)
	assert.Equal(t, "phone", msgs[0].Channel)
	assert.Contains(t, string(msgs[0].ChannelMeta), "https://rec/1")
}

func TestIngestEmailStoresSubject(t *testing.T) {
	f := newAPI(t, "", delivery.SignatureLog)
	code, body := f.do(t, jsonRequest("/api/ingest/email", `{"messageId":"<m1@x>","fromEmail":"A@Example.com","subject":"Quote","text":"hello"}`))
	require.Equal(t, http.StatusOK, code, body)

	code, detail := f.do(t, httptest.NewRequest(http.MethodGet, "/api/conversations/"+body["conversationId"].(string), nil))
	require.Equal(t, http.StatusOK, code)
	conv := detail["conversation"].(map[string]any)
	assert.Equal(t, "Quote", conv["subject"])
	assert.Equal(t, "email", conv["channel"])
	contact := detail["contact"].(map[string]any)
	assert.Equal(t, []any{"a@example.com"}, contact["emails"])
	assert.Len(t, detail["messages"], 1)

	code, _ = f.do(t, jsonRequest("/api/ingest/email", `{"fromEmail":"a@example.com"}`))
	assert.Equal(t, http.StatusBadRequest, code)
}

func signedMailgunForm(ts time.Time) url.Values {
	timestamp := strconv.FormatInt(ts.Unix(), 10)
	token := "tok123"
	mac := hmac.New(sha256.New, []byte(mailgunKey))
	mac.Write([]byte(timestamp + token))
	return url.Values{
		"timestamp":  {timestamp},
		"token":      {token},
		"signature":  {hex.EncodeToString(mac.Sum(nil))},
		"Message-Id": {"<mg1@x>"},
		"sender":     {"bob@example.com"},
		"recipient":  {"inbox@crm.example.com"},
		"subject":    {"Hello"},
		"body-plain": {"plain body"},
	}
}

func TestIngestMailgunRoute(t *testing.T) {
	f := newAPI(t, "s3cret", delivery.SignatureLog)

	form := signedMailgunForm(time.Now())
	code, body := f.do(t, formRequest("/api/ingest/email/mailgun", form))
	require.Equal(t, http.StatusOK, code, body)
	msgs := f.store.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "plain body", msgs[0].Body)
	assert.Equal(t, "<mg1@x>", msgs[0].ExternalID.String)
	assert.Equal(t, ingest.SourceMailgun, f.store.SourceEvents()[0].Source)

	form.Set("signature", strings.Repeat("0", 64))
	code, _ = f.do(t, formRequest("/api/ingest/email/mailgun", form))
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestSendWhatsApp(t *testing.T) {
	f := newAPI(t, "", delivery.SignatureLog)

	code, body := f.do(t, jsonRequest("/api/send/whatsapp", `{"to":"+15550000","body":"hello"}`))
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "SM1", body["transportId"])
	assert.NotEmpty(t, body["conversationId"])
	assert.Equal(t, true, body["logged"])
	require.Len(t, f.wa.sent, 1)
	assert.Equal(t, "whatsapp:+15550000", f.wa.sent[0].To)

	code, body = f.do(t, jsonRequest("/api/send/whatsapp", `{"to":"+15550000"}`))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "'body' is required", body["error"])

	code, _ = f.do(t, jsonRequest("/api/send/whatsapp", `{"to":"+15550000","body":"x","conversationId":"00000000-0000-0000-0000-000000000000"}`))
	assert.Equal(t, http.StatusNotFound, code)
	assert.Len(t, f.wa.sent, 1)
}

func TestSendTransportFailureIs502(t *testing.T) {
	f := newAPI(t, "", delivery.SignatureLog)
	f.wa.err = &outbound.TransportError{Transport: "twilio", StatusCode: 400, Code: "21211", Message: "Invalid 'To' Phone Number"}

	code, body := f.do(t, jsonRequest("/api/send/whatsapp", `{"to":"+1","body":"hello"}`))
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "Invalid 'To' Phone Number", body["error"])
	assert.Equal(t, "21211", body["code"])
	assert.EqualValues(t, 400, body["status"])
	assert.Empty(t, f.store.Messages())
}

func TestSendEmail(t *testing.T) {
	f := newAPI(t, "", delivery.SignatureLog)
	code, body := f.do(t, jsonRequest("/api/send/email", `{"to":"a@example.com","subject":"Hi","body":"hello"}`))
	require.Equal(t, http.StatusOK, code, body)
	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, "Hi", f.mail.sent[0].Subject)

	code, _ = f.do(t, jsonRequest("/api/send/email", `{"to":"not-an-email","body":"hello"}`))
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSendEmailToMixedCaseSenderReusesInboundThread(t *testing.T) {
	f := newAPI(t, "", delivery.SignatureLog)
	code, in := f.do(t, jsonRequest("/api/ingest/email", `{"messageId":"<m2@x>","fromEmail":"Ann@Example.com","subject":"Quote","text":"hello"}`))
	require.Equal(t, http.StatusOK, code, in)

	code, out := f.do(t, jsonRequest("/api/send/email", `{"to":"Ann@Example.com","subject":"Re: Quote","body":"thanks"}`))
	require.Equal(t, http.StatusOK, code, out)
	assert.Equal(t, in["conversationId"], out["conversationId"])

	require.Len(t, f.store.Contacts(), 1)
	assert.Equal(t, []string{"ann@example.com"}, f.store.Contacts()[0].Emails)
	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, "Ann@Example.com", f.mail.sent[0].To)
}

func TestStatusCallbackUpdatesSentMessage(t *testing.T) {
	f := newAPI(t, "", delivery.SignatureLog)
	code, _ := f.do(t, jsonRequest("/api/send/whatsapp", `{"to":"+15550000","body":"hello"}`))
	require.Equal(t, http.StatusOK, code)

	code, body := f.do(t, formRequest("/api/twilio/status", url.Values{"MessageSid": {"SM1"}, "MessageStatus": {"delivered"}}))
	require.Equal(t, http.StatusOK, code, body)
	assert.EqualValues(t, 1, body["matched"])

	msgs := f.store.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "delivered", msgs[0].DeliveryStatus.String)
	assert.True(t, msgs[0].DeliveryAt.Valid)

	code, _ = f.do(t, formRequest("/api/twilio/status", url.Values{"MessageSid": {"SM1"}, "MessageStatus": {"bogus"}}))
	assert.Equal(t, http.StatusBadRequest, code)
	events := f.store.SourceEvents()
	require.Len(t, events, 2)
	assert.Contains(t, string(events[1].Payload), `"MessageStatus":"bogus"`)
	assert.Equal(t, "delivered", f.store.Messages()[0].DeliveryStatus.String)
}

func TestStatusCallbackEnforcedSignature(t *testing.T) {
	f := newAPI(t, "", delivery.SignatureEnforce)
	code, _ := f.do(t, formRequest("/api/twilio/status", url.Values{"MessageSid": {"SM1"}, "MessageStatus": {"sent"}}))
	assert.Equal(t, http.StatusForbidden, code)
	require.Len(t, f.store.SourceEvents(), 1)
	assert.Equal(t, delivery.AuditSource, f.store.SourceEvents()[0].Source)
}

func TestConversationListAndReply(t *testing.T) {
	f := newAPI(t, "", delivery.SignatureLog)
	code, body := f.do(t, formRequest("/api/ingest/whatsapp", whatsAppForm("SM100")))
	require.Equal(t, http.StatusOK, code)
	convID := body["conversationId"].(string)

	code, body = f.do(t, httptest.NewRequest(http.MethodGet, "/api/conversations?limit=10", nil))
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["items"], 1)

	code, _ = f.do(t, httptest.NewRequest(http.MethodGet, "/api/conversations?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = f.do(t, formRequest("/api/conversations/"+convID+"/reply", url.Values{"body": {"thanks"}}))
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, convID, body["conversationId"])
	require.Len(t, f.wa.sent, 1)
	assert.Equal(t, "whatsapp:+15550000", f.wa.sent[0].To)

	code, _ = f.do(t, jsonRequest("/api/conversations/"+convID+"/reply", `{"body":""}`))
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.do(t, jsonRequest("/api/conversations/not-a-uuid/reply", `{"body":"x"}`))
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = f.do(t, httptest.NewRequest(http.MethodGet, "/api/conversations/not-a-uuid", nil))
	assert.Equal(t, http.StatusNotFound, code)
}

func TestHealthAndPing(t *testing.T) {
	f := newAPI(t, "", delivery.SignatureLog)
	_, _ = f.do(t, formRequest("/api/ingest/whatsapp", whatsAppForm("SM1")))

	code, body := f.do(t, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["conversations"])

	code, body = f.do(t, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["ok"])

	code, _ = f.do(t, httptest.NewRequest(http.MethodHead, "/health", nil))
	assert.Equal(t, http.StatusOK, code)
}
