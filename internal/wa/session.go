// Package wa manages the WhatsApp session on top of whatsmeow: connection
// lifecycle, QR pairing, inbound event fan-in to the decision pipeline, and
// the gateway primitives the pipeline replies through.
package wa

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/mdp/qrterminal/v3"
	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"rsc.io/qr"

	_ "github.com/mattn/go-sqlite3"

	"zapbot/internal/bus"
	"zapbot/internal/engine"
)

// Session statuses as the dashboard wire contract expects them.
const (
	StatusDisconnected  = "desconectado"
	StatusWaitingQR     = "aguardando-qr"
	StatusAuthenticated = "autenticado"
	StatusConnected     = "conectado"
	StatusAuthFailure   = "erro-autenticacao"
)

// ErrAlreadyRunning is returned by Start when a client is already up.
var ErrAlreadyRunning = errors.New("session already running")

// Session owns the whatsmeow client and its sqlite-backed device store.
type Session struct {
	dbURI string
	bus   *bus.Bus
	log   zerolog.Logger

	mu        sync.Mutex
	client    *whatsmeow.Client
	container *sqlstore.Container
	pipeline  *engine.Pipeline
	starting  bool
	status    string
	qrDataURL string
}

func NewSession(dbURI string, b *bus.Bus, log zerolog.Logger) *Session {
	return &Session{
		dbURI:  dbURI,
		bus:    b,
		log:    log,
		status: StatusDisconnected,
	}
}

// SetPipeline attaches the decision pipeline that receives inbound messages.
// Must be called before Start.
func (s *Session) SetPipeline(p *engine.Pipeline) {
	s.mu.Lock()
	s.pipeline = p
	s.mu.Unlock()
}

// Start opens the device store, connects the client and begins QR pairing
// when the device is not yet registered.
func (s *Session) Start(ctx context.Context) error {
	if err := s.beginStart(); err != nil {
		return err
	}

	container, err := sqlstore.New(ctx, "sqlite3", s.dbURI, waLog.Stdout("Database", "ERROR", true))
	if err != nil {
		s.abortStart()
		return err
	}

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		container.Close()
		s.abortStart()
		return err
	}

	client := whatsmeow.NewClient(device, waLog.Stdout("Client", "ERROR", true))
	client.EnableAutoReconnect = true
	client.AddEventHandler(s.handleEvent)

	s.mu.Lock()
	s.client = client
	s.container = container
	s.starting = false
	s.mu.Unlock()

	if client.Store.ID == nil {
		qrChan, err := client.GetQRChannel(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("qr channel unavailable")
		} else {
			go s.watchQR(qrChan)
		}
	}

	if err := client.Connect(); err != nil {
		s.teardown()
		return err
	}

	s.log.Info().Str("db", s.dbURI).Msg("session starting")
	return nil
}

// beginStart claims exclusive ownership of the startup phase. The store and
// client are built only after the claim succeeds, so two concurrent callers
// can never each end up with a connected client.
func (s *Session) beginStart() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil || s.starting {
		return ErrAlreadyRunning
	}
	s.starting = true
	return nil
}

// abortStart releases the startup claim after a failed Start.
func (s *Session) abortStart() {
	s.mu.Lock()
	s.starting = false
	s.mu.Unlock()
}

// Stop disconnects the client and releases the store. Returns false when the
// session was not running. Replies already scheduled by the pipeline are not
// retracted; their sends will fail against the closed client.
func (s *Session) Stop() bool {
	client := s.teardown()
	if client == nil {
		return false
	}
	s.log.Info().Msg("session stopped")
	return true
}

func (s *Session) teardown() *whatsmeow.Client {
	s.mu.Lock()
	client := s.client
	container := s.container
	pipeline := s.pipeline
	s.client = nil
	s.container = nil
	s.qrDataURL = ""
	s.mu.Unlock()

	if client == nil {
		return nil
	}
	client.Disconnect()
	if container != nil {
		container.Close()
	}
	if pipeline != nil {
		pipeline.ClearStartedAt()
	}
	s.setStatus(StatusDisconnected)
	return client
}

// Status returns the current lifecycle status string.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// QRCode returns the current pairing QR as a PNG data URL, empty when none.
func (s *Session) QRCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.qrDataURL
}

// Running reports whether a client is up or being brought up.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client != nil || s.starting
}

func (s *Session) handleEvent(evt interface{}) {
	switch v := evt.(type) {
	case *events.Message:
		s.onMessage(v)
	case *events.PairSuccess:
		s.log.Info().Str("device", v.ID.String()).Msg("paired")
		s.setStatus(StatusAuthenticated)
	case *events.Connected:
		s.onConnected()
	case *events.Disconnected:
		s.log.Warn().Msg("disconnected")
		s.setStatus(StatusDisconnected)
	case *events.LoggedOut:
		s.log.Warn().Msg("logged out remotely")
		s.setStatus(StatusDisconnected)
	case *events.ConnectFailure:
		s.log.Error().Str("reason", v.Reason.String()).Msg("connect failure")
		s.setStatus(StatusAuthFailure)
	}
}

func (s *Session) onConnected() {
	s.mu.Lock()
	pipeline := s.pipeline
	s.qrDataURL = ""
	s.mu.Unlock()

	if pipeline != nil {
		pipeline.SetStartedAt(time.Now())
	}
	s.publish(bus.EventQR, nil)
	s.setStatus(StatusConnected)
	s.log.Info().Msg("connected, message listener active")
}

func (s *Session) onMessage(v *events.Message) {
	body := extractText(v.Message)
	if body == "" {
		return
	}
	// Status broadcasts are not chats.
	if v.Info.Chat.User == "status" {
		return
	}

	s.mu.Lock()
	pipeline := s.pipeline
	s.mu.Unlock()
	if pipeline == nil {
		return
	}

	pipeline.OnMessage(engine.InboundMessage{
		ID:        v.Info.ID,
		Chat:      v.Info.Chat.String(),
		Sender:    v.Info.Sender.String(),
		Body:      body,
		FromMe:    v.Info.IsFromMe,
		Timestamp: v.Info.Timestamp,
	})
}

func (s *Session) watchQR(ch <-chan whatsmeow.QRChannelItem) {
	for item := range ch {
		switch item.Event {
		case "code":
			qrterminal.GenerateHalfBlock(item.Code, qrterminal.L, os.Stdout)
			s.mu.Lock()
			s.qrDataURL = encodeQRDataURL(item.Code)
			dataURL := s.qrDataURL
			s.mu.Unlock()
			s.publish(bus.EventQR, dataURL)
			s.setStatus(StatusWaitingQR)
		case "success":
			// Connected event follows and clears the QR.
		case "timeout":
			s.log.Warn().Msg("qr pairing timed out")
			s.setStatus(StatusDisconnected)
		}
	}
}

func (s *Session) setStatus(status string) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
	s.publish(bus.EventStatus, status)
}

func (s *Session) publish(event string, payload any) {
	if s.bus != nil {
		s.bus.Publish(event, payload)
	}
}

func (s *Session) currentClient() *whatsmeow.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

func extractText(m *waE2E.Message) string {
	if m == nil {
		return ""
	}
	if t := m.GetConversation(); t != "" {
		return t
	}
	if ext := m.GetExtendedTextMessage(); ext != nil {
		return ext.GetText()
	}
	return ""
}

// encodeQRDataURL renders the pairing code as a PNG data URL for the
// dashboard, alongside the half-block rendering printed to the terminal.
func encodeQRDataURL(code string) string {
	img, err := qr.Encode(code, qr.L)
	if err != nil {
		return ""
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(img.PNG())
}
