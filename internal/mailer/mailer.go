package mailer

import (
	"crypto/tls"
	"sync"

	"github.com/asaskevich/EventBus"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/artisanhub/artisanhub/config"
	"github.com/artisanhub/artisanhub/internal/domain"
)

var ErrMailerClosed = errors.New("mailer closed")

type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers a single message
type Sender interface {
	Send(msg Message) error
}

// SMTPSender delivers through an SMTP relay
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Passwd)
	if cfg.Port == 465 {
		d.SSL = true
	}
	d.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	return &SMTPSender{dialer: d, from: cfg.From}
}

func (s *SMTPSender) Send(msg Message) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)
	return s.dialer.DialAndSend(m)
}

// logSender only logs, used when no SMTP host is configured
type logSender struct{}

func (logSender) Send(msg Message) error {
	zap.L().Info("mail delivery disabled, message dropped",
		zap.String("namespace", "mail"),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}

// Mailer sends messages asynchronously on a bounded worker pool
type Mailer struct {
	sender Sender
	pool   *ants.Pool
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	appURL string
}

// New builds a mailer from config; without an SMTP host messages are only logged
func New(cfg config.MailConfig, appURL string) (*Mailer, error) {
	var sender Sender = logSender{}
	if cfg.Host != "" {
		sender = NewSMTPSender(cfg)
	}
	return NewWithSender(sender, cfg.Workers, appURL)
}

func NewWithSender(sender Sender, workers int, appURL string) (*Mailer, error) {
	if workers <= 0 {
		workers = 4
	}
	pool, err := ants.NewPool(workers, ants.WithPanicHandler(func(p interface{}) {
		zap.S().Errorf("mail worker panic: %v", p)
	}))
	if err != nil {
		return nil, errors.Wrap(err, "create mail pool")
	}
	return &Mailer{sender: sender, pool: pool, appURL: appURL}, nil
}

// Enqueue schedules msg for delivery
func (m *Mailer) Enqueue(msg Message) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrMailerClosed
	}
	m.wg.Add(1)
	err := m.pool.Submit(func() {
		defer m.wg.Done()
		if err := m.sender.Send(msg); err != nil {
			zap.L().Error("mail delivery failed",
				zap.String("namespace", "mail"),
				zap.String("to", msg.To),
				zap.String("subject", msg.Subject),
				zap.Error(err))
		}
	})
	if err != nil {
		m.wg.Done()
		return errors.Wrap(err, "submit mail task")
	}
	return nil
}

// Subscribe wires the mailer to marketplace bus topics
func (m *Mailer) Subscribe(bus EventBus.Bus) error {
	if err := bus.Subscribe(domain.TopicUserRegistered, m.onUserRegistered); err != nil {
		return err
	}
	if err := bus.Subscribe(domain.TopicNewsletterSubscribed, m.onNewsletterSubscribed); err != nil {
		return err
	}
	return bus.Subscribe(domain.TopicEventRegistered, m.onEventRegistered)
}

func (m *Mailer) onUserRegistered(user domain.User) {
	m.enqueueLogged(WelcomeMessage(user, m.appURL))
}

func (m *Mailer) onNewsletterSubscribed(sub domain.NewsletterSubscription) {
	m.enqueueLogged(NewsletterMessage(sub, m.appURL))
}

func (m *Mailer) onEventRegistered(user domain.User, event domain.Event) {
	m.enqueueLogged(EventMessage(user, event))
}

func (m *Mailer) enqueueLogged(msg Message) {
	if err := m.Enqueue(msg); err != nil {
		zap.L().Warn("mail enqueue failed", zap.String("to", msg.To), zap.Error(err))
	}
}

// Close waits for queued messages and stops the workers
func (m *Mailer) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()
	m.wg.Wait()
	m.pool.Release()
}
