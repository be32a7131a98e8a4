package godeco

import (
	"errors"
	"sync/atomic"
)

// Shared test types and constructors used across test files.

type EmailSender interface {
	Send(to string) string
}

type SMTPSender struct {
	id     int32
	closed bool
}

var smtpCounter atomic.Int32

func NewSMTPSender() *SMTPSender {
	return &SMTPSender{id: smtpCounter.Add(1)}
}

func (s *SMTPSender) Send(to string) string {
	return "smtp:" + to
}

func (s *SMTPSender) Close() error {
	s.closed = true
	return nil
}

type RetryPolicy struct {
	Attempts int
}

func NewRetryPolicy() *RetryPolicy {
	return &RetryPolicy{Attempts: 3}
}

type RetrySender struct {
	inner  EmailSender
	policy *RetryPolicy
}

func NewRetrySender(inner EmailSender, policy *RetryPolicy) *RetrySender {
	return &RetrySender{inner: inner, policy: policy}
}

func (r *RetrySender) Send(to string) string {
	return "retry(" + r.inner.Send(to) + ")"
}

type LoggingSender struct {
	inner EmailSender
}

func NewLoggingSender(inner EmailSender) *LoggingSender {
	return &LoggingSender{inner: inner}
}

func (l *LoggingSender) Send(to string) string {
	return "log(" + l.inner.Send(to) + ")"
}

func NewFailingLoggingSender(EmailSender) (*LoggingSender, error) {
	return nil, errors.New("decorator intentionally failed")
}

type Repository struct {
	DSN string
}

type Service struct {
	Repo *Repository
}

func NewRepository() *Repository {
	return &Repository{DSN: "postgres://localhost"}
}

func NewService(repo *Repository) *Service {
	return &Service{Repo: repo}
}

func NewFailingRepository() (*Repository, error) {
	return nil, errors.New("provider intentionally failed")
}

type circularA struct{ B *circularB }
type circularB struct{ A *circularA }

func newCircularA(b *circularB) *circularA { return &circularA{B: b} }
func newCircularB(a *circularA) *circularB { return &circularB{A: a} }

type closeRecorder struct {
	name  string
	order *[]string
	err   error
}

func (c *closeRecorder) Close() error {
	*c.order = append(*c.order, c.name)
	return c.err
}
