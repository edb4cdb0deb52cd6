package natsclient

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hydrogen-oj/judger/client"
	"github.com/hydrogen-oj/judger/types"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Conn is the part of *nats.Conn used by the publisher
type Conn interface {
	Publish(subj string, data []byte) error
	Flush() error
}

var (
	_ Conn            = &nats.Conn{}
	_ client.Reporter = &Publisher{}
)

// Connect connects to the NATS server
func Connect(url string, logger *zap.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("hoj-judger"),
		nats.Timeout(5*time.Second),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			logger.Error("nats", zap.Error(err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return nc, nil
}

// Publisher publishes the progress of a single run
type Publisher struct {
	conn    Conn
	subject string
	runID   string
	logger  *zap.Logger
}

// New creates publisher for run id on subject
func New(conn Conn, subject, runID string, logger *zap.Logger) *Publisher {
	return &Publisher{
		conn:    conn,
		subject: subject,
		runID:   runID,
		logger:  logger,
	}
}

// Compiled publishes the compile progress
func (p *Publisher) Compiled(c *types.ProgressCompiled) {
	if err := p.send(message{Type: progressCompiled, Compile: c}); err != nil {
		p.logger.Warn("publish compiled", zap.Error(err))
	}
}

// Progressed publishes a finished case
func (p *Publisher) Progressed(c *types.ProgressProgressed) {
	if err := p.send(message{Type: progressProgress, Case: c}); err != nil {
		p.logger.Warn("publish progress", zap.Error(err))
	}
}

// Finished publishes the result and flushes the connection
func (p *Publisher) Finished(rt *types.JudgeResult) error {
	if err := p.send(message{Type: progressFinished, Result: rt}); err != nil {
		return err
	}
	if err := p.conn.Flush(); err != nil {
		return fmt.Errorf("flush nats: %w", err)
	}
	return nil
}

func (p *Publisher) send(m message) error {
	m.RunID = p.runID
	b, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode %v: %w", m.Type, err)
	}
	if err := p.conn.Publish(p.subject, b); err != nil {
		return fmt.Errorf("publish %v: %w", m.Type, err)
	}
	return nil
}
