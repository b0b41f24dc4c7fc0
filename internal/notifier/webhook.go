package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/juju/loggo/v2"

	"borgsched/internal/config"
	"borgsched/internal/event"
)

const defaultTimeout = 10 * time.Second

// Webhook forwards selected events as Discord-style embeds. It is an
// EventSink like any other: delivery failures are logged and dropped,
// never surfaced into a run's outcome.
type Webhook struct {
	url     string
	client  *http.Client
	events  map[string]struct{}
	host    string
	timeout time.Duration
	logger  loggo.Logger
}

type embed struct {
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	Color       int     `json:"color,omitempty"`
	Timestamp   string  `json:"timestamp,omitempty"`
	Fields      []field `json:"fields,omitempty"`
}

type field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type payload struct {
	Embeds []embed `json:"embeds,omitempty"`
}

const (
	colorRed    = 0xE74C3C
	colorOrange = 0xE67E22
	colorGreen  = 0x2ECC71
)

func colorFor(outcome string) int {
	switch outcome {
	case event.OutcomeFailed, event.OutcomeReloadFailed:
		return colorRed
	case event.OutcomeWarning, "success_with_warnings", event.OutcomeRetry:
		return colorOrange
	default:
		return colorGreen
	}
}

func NewWebhook(cfg *config.WebhookConfig) (*Webhook, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("webhook url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	events := make(map[string]struct{})
	if len(cfg.Events) > 0 {
		for _, e := range cfg.Events {
			events[e] = struct{}{}
		}
	} else {
		// Default to outcomes an operator wants paged about.
		for _, e := range []string{
			event.OutcomeFailed,
			"success_with_warnings",
			event.OutcomeReloadFailed,
		} {
			events[e] = struct{}{}
		}
	}
	host, _ := os.Hostname()
	return &Webhook{
		url:     cfg.URL,
		client:  &http.Client{Timeout: timeout},
		events:  events,
		host:    host,
		timeout: timeout,
		logger:  loggo.GetLogger("borgsched.notifier"),
	}, nil
}

func (w *Webhook) Emit(e event.Event) {
	if _, ok := w.events[e.Outcome]; !ok {
		return
	}
	// Delivery must never block a run; post in the background.
	go w.post(e)
}

func (w *Webhook) post(e event.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	em := embed{
		Title:     fmt.Sprintf("backup %s: %s", e.Job, e.Outcome),
		Color:     colorFor(e.Outcome),
		Timestamp: e.Timestamp.Format(time.RFC3339),
	}
	if e.Repository != "" {
		em.Fields = append(em.Fields, field{Name: "repository", Value: e.Repository, Inline: true})
	}
	if e.Operation != "" {
		em.Fields = append(em.Fields, field{Name: "operation", Value: e.Operation, Inline: true})
	}
	if w.host != "" {
		em.Fields = append(em.Fields, field{Name: "host", Value: w.host, Inline: true})
	}
	if e.Detail != "" {
		em.Description = e.Detail
	}

	body, err := json.Marshal(payload{Embeds: []embed{em}})
	if err != nil {
		w.logger.Errorf("encode webhook payload: %v", err)
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		w.logger.Errorf("build webhook request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		w.logger.Warningf("webhook delivery failed: %v", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		w.logger.Warningf("webhook delivery failed: status %d", resp.StatusCode)
	}
}

var _ event.Sink = (*Webhook)(nil)
