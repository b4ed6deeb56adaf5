// Package bot runs the Telegram front end that links chat users to the
// event listing.
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/eventboard/server/internal/config"
	"github.com/eventboard/server/internal/metrics"
	"github.com/eventboard/server/internal/telemetry"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/eventboard/server/internal/bot"

// ErrNoToken is returned by New when the bridge has no bot token.
var ErrNoToken = errors.New("bot token not configured")

// Sender delivers replies to Telegram.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// API is the part of *tgbotapi.BotAPI the bridge uses.
type API interface {
	Sender
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Dialer opens a session for token.
type Dialer func(token string) (API, error)

// Bridge polls Telegram for updates and answers event commands.
type Bridge struct {
	cfg        config.BotConfig
	source     EventSource
	logger     zerolog.Logger
	dial       Dialer
	newBackOff func() backoff.BackOff
	retryDelay time.Duration
	tracer     trace.Tracer
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithDialer replaces the Telegram client constructor.
func WithDialer(d Dialer) Option {
	return func(b *Bridge) {
		b.dial = d
	}
}

// WithBackOff sets the policy used between failed connection attempts.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(b *Bridge) {
		b.newBackOff = fn
	}
}

// WithRetryDelay sets the pause before reopening a session whose update
// stream ended.
func WithRetryDelay(d time.Duration) Option {
	return func(b *Bridge) {
		b.retryDelay = d
	}
}

func New(cfg config.BotConfig, source EventSource, logger zerolog.Logger, opts ...Option) (*Bridge, error) {
	if cfg.Token == "" {
		return nil, ErrNoToken
	}
	if source == nil {
		return nil, errors.New("event source is required")
	}
	b := &Bridge{
		cfg:        cfg,
		source:     source,
		logger:     logger.With().Str("component", "bot").Logger(),
		newBackOff: defaultBackOff,
		retryDelay: 3 * time.Second,
		tracer:     telemetry.Tracer(tracerName),
	}
	b.dial = func(token string) (API, error) {
		api, err := tgbotapi.NewBotAPI(token)
		if err != nil {
			return nil, err
		}
		api.Debug = cfg.Debug
		return api, nil
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

func defaultBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = time.Minute
	bo.MaxElapsedTime = 0
	return bo
}

// Run polls until ctx ends. Connection failures are retried and never
// returned; the only return value is nil after shutdown.
func (b *Bridge) Run(ctx context.Context) error {
	for {
		api, err := b.connect(ctx)
		if err != nil {
			b.logger.Info().Msg("bot stopped before connecting")
			return nil
		}

		b.poll(ctx, api)
		if ctx.Err() != nil {
			b.logger.Info().Msg("bot stopped")
			return nil
		}

		b.logger.Warn().Dur("retry_in", b.retryDelay).Msg("update stream closed; reconnecting")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(b.retryDelay):
		}
	}
}

func (b *Bridge) connect(ctx context.Context) (API, error) {
	var api API
	op := func() error {
		metrics.BotReconnects.Inc()
		var err error
		api, err = b.dial(b.cfg.Token)
		return err
	}
	notify := func(err error, wait time.Duration) {
		b.logger.Warn().Err(err).Dur("retry_in", wait).Msg("telegram connection failed")
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(b.newBackOff(), ctx), notify); err != nil {
		return nil, fmt.Errorf("connect to telegram: %w", err)
	}
	b.logger.Info().Msg("telegram session established")
	return api, nil
}

func (b *Bridge) poll(ctx context.Context, api API) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = int(b.cfg.Timeout / time.Second)
	updates := api.GetUpdatesChan(u)
	defer api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, api, update)
		}
	}
}

func (b *Bridge) handleUpdate(ctx context.Context, s Sender, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, s, update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, s, update.Message)
	}
}

func (b *Bridge) handleCommand(ctx context.Context, s Sender, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	command := msg.Command()

	switch command {
	case "start":
		ctx, span := b.startSpan(ctx, command, chatID)
		defer span.End()
		b.send(ctx, s, b.welcome(chatID))
	case "events":
		ctx, span := b.startSpan(ctx, command, chatID)
		defer span.End()
		b.sendEvents(ctx, s, span, chatID)
	default:
		command = "unknown"
		b.send(ctx, s, tgbotapi.NewMessage(chatID, helpText))
	}
	metrics.BotCommands.WithLabelValues(command).Inc()
}

func (b *Bridge) handleCallback(ctx context.Context, s Sender, query *tgbotapi.CallbackQuery) {
	if _, err := s.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.logger.Warn().Err(err).Msg("callback acknowledgement failed")
	}
	if query.Data != viewEventsData || query.Message == nil || query.Message.Chat == nil {
		return
	}

	chatID := query.Message.Chat.ID
	ctx, span := b.startSpan(ctx, viewEventsData, chatID)
	defer span.End()
	b.sendEvents(ctx, s, span, chatID)
	metrics.BotCommands.WithLabelValues(viewEventsData).Inc()
}

func (b *Bridge) welcome(chatID int64) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, welcomeText)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("View Events", b.cfg.WebURL),
			tgbotapi.NewInlineKeyboardButtonData("List here", viewEventsData),
		),
	)
	return msg
}

func (b *Bridge) sendEvents(ctx context.Context, s Sender, span trace.Span, chatID int64) {
	items, err := b.source.Upcoming(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "event source failed")
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("fetch events for chat")
		b.send(ctx, s, tgbotapi.NewMessage(chatID, unavailableMsg))
		return
	}
	span.SetAttributes(attribute.Int("bot.event_count", len(items)))
	b.send(ctx, s, tgbotapi.NewMessage(chatID, renderEvents(items)))
}

// send delivers msg; failures are logged and counted only.
func (b *Bridge) send(ctx context.Context, s Sender, msg tgbotapi.MessageConfig) {
	if _, err := s.Send(msg); err != nil {
		metrics.BotSendFailures.Inc()
		trace.SpanFromContext(ctx).RecordError(err)
		b.logger.Warn().Err(err).Int64("chat_id", msg.ChatID).Msg("telegram send failed")
	}
}

func (b *Bridge) startSpan(ctx context.Context, name string, chatID int64) (context.Context, trace.Span) {
	return b.tracer.Start(ctx, "bot."+name,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.Int64("bot.chat_id", chatID)),
	)
}
