package service

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/spec-kit/itsm-ticket-service/internal/domain"
	"github.com/spec-kit/itsm-ticket-service/internal/events"
	"github.com/spec-kit/itsm-ticket-service/internal/notify"
	"github.com/spec-kit/itsm-ticket-service/internal/observability"
	"github.com/spec-kit/itsm-ticket-service/internal/repository"
)

// NotificationService turns committed ticket events into channel deliveries.
// Failures are logged and never surface to the request that caused them.
type NotificationService struct {
	dispatcher events.Dispatcher
	rules      repository.NotificationRuleRepository
	channels   []notify.Channel
	metrics    *observability.Metrics
	logger     *zap.Logger
	ticketURL  string
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, rules repository.NotificationRuleRepository, channels []notify.Channel, metrics *observability.Metrics, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		rules:      rules,
		channels:   channels,
		metrics:    metrics,
		logger:     logger,
	}
}

// WithTicketURLPattern sets a printf pattern taking the ticket number, used
// to link deliveries back to the ticket.
func (n *NotificationService) WithTicketURLPattern(pattern string) *NotificationService {
	n.ticketURL = pattern
	return n
}

// RegisterHandlers subscribes to every ticket event.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range events.AllEventTypes() {
		n.dispatcher.Subscribe(eventType, n.handle)
	}
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	log := n.logger.With(
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.Int64("ticket_id", event.Ticket.ID))

	rules, err := n.rules.ListForTicket(ctx, domain.NotificationEvent(event.Type), event.Ticket.ID, event.Ticket.TicketTemplateID)
	if err != nil {
		log.Error("load notification rules", zap.Error(err))
		return nil
	}

	notification := notify.Notification{Event: event}
	if n.ticketURL != "" {
		notification.Link = fmt.Sprintf(n.ticketURL, event.Ticket.TicketNo)
	}
	notification.UserIDs, notification.RoleIDs = recipients(rules)
	if len(notification.UserIDs) == 0 && len(notification.RoleIDs) == 0 {
		log.Debug("no recipients for event")
		return nil
	}

	for _, channel := range n.channels {
		err := channel.Send(ctx, notification)
		n.metrics.RecordNotification(channel.Name(), err)
		if err != nil {
			log.Warn("notification channel failed", zap.String("channel", channel.Name()), zap.Error(err))
			continue
		}
		log.Debug("notification sent", zap.String("channel", channel.Name()))
	}
	return nil
}

// Close releases every channel.
func (n *NotificationService) Close() {
	for _, channel := range n.channels {
		if err := channel.Close(); err != nil {
			n.logger.Warn("close notification channel", zap.String("channel", channel.Name()), zap.Error(err))
		}
	}
}

func recipients(rules []domain.NotificationRule) (users, roles []int64) {
	userSet := map[int64]struct{}{}
	roleSet := map[int64]struct{}{}
	for _, rule := range rules {
		for _, id := range rule.UserIDs {
			userSet[id] = struct{}{}
		}
		for _, id := range rule.RoleIDs {
			roleSet[id] = struct{}{}
		}
	}
	return sortedKeys(userSet), sortedKeys(roleSet)
}

func sortedKeys(set map[int64]struct{}) []int64 {
	if len(set) == 0 {
		return nil
	}
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
