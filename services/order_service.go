package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"restaurant-api/access"
	"restaurant-api/apperrors"
	"restaurant-api/events"
	"restaurant-api/metrics"
	"restaurant-api/models"
	"restaurant-api/repository"
	"restaurant-api/statemachine"
)

// OrderItemInput is one requested line: which dish, how many, any notes.
type OrderItemInput struct {
	MenuItemID          string
	Quantity            int
	SpecialInstructions string
}

type CreateOrderInput struct {
	Items                []OrderItemInput
	OrderType            models.OrderType
	PaymentMethod        models.PaymentMethod
	DeliveryAddress      *models.Address
	DeliveryInstructions string
	TableNumber          *int
	SpecialRequests      string
}

// OrderSummary aggregates a list of orders for the admin dashboard.
type OrderSummary struct {
	Count        int                        `json:"count"`
	ByStatus     map[models.OrderStatus]int `json:"order_summary"`
	TotalRevenue decimal.Decimal            `json:"total_revenue"`
}

// Summarize counts orders per status and sums the totals of delivered ones.
func Summarize(orders []models.Order) OrderSummary {
	summary := OrderSummary{
		Count:        len(orders),
		ByStatus:     make(map[models.OrderStatus]int),
		TotalRevenue: decimal.Zero,
	}
	for _, o := range orders {
		summary.ByStatus[o.Status]++
		if o.Status == models.StatusDelivered {
			summary.TotalRevenue = summary.TotalRevenue.Add(o.TotalAmount)
		}
	}
	return summary
}

// OrderService is the order lifecycle engine: creation with price snapshots,
// status and payment transitions, and the access checks around them.
type OrderService struct {
	menu      repository.MenuRepository
	orders    repository.OrderRepository
	publisher events.Publisher
	lg        *zap.Logger
	runtime
}

func NewOrderService(
	menu repository.MenuRepository,
	orders repository.OrderRepository,
	publisher events.Publisher,
	lg *zap.Logger,
	opts ...Option,
) *OrderService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &OrderService{
		menu:      menu,
		orders:    orders,
		publisher: publisher,
		lg:        lg.Named("orders"),
		runtime:   newRuntime(opts),
	}
}

// Create validates and prices the requested items and stores the order. It
// either persists the complete order or nothing.
func (s *OrderService) Create(ctx context.Context, caller *access.Caller, in CreateOrderInput) (*models.Order, error) {
	if err := access.Check(access.Authenticated, caller, ""); err != nil {
		return nil, err
	}
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(in.Items))
	seen := make(map[string]bool, len(in.Items))
	for _, it := range in.Items {
		if !seen[it.MenuItemID] {
			seen[it.MenuItemID] = true
			ids = append(ids, it.MenuItemID)
		}
	}
	fetched, err := s.menu.GetByIDs(ctx, ids)
	if err != nil {
		return nil, apperrors.Store(err, "failed to load menu items")
	}
	byID := make(map[string]models.MenuItem, len(fetched))
	for _, m := range fetched {
		byID[m.ID] = m
	}

	now := s.timestamp()
	orderID := s.newID()
	items := make([]models.OrderItem, 0, len(in.Items))
	prepTimes := make([]int, 0, len(in.Items))
	for _, it := range in.Items {
		menuItem, ok := byID[it.MenuItemID]
		if !ok {
			return nil, apperrors.NotFound("menu item with ID %s not found", it.MenuItemID)
		}
		if !menuItem.IsAvailable {
			return nil, apperrors.Unavailable("menu item %s is currently unavailable", menuItem.Name)
		}
		items = append(items, models.OrderItem{
			ID:                  s.newID(),
			OrderID:             orderID,
			MenuItemID:          menuItem.ID,
			Name:                menuItem.Name,
			Quantity:            it.Quantity,
			UnitPrice:           menuItem.Price,
			SpecialInstructions: strings.TrimSpace(it.SpecialInstructions),
		})
		prepTimes = append(prepTimes, menuItem.PreparationTime)
	}

	order := &models.Order{
		ID:               orderID,
		UserID:           caller.UserID,
		Items:            items,
		OrderType:        in.OrderType,
		Status:           models.StatusReceived,
		PaymentStatus:    models.PaymentPending,
		PaymentMethod:    in.PaymentMethod,
		TotalAmount:      ComputeTotal(items),
		EstimatedReadyAt: ComputeEstimatedTime(now, in.OrderType, prepTimes),
		SpecialRequests:  strings.TrimSpace(in.SpecialRequests),
		StatusHistory: []models.OrderStatusHistory{{
			ID:        s.newID(),
			OrderID:   orderID,
			ToStatus:  models.StatusReceived,
			ChangedBy: caller.UserID,
			Note:      "order placed",
			CreatedAt: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	switch in.OrderType {
	case models.OrderDelivery:
		order.DeliveryAddress = *in.DeliveryAddress
		order.DeliveryInstructions = strings.TrimSpace(in.DeliveryInstructions)
	case models.OrderDineIn:
		table := *in.TableNumber
		order.TableNumber = &table
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, apperrors.Store(err, "failed to place order")
	}

	metrics.OrdersCreated.WithLabelValues(string(order.OrderType)).Inc()
	s.lg.Info("Order placed",
		zap.String("order_id", order.ID),
		zap.String("user_id", order.UserID),
		zap.String("order_type", string(order.OrderType)),
		zap.Stringer("total", order.TotalAmount),
		zap.Int("items", len(order.Items)),
	)
	s.publish(ctx, events.Event{
		Type:          events.OrderCreated,
		OrderID:       order.ID,
		UserID:        order.UserID,
		ActorID:       caller.UserID,
		To:            string(order.Status),
		TotalAmount:   order.TotalAmount.StringFixed(2),
		OrderType:     string(order.OrderType),
		EstimatedTime: order.EstimatedReadyAt,
	})
	return order, nil
}

func validateCreate(in CreateOrderInput) error {
	var fields []apperrors.FieldError
	add := func(field, msg string) {
		fields = append(fields, apperrors.FieldError{Field: field, Message: msg})
	}

	if len(in.Items) == 0 {
		add("items", "at least one item is required")
	}
	for i, it := range in.Items {
		if strings.TrimSpace(it.MenuItemID) == "" {
			add(fmt.Sprintf("items[%d].menu_item_id", i), "menu item is required")
		}
		if it.Quantity <= 0 {
			add(fmt.Sprintf("items[%d].quantity", i), "quantity must be a positive integer")
		}
	}
	if !in.OrderType.Valid() {
		add("order_type", "must be one of dine-in, takeaway, delivery")
	}
	if !in.PaymentMethod.Valid() {
		add("payment_method", "must be one of cash, card, online")
	}
	switch in.OrderType {
	case models.OrderDelivery:
		a := in.DeliveryAddress
		if a == nil || strings.TrimSpace(a.Street) == "" {
			add("delivery_address.street", "street is required for delivery orders")
		}
		if a == nil || strings.TrimSpace(a.City) == "" {
			add("delivery_address.city", "city is required for delivery orders")
		}
	case models.OrderDineIn:
		if in.TableNumber == nil || *in.TableNumber < 1 {
			add("table_number", "table number of at least 1 is required for dine-in orders")
		}
	}

	if len(fields) > 0 {
		return apperrors.Validation("invalid order", fields...)
	}
	return nil
}

// Get returns one order to its owner or an admin.
func (s *OrderService) Get(ctx context.Context, caller *access.Caller, id string) (*models.Order, error) {
	if err := access.Check(access.Authenticated, caller, ""); err != nil {
		return nil, err
	}
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.Check(access.OwnerOrAdmin, caller, order.UserID); err != nil {
		return nil, err
	}
	return order, nil
}

// ListMine returns the caller's orders, newest first.
func (s *OrderService) ListMine(ctx context.Context, caller *access.Caller) ([]models.Order, error) {
	if err := access.Check(access.Authenticated, caller, ""); err != nil {
		return nil, err
	}
	orders, err := s.orders.List(ctx, repository.OrderFilter{UserID: caller.UserID})
	if err != nil {
		return nil, apperrors.Store(err, "failed to list orders")
	}
	return orders, nil
}

// ListAll returns every order matching filter. Admin only.
func (s *OrderService) ListAll(ctx context.Context, caller *access.Caller, filter repository.OrderFilter) ([]models.Order, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperrors.Validation("invalid filter", apperrors.FieldError{
			Field:   "status",
			Message: "must be one of received, preparing, ready, delivered, cancelled",
		})
	}
	if err := access.Check(access.AdminOnly, caller, ""); err != nil {
		return nil, err
	}
	orders, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, apperrors.Store(err, "failed to list orders")
	}
	return orders, nil
}

// Cancel moves an order to cancelled. Only possible while the kitchen has
// not finished it.
func (s *OrderService) Cancel(ctx context.Context, caller *access.Caller, id, reason string) (*models.Order, error) {
	if err := access.Check(access.Authenticated, caller, ""); err != nil {
		return nil, err
	}
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.Check(access.OwnerOrAdmin, caller, order.UserID); err != nil {
		return nil, err
	}
	if err := statemachine.CanTransition(order.Status, models.StatusCancelled); err != nil {
		return nil, apperrors.InvalidTransition("order cannot be cancelled in status %s", order.Status)
	}

	note := strings.TrimSpace(reason)
	if note == "" {
		note = "order cancelled"
	}
	if err := s.transition(ctx, caller, order, models.StatusCancelled, note); err != nil {
		return nil, err
	}
	return order, nil
}

// UpdateStatus moves an order along the kitchen flow. Requesting the status
// the order already has changes nothing.
func (s *OrderService) UpdateStatus(ctx context.Context, caller *access.Caller, id string, to models.OrderStatus, note string) (*models.Order, error) {
	if !to.Valid() {
		return nil, apperrors.Validation("invalid status", apperrors.FieldError{
			Field:   "status",
			Message: "must be one of received, preparing, ready, delivered, cancelled",
		})
	}
	if err := access.Check(access.Authenticated, caller, ""); err != nil {
		return nil, err
	}
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.Check(statemachine.RequiredCapability(to), caller, order.UserID); err != nil {
		return nil, err
	}
	if order.Status == to {
		return order, nil
	}
	if err := statemachine.CanTransition(order.Status, to); err != nil {
		return nil, err
	}

	note = strings.TrimSpace(note)
	if note == "" {
		note = fmt.Sprintf("status changed to %s", to)
	}
	if err := s.transition(ctx, caller, order, to, note); err != nil {
		return nil, err
	}
	return order, nil
}

// UpdatePayment sets the payment status. Admin only; independent of the
// order status.
func (s *OrderService) UpdatePayment(ctx context.Context, caller *access.Caller, id string, to models.PaymentStatus) (*models.Order, error) {
	if !to.Valid() {
		return nil, apperrors.Validation("invalid payment status", apperrors.FieldError{
			Field:   "payment_status",
			Message: "must be one of pending, completed, failed, refunded",
		})
	}
	if err := access.Check(access.AdminOnly, caller, ""); err != nil {
		return nil, err
	}
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus == to {
		return order, nil
	}
	if err := statemachine.CanTransitionPayment(order.PaymentStatus, to); err != nil {
		return nil, err
	}

	from := order.PaymentStatus
	now := s.timestamp()
	err = s.orders.UpdatePayment(ctx, repository.PaymentChange{
		OrderID: order.ID,
		From:    from,
		To:      to,
		At:      now,
	})
	if err != nil {
		return nil, s.writeErr(err, order.ID, "failed to update payment status")
	}
	order.PaymentStatus = to
	order.UpdatedAt = now

	metrics.PaymentTransitions.WithLabelValues(string(from), string(to)).Inc()
	s.lg.Info("Payment status changed",
		zap.String("order_id", order.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor_id", caller.UserID),
	)
	s.publish(ctx, events.Event{
		Type:    events.OrderPaymentChanged,
		OrderID: order.ID,
		UserID:  order.UserID,
		ActorID: caller.UserID,
		From:    string(from),
		To:      string(to),
	})
	return order, nil
}

// transition persists an already validated status change and applies it to
// order in place.
func (s *OrderService) transition(ctx context.Context, caller *access.Caller, order *models.Order, to models.OrderStatus, note string) error {
	from := order.Status
	now := s.timestamp()
	change := repository.StatusChange{
		OrderID: order.ID,
		From:    from,
		To:      to,
		At:      now,
		History: models.OrderStatusHistory{
			ID:         s.newID(),
			OrderID:    order.ID,
			FromStatus: from,
			ToStatus:   to,
			ChangedBy:  caller.UserID,
			Note:       note,
			CreatedAt:  now,
		},
	}
	if to == models.StatusDelivered && order.ActualDeliveryTime == nil {
		delivered := now
		change.ActualDeliveryTime = &delivered
	}

	if err := s.orders.UpdateStatus(ctx, change); err != nil {
		return s.writeErr(err, order.ID, "failed to update order status")
	}

	order.Status = to
	order.UpdatedAt = now
	if change.ActualDeliveryTime != nil {
		order.ActualDeliveryTime = change.ActualDeliveryTime
	}
	order.StatusHistory = append(order.StatusHistory, change.History)

	metrics.StatusTransitions.WithLabelValues(string(from), string(to)).Inc()
	s.lg.Info("Order status changed",
		zap.String("order_id", order.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor_id", caller.UserID),
	)

	eventType := events.OrderStatusChanged
	if to == models.StatusCancelled {
		eventType = events.OrderCancelled
	}
	s.publish(ctx, events.Event{
		Type:    eventType,
		OrderID: order.ID,
		UserID:  order.UserID,
		ActorID: caller.UserID,
		From:    string(from),
		To:      string(to),
	})
	return nil
}

func (s *OrderService) load(ctx context.Context, id string) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, apperrors.NotFound("order %s not found", id)
	case err != nil:
		return nil, apperrors.Store(err, "failed to load order")
	}
	return order, nil
}

func (s *OrderService) writeErr(err error, orderID, op string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NotFound("order %s not found", orderID)
	case errors.Is(err, repository.ErrConflict):
		return apperrors.Conflict("order %s was modified concurrently, reload and retry", orderID)
	}
	return apperrors.Store(err, op)
}

// publish sends ev after the change is committed. Delivery failures are
// logged and counted, the request still succeeds.
func (s *OrderService) publish(ctx context.Context, ev events.Event) {
	ev.ID = s.newID()
	ev.OccurredAt = s.timestamp()
	if err := s.publisher.Publish(ctx, ev); err != nil {
		metrics.EventPublishFailures.WithLabelValues(string(ev.Type)).Inc()
		s.lg.Warn("Publish order event",
			zap.String("type", string(ev.Type)),
			zap.String("order_id", ev.OrderID),
			zap.Error(err),
		)
	}
}
