package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"smartpark/backend/services/booking-service/internal/repository"
)

// Method is the closed set of payment methods.
type Method int

const (
	MethodCreditCard Method = iota + 1
	MethodPayPal
)

var methodNames = map[Method]string{
	MethodCreditCard: "Credit Card",
	MethodPayPal:     "PayPal",
}

func (m Method) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// ErrUnknownMethod is returned for a name that maps to no method.
var ErrUnknownMethod = errors.New("unknown payment method")

// ParseMethod matches a display name case-insensitively, ignoring surrounding blanks.
func ParseMethod(name string) (Method, error) {
	name = strings.TrimSpace(name)
	for m, display := range methodNames {
		if strings.EqualFold(display, name) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, name)
}

// Strategy authorizes an amount for one payment method.
// Strategies never read or write booking state.
type Strategy interface {
	Method() Method
	Name() string
	Authorize(ctx context.Context, amount decimal.Decimal) (bool, error)
}

// Gateway is the transaction authority card payments delegate to.
type Gateway interface {
	Authorize(ctx context.Context, amount decimal.Decimal) (bool, error)
}

// SimulatedGateway approves positive amounts while the store's default
// gateway record is Active. The record is re-read on every call.
type SimulatedGateway struct {
	store repository.Store
}

// NewSimulatedGateway builds a gateway over the store's gateway record.
func NewSimulatedGateway(store repository.Store) *SimulatedGateway {
	return &SimulatedGateway{store: store}
}

func (g *SimulatedGateway) Authorize(ctx context.Context, amount decimal.Decimal) (bool, error) {
	record, err := g.store.DefaultPaymentGateway(ctx)
	if err != nil {
		return false, fmt.Errorf("load payment gateway: %w", err)
	}
	if record == nil || !record.Active() {
		return false, nil
	}
	return amount.IsPositive(), nil
}

// CreditCard delegates to a gateway.
type CreditCard struct {
	gateway Gateway
}

// NewCreditCard returns a card strategy. A nil gateway declines everything.
func NewCreditCard(gateway Gateway) *CreditCard {
	return &CreditCard{gateway: gateway}
}

func (c *CreditCard) Method() Method { return MethodCreditCard }
func (c *CreditCard) Name() string   { return MethodCreditCard.String() }

func (c *CreditCard) Authorize(ctx context.Context, amount decimal.Decimal) (bool, error) {
	if !amount.IsPositive() || c.gateway == nil {
		return false, nil
	}
	return c.gateway.Authorize(ctx, amount)
}

// PayPal always declines; it drives the payment failure path.
type PayPal struct{}

func (PayPal) Method() Method { return MethodPayPal }
func (PayPal) Name() string   { return MethodPayPal.String() }

func (PayPal) Authorize(context.Context, decimal.Decimal) (bool, error) {
	return false, nil
}

// Set maps methods to strategies and resolves display names.
type Set struct {
	strategies map[Method]Strategy
	order      []Method
	fallback   Method
	allowFall  bool
	logger     *zap.Logger
}

// Options configures name resolution.
type Options struct {
	// Default is used for blank or unknown names when FallbackToDefault is set.
	Default           Method
	FallbackToDefault bool
}

// NewSet registers strategies in the given order.
func NewSet(opts Options, logger *zap.Logger, strategies ...Strategy) *Set {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Set{
		strategies: make(map[Method]Strategy, len(strategies)),
		fallback:   opts.Default,
		allowFall:  opts.FallbackToDefault,
		logger:     logger,
	}
	for _, st := range strategies {
		if _, dup := s.strategies[st.Method()]; !dup {
			s.order = append(s.order, st.Method())
		}
		s.strategies[st.Method()] = st
	}
	if _, ok := s.strategies[s.fallback]; !ok && len(s.order) > 0 {
		s.fallback = s.order[0]
	}
	return s
}

// Names lists the registered display names in registration order.
func (s *Set) Names() []string {
	out := make([]string, 0, len(s.order))
	for _, m := range s.order {
		out = append(out, s.strategies[m].Name())
	}
	return out
}

// Resolve returns the strategy for name. Unknown or blank names resolve to
// the default strategy when fallback is enabled; the fallback is logged.
func (s *Set) Resolve(name string) (Strategy, error) {
	m, err := ParseMethod(name)
	if err == nil {
		if st, ok := s.strategies[m]; ok {
			return st, nil
		}
		err = fmt.Errorf("%w: %q is not enabled", ErrUnknownMethod, name)
	}
	if !s.allowFall {
		return nil, err
	}
	st, ok := s.strategies[s.fallback]
	if !ok {
		return nil, err
	}
	s.logger.Warn("payment method not recognised, using default",
		zap.String("requested", name),
		zap.String("method", st.Name()),
	)
	return st, nil
}
