package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/tessera-live/tessera/internal/domain"
)

// Config carries the static addressing and timing the gateway needs.
type Config struct {
	FactoryAddress        domain.Address
	DefaultConfirmTimeout time.Duration
}

const defaultConfirmTimeout = 2 * time.Minute

// Gateway exposes typed ledger operations. It is stateless apart from the
// per-process ticket-contract address cache, and safe for concurrent use.
type Gateway struct {
	transport Transport
	cfg       Config
	signer    Signer
	logger    *log.Logger

	mu          sync.Mutex
	ticketAddrs map[domain.Address]*ticketAddrEntry
}

// ticketAddrEntry serializes concurrent first resolutions for one event so
// only a single lookup hits the ledger.
type ticketAddrEntry struct {
	mu       sync.Mutex
	addr     domain.Address
	resolved bool
}

type Option func(*Gateway)

// WithSigner attaches the signing identity used for writes.
func WithSigner(s Signer) Option {
	return func(g *Gateway) { g.signer = s }
}

// WithLogger overrides the default logger.
func WithLogger(l *log.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

func New(transport Transport, cfg Config, opts ...Option) *Gateway {
	if cfg.DefaultConfirmTimeout <= 0 {
		cfg.DefaultConfirmTimeout = defaultConfirmTimeout
	}
	g := &Gateway{
		transport:   transport,
		cfg:         cfg,
		logger:      log.Default(),
		ticketAddrs: make(map[domain.Address]*ticketAddrEntry),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// submit fails fast when no signer is attached: no network round trip is
// spent on a write that cannot be signed.
func (g *Gateway) submit(ctx context.Context, call Call) (domain.TxHandle, error) {
	if g.signer == nil {
		return "", ErrNoSigningIdentity
	}
	call.From = g.signer.Address()
	tx, err := g.transport.Submit(ctx, call)
	if err != nil {
		return "", fmt.Errorf("submit %s: %w", call.Function, err)
	}
	return tx, nil
}

// AwaitConfirmation blocks until the transaction is included or timeout
// elapses. On timeout the transaction may still confirm later; callers must
// treat the outcome as unknown, not as failure.
func (g *Gateway) AwaitConfirmation(ctx context.Context, tx domain.TxHandle, timeout time.Duration) (Receipt, error) {
	if timeout <= 0 {
		timeout = g.cfg.DefaultConfirmTimeout
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	receipt, err := g.transport.Await(waitCtx, tx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return Receipt{Tx: tx}, fmt.Errorf("await %s: %w", tx, ErrConfirmationTimeout)
		}
		return Receipt{Tx: tx}, fmt.Errorf("await %s: %w", tx, err)
	}
	if !receipt.Success {
		return receipt, &RevertError{Tx: tx, Reason: receipt.RevertReason}
	}
	return receipt, nil
}

// CreateEventParams are the on-ledger attributes of a new event; everything
// descriptive lives off-chain.
type CreateEventParams struct {
	Name       string
	Kind       domain.EventKind
	PriceWei   uint64
	MaxTickets int
}

// CreateEvent submits the factory call that deploys a new event contract.
// The new address is available on the confirmation receipt.
func (g *Gateway) CreateEvent(ctx context.Context, p CreateEventParams) (domain.TxHandle, error) {
	return g.submit(ctx, Call{
		Contract: g.cfg.FactoryAddress,
		Role:     RoleFactory,
		Function: "createEvent",
		Args:     []any{p.Name, kindCode(p.Kind), p.PriceWei, p.MaxTickets},
	})
}

// DeactivateEvent submits the compensating write that flags an event
// inactive. The event itself is never deleted from the ledger.
func (g *Gateway) DeactivateEvent(ctx context.Context, event domain.Address) (domain.TxHandle, error) {
	return g.submit(ctx, Call{
		Contract: event,
		Role:     RoleEvent,
		Function: "deactivateEvent",
	})
}

// UpdateOrganization submits the organizer profile mutation on the factory.
func (g *Gateway) UpdateOrganization(ctx context.Context, org domain.Organization) (domain.TxHandle, error) {
	return g.submit(ctx, Call{
		Contract: g.cfg.FactoryAddress,
		Role:     RoleFactory,
		Function: "updateOrganization",
		Args:     []any{org.Name, org.Description, org.Website},
	})
}

// BuyTicket submits a primary purchase on the event's ticket contract.
func (g *Gateway) BuyTicket(ctx context.Context, event domain.Address, metadataURI string, valueWei uint64) (domain.TxHandle, error) {
	ticket, err := g.TicketContractAddress(ctx, event)
	if err != nil {
		return "", err
	}
	return g.submit(ctx, Call{
		Contract: ticket,
		Role:     RoleTicket,
		Function: "buyTicket",
		Args:     []any{metadataURI},
		ValueWei: valueWei,
	})
}

// ListTicketForResale submits a resale listing for an owned token.
func (g *Gateway) ListTicketForResale(ctx context.Context, event domain.Address, tokenID uint64, priceWei uint64) (domain.TxHandle, error) {
	ticket, err := g.TicketContractAddress(ctx, event)
	if err != nil {
		return "", err
	}
	return g.submit(ctx, Call{
		Contract: ticket,
		Role:     RoleTicket,
		Function: "listForResale",
		Args:     []any{tokenID, priceWei},
	})
}

// BuyResaleTicket submits a value-carrying purchase of a listed token.
func (g *Gateway) BuyResaleTicket(ctx context.Context, event domain.Address, tokenID uint64, valueWei uint64) (domain.TxHandle, error) {
	ticket, err := g.TicketContractAddress(ctx, event)
	if err != nil {
		return "", err
	}
	return g.submit(ctx, Call{
		Contract: ticket,
		Role:     RoleTicket,
		Function: "buyResale",
		Args:     []any{tokenID},
		ValueWei: valueWei,
	})
}

// CancelResale submits a listing cancellation; ownership is enforced by the
// contract, not here.
func (g *Gateway) CancelResale(ctx context.Context, event domain.Address, tokenID uint64) (domain.TxHandle, error) {
	ticket, err := g.TicketContractAddress(ctx, event)
	if err != nil {
		return "", err
	}
	return g.submit(ctx, Call{
		Contract: ticket,
		Role:     RoleTicket,
		Function: "cancelResale",
		Args:     []any{tokenID},
	})
}

type eventInfoPayload struct {
	Name       string `json:"name"`
	Kind       uint8  `json:"kind"`
	PriceWei   uint64 `json:"price"`
	MaxTickets int    `json:"maxTickets"`
	Organizer  string `json:"organizer"`
	Active     bool   `json:"active"`
}

// EventInfo reads the full on-ledger state of an event contract.
func (g *Gateway) EventInfo(ctx context.Context, event domain.Address) (domain.Event, error) {
	var p eventInfoPayload
	err := g.transport.Read(ctx, Call{Contract: event, Role: RoleEvent, Function: "eventInfo"}, &p)
	if err != nil {
		return domain.Event{}, fmt.Errorf("read event info %s: %w", event, err)
	}
	return domain.Event{
		Address:    event,
		Name:       p.Name,
		Kind:       kindFromCode(p.Kind),
		PriceWei:   p.PriceWei,
		MaxTickets: p.MaxTickets,
		Organizer:  domain.Address(p.Organizer),
		Active:     p.Active,
	}, nil
}

// TicketContractAddress resolves the secondary ticket contract for an event,
// reading it from the event contract on first use and caching it for the
// process lifetime. The cache is never persisted; a restart always
// re-derives from the ledger.
func (g *Gateway) TicketContractAddress(ctx context.Context, event domain.Address) (domain.Address, error) {
	g.mu.Lock()
	entry, ok := g.ticketAddrs[event]
	if !ok {
		entry = &ticketAddrEntry{}
		g.ticketAddrs[event] = entry
	}
	g.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.resolved {
		return entry.addr, nil
	}

	var addr string
	err := g.transport.Read(ctx, Call{Contract: event, Role: RoleEvent, Function: "ticketContract"}, &addr)
	if err != nil {
		return "", fmt.Errorf("resolve ticket contract for %s: %w", event, err)
	}
	entry.addr = domain.Address(addr)
	entry.resolved = true
	g.logger.Printf("resolved ticket contract event=%s ticket=%s", event, entry.addr)
	return entry.addr, nil
}

// InvalidateTicketContract drops the cached resolution for one event.
func (g *Gateway) InvalidateTicketContract(event domain.Address) {
	g.mu.Lock()
	delete(g.ticketAddrs, event)
	g.mu.Unlock()
}

type resaleListingPayload struct {
	PriceWei uint64 `json:"price"`
	Active   bool   `json:"active"`
}

// ResaleListing reads the current listing state of one token.
func (g *Gateway) ResaleListing(ctx context.Context, event domain.Address, tokenID uint64) (domain.ResaleListing, error) {
	ticket, err := g.TicketContractAddress(ctx, event)
	if err != nil {
		return domain.ResaleListing{}, err
	}
	var p resaleListingPayload
	err = g.transport.Read(ctx, Call{Contract: ticket, Role: RoleTicket, Function: "resaleListing", Args: []any{tokenID}}, &p)
	if err != nil {
		return domain.ResaleListing{}, fmt.Errorf("read resale listing %s/%d: %w", event, tokenID, err)
	}
	return domain.ResaleListing{PriceWei: p.PriceWei, Active: p.Active}, nil
}

// TicketOwner reads the current owner of one token.
func (g *Gateway) TicketOwner(ctx context.Context, event domain.Address, tokenID uint64) (domain.Address, error) {
	ticket, err := g.TicketContractAddress(ctx, event)
	if err != nil {
		return "", err
	}
	var owner string
	err = g.transport.Read(ctx, Call{Contract: ticket, Role: RoleTicket, Function: "ownerOf", Args: []any{tokenID}}, &owner)
	if err != nil {
		return "", fmt.Errorf("read ticket owner %s/%d: %w", event, tokenID, err)
	}
	return domain.Address(owner), nil
}

// TokenURI reads the metadata pointer of one token.
func (g *Gateway) TokenURI(ctx context.Context, event domain.Address, tokenID uint64) (string, error) {
	ticket, err := g.TicketContractAddress(ctx, event)
	if err != nil {
		return "", err
	}
	var uri string
	err = g.transport.Read(ctx, Call{Contract: ticket, Role: RoleTicket, Function: "tokenURI", Args: []any{tokenID}}, &uri)
	if err != nil {
		return "", fmt.Errorf("read token uri %s/%d: %w", event, tokenID, err)
	}
	return uri, nil
}

// NextTokenID reads the next unassigned token id; with sequential minting it
// doubles as the number of tickets sold.
func (g *Gateway) NextTokenID(ctx context.Context, event domain.Address) (uint64, error) {
	ticket, err := g.TicketContractAddress(ctx, event)
	if err != nil {
		return 0, err
	}
	var next uint64
	err = g.transport.Read(ctx, Call{Contract: ticket, Role: RoleTicket, Function: "nextTokenId"}, &next)
	if err != nil {
		return 0, fmt.Errorf("read next token id %s: %w", event, err)
	}
	return next, nil
}

// BurnedCount reads the number of burned (checked-in) tickets.
func (g *Gateway) BurnedCount(ctx context.Context, event domain.Address) (uint64, error) {
	ticket, err := g.TicketContractAddress(ctx, event)
	if err != nil {
		return 0, err
	}
	var burned uint64
	err = g.transport.Read(ctx, Call{Contract: ticket, Role: RoleTicket, Function: "burnedCount"}, &burned)
	if err != nil {
		return 0, fmt.Errorf("read burned count %s: %w", event, err)
	}
	return burned, nil
}

// UnitPrice reads the configured ticket price from the event contract.
func (g *Gateway) UnitPrice(ctx context.Context, event domain.Address) (uint64, error) {
	var price uint64
	err := g.transport.Read(ctx, Call{Contract: event, Role: RoleEvent, Function: "ticketPrice"}, &price)
	if err != nil {
		return 0, fmt.Errorf("read unit price %s: %w", event, err)
	}
	return price, nil
}

type organizationPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Website     string `json:"website"`
}

// Organization reads the organizer profile from the factory.
func (g *Gateway) Organization(ctx context.Context, organizer domain.Address) (domain.Organization, error) {
	var p organizationPayload
	err := g.transport.Read(ctx, Call{
		Contract: g.cfg.FactoryAddress,
		Role:     RoleFactory,
		Function: "organization",
		Args:     []any{string(organizer)},
	}, &p)
	if err != nil {
		return domain.Organization{}, fmt.Errorf("read organization %s: %w", organizer, err)
	}
	return domain.Organization{
		Address:     organizer,
		Name:        p.Name,
		Description: p.Description,
		Website:     p.Website,
	}, nil
}

func kindCode(k domain.EventKind) uint8 {
	switch k {
	case domain.EventKindPaid:
		return 1
	case domain.EventKindApprovalRequired:
		return 2
	default:
		return 0
	}
}

func kindFromCode(code uint8) domain.EventKind {
	switch code {
	case 1:
		return domain.EventKindPaid
	case 2:
		return domain.EventKindApprovalRequired
	default:
		return domain.EventKindFree
	}
}
