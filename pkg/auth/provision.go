package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cartbase/authcore/pkg/logger"
	"github.com/cartbase/authcore/pkg/slug"
)

// RegistrationHook runs role-specific provisioning after a user row is
// created, keeping role branches out of the registration state machine.
// The returned message is appended to the registration response.
type RegistrationHook interface {
	AfterRegister(ctx context.Context, user *User, input RegisterInput) (string, error)
}

// SellerProvisioner creates a storefront for newly registered sellers and
// backfills one for sellers arriving via OAuth.
type SellerProvisioner struct {
	stores   StoreStorage
	notifier Notifier
	logger   *slog.Logger
}

// SellerProvisionerOption configures a SellerProvisioner.
type SellerProvisionerOption func(*SellerProvisioner)

// WithProvisionerLogger sets a custom logger for the provisioner.
func WithProvisionerLogger(l *slog.Logger) SellerProvisionerOption {
	return func(p *SellerProvisioner) {
		p.logger = l
	}
}

// WithProvisionerNotifier sets the best-effort email notifier.
func WithProvisionerNotifier(n Notifier) SellerProvisionerOption {
	return func(p *SellerProvisioner) {
		p.notifier = n
	}
}

// NewSellerProvisioner creates the SELLER registration hook.
func NewSellerProvisioner(stores StoreStorage, opts ...SellerProvisionerOption) *SellerProvisioner {
	p := &SellerProvisioner{
		stores:   stores,
		notifier: NopNotifier{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AfterRegister provisions a store named from the input (or a default) with
// a timestamp-suffixed slug for uniqueness, then sends the seller welcome.
func (p *SellerProvisioner) AfterRegister(ctx context.Context, user *User, input RegisterInput) (string, error) {
	name := input.StoreName
	if name == "" {
		name = fmt.Sprintf("%s's Store", user.FirstName)
	}

	store := &Store{
		ID:        uuid.New(),
		OwnerID:   user.ID,
		Name:      name,
		Slug:      slug.Unique(name),
		CreatedAt: time.Now(),
	}
	if err := p.stores.CreateStore(ctx, store); err != nil {
		return "", fmt.Errorf("failed to provision store: %w", err)
	}

	p.logger.Info("seller store provisioned",
		logger.UserID(user.ID.String()),
		slog.String("store_slug", store.Slug),
		logger.Component("provision"),
	)

	p.notifier.SellerWelcome(ctx, user.Email, user.FirstName, store.Name)

	return "Your store is ready.", nil
}

// EnsureStore backfills a missing store for an existing seller, used when a
// seller's first login arrives through OAuth.
func (p *SellerProvisioner) EnsureStore(ctx context.Context, user *User) error {
	if user.Role != RoleSeller {
		return nil
	}

	_, err := p.stores.GetStoreByOwner(ctx, user.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrStoreNotFound) {
		return fmt.Errorf("failed to check store: %w", err)
	}

	_, err = p.AfterRegister(ctx, user, RegisterInput{})
	return err
}

var _ RegistrationHook = (*SellerProvisioner)(nil)
