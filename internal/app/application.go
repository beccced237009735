package app

import (
	"context"
	"fmt"

	"github.com/greenpen-app/worry-service/internal/app/services/comments"
	"github.com/greenpen-app/worry-service/internal/app/services/identity"
	"github.com/greenpen-app/worry-service/internal/app/services/letters"
	"github.com/greenpen-app/worry-service/internal/app/services/points"
	"github.com/greenpen-app/worry-service/internal/app/storage"
	"github.com/greenpen-app/worry-service/internal/app/storage/memory"
	"github.com/greenpen-app/worry-service/internal/app/system"
	"github.com/greenpen-app/worry-service/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Users    storage.UserStore
	Letters  storage.LetterStore
	Comments storage.CommentStore
}

// Application ties the ledger services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Identity *identity.Service
	Points   *points.Ledger
	Letters  *letters.Service
	Comments *comments.Service
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Users == nil {
		stores.Users = mem
	}
	if stores.Letters == nil {
		stores.Letters = mem
	}
	if stores.Comments == nil {
		stores.Comments = mem
	}

	manager := system.NewManager()

	ledger := points.NewLedger(stores.Users, log)
	identityService := identity.New(stores.Users, log)
	letterService := letters.New(stores.Letters, ledger, log)
	commentService := comments.New(stores.Comments, ledger, log)

	for _, name := range []string{"identity", "points", "letters", "comments"} {
		if err := manager.Register(system.NoopService{ServiceName: name}); err != nil {
			return nil, fmt.Errorf("register %s service: %w", name, err)
		}
	}

	return &Application{
		manager:  manager,
		log:      log,
		Identity: identityService,
		Points:   ledger,
		Letters:  letterService,
		Comments: commentService,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
