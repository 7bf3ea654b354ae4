package service

import (
	"github.com/bugline/bugline"
	"github.com/bugline/bugline/domain"
)

// NewRegistry builds the static handler registry: every command mapped
// to its single handler, every projection appended to its event's
// handler list. Called once at startup; the registry is shared by all
// buses.
func NewRegistry() *bugline.Registry[Deps] {
	r := bugline.NewRegistry[Deps]()

	bugline.HandleCommand(r, createUser)
	bugline.HandleCommand(r, updateUser)
	bugline.HandleCommand(r, softDeleteUser)
	bugline.HandleCommand(r, login)
	bugline.HandleCommand(r, refreshToken)

	bugline.HandleCommand(r, createBug)
	bugline.HandleCommand(r, updateBug)
	bugline.HandleCommand(r, softDeleteBug)
	bugline.HandleCommand(r, createComment)
	bugline.HandleCommand(r, updateComment)
	bugline.HandleCommand(r, softDeleteComment)
	bugline.HandleCommand(r, upvoteComment)
	bugline.HandleCommand(r, downvoteComment)
	bugline.HandleCommand(r, createTag)
	bugline.HandleCommand(r, addTag)
	bugline.HandleCommand(r, removeTag)

	bugline.HandleEvent(r, projectUserCreated)
	bugline.HandleEvent(r, projectUserUpdated)
	bugline.HandleEvent(r, projectUserSoftDeleted)
	bugline.HandleEvent(r, projectBugCreated)
	bugline.HandleEvent(r, projectBugUpdated)
	bugline.HandleEvent(r, projectBugSoftDeleted)
	bugline.HandleEvent(r, projectCommentCreated)
	bugline.HandleEvent(r, projectCommentUpdated)
	bugline.HandleEvent(r, projectCommentDeleted)
	bugline.HandleEvent(r, projectCommentUpvoted)
	bugline.HandleEvent(r, projectCommentDownvoted)
	bugline.HandleEvent(r, projectTagAdded)
	bugline.HandleEvent(r, projectTagRemoved)

	return r
}

// NewBusFactory assembles the per-request bus factory: the registry,
// the unit-of-work factory, and the dependency binder that hands every
// handler its Deps. cache may be nil. The default middleware chain is
// recovery, then validation; extra middleware runs after those.
func NewBusFactory(
	registry *bugline.Registry[Deps],
	uowFactory domain.UnitOfWorkFactory,
	hasher PasswordHasher,
	tokens TokenManager,
	cache ReadModelCache,
	logger bugline.Logger,
	opts ...bugline.FactoryOption[Deps],
) *bugline.BusFactory[Deps] {
	if logger == nil {
		logger = bugline.NopLogger()
	}
	bind := func(uow bugline.UnitOfWork) Deps {
		return Deps{
			UoW:    uow.(domain.UnitOfWork),
			Hasher: hasher,
			Tokens: tokens,
			Logger: logger,
			Cache:  cache,
		}
	}
	base := []bugline.FactoryOption[Deps]{
		bugline.WithMiddleware[Deps](
			bugline.RecoveryMiddleware(),
			bugline.ValidationMiddleware(),
		),
		bugline.WithLogger[Deps](logger),
	}
	wrapped := bugline.UnitOfWorkFactoryFunc(func() bugline.UnitOfWork {
		return uowFactory.New()
	})
	return bugline.NewBusFactory(registry, wrapped, bind, append(base, opts...)...)
}
