package support

import (
	"context"

	"rentverse/internal/app/uow"
)

func BeginReadOnlyUnit(ctx context.Context, factory uow.UoWFactory) (uow.UnitOfWork, context.Context, func(), error) {
	unit, ok := uow.FromContext(ctx)
	if ok {
		return unit, ctx, nil, nil
	}
	if factory == nil {
		return nil, ctx, nil, uow.ErrUnitOfWorkMissing
	}
	newUnit, err := factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, ctx, nil, err
	}
	execCtx := uow.ContextWithUnitOfWork(ctx, newUnit)
	cleanup := func() {
		_ = newUnit.Rollback(execCtx)
	}
	return newUnit, execCtx, cleanup, nil
}

// BeginWriteUnit starts a writable unit unless one is already bound to
// the context. The returned commit is a no-op for inherited units: the
// outer owner decides the transaction outcome.
func BeginWriteUnit(ctx context.Context, factory uow.UoWFactory) (uow.UnitOfWork, context.Context, func(context.Context) error, func(), error) {
	unit, ok := uow.FromContext(ctx)
	if ok {
		commit := func(context.Context) error { return nil }
		return unit, ctx, commit, nil, nil
	}
	if factory == nil {
		return nil, ctx, nil, nil, uow.ErrUnitOfWorkMissing
	}
	newUnit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return nil, ctx, nil, nil, err
	}
	execCtx := uow.ContextWithUnitOfWork(ctx, newUnit)
	committed := false
	commit := func(c context.Context) error {
		if err := newUnit.Commit(c); err != nil {
			return err
		}
		committed = true
		return nil
	}
	cleanup := func() {
		if !committed {
			_ = newUnit.Rollback(execCtx)
		}
	}
	return newUnit, execCtx, commit, cleanup, nil
}
