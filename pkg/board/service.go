package board

import (
	"context"
	"fmt"
	"time"
)

// Service contains the domain logic over a Store.
type Service struct {
	store  Store
	nowFn  func() time.Time
	logger OperationLogger
}

// NewService wires a Service.
func NewService(store Store, now func() time.Time, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &Service{store: store, nowFn: now}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// CreateRequest prices and files a pending unlock request. The gold cost is
// locked in at creation time; later edits to the gold_costs table do not
// touch requests already filed. The player row, when one matches the given
// name, is resolved up front so approval debits a stable identifier rather
// than a free-text name.
func (service *Service) CreateRequest(ctx context.Context, input RequestInput) (Request, error) {
	var created Request
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		costs, err := goldCostTable(ctx, transactionStore)
		if err != nil {
			return err
		}
		cost, err := costs.CostFor(input.Key)
		if err != nil {
			return err
		}
		var playerID *int64
		player, found, err := transactionStore.FindPlayerByName(ctx, input.PlayerName.String())
		if err != nil {
			return err
		}
		if found {
			playerID = &player.ID
		}
		created, err = transactionStore.InsertRequest(ctx, Request{
			PlayerName: input.PlayerName.String(),
			PlayerID:   playerID,
			Message:    input.Message,
			Key:        input.Key,
			GoldCost:   cost,
			Status:     RequestStatusPending,
			CreatedAt:  service.nowFn(),
		})
		return err
	})
	service.logOperation(ctx, OperationLog{
		Operation:  operationCreateRequest,
		RequestID:  created.ID,
		PlayerName: input.PlayerName.String(),
		Key:        input.Key,
		GoldCost:   created.GoldCost,
		Error:      operationError,
	})
	if operationError != nil {
		return Request{}, operationError
	}
	return created, nil
}

// ResolveRequest applies an admin decision to a pending request. Approval
// unlocks the target section, debits the resolved player (floored at zero),
// and marks the request approved, all within one store transaction so no
// intermediate state is observable. Requests already resolved fail with
// ErrConflict; their side effects are never reapplied.
func (service *Service) ResolveRequest(ctx context.Context, id RequestID, action ReviewAction) (Request, error) {
	var resolved Request
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		request, err := transactionStore.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		if request.Status != RequestStatusPending {
			return fmt.Errorf("%w: request %s is %s", ErrConflict, id.String(), request.Status)
		}
		switch action {
		case ReviewActionApprove:
			if _, err := transactionStore.UpsertUnlockedSection(ctx, request.Key, service.nowFn()); err != nil {
				return err
			}
			if request.PlayerID != nil {
				if err := transactionStore.DebitPlayerGold(ctx, *request.PlayerID, request.GoldCost); err != nil {
					return err
				}
			}
			if err := transactionStore.UpdateRequestStatus(ctx, id, RequestStatusPending, RequestStatusApproved); err != nil {
				return err
			}
		case ReviewActionReject:
			if err := transactionStore.UpdateRequestStatus(ctx, id, RequestStatusPending, RequestStatusRejected); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: got %q", ErrInvalidAction, action)
		}
		resolved, err = transactionStore.GetRequest(ctx, id)
		return err
	})
	service.logOperation(ctx, OperationLog{
		Operation:  operationResolveRequest,
		RequestID:  id,
		PlayerName: resolved.PlayerName,
		Key:        resolved.Key,
		GoldCost:   resolved.GoldCost,
		Status:     resolved.Status.String(),
		Error:      operationError,
	})
	if operationError != nil {
		return Request{}, operationError
	}
	return resolved, nil
}

// UnlockSection marks the section at the given key unlocked, creating the
// row when absent. The write is a single conflict upsert on the composite
// key, so concurrent unlocks of the same section cannot duplicate it.
func (service *Service) UnlockSection(ctx context.Context, key SectionKey) (Section, error) {
	section, operationError := service.store.UpsertUnlockedSection(ctx, key, service.nowFn())
	service.logOperation(ctx, OperationLog{
		Operation: operationUnlockSection,
		Key:       key,
		Error:     operationError,
	})
	return section, operationError
}

// UnlockedSections lists sections the public map renders as charted.
func (service *Service) UnlockedSections(ctx context.Context) ([]Section, error) {
	return service.store.ListUnlockedSections(ctx)
}

// ListRequests returns all requests, newest first.
func (service *Service) ListRequests(ctx context.Context) ([]Request, error) {
	return service.store.ListRequests(ctx)
}

func (service *Service) logOperation(ctx context.Context, entry OperationLog) {
	if service.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	service.logger.LogOperation(ctx, entry)
}
