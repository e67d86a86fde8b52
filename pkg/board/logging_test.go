package board

import (
	"context"
	"testing"
	"time"
)

type recorderLogger struct {
	entries []OperationLog
}

func (logger *recorderLogger) LogOperation(_ context.Context, entry OperationLog) {
	logger.entries = append(logger.entries, entry)
}

func TestServiceLogsCreateRequestOperation(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	store.settings[SettingGoldCosts] = `{"1x1":10}`
	logger := &recorderLogger{}
	service, err := NewService(store, func() time.Time {
		store.clock = store.clock.Add(time.Second)
		return store.clock
	}, WithOperationLogger(logger))
	if err != nil {
		test.Fatalf("service init failed: %v", err)
	}
	created, err := service.CreateRequest(context.Background(), RequestInput{
		PlayerName: mustPlayerName(test, "Thorn"),
		Key:        mustSectionKey(test, 0, 0, 1, 1),
	})
	if err != nil {
		test.Fatalf("create request: %v", err)
	}
	if len(logger.entries) != 1 {
		test.Fatalf("expected one log entry, got %d", len(logger.entries))
	}
	entry := logger.entries[0]
	if entry.Operation != operationCreateRequest || entry.RequestID != created.ID || entry.GoldCost != created.GoldCost {
		test.Fatalf("unexpected log entry: %+v", entry)
	}
	if entry.Error != nil || entry.Status != operationStatusOK {
		test.Fatalf("expected successful log entry, got %+v", entry)
	}
}

func TestServiceLogsErrorStatus(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	logger := &recorderLogger{}
	service, err := NewService(store, func() time.Time {
		store.clock = store.clock.Add(time.Second)
		return store.clock
	}, WithOperationLogger(logger))
	if err != nil {
		test.Fatalf("service init failed: %v", err)
	}
	_, err = service.CreateRequest(context.Background(), RequestInput{
		PlayerName: mustPlayerName(test, "Thorn"),
		Key:        mustSectionKey(test, 0, 0, 1, 1),
	})
	if err == nil {
		test.Fatalf("expected configuration error")
	}
	if len(logger.entries) != 1 {
		test.Fatalf("expected one log entry, got %d", len(logger.entries))
	}
	if logger.entries[0].Status != operationStatusError || logger.entries[0].Error == nil {
		test.Fatalf("expected error log entry, got %+v", logger.entries[0])
	}
}
