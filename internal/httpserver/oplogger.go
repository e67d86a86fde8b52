package httpserver

import (
	"context"

	"github.com/MarkoPoloResearchLab/cartowl/pkg/board"
	"go.uber.org/zap"
)

// zapOperationLogger forwards domain operation callbacks to zap.
type zapOperationLogger struct {
	logger *zap.Logger
}

// NewOperationLogger returns a board.OperationLogger backed by zap.
func NewOperationLogger(logger *zap.Logger) board.OperationLogger {
	return &zapOperationLogger{logger: logger}
}

func (operationLogger *zapOperationLogger) LogOperation(_ context.Context, entry board.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("status", entry.Status),
		zap.String("request_id", entry.RequestID.String()),
		zap.String("player_name", entry.PlayerName),
		zap.String("size", entry.Key.SizeKey()),
		zap.Int("x", entry.Key.X),
		zap.Int("y", entry.Key.Y),
		zap.Int64("gold_cost", entry.GoldCost.Int64()),
	}
	if entry.Error != nil {
		fields = append(fields, zap.Error(entry.Error))
		operationLogger.logger.Warn("board operation failed", fields...)
		return
	}
	operationLogger.logger.Info("board operation", fields...)
}
