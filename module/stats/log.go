package stats

import (
	"DProject/logger"

	"go.uber.org/zap"
)

func logEmitError(eventType, packID string, err error) {
	logger.Error("emit stats event failed",
		zap.String("event_type", eventType),
		zap.String("pack_id", packID),
		zap.Error(err))
}
