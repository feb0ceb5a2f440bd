package errprocess

import (
	"fmt"

	"apartment_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// Wrap log errMsg and return it wrapped around kind, so callers can errors.Is on kind
func Wrap(kind error, errMsg string, fields ...zap.Field) error {
	logger.Log.Warn(errMsg, append(fields, zap.String("kind", kind.Error()))...)
	return fmt.Errorf("%w: %s", kind, errMsg)
}
