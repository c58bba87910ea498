package command

import (
	"fmt"

	"fleetguard/agent/internal/logger"
)

// Dispatch executes the command and shapes the outcome for reporting. An
// unknown type or a handler error becomes an ERROR outcome; the poller still
// reports it so the coordinator can close the command.
func Dispatch(desc Descriptor) Outcome {
	h, ok := Get(desc.Type)
	if !ok {
		logger.Errorf("Unknown command type: %s", desc.Type)
		return Outcome{Status: "ERROR", ErrorMessage: fmt.Sprintf("unknown command %s", desc.Type)}
	}
	logger.Infof("Executing command id=%s type=%s", desc.ID, desc.Type)
	result, restart, exit, err := h.Execute(desc.Payload)
	if err != nil {
		logger.Errorf("Command %s failed: %v", desc.Type, err)
		return Outcome{Status: "ERROR", Result: result, ErrorMessage: err.Error()}
	}
	logger.Infof("Command %s completed", desc.Type)
	return Outcome{Status: "DONE", Result: result, Restart: restart, Exit: exit}
}
