package service

import (
	"context"
	"encoding/json"
	"time"

	"incubator-backend/internal/logger"
	"incubator-backend/internal/models"
	"incubator-backend/internal/repository"
)

// CommandService persists operator commands and attempts delivery over the
// broker.
//
// State machine: pending -> sent on a confirmed publish, pending -> failed
// when the broker is unreachable or the publish errors. A command is always
// durably recorded as pending before the publish is attempted, so a crash
// mid-dispatch leaves it visibly pending rather than lost. Failed commands
// are never retried here; a retry is a new command issued by the operator.
type CommandService struct {
	commands repository.CommandRepo
	devices  repository.DeviceRepo
	broker   Broker
	log      *logger.Logger
}

func NewCommandService(commands repository.CommandRepo, devices repository.DeviceRepo, broker Broker, log *logger.Logger) *CommandService {
	return &CommandService{
		commands: commands,
		devices:  devices,
		broker:   broker,
		log:      log,
	}
}

// commandPayload is the wire body published on incubators/{serial}/cmd.
type commandPayload struct {
	CmdID  string         `json:"cmd_id"`
	Cmd    string         `json:"cmd"`
	Params map[string]any `json:"params,omitempty"`
	Ts     string         `json:"ts"`
}

// Dispatch records and attempts one command. The returned Command carries
// the resulting status; a delivery failure is an outcome for the operator to
// see, not an error.
func (s *CommandService) Dispatch(ctx context.Context, deviceID, cmd string, params map[string]any) (models.Command, error) {
	device, err := s.devices.GetByID(ctx, deviceID)
	if err != nil {
		return models.Command{}, err
	}

	c, err := s.commands.Create(ctx, models.Command{
		DeviceID: device.ID,
		FarmID:   device.FarmID,
		Cmd:      cmd,
		Params:   params,
		Status:   models.CommandPending,
	})
	if err != nil {
		return models.Command{}, err
	}

	// The wire-side controller only knows its own serial, so the topic is
	// built from that, never the internal id.
	topic := "incubators/" + device.Serial + "/cmd"
	body, err := json.Marshal(commandPayload{
		CmdID:  c.ID,
		Cmd:    c.Cmd,
		Params: c.Params,
		Ts:     time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return s.markFailed(ctx, c, err)
	}

	if err := s.broker.Publish(topic, body); err != nil {
		return s.markFailed(ctx, c, err)
	}

	now := time.Now().UTC()
	if err := s.commands.UpdateStatus(ctx, c.ID, models.CommandSent, &now); err != nil {
		// delivered but not recorded; surface the storage error
		return models.Command{}, err
	}
	c.Status = models.CommandSent
	c.SentAt = &now
	s.log.Infow("command_sent", "cmd_id", c.ID, "device", device.Serial, "cmd", c.Cmd)
	return c, nil
}

func (s *CommandService) markFailed(ctx context.Context, c models.Command, cause error) (models.Command, error) {
	s.log.Warnw("command_publish_failed", "cmd_id", c.ID, "err", cause)
	if err := s.commands.UpdateStatus(ctx, c.ID, models.CommandFailed, nil); err != nil {
		// still pending on disk; the operator can see and resolve it
		s.log.Errorw("command_mark_failed_error", "cmd_id", c.ID, "err", err)
		return c, nil
	}
	c.Status = models.CommandFailed
	return c, nil
}

// History returns the device's commands, newest first.
func (s *CommandService) History(ctx context.Context, deviceID string, limit int) ([]models.Command, error) {
	return s.commands.ListByDevice(ctx, deviceID, limit)
}
