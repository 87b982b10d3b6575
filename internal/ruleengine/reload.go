package ruleengine

import (
	"context"

	"github.com/robfig/cron/v3"
)

// StartAutoReload schedules a periodic ReloadRules on spec, following the
// same cron.Cron idiom as the orchestrator's health-check loop and the
// WebSocket fabric's heartbeat. A no-op if spec is empty; returns an
// error only if spec cannot be parsed.
func (e *Engine) StartAutoReload(ctx context.Context, spec string) error {
	if spec == "" {
		return nil
	}
	e.reloadRunner = cron.New()
	if _, err := e.reloadRunner.AddFunc(spec, func() {
		if err := e.ReloadRules(ctx); err != nil {
			e.logger.WithError(err).Warn("rule auto-reload failed")
		}
	}); err != nil {
		return err
	}
	e.reloadRunner.Start()
	return nil
}

// StopAutoReload halts the reload scheduler started by StartAutoReload.
func (e *Engine) StopAutoReload() {
	if e.reloadRunner != nil {
		stopCtx := e.reloadRunner.Stop()
		<-stopCtx.Done()
	}
}
