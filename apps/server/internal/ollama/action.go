package ollama

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mwestphal/quill/apps/server/internal/plugin"
	"github.com/mwestphal/quill/pkg/api"
)

// ActionID is the plugin ID the host addresses the unloader by.
const ActionID = "ollama-unload"

// DefaultHosts are the server URLs tried when none are configured. They cover
// the usual local and in-container deployments.
var DefaultHosts = []string{
	"http://localhost:11434",
	"http://127.0.0.1:11434",
	"http://ollama:11434",
	"http://host.docker.internal:11434",
}

// unloadClient is the part of Client the action uses; swappable in tests.
type unloadClient interface {
	RunningModels(ctx context.Context) ([]Model, error)
	Unload(ctx context.Context, model string) (bool, error)
}

// Unloader is the action that evicts every running model from every
// configured Ollama host. Hosts that are down are skipped silently, matching
// the "try the usual places" default host list.
type Unloader struct {
	hosts     []string
	log       *slog.Logger
	newClient func(baseURL string) unloadClient
}

var _ plugin.Action = (*Unloader)(nil)

// NewUnloader creates an Unloader. An empty hosts list selects DefaultHosts.
func NewUnloader(hosts []string, log *slog.Logger) *Unloader {
	if len(hosts) == 0 {
		hosts = DefaultHosts
	}
	return &Unloader{
		hosts:     hosts,
		log:       log,
		newClient: func(baseURL string) unloadClient { return NewClient(baseURL) },
	}
}

// ID implements plugin.Action.
func (u *Unloader) ID() string { return ActionID }

// Run walks the hosts and unloads every running model, reporting per-model
// progress and a final summary. Unreachable hosts do not fail the action.
func (u *Unloader) Run(ctx context.Context, _ api.ActionBody, emit plugin.Emit) (*api.ActionResult, error) {
	emit(api.StatusEvent("Initializing Ollama model unloader", api.StatusInProgress, false))

	var unloaded, failed int
	for _, host := range u.hosts {
		emit(api.StatusEvent(fmt.Sprintf("Connecting to Ollama at %s", host), api.StatusInProgress, false))

		client := u.newClient(host)
		running, err := client.RunningModels(ctx)
		if err != nil {
			u.log.Debug("ollama host unreachable", "host", host, "error", err)
			continue
		}

		for _, m := range running {
			if m.Model == "" {
				continue
			}
			emit(api.StatusEvent(fmt.Sprintf("Unloading model: %s", m.Model), api.StatusInProgress, false))

			ok, err := client.Unload(ctx, m.Model)
			if err != nil {
				u.log.Warn("model unload failed", "host", host, "model", m.Model, "error", err)
			}
			if ok {
				unloaded++
			} else {
				failed++
			}
		}
	}

	summary, status := summarize(unloaded, failed)
	u.log.Info("ollama unload finished", "unloaded", unloaded, "failed", failed)
	emit(api.StatusEvent(summary, status, true))

	return &api.ActionResult{Reply: &api.Message{Role: api.RoleAssistant, Content: summary}}, nil
}

func summarize(unloaded, failed int) (string, string) {
	switch {
	case unloaded > 0 && failed == 0:
		return fmt.Sprintf("Successfully unloaded %d Ollama models", unloaded), api.StatusComplete
	case unloaded > 0:
		return fmt.Sprintf("Partially successful: Unloaded %d models, failed to unload %d models", unloaded, failed),
			api.StatusWarning
	case failed > 0:
		return fmt.Sprintf("Failed to unload %d models", failed), api.StatusWarning
	default:
		return "No running models found to unload", api.StatusComplete
	}
}
