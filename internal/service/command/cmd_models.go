package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/sandevgo/docqa/internal/core"
)

const maxListedModels = 30

type ModelsCommand struct {
	cfg       core.ProviderConfig
	models    core.ModelLister
	formatter *ResponseFormatter
}

func NewModelsCommand(cfg core.ProviderConfig, models core.ModelLister) *ModelsCommand {
	return &ModelsCommand{
		cfg:       cfg,
		models:    models,
		formatter: NewResponseFormatter(),
	}
}

func (c *ModelsCommand) Name() string {
	return "models"
}

func (c *ModelsCommand) Description() string {
	return "Show the current model and list the provider's models"
}

func (c *ModelsCommand) Execute(ctx context.Context, sessionID string, args []string) (string, error) {
	models, err := c.models.Models(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list models: %w", err)
	}

	filter := ""
	if len(args) > 0 {
		filter = strings.ToLower(args[0])
	}

	var items []string
	for _, m := range models {
		if filter != "" && !strings.Contains(strings.ToLower(m.ID), filter) {
			continue
		}
		item := fmt.Sprintf("`%s`", m.ID)
		if m.ContextLength > 0 {
			item += fmt.Sprintf(" (%d ctx)", m.ContextLength)
		}
		items = append(items, item)
	}

	total := len(items)
	if total > maxListedModels {
		items = append(items[:maxListedModels], fmt.Sprintf("… and %d more", total-maxListedModels))
	}

	sections := []string{
		c.formatter.Info("Models"),
		c.formatter.Label("Provider", c.cfg.GetProvider()),
		c.formatter.Label("Current", c.cfg.GetModel()),
		c.formatter.Label("Available", fmt.Sprintf("%d", total)),
	}
	if total > 0 {
		sections = append(sections, c.formatter.List(items))
	}
	sections = append(sections, c.formatter.Usage("/models [filter]"))
	return c.formatter.Combine(sections...), nil
}
