package main

import (
	"context"
	"sync"

	"github.com/yanizio/panel/internal/app"
	"github.com/yanizio/panel/internal/config"
)

// commandContext builds the process resources on first use so that
// commands which only print help never touch the database.
type commandContext struct {
	jsonOut *bool

	once sync.Once
	app  *app.App
	err  error
}

func newCommandContext(jsonOut *bool) *commandContext {
	return &commandContext{jsonOut: jsonOut}
}

func (c *commandContext) ensureApp(ctx context.Context) (*app.App, error) {
	c.once.Do(func() {
		c.app, c.err = app.New(ctx, false)
	})
	return c.app, c.err
}

// config loads configuration without opening the database.
func (c *commandContext) config(ctx context.Context) (*config.Config, error) {
	if c.app != nil {
		return c.app.Config, nil
	}
	return config.Load(ctx)
}

func (c *commandContext) close() {
	if c.app != nil {
		c.app.Close()
	}
}

func (c *commandContext) json() bool { return c.jsonOut != nil && *c.jsonOut }
