package homeassistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gray-logic-entity-manager/internal/registry"
)

// Command types.
const (
	cmdAreaList     = "config/area_registry/list"
	cmdDeviceList   = "config/device_registry/list"
	cmdEntityList   = "config/entity_registry/list"
	cmdEntityUpdate = "config/entity_registry/update"
	cmdLabelList    = "config/label_registry/list"
	cmdLabelCreate  = "config/label_registry/create"
	cmdGetStates    = "get_states"
)

// Error codes Home Assistant attaches to failed results.
const (
	codeNotFound    = "not_found"
	codeInvalidInfo = "invalid_info"
)

type wireArea struct {
	AreaID string `json:"area_id"`
	Name   string `json:"name"`
}

type wireDevice struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	NameByUser string `json:"name_by_user"`
	Model      string `json:"model"`
	AreaID     string `json:"area_id"`
}

type wireEntity struct {
	EntityID string   `json:"entity_id"`
	ID       string   `json:"id"`
	DeviceID string   `json:"device_id"`
	AreaID   string   `json:"area_id"`
	Name     string   `json:"name"`
	Labels   []string `json:"labels"`
}

type wireState struct {
	EntityID   string         `json:"entity_id"`
	Attributes map[string]any `json:"attributes"`
}

type wireLabel struct {
	LabelID string `json:"label_id"`
	Name    string `json:"name"`
}

// Snapshot fetches areas, devices, entities and states concurrently and
// combines them into one registry snapshot.
func (c *Client) Snapshot(ctx context.Context) (*registry.Snapshot, error) {
	var (
		areas    []wireArea
		devices  []wireDevice
		entities []wireEntity
		states   []wireState
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.call(gctx, cmdAreaList, nil, &areas) })
	g.Go(func() error { return c.call(gctx, cmdDeviceList, nil, &devices) })
	g.Go(func() error { return c.call(gctx, cmdEntityList, nil, &entities) })
	g.Go(func() error { return c.call(gctx, cmdGetStates, nil, &states) })
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetching registry: %w", err)
	}

	outAreas := make([]registry.Area, 0, len(areas))
	for _, a := range areas {
		outAreas = append(outAreas, registry.Area{ID: a.AreaID, Name: a.Name})
	}
	outDevices := make([]registry.Device, 0, len(devices))
	for _, d := range devices {
		outDevices = append(outDevices, registry.Device{
			ID:       d.ID,
			Name:     d.Name,
			UserName: d.NameByUser,
			Model:    d.Model,
			AreaID:   d.AreaID,
		})
	}
	outEntities := make([]registry.Entity, 0, len(entities))
	for _, e := range entities {
		outEntities = append(outEntities, registry.Entity{
			Identifier: e.EntityID,
			RegistryID: e.ID,
			DeviceID:   e.DeviceID,
			AreaID:     e.AreaID,
			Name:       e.Name,
			Labels:     e.Labels,
		})
	}
	outStates := make([]registry.State, 0, len(states))
	for _, s := range states {
		outStates = append(outStates, registry.State{Identifier: s.EntityID, Attributes: s.Attributes})
	}

	c.logger.Debug("registry snapshot fetched",
		"areas", len(outAreas),
		"devices", len(outDevices),
		"entities", len(outEntities),
		"states", len(outStates),
	)
	return registry.NewSnapshot(outAreas, outDevices, outEntities, outStates), nil
}

// UpdateEntity implements registry.Mutator.
func (c *Client) UpdateEntity(ctx context.Context, identifier string, update registry.EntityUpdate) error {
	cmd := map[string]any{"entity_id": identifier}
	if update.NewIdentifier != "" && update.NewIdentifier != identifier {
		cmd["new_entity_id"] = update.NewIdentifier
	}
	if update.Name != "" {
		cmd["name"] = update.Name
	}
	if update.Labels != nil {
		cmd["labels"] = update.Labels
	}

	err := c.call(ctx, cmdEntityUpdate, cmd, nil)
	if err == nil {
		return nil
	}

	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		switch {
		case cmdErr.Code == codeNotFound:
			return fmt.Errorf("%w: %s: %w", registry.ErrEntityNotFound, identifier, err)
		case cmdErr.Code == codeInvalidInfo && strings.Contains(cmdErr.Message, "already"):
			return fmt.Errorf("%w: %s: %w", registry.ErrEntityExists, update.NewIdentifier, err)
		}
	}
	return err
}

// EnsureLabel implements registry.LabelEnsurer. Labels known to exist are
// remembered for the life of the client.
func (c *Client) EnsureLabel(ctx context.Context, label string) error {
	c.labelsMu.Lock()
	defer c.labelsMu.Unlock()

	if c.labels[label] {
		return nil
	}

	var labels []wireLabel
	if err := c.call(ctx, cmdLabelList, nil, &labels); err != nil {
		return fmt.Errorf("listing labels: %w", err)
	}
	for _, l := range labels {
		c.labels[l.LabelID] = true
	}
	if c.labels[label] {
		return nil
	}

	var created wireLabel
	err := c.call(ctx, cmdLabelCreate, map[string]any{
		"name":  labelName(label),
		"color": "primary",
	}, &created)
	if err != nil {
		return fmt.Errorf("creating label %s: %w", label, err)
	}
	if created.LabelID != "" && created.LabelID != label {
		return fmt.Errorf("creating label %s: %w: host assigned id %q", label, ErrCommandFailed, created.LabelID)
	}

	c.labels[label] = true
	c.logger.Info("label created", "label", label)
	return nil
}

// labelName upper-cases the first letter, matching the id Home Assistant
// derives from the name.
func labelName(label string) string {
	r, size := utf8.DecodeRuneInString(label)
	if r == utf8.RuneError {
		return label
	}
	return string(unicode.ToUpper(r)) + label[size:]
}
