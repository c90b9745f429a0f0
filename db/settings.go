// ABOUTME: Per-user capability bindings and field inclusion settings
// ABOUTME: Read at session start and by the sync projection step
package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/harperreed/deskhand/models"
)

// CapabilityBindings returns the user's stored capability -> provider bindings.
// Capabilities without a stored binding are absent from the map.
func (s *Store) CapabilityBindings(ctx context.Context, userID uuid.UUID) (map[models.Capability]string, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT capability, provider_id FROM capability_bindings WHERE user_id = ?
	`), userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to load capability bindings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[models.Capability]string)
	for rows.Next() {
		var capability, providerID string
		if err := rows.Scan(&capability, &providerID); err != nil {
			return nil, fmt.Errorf("failed to scan capability binding: %w", err)
		}
		out[models.Capability(capability)] = providerID
	}
	return out, rows.Err()
}

// SetCapabilityBinding binds a capability to a provider for the user.
func (s *Store) SetCapabilityBinding(ctx context.Context, userID uuid.UUID, c models.Capability, providerID string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO capability_bindings (user_id, capability, provider_id, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, capability) DO UPDATE SET
			provider_id = excluded.provider_id,
			updated_at = excluded.updated_at
	`), userID.String(), string(c), providerID, s.timestamp())
	if err != nil {
		return fmt.Errorf("failed to set capability binding: %w", err)
	}
	return nil
}

// FieldSettings returns explicit include/exclude flags for a capability's fields.
// Fields without a row use the catalog default.
func (s *Store) FieldSettings(ctx context.Context, userID uuid.UUID, c models.Capability) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT field, included FROM field_settings WHERE user_id = ? AND capability = ?
	`), userID.String(), string(c))
	if err != nil {
		return nil, fmt.Errorf("failed to load field settings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]bool)
	for rows.Next() {
		var field string
		var included bool
		if err := rows.Scan(&field, &included); err != nil {
			return nil, fmt.Errorf("failed to scan field setting: %w", err)
		}
		out[field] = included
	}
	return out, rows.Err()
}

// SetFieldIncluded stores whether a field is written to the cache on sync.
func (s *Store) SetFieldIncluded(ctx context.Context, userID uuid.UUID, c models.Capability, field string, included bool) error {
	table, err := TableFor(c)
	if err != nil {
		return err
	}
	if !table.HasColumn(field) {
		return fmt.Errorf("unknown %s field %q", c, field)
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO field_settings (user_id, capability, field, included)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, capability, field) DO UPDATE SET included = excluded.included
	`), userID.String(), string(c), field, included)
	if err != nil {
		return fmt.Errorf("failed to set field setting: %w", err)
	}
	return nil
}
