package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	db "github.com/JonMunkholm/leads/internal/database"
	"github.com/JonMunkholm/leads/internal/logging"
)

const mappingCachePrefix = "mapping:"

// MappingInput creates or updates a header mapping.
type MappingInput struct {
	Name        string `json:"name" validate:"required,max=200"`
	WorkspaceID string `json:"workspace_id" validate:"omitempty,uuid"`
	IsDefault   bool   `json:"is_default"`
	// Pairs maps lead field keys, or custom_field_<name>, to external headers.
	Pairs map[string]string `json:"mappings"`
}

// MappingMatch is a stored mapping scored against a header row.
type MappingMatch struct {
	Mapping HeaderMapping `json:"mapping"`
	Score   float64       `json:"score"`
}

// CreateHeaderMapping stores a mapping. When it is marked default, the
// previous default of the same scope is cleared in the same transaction.
func (s *Service) CreateHeaderMapping(ctx context.Context, in MappingInput) (*HeaderMapping, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("name", "mapping name is required")
	}
	fields, custom, err := SplitMappingPairs(in.Pairs)
	if err != nil {
		return nil, err
	}
	var wid pgtype.UUID
	if in.WorkspaceID != "" {
		if wid, err = parseID("workspace", in.WorkspaceID); err != nil {
			return nil, err
		}
	}
	fieldMap, customMap, err := encodeMapping(fields, custom)
	if err != nil {
		return nil, err
	}

	var out HeaderMapping
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		q := db.New(tx)
		if wid.Valid {
			if _, err := q.GetWorkspace(ctx, wid); err != nil {
				return notFound("workspace", err)
			}
		}
		if in.IsDefault {
			if err := q.ClearDefaultHeaderMapping(ctx, wid); err != nil {
				return fmt.Errorf("clear default mapping: %w", err)
			}
		}

		row, err := q.CreateHeaderMapping(ctx, db.CreateHeaderMappingParams{
			Name:        name,
			WorkspaceID: wid,
			IsDefault:   in.IsDefault,
			FieldMap:    fieldMap,
			CustomMap:   customMap,
			CreatedBy:   actorUUID(ctx),
		})
		if err != nil {
			return fmt.Errorf("create header mapping: %w", err)
		}
		out = mappingFromRow(row)

		return s.LogAudit(ctx, tx, AuditLogParams{
			Action:       ActionMappingCreate,
			Entity:       "header_mapping",
			EntityID:     out.ID,
			RowsAffected: 1,
			Detail:       map[string]any{"name": name, "default": in.IsDefault},
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidateMappings(ctx)
	return &out, nil
}

// GetHeaderMapping retrieves a mapping by ID.
func (s *Service) GetHeaderMapping(ctx context.Context, id string) (*HeaderMapping, error) {
	mid, err := parseID("mapping", id)
	if err != nil {
		return nil, err
	}
	row, err := db.New(s.pool).GetHeaderMapping(ctx, mid)
	if err != nil {
		return nil, notFound("header mapping", err)
	}
	m := mappingFromRow(row)
	return &m, nil
}

// ListHeaderMappings returns the global mappings plus, when workspaceID is
// set, those scoped to that workspace. Defaults sort first.
func (s *Service) ListHeaderMappings(ctx context.Context, workspaceID string) ([]HeaderMapping, error) {
	var wid pgtype.UUID
	if workspaceID != "" {
		var err error
		if wid, err = parseID("workspace", workspaceID); err != nil {
			return nil, err
		}
	}

	rows, err := db.New(s.pool).ListHeaderMappings(ctx, wid)
	if err != nil {
		return nil, fmt.Errorf("list header mappings: %w", err)
	}
	out := make([]HeaderMapping, len(rows))
	for i, r := range rows {
		out[i] = mappingFromRow(r)
	}
	return out, nil
}

// UpdateHeaderMapping replaces a mapping's name and pairs. Scope and
// default flag are unchanged; use SetDefaultHeaderMapping for the latter.
func (s *Service) UpdateHeaderMapping(ctx context.Context, id string, in MappingInput) (*HeaderMapping, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	mid, err := parseID("mapping", id)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("name", "mapping name is required")
	}
	fields, custom, err := SplitMappingPairs(in.Pairs)
	if err != nil {
		return nil, err
	}
	fieldMap, customMap, err := encodeMapping(fields, custom)
	if err != nil {
		return nil, err
	}

	row, err := db.New(s.pool).UpdateHeaderMapping(ctx, db.UpdateHeaderMappingParams{
		ID:        mid,
		Name:      name,
		FieldMap:  fieldMap,
		CustomMap: customMap,
	})
	if err != nil {
		return nil, notFound("header mapping", err)
	}
	m := mappingFromRow(row)

	s.invalidateMappings(ctx)
	s.recordAudit(ctx, AuditLogParams{Action: ActionMappingUpdate, Entity: "header_mapping", EntityID: id, RowsAffected: 1})
	return &m, nil
}

// DeleteHeaderMapping removes a mapping. Workspaces using it as their
// default fall back to the next resolution step.
func (s *Service) DeleteHeaderMapping(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	mid, err := parseID("mapping", id)
	if err != nil {
		return err
	}

	n, err := db.New(s.pool).DeleteHeaderMapping(ctx, mid)
	if err != nil {
		return fmt.Errorf("delete header mapping: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("header mapping %w", ErrNotFound)
	}

	s.invalidateMappings(ctx)
	s.recordAudit(ctx, AuditLogParams{Action: ActionMappingDelete, Entity: "header_mapping", EntityID: id, RowsAffected: 1})
	return nil
}

// SetDefaultHeaderMapping makes the mapping the default of its scope,
// clearing the previous default in the same transaction.
func (s *Service) SetDefaultHeaderMapping(ctx context.Context, id string) (*HeaderMapping, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	mid, err := parseID("mapping", id)
	if err != nil {
		return nil, err
	}

	var out HeaderMapping
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		q := db.New(tx)
		row, err := q.GetHeaderMapping(ctx, mid)
		if err != nil {
			return notFound("header mapping", err)
		}
		if err := q.ClearDefaultHeaderMapping(ctx, row.WorkspaceID); err != nil {
			return fmt.Errorf("clear default mapping: %w", err)
		}
		if err := q.SetHeaderMappingDefault(ctx, mid); err != nil {
			return fmt.Errorf("set default mapping: %w", err)
		}
		row.IsDefault = true
		out = mappingFromRow(row)

		return s.LogAudit(ctx, tx, AuditLogParams{
			Action:       ActionMappingUpdate,
			Entity:       "header_mapping",
			EntityID:     id,
			RowsAffected: 1,
			Detail:       map[string]any{"default": true},
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidateMappings(ctx)
	return &out, nil
}

// cachedMapping wraps a resolution so "no mapping" can be cached too.
type cachedMapping struct {
	Mapping *HeaderMapping `json:"mapping"`
}

// ResolveMappingFor picks the mapping an import uses: the explicit
// mappingID, else the workspace's default_header_mapping_id, else the
// workspace's default mapping, else the global default. A nil result
// means synonym matching.
func (s *Service) ResolveMappingFor(ctx context.Context, workspaceID, mappingID string) (*HeaderMapping, error) {
	var wid pgtype.UUID
	if workspaceID != "" {
		var err error
		if wid, err = parseID("workspace", workspaceID); err != nil {
			return nil, err
		}
	}
	q := db.New(s.pool)

	if mappingID != "" {
		mid, err := parseID("mapping", mappingID)
		if err != nil {
			return nil, err
		}
		row, err := q.GetHeaderMapping(ctx, mid)
		if err != nil {
			return nil, notFound("header mapping", err)
		}
		if row.WorkspaceID.Valid && row.WorkspaceID != wid {
			return nil, invalid("mapping_id", "mapping belongs to another workspace")
		}
		m := mappingFromRow(row)
		return &m, nil
	}

	key := mappingCachePrefix + "global"
	if wid.Valid {
		key = mappingCachePrefix + "ws:" + workspaceID
	}
	var cached cachedMapping
	if ok, err := s.cache.Get(ctx, key, &cached); err != nil {
		logging.FromContext(ctx).Warn("mapping cache read failed", "key", key, "error", err)
	} else if ok {
		return cached.Mapping, nil
	}

	m, err := resolveStoredMapping(ctx, q, wid)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, cachedMapping{Mapping: m}); err != nil {
		logging.FromContext(ctx).Warn("mapping cache write failed", "key", key, "error", err)
	}
	return m, nil
}

func resolveStoredMapping(ctx context.Context, q *db.Queries, wid pgtype.UUID) (*HeaderMapping, error) {
	found := func(row db.HeaderMapping, err error) (*HeaderMapping, bool, error) {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("resolve header mapping: %w", err)
		}
		m := mappingFromRow(row)
		return &m, true, nil
	}

	if wid.Valid {
		ws, err := q.GetWorkspace(ctx, wid)
		if err != nil {
			return nil, notFound("workspace", err)
		}
		if ws.DefaultHeaderMappingID.Valid {
			if m, ok, err := found(q.GetHeaderMapping(ctx, ws.DefaultHeaderMappingID)); ok || err != nil {
				return m, err
			}
		}
		if m, ok, err := found(q.GetDefaultHeaderMapping(ctx, wid)); ok || err != nil {
			return m, err
		}
	}

	m, _, err := found(q.GetDefaultHeaderMapping(ctx, pgtype.UUID{}))
	return m, err
}

// MatchMappings ranks the mappings visible to a workspace by the share of
// their external headers present in headers, best first. Mappings scoring
// below MappingMatchThreshold are omitted.
func (s *Service) MatchMappings(ctx context.Context, workspaceID string, headers []string) ([]MappingMatch, error) {
	mappings, err := s.ListHeaderMappings(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	return rankMappings(mappings, headers), nil
}

func rankMappings(mappings []HeaderMapping, headers []string) []MappingMatch {
	var matches []MappingMatch
	for _, m := range mappings {
		score := matchMappingHeaders(headers, &m)
		if score >= MappingMatchThreshold {
			matches = append(matches, MappingMatch{Mapping: m, Score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

func (s *Service) invalidateMappings(ctx context.Context) {
	if err := s.cache.DeletePrefix(ctx, mappingCachePrefix); err != nil {
		logging.FromContext(ctx).Warn("mapping cache invalidation failed", "error", err)
	}
}

func encodeMapping(fields map[LeadField]string, custom map[string]string) (string, string, error) {
	f, err := json.Marshal(fields)
	if err != nil {
		return "", "", fmt.Errorf("marshal field map: %w", err)
	}
	c, err := json.Marshal(custom)
	if err != nil {
		return "", "", fmt.Errorf("marshal custom map: %w", err)
	}
	return string(f), string(c), nil
}

// decodeMapping reads the stored maps. Prefixed custom keys found in the
// field map are moved to the custom map, unknown field keys are dropped and
// non-string custom values are ignored.
func decodeMapping(fieldMap, customMap string) (map[LeadField]string, map[string]string) {
	fields := make(map[LeadField]string)
	custom := make(map[string]string)

	var rawFields map[string]string
	_ = json.Unmarshal([]byte(fieldMap), &rawFields)
	for k, v := range rawFields {
		if strings.TrimSpace(v) == "" {
			continue
		}
		if name, ok := strings.CutPrefix(k, CustomFieldPrefix); ok {
			custom[name] = v
			continue
		}
		if f, ok := LookupField(k); ok {
			fields[f] = v
		}
	}

	var rawCustom map[string]any
	_ = json.Unmarshal([]byte(customMap), &rawCustom)
	for k, v := range rawCustom {
		if str, ok := v.(string); ok && strings.TrimSpace(str) != "" {
			custom[strings.TrimPrefix(k, CustomFieldPrefix)] = str
		}
	}
	return fields, custom
}

func mappingFromRow(r db.HeaderMapping) HeaderMapping {
	fields, custom := decodeMapping(r.FieldMap, r.CustomMap)
	return HeaderMapping{
		ID:          PgUUIDToString(r.ID),
		Name:        r.Name,
		WorkspaceID: PgUUIDToString(r.WorkspaceID),
		IsDefault:   r.IsDefault,
		Fields:      fields,
		Custom:      custom,
		CreatedAt:   pgTime(r.CreatedAt),
		UpdatedAt:   pgTime(r.UpdatedAt),
	}
}
