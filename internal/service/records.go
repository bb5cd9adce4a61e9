package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"

	pkgcrypto "github.com/and161185/snapshare/internal/crypto"
	"github.com/and161185/snapshare/internal/errs"
	"github.com/and161185/snapshare/internal/model"
	"github.com/and161185/snapshare/internal/repository"
)

// MaxPageSize bounds a single List call.
const MaxPageSize = 100

// RecordService is generic paginated CRUD over entity tables.
type RecordService interface {
	// List returns one page, newest first.
	List(ctx context.Context, userID uuid.UUID, table model.Table, scope model.Scope, limit, offset int) ([]model.Record, error)
	// Insert stores body as a new record owned by userID.
	Insert(ctx context.Context, userID uuid.UUID, table model.Table, scope model.Scope, body json.RawMessage) (model.Record, error)
	// Update merges patch into an owned record.
	Update(ctx context.Context, userID uuid.UUID, table model.Table, id uuid.UUID, patch model.Patch) (model.Record, error)
	// Delete removes an owned record and returns it.
	Delete(ctx context.Context, userID uuid.UUID, table model.Table, id uuid.UUID) (model.Record, error)
}

type RecordServiceImpl struct {
	records repository.RecordRepository
	groups  repository.GroupRepository
	gate    albumGate
	now     func() time.Time
}

// NewRecordService constructs RecordService.
func NewRecordService(records repository.RecordRepository, groups repository.GroupRepository) *RecordServiceImpl {
	return &RecordServiceImpl{
		records: records,
		groups:  groups,
		gate:    albumGate{records: records, groups: groups},
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// parented tables are always read and written under a parent id.
func parented(t model.Table) bool {
	return t == model.TablePhotos || t == model.TableComments || t == model.TableLikes
}

// checkParent applies the album rule to the parent of a parented record.
// Photos live directly in albums; comments and likes hang off a photo or an album.
func (s *RecordServiceImpl) checkParent(ctx context.Context, userID uuid.UUID, table model.Table, parentID uuid.UUID) error {
	if table == model.TablePhotos {
		_, _, err := s.gate.album(ctx, userID, parentID)
		return err
	}
	return s.gate.parent(ctx, userID, parentID)
}

func validateScope(table model.Table, scope model.Scope) error {
	if _, err := model.ParseTable(string(table)); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}
	if err := scope.Validate(); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}
	if parented(table) && scope.Kind != model.ScopeParent {
		return fmt.Errorf("%w: %s requires a parent scope", errs.ErrValidation, table)
	}
	if scope.Kind == model.ScopeMember && table != model.TableGroups {
		return fmt.Errorf("%w: member scope applies to groups only", errs.ErrValidation)
	}
	return nil
}

// List validates paging, checks access to the parent and delegates to the repository.
func (s *RecordServiceImpl) List(
	ctx context.Context, userID uuid.UUID, table model.Table, scope model.Scope, limit, offset int,
) ([]model.Record, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty userID", errs.ErrValidation)
	}
	if limit < 1 || limit > MaxPageSize {
		return nil, fmt.Errorf("%w: limit must be 1..%d", errs.ErrValidation, MaxPageSize)
	}
	if offset < 0 {
		return nil, fmt.Errorf("%w: negative offset", errs.ErrValidation)
	}
	if err := validateScope(table, scope); err != nil {
		return nil, err
	}
	if parented(table) {
		if err := s.checkParent(ctx, userID, table, scope.ID); err != nil {
			return nil, err
		}
	}
	return s.records.List(ctx, table, scope, userID, limit, offset)
}

// Insert assigns id and timestamps, stamps ownership fields into the body and stores it.
// Groups get an invite code when the client sent none and enrol their owner as a member.
func (s *RecordServiceImpl) Insert(
	ctx context.Context, userID uuid.UUID, table model.Table, scope model.Scope, body json.RawMessage,
) (model.Record, error) {
	if userID == uuid.Nil {
		return model.Record{}, fmt.Errorf("%w: empty userID", errs.ErrValidation)
	}
	if err := validateScope(table, scope); err != nil {
		return model.Record{}, err
	}
	if parented(table) {
		if err := s.checkParent(ctx, userID, table, scope.ID); err != nil {
			return model.Record{}, err
		}
	}
	var err error
	fields := map[string]any{}
	if err = json.Unmarshal(body, &fields); err != nil || fields == nil {
		return model.Record{}, fmt.Errorf("%w: body must be a JSON object", errs.ErrValidation)
	}

	id := model.NewID()
	if raw, ok := fields["id"].(string); ok {
		if parsed, err := uuid.FromString(raw); err == nil && parsed != uuid.Nil {
			id = parsed
		}
	}
	now := s.now()
	fields["id"] = id
	fields["createdAt"] = now

	switch table {
	case model.TableGroups:
		fields["owner"] = userID
		members, _ := fields["members"].([]any)
		if !containsAny(members, userID.String()) {
			members = append(members, userID.String())
		}
		fields["members"] = members
		code, _ := fields["inviteCode"].(string)
		if code = pkgcrypto.NormalizeInviteCode(code); code == "" {
			if code, err = pkgcrypto.NewInviteCode(); err != nil {
				return model.Record{}, err
			}
		}
		fields["inviteCode"] = code
	case model.TableComments:
		fields["author"] = userID
	case model.TableLikes:
		fields["userId"] = userID
	}

	rec := model.Record{ID: id, Kind: table, OwnerID: userID, CreatedAt: now, UpdatedAt: now}
	if scope.Kind == model.ScopeParent {
		parent := scope.ID
		rec.ScopeID = &parent
	}
	if rec.Body, err = json.Marshal(fields); err != nil {
		return model.Record{}, err
	}
	if err := s.records.Insert(ctx, rec); err != nil {
		return model.Record{}, err
	}
	if table == model.TableGroups {
		if err := s.groups.AddMember(ctx, id, userID); err != nil {
			return model.Record{}, fmt.Errorf("enrol owner: %w", err)
		}
	}
	return rec, nil
}

// immutable fields are owned by the server.
var immutable = []string{"id", "owner", "author", "userId", "createdAt"}

// Update strips server-owned fields from patch, stamps updatedAt and merges it.
func (s *RecordServiceImpl) Update(
	ctx context.Context, userID uuid.UUID, table model.Table, id uuid.UUID, patch model.Patch,
) (model.Record, error) {
	if userID == uuid.Nil || id == uuid.Nil {
		return model.Record{}, fmt.Errorf("%w: empty userID/id", errs.ErrValidation)
	}
	if _, err := model.ParseTable(string(table)); err != nil {
		return model.Record{}, fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}
	clean := make(model.Patch, len(patch)+1)
	for k, v := range patch {
		clean[k] = v
	}
	for _, k := range immutable {
		delete(clean, k)
	}
	clean["updatedAt"] = s.now()

	raw, err := json.Marshal(clean)
	if err != nil {
		return model.Record{}, fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}
	return s.records.Update(ctx, table, id, userID, raw)
}

// Delete removes an owned record.
func (s *RecordServiceImpl) Delete(ctx context.Context, userID uuid.UUID, table model.Table, id uuid.UUID) (model.Record, error) {
	if userID == uuid.Nil || id == uuid.Nil {
		return model.Record{}, fmt.Errorf("%w: empty userID/id", errs.ErrValidation)
	}
	if _, err := model.ParseTable(string(table)); err != nil {
		return model.Record{}, fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}
	return s.records.Delete(ctx, table, id, userID)
}

func containsAny(list []any, v string) bool {
	for _, x := range list {
		if s, ok := x.(string); ok && s == v {
			return true
		}
	}
	return false
}
